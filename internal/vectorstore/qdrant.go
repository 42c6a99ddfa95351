package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xxxsen/ragserve/internal/config"
	"github.com/xxxsen/ragserve/internal/model"
	apperr "github.com/xxxsen/ragserve/internal/pkg/errors"
)

// qdrantStore talks to Qdrant's REST API. Upserts go out with ?wait=true so
// a 2xx means the batch is durable, and a non-2xx fails the whole batch.
type qdrantStore struct {
	url    string
	apiKey string
	client *http.Client
}

func init() {
	Register("qdrant", createQdrantStore)
}

func createQdrantStore(cfg config.VectorConfig) (Store, error) {
	if cfg.QdrantURL == "" {
		return nil, fmt.Errorf("qdrant url is required")
	}
	return &qdrantStore{
		url:    strings.TrimRight(cfg.QdrantURL, "/"),
		apiKey: cfg.QdrantKey,
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type qdrantCollectionInfo struct {
	Result struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	} `json:"result"`
}

func (s *qdrantStore) EnsureCollection(ctx context.Context, name string, dim int, distance string) error {
	var info qdrantCollectionInfo
	status, err := s.do(ctx, http.MethodGet, "/collections/"+name, nil, &info)
	if err != nil {
		return fmt.Errorf("qdrant get collection: %w", err)
	}
	switch {
	case status == http.StatusOK:
		if got := info.Result.Config.Params.Vectors.Size; got != dim {
			return fmt.Errorf("%w: collection %s has dim %d, want %d", apperr.ErrSchemaMismatch, name, got, dim)
		}
		return nil
	case status == http.StatusNotFound:
		body := map[string]interface{}{
			"vectors": map[string]interface{}{
				"size":     dim,
				"distance": qdrantDistance(distance),
			},
		}
		status, err = s.do(ctx, http.MethodPut, "/collections/"+name, body, nil)
		if err != nil {
			return fmt.Errorf("qdrant create collection: %w", err)
		}
		if status != http.StatusOK {
			return fmt.Errorf("qdrant create collection %s: status %d", name, status)
		}
		return nil
	default:
		return fmt.Errorf("qdrant get collection %s: status %d", name, status)
	}
}

func (s *qdrantStore) Upsert(ctx context.Context, collection string, points []model.Point) error {
	if len(points) == 0 {
		return nil
	}
	items := make([]map[string]interface{}, 0, len(points))
	for _, p := range points {
		items = append(items, map[string]interface{}{
			"id":      p.ID,
			"vector":  p.Vector,
			"payload": p.Payload,
		})
	}
	status, err := s.do(ctx, http.MethodPut,
		fmt.Sprintf("/collections/%s/points?wait=true", collection),
		map[string]interface{}{"points": items}, nil)
	if err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	if status != http.StatusOK {
		if status == http.StatusBadRequest || status == http.StatusUnprocessableEntity {
			return fmt.Errorf("%w: qdrant rejected upsert batch (status %d)", apperr.ErrSchemaMismatch, status)
		}
		return fmt.Errorf("qdrant upsert into %s: status %d", collection, status)
	}
	return nil
}

func (s *qdrantStore) Search(ctx context.Context, collection string, vector []float32, topK int, withPayload bool) ([]model.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	req := map[string]interface{}{
		"vector":       vector,
		"limit":        topK,
		"with_payload": withPayload,
	}
	var resp struct {
		Result []struct {
			ID      interface{}            `json:"id"`
			Score   float32                `json:"score"`
			Payload map[string]interface{} `json:"payload"`
		} `json:"result"`
	}
	status, err := s.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/search", collection), req, &resp)
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("qdrant search in %s: status %d", collection, status)
	}
	results := make([]model.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, model.SearchResult{
			ID:      fmt.Sprint(r.ID),
			Score:   r.Score,
			Payload: r.Payload,
		})
	}
	return results, nil
}

func (s *qdrantStore) Scroll(ctx context.Context, collection string, limit int, cursor string) (*model.ScrollPage, error) {
	if limit <= 0 {
		limit = 50
	}
	req := map[string]interface{}{
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
	}
	if cursor != "" {
		// Qdrant's scroll cursor is the next point id.
		req["offset"] = cursor
	}
	var resp struct {
		Result struct {
			Points []struct {
				ID      interface{}            `json:"id"`
				Payload map[string]interface{} `json:"payload"`
			} `json:"points"`
			NextPageOffset interface{} `json:"next_page_offset"`
		} `json:"result"`
	}
	status, err := s.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/scroll", collection), req, &resp)
	if err != nil {
		return nil, fmt.Errorf("qdrant scroll: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("qdrant scroll in %s: status %d", collection, status)
	}
	page := &model.ScrollPage{}
	for _, p := range resp.Result.Points {
		page.Points = append(page.Points, model.Point{
			ID:      fmt.Sprint(p.ID),
			Payload: p.Payload,
		})
	}
	if resp.Result.NextPageOffset != nil {
		page.NextCursor = fmt.Sprint(resp.Result.NextPageOffset)
	}
	return page, nil
}

// do runs one JSON round trip and returns the HTTP status; callers decide
// which statuses are errors so EnsureCollection can branch on 404.
func (s *qdrantStore) do(ctx context.Context, method, path string, body interface{}, out interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.url+path, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

func qdrantDistance(distance string) string {
	switch strings.ToLower(distance) {
	case "", DistanceCosine:
		return "Cosine"
	case "euclid", "euclidean", "l2":
		return "Euclid"
	case "dot":
		return "Dot"
	default:
		return "Cosine"
	}
}
