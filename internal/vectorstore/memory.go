package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"

	"github.com/xxxsen/ragserve/internal/config"
	"github.com/xxxsen/ragserve/internal/model"
	apperr "github.com/xxxsen/ragserve/internal/pkg/errors"
)

// memoryStore is a brute-force in-process backend. It is the reference
// implementation for the Store semantics and backs tests and dev setups.
type memoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
}

type memCollection struct {
	dim    int
	points map[string]model.Point
	order  []string // insertion order, stable across overwrites
}

func init() {
	Register("memory", func(config.VectorConfig) (Store, error) {
		return NewMemory(), nil
	})
}

func NewMemory() Store {
	return &memoryStore{collections: map[string]*memCollection{}}
}

func (s *memoryStore) EnsureCollection(_ context.Context, name string, dim int, _ string) error {
	if dim <= 0 {
		return fmt.Errorf("invalid dimension %d", dim)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if col, ok := s.collections[name]; ok {
		if col.dim != dim {
			return fmt.Errorf("%w: collection %s has dim %d, want %d", apperr.ErrSchemaMismatch, name, col.dim, dim)
		}
		return nil
	}
	s.collections[name] = &memCollection{dim: dim, points: map[string]model.Point{}}
	return nil
}

func (s *memoryStore) Upsert(_ context.Context, collection string, points []model.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.collections[collection]
	if !ok {
		return fmt.Errorf("%w: collection %s", apperr.ErrNotFound, collection)
	}
	// Validate the whole batch before touching anything so a bad point
	// cannot leave a partial write behind.
	for _, p := range points {
		if len(p.Vector) != col.dim {
			return fmt.Errorf("%w: point %s has dim %d, collection %s wants %d",
				apperr.ErrSchemaMismatch, p.ID, len(p.Vector), collection, col.dim)
		}
	}
	for _, p := range points {
		if _, exists := col.points[p.ID]; !exists {
			col.order = append(col.order, p.ID)
		}
		col.points[p.ID] = p
	}
	return nil
}

func (s *memoryStore) Search(_ context.Context, collection string, vector []float32, topK int, withPayload bool) ([]model.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("%w: collection %s", apperr.ErrNotFound, collection)
	}
	if len(vector) != col.dim {
		return nil, fmt.Errorf("%w: query has dim %d, collection %s wants %d",
			apperr.ErrSchemaMismatch, len(vector), collection, col.dim)
	}
	if topK <= 0 {
		topK = 5
	}
	results := make([]model.SearchResult, 0, len(col.points))
	for _, p := range col.points {
		r := model.SearchResult{ID: p.ID, Score: cosineSimilarity(vector, p.Vector)}
		if withPayload {
			r.Payload = p.Payload
		}
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (s *memoryStore) Scroll(_ context.Context, collection string, limit int, cursor string) (*model.ScrollPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("%w: collection %s", apperr.ErrNotFound, collection)
	}
	if limit <= 0 {
		limit = 50
	}
	offset := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: bad cursor %q", apperr.ErrInvalidRequest, cursor)
		}
		offset = n
	}
	page := &model.ScrollPage{}
	for i := offset; i < len(col.order) && len(page.Points) < limit; i++ {
		page.Points = append(page.Points, col.points[col.order[i]])
	}
	if next := offset + len(page.Points); next < len(col.order) {
		page.NextCursor = strconv.Itoa(next)
	}
	return page, nil
}

func cosineSimilarity(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
