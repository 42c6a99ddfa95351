package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/ragserve/internal/config"
	"github.com/xxxsen/ragserve/internal/model"
	apperr "github.com/xxxsen/ragserve/internal/pkg/errors"
)

// pgStore keeps points in Postgres with the pgvector extension: one shared
// points table keyed by (collection, id) plus a collections table recording
// each collection's dimension.
type pgStore struct {
	db *sqlx.DB

	dimMu sync.RWMutex
	dims  map[string]int
}

func init() {
	Register("pgvector", createPGStore)
}

func createPGStore(cfg config.VectorConfig) (Store, error) {
	if cfg.PGDSN == "" {
		return nil, fmt.Errorf("pgvector dsn is required")
	}
	db, err := sqlx.Open("postgres", cfg.PGDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return &pgStore{db: db, dims: map[string]int{}}, nil
}

func (s *pgStore) EnsureCollection(ctx context.Context, name string, dim int, distance string) error {
	if dim <= 0 {
		return fmt.Errorf("invalid dimension %d", dim)
	}
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS collections (
			name TEXT PRIMARY KEY,
			dim INT NOT NULL,
			distance TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS points (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			embedding vector NOT NULL,
			payload JSONB NOT NULL,
			PRIMARY KEY (collection, id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	if distance == "" {
		distance = DistanceCosine
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO collections (name, dim, distance) VALUES ($1, $2, $3) ON CONFLICT (name) DO NOTHING`,
		name, dim, distance)
	if err != nil {
		return fmt.Errorf("register collection: %w", err)
	}
	existing, err := s.collectionDim(ctx, name)
	if err != nil {
		return err
	}
	if existing != dim {
		return fmt.Errorf("%w: collection %s has dim %d, want %d", apperr.ErrSchemaMismatch, name, existing, dim)
	}
	return nil
}

func (s *pgStore) Upsert(ctx context.Context, collection string, points []model.Point) error {
	if len(points) == 0 {
		return nil
	}
	dim, err := s.collectionDim(ctx, collection)
	if err != nil {
		return err
	}
	for _, p := range points {
		if len(p.Vector) != dim {
			return fmt.Errorf("%w: point %s has dim %d, collection %s wants %d",
				apperr.ErrSchemaMismatch, p.ID, len(p.Vector), collection, dim)
		}
	}
	// One transaction per batch: either every point lands or none does.
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()
	const stmt = `
		INSERT INTO points (collection, id, embedding, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (collection, id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			payload = EXCLUDED.payload
	`
	for _, p := range points {
		payload, err := json.Marshal(p.Payload)
		if err != nil {
			return fmt.Errorf("encode payload for %s: %w", p.ID, err)
		}
		if _, err := tx.ExecContext(ctx, stmt, collection, p.ID, pgvector.NewVector(p.Vector), payload); err != nil {
			return fmt.Errorf("upsert point %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

func (s *pgStore) Search(ctx context.Context, collection string, vector []float32, topK int, withPayload bool) ([]model.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	dim, err := s.collectionDim(ctx, collection)
	if err != nil {
		return nil, err
	}
	if len(vector) != dim {
		return nil, fmt.Errorf("%w: query has dim %d, collection %s wants %d",
			apperr.ErrSchemaMismatch, len(vector), collection, dim)
	}
	const query = `
		SELECT id, payload, 1 - (embedding <=> $1) AS score
		FROM points
		WHERE collection = $2
		ORDER BY embedding <=> $1
		LIMIT $3
	`
	rows, err := s.db.QueryContext(ctx, query, pgvector.NewVector(vector), collection, topK)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", collection, err)
	}
	defer rows.Close()

	var results []model.SearchResult
	for rows.Next() {
		var (
			id      string
			payload []byte
			score   float64
		)
		if err := rows.Scan(&id, &payload, &score); err != nil {
			return nil, err
		}
		r := model.SearchResult{ID: id, Score: float32(score)}
		if withPayload {
			if err := json.Unmarshal(payload, &r.Payload); err != nil {
				return nil, fmt.Errorf("decode payload for %s: %w", id, err)
			}
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *pgStore) Scroll(ctx context.Context, collection string, limit int, cursor string) (*model.ScrollPage, error) {
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
	where := map[string]interface{}{
		"collection": collection,
		"_orderby":   "id asc",
		"_limit":     []uint{uint(offset), uint(limit)},
	}
	query, args, err := builder.BuildSelect("points", where, []string{"id", "payload"})
	if err != nil {
		return nil, fmt.Errorf("build scroll query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("scroll %s: %w", collection, err)
	}
	defer rows.Close()

	page := &model.ScrollPage{}
	for rows.Next() {
		var (
			id      string
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		p := model.Point{ID: id}
		if err := json.Unmarshal(payload, &p.Payload); err != nil {
			return nil, fmt.Errorf("decode payload for %s: %w", id, err)
		}
		page.Points = append(page.Points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(page.Points) == limit {
		page.NextCursor = strconv.Itoa(offset + limit)
	}
	return page, nil
}

func (s *pgStore) collectionDim(ctx context.Context, name string) (int, error) {
	s.dimMu.RLock()
	dim, ok := s.dims[name]
	s.dimMu.RUnlock()
	if ok {
		return dim, nil
	}
	err := s.db.QueryRowContext(ctx, `SELECT dim FROM collections WHERE name = $1`, name).Scan(&dim)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("%w: collection %s", apperr.ErrNotFound, name)
	}
	if err != nil {
		return 0, fmt.Errorf("lookup collection %s: %w", name, err)
	}
	s.dimMu.Lock()
	s.dims[name] = dim
	s.dimMu.Unlock()
	return dim, nil
}
