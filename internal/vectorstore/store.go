package vectorstore

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xxxsen/ragserve/internal/config"
	"github.com/xxxsen/ragserve/internal/model"

	"context"
)

// DistanceCosine is the only metric the pipelines use; backends may accept
// others for completeness.
const DistanceCosine = "cosine"

// Store is the vector index contract. Implementations must make
// EnsureCollection idempotent, Upsert an insert-or-replace keyed by point id
// with explicit whole-batch failure, and Search ordered by descending
// similarity truncated to topK.
type Store interface {
	EnsureCollection(ctx context.Context, name string, dim int, distance string) error
	Upsert(ctx context.Context, collection string, points []model.Point) error
	Search(ctx context.Context, collection string, vector []float32, topK int, withPayload bool) ([]model.SearchResult, error)
	// Scroll pages through points without a query vector. Pass the previous
	// page's NextCursor to continue; an empty NextCursor ends the listing.
	Scroll(ctx context.Context, collection string, limit int, cursor string) (*model.ScrollPage, error)
}

type Factory func(cfg config.VectorConfig) (Store, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(cfg config.VectorConfig) (Store, error) {
	key := strings.ToLower(strings.TrimSpace(cfg.Backend))
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported vector store backend: %s", cfg.Backend)
	}
	return factory(cfg)
}
