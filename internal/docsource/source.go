package docsource

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/xxxsen/ragserve/internal/config"
	"github.com/xxxsen/ragserve/internal/model"
)

// Source lists and opens the documents the ingestion pipeline works on.
// Paths returned by List are canonical for the backend and feed directly
// into point id derivation, so a backend must return them stably.
type Source interface {
	List(ctx context.Context) ([]model.Document, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

type Factory func(cfg config.SourceConfig) (Source, error)

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

func New(cfg config.SourceConfig) (Source, error) {
	key := strings.ToLower(strings.TrimSpace(cfg.Type))
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported document source: %s", cfg.Type)
	}
	return factory(cfg)
}
