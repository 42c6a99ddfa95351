package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var ErrUnavailable = errors.New("ai provider not configured")

// StreamChunk is one fragment of a streaming generation. The channel is
// closed after the provider's end marker; a terminal failure arrives as a
// final chunk with Err set.
type StreamChunk struct {
	Delta string
	Err   error
}

// IEmbedProvider maps a batch of texts to one vector each, preserving input
// order. Vectors share the embedding model's fixed dimension.
type IEmbedProvider interface {
	Name() string
	Embed(ctx context.Context, model string, texts []string) ([][]float32, error)
}

// IGenProvider produces a completion for a prompt, blocking or streaming.
type IGenProvider interface {
	Name() string
	Generate(ctx context.Context, model string, prompt string, maxTokens int) (string, error)
	GenerateStream(ctx context.Context, model string, prompt string, maxTokens int) (<-chan StreamChunk, error)
}

// IEmbedder is an embed provider bound to a model name.
type IEmbedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
}

// IGenerator is a generation provider bound to a model and token budget.
type IGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateStream(ctx context.Context, prompt string) (<-chan StreamChunk, error)
}

type embedder struct {
	provider IEmbedProvider
	model    string
}

func NewEmbedder(p IEmbedProvider, model string) IEmbedder {
	return &embedder{provider: p, model: model}
}

func (e *embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return e.provider.Embed(ctx, e.model, texts)
}

func (e *embedder) ModelName() string {
	return e.model
}

type generator struct {
	provider  IGenProvider
	model     string
	maxTokens int
}

func NewGenerator(p IGenProvider, model string, maxTokens int) IGenerator {
	return &generator{provider: p, model: model, maxTokens: maxTokens}
}

func (g *generator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.provider.Generate(ctx, g.model, prompt, g.maxTokens)
}

func (g *generator) GenerateStream(ctx context.Context, prompt string) (<-chan StreamChunk, error) {
	return g.provider.GenerateStream(ctx, g.model, prompt, g.maxTokens)
}

type GenFactory func(args interface{}) (IGenProvider, error)
type EmbedFactory func(args interface{}) (IEmbedProvider, error)

var (
	registryMu      sync.RWMutex
	genRegistry     = map[string]GenFactory{}
	embedRegistry   = map[string]EmbedFactory{}
)

func Register(name string, factory GenFactory) {
	registryMu.Lock()
	genRegistry[strings.ToLower(name)] = factory
	registryMu.Unlock()
}

func RegisterEmbed(name string, factory EmbedFactory) {
	registryMu.Lock()
	embedRegistry[strings.ToLower(name)] = factory
	registryMu.Unlock()
}

func NewProvider(name string, args interface{}) (IGenProvider, error) {
	registryMu.RLock()
	factory := genRegistry[strings.ToLower(name)]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unknown ai provider: %s", name)
	}
	return factory(args)
}

func NewEmbedProvider(name string, args interface{}) (IEmbedProvider, error) {
	registryMu.RLock()
	factory := embedRegistry[strings.ToLower(name)]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unknown embed provider: %s", name)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("ai provider config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode ai provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode ai provider config: %w", err)
	}
	return nil
}
