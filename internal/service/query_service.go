package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/ragserve/internal/ai"
	"github.com/xxxsen/ragserve/internal/model"
	apperr "github.com/xxxsen/ragserve/internal/pkg/errors"
	"github.com/xxxsen/ragserve/internal/vectorstore"
)

const contextDelimiter = "\n---\n"

type QueryConfig struct {
	Collection string
	TopK       int
}

// QueryService answers a question by embedding it, pulling the nearest
// chunks and handing chunks + question to the generator. Requests are
// stateless and freely concurrent.
type QueryService struct {
	embedder  ai.IEmbedder
	generator ai.IGenerator
	store     vectorstore.Store
	cfg       QueryConfig
}

func NewQueryService(embedder ai.IEmbedder, generator ai.IGenerator, store vectorstore.Store, cfg QueryConfig) *QueryService {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	return &QueryService{
		embedder:  embedder,
		generator: generator,
		store:     store,
		cfg:       cfg,
	}
}

// Ask runs the blocking variant and returns one answer string.
func (s *QueryService) Ask(ctx context.Context, query string) (string, error) {
	prompt, err := s.buildPrompt(ctx, query)
	if err != nil {
		return "", err
	}
	answer, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrGeneration, err)
	}
	return answer, nil
}

// AskStream runs the streaming variant. The returned channel closes when the
// generator finishes or ctx is cancelled; a terminal provider failure
// arrives as a final chunk with Err set.
func (s *QueryService) AskStream(ctx context.Context, query string) (<-chan ai.StreamChunk, error) {
	prompt, err := s.buildPrompt(ctx, query)
	if err != nil {
		return nil, err
	}
	stream, err := s.generator.GenerateStream(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrGeneration, err)
	}
	out := make(chan ai.StreamChunk)
	go func() {
		defer close(out)
		for chunk := range stream {
			if chunk.Err != nil {
				chunk.Err = fmt.Errorf("%w: %v", apperr.ErrGeneration, chunk.Err)
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// buildPrompt validates the query, retrieves context and assembles the
// final prompt. No external service is touched for an empty query.
func (s *QueryService) buildPrompt(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("%w: empty query", apperr.ErrInvalidRequest)
	}
	logger := logutil.GetLogger(ctx).With(zap.String("collection", s.cfg.Collection))
	start := time.Now()

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrEmbedding, err)
	}
	if len(vectors) != 1 {
		return "", fmt.Errorf("%w: got %d vectors for one query", apperr.ErrEmbedding, len(vectors))
	}
	results, err := s.store.Search(ctx, s.cfg.Collection, vectors[0], s.cfg.TopK, true)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrRetrieval, err)
	}
	logger.Info("retrieval done",
		zap.Int("query_len", len(query)),
		zap.Int("hits", len(results)),
		zap.Duration("elapsed", time.Since(start)),
	)
	// Zero hits still go to generation with an empty context block; the
	// model answers from its own weights in that case.
	return assemblePrompt(results, query), nil
}

func assemblePrompt(results []model.SearchResult, query string) string {
	texts := make([]string, 0, len(results))
	for _, r := range results {
		if txt, ok := r.Payload[model.PayloadKeyText].(string); ok && txt != "" {
			texts = append(texts, txt)
		}
	}
	var sb strings.Builder
	sb.WriteString("Use the following context to answer the question.\n\nContext:\n")
	sb.WriteString(strings.Join(texts, contextDelimiter))
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(query)
	sb.WriteString("\nAnswer:")
	return sb.String()
}
