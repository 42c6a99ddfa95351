package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/ragserve/internal/ai"
	"github.com/xxxsen/ragserve/internal/chunker"
	"github.com/xxxsen/ragserve/internal/docsource"
	"github.com/xxxsen/ragserve/internal/extract"
	"github.com/xxxsen/ragserve/internal/model"
	apperr "github.com/xxxsen/ragserve/internal/pkg/errors"
	"github.com/xxxsen/ragserve/internal/vectorstore"
)

type IngestConfig struct {
	Collection string
	Dim        int
	ChunkSize  int
	Workers    int
}

// IngestService drives one document through extract → chunk → embed →
// upsert, for every document the source lists. A failing document is
// recorded and skipped, never fatal to the run.
type IngestService struct {
	source   docsource.Source
	embedder ai.IEmbedder
	store    vectorstore.Store
	cfg      IngestConfig

	running atomic.Bool
}

func NewIngestService(source docsource.Source, embedder ai.IEmbedder, store vectorstore.Store, cfg IngestConfig) *IngestService {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = chunker.DefaultChunkSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &IngestService{
		source:   source,
		embedder: embedder,
		store:    store,
		cfg:      cfg,
	}
}

// Running reports whether a run is currently in flight.
func (s *IngestService) Running() bool {
	return s.running.Load()
}

// Run executes one ingestion pass. Only one run may be in flight at a time;
// a second trigger gets ErrIngestRunning instead of queueing, so scheduled
// and manual triggers cannot race each other into duplicate work.
func (s *IngestService) Run(ctx context.Context) (*model.IngestReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, apperr.ErrIngestRunning
	}
	defer s.running.Store(false)

	logger := logutil.GetLogger(ctx).With(zap.String("collection", s.cfg.Collection))
	start := time.Now()

	docs, err := s.source.List(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.store.EnsureCollection(ctx, s.cfg.Collection, s.cfg.Dim, vectorstore.DistanceCosine); err != nil {
		return nil, err
	}

	report := &model.IngestReport{Discovered: len(docs)}
	var mu sync.Mutex

	pool, err := ants.NewPool(s.cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("create ingest pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for _, doc := range docs {
		ext := strings.ToLower(filepath.Ext(doc.Path))
		if !extract.Supported(ext) {
			logger.Warn("skipping unsupported file", zap.String("path", doc.Path), zap.String("ext", ext))
			report.Skipped++
			continue
		}
		doc := doc
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			chunks, err := s.processDocument(ctx, doc)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Error("document ingestion failed", zap.String("path", doc.Path), zap.Error(err))
				report.Failures = append(report.Failures, model.IngestFailure{Path: doc.Path, Reason: err.Error()})
				return
			}
			logger.Info("document ingested", zap.String("path", doc.Path), zap.Int("chunks", chunks))
			report.Ingested++
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			report.Failures = append(report.Failures, model.IngestFailure{Path: doc.Path, Reason: submitErr.Error()})
			mu.Unlock()
		}
	}
	wg.Wait()

	report.Elapsed = time.Since(start)
	report.ElapsedMS = report.Elapsed.Milliseconds()
	logger.Info("ingestion run finished",
		zap.Int("discovered", report.Discovered),
		zap.Int("ingested", report.Ingested),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", len(report.Failures)),
		zap.Duration("elapsed", report.Elapsed),
	)
	return report, nil
}

func (s *IngestService) processDocument(ctx context.Context, doc model.Document) (int, error) {
	rc, err := s.source.Open(ctx, doc.Path)
	if err != nil {
		return 0, fmt.Errorf("%w: open: %v", apperr.ErrExtraction, err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return 0, fmt.Errorf("%w: read: %v", apperr.ErrExtraction, err)
	}

	text, err := extract.Text(ctx, strings.ToLower(filepath.Ext(doc.Path)), data)
	if err != nil {
		return 0, err
	}
	chunks := chunker.Split(text, s.cfg.ChunkSize)
	if len(chunks) == 0 {
		return 0, nil
	}

	vectors, err := s.embedder.Embed(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", apperr.ErrEmbedding, err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("%w: got %d vectors for %d chunks", apperr.ErrEmbedding, len(vectors), len(chunks))
	}
	points := make([]model.Point, 0, len(chunks))
	for i, chunk := range chunks {
		if len(vectors[i]) != s.cfg.Dim {
			return 0, fmt.Errorf("%w: embedding dim %d, collection wants %d",
				apperr.ErrSchemaMismatch, len(vectors[i]), s.cfg.Dim)
		}
		points = append(points, model.Point{
			ID:     chunker.PointID(doc.Path, i),
			Vector: vectors[i],
			Payload: map[string]interface{}{
				model.PayloadKeyText:   chunk,
				model.PayloadKeySource: doc.Path,
				model.PayloadKeyIndex:  i,
			},
		})
	}
	if err := s.store.Upsert(ctx, s.cfg.Collection, points); err != nil {
		return 0, err
	}
	return len(points), nil
}
