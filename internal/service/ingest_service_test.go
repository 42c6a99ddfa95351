package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/ragserve/internal/chunker"
	"github.com/xxxsen/ragserve/internal/config"
	"github.com/xxxsen/ragserve/internal/docsource"
	"github.com/xxxsen/ragserve/internal/model"
	apperr "github.com/xxxsen/ragserve/internal/pkg/errors"
	"github.com/xxxsen/ragserve/internal/vectorstore"
)

// wordEmbedder is a deterministic toy embedder: dimension 4, a couple of
// marker words steer the vector so similarity has something to bite on.
type wordEmbedder struct {
	mu    sync.Mutex
	calls int
}

func (f *wordEmbedder) ModelName() string { return "fake" }

func (f *wordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v := []float32{1, 0, 0, 0}
		if strings.Contains(text, "alpha") {
			v = []float32{0, 1, 0, 0}
		}
		if strings.Contains(text, "omega") {
			v = []float32{0, 0, 1, 0}
		}
		out[i] = v
	}
	return out, nil
}

func newLocalIngest(t *testing.T, root string, workers int) (*IngestService, vectorstore.Store, *wordEmbedder) {
	t.Helper()
	src, err := docsource.New(config.SourceConfig{Type: "local", Path: root})
	require.NoError(t, err)
	store := vectorstore.NewMemory()
	emb := &wordEmbedder{}
	svc := NewIngestService(src, emb, store, IngestConfig{
		Collection: "docs",
		Dim:        4,
		ChunkSize:  500,
		Workers:    workers,
	})
	return svc, store, emb
}

func writeWords(t *testing.T, path, word string, n int) {
	t.Helper()
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("%s%d", word, i)
	}
	// Make the marker word appear in every chunk-sized window.
	words[0] = word
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(words, " ")), 0o644))
}

func TestIngestRun(t *testing.T) {
	root := t.TempDir()
	writeWords(t, filepath.Join(root, "a.txt"), "alpha", 1200)

	svc, store, _ := newLocalIngest(t, root, 2)
	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Discovered)
	assert.Equal(t, 1, report.Ingested)
	assert.Equal(t, 0, report.Skipped)
	assert.Empty(t, report.Failures)

	// 1200 words at chunk size 500 -> 3 points with deterministic ids.
	page, err := store.Scroll(context.Background(), "docs", 10, "")
	require.NoError(t, err)
	require.Len(t, page.Points, 3)

	path, err := filepath.Abs(filepath.Join(root, "a.txt"))
	require.NoError(t, err)
	ids := map[string]bool{}
	for _, p := range page.Points {
		ids[p.ID] = true
		assert.Equal(t, path, p.Payload[model.PayloadKeySource])
	}
	for i := 0; i < 3; i++ {
		assert.True(t, ids[chunker.PointID(path, i)], "expected deterministic id for chunk %d", i)
	}
}

func TestIngestIdempotent(t *testing.T) {
	root := t.TempDir()
	writeWords(t, filepath.Join(root, "a.txt"), "alpha", 1200)

	svc, store, _ := newLocalIngest(t, root, 1)
	_, err := svc.Run(context.Background())
	require.NoError(t, err)
	first, err := store.Scroll(context.Background(), "docs", 100, "")
	require.NoError(t, err)

	_, err = svc.Run(context.Background())
	require.NoError(t, err)
	second, err := store.Scroll(context.Background(), "docs", 100, "")
	require.NoError(t, err)

	require.Len(t, second.Points, len(first.Points), "re-ingestion must overwrite, not duplicate")
	byID := map[string]model.Point{}
	for _, p := range first.Points {
		byID[p.ID] = p
	}
	for _, p := range second.Points {
		prev, ok := byID[p.ID]
		require.True(t, ok, "unexpected new id %s", p.ID)
		assert.Equal(t, prev.Payload, p.Payload)
	}
}

func TestIngestPartialFailureIsolation(t *testing.T) {
	root := t.TempDir()
	writeWords(t, filepath.Join(root, "good1.txt"), "alpha", 100)
	writeWords(t, filepath.Join(root, "good2.txt"), "omega", 100)
	// Not a zip, so docx extraction fails for this one document.
	require.NoError(t, os.WriteFile(filepath.Join(root, "broken.docx"), []byte("not a zip"), 0o644))

	svc, _, _ := newLocalIngest(t, root, 2)
	report, err := svc.Run(context.Background())
	require.NoError(t, err, "one bad document must not abort the run")

	assert.Equal(t, 3, report.Discovered)
	assert.Equal(t, 2, report.Ingested)
	require.Len(t, report.Failures, 1)
	assert.Contains(t, report.Failures[0].Path, "broken.docx")
}

func TestIngestSkipsUnsupported(t *testing.T) {
	root := t.TempDir()
	writeWords(t, filepath.Join(root, "a.txt"), "alpha", 10)
	require.NoError(t, os.WriteFile(filepath.Join(root, "tool.exe"), []byte{0x4d, 0x5a}, 0o644))

	svc, _, _ := newLocalIngest(t, root, 1)
	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Discovered)
	assert.Equal(t, 1, report.Ingested)
	assert.Equal(t, 1, report.Skipped)
	assert.Empty(t, report.Failures, "unsupported extensions are not failures")
}

func TestIngestMissingRoot(t *testing.T) {
	svc, _, _ := newLocalIngest(t, filepath.Join(t.TempDir(), "absent"), 1)
	_, err := svc.Run(context.Background())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestIngestSingleFlight(t *testing.T) {
	root := t.TempDir()
	svc, _, _ := newLocalIngest(t, root, 1)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0o644))
	require.False(t, svc.Running())

	// Simulate an in-flight run and check the second trigger is refused.
	svc.running.Store(true)
	_, err := svc.Run(context.Background())
	assert.ErrorIs(t, err, apperr.ErrIngestRunning)
	svc.running.Store(false)

	_, err = svc.Run(context.Background())
	assert.NoError(t, err)
}

func TestIngestEmptyDocumentYieldsNoPoints(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "empty.txt"), []byte("   \n\t "), 0o644))

	svc, store, emb := newLocalIngest(t, root, 1)
	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Ingested)
	assert.Equal(t, 0, emb.calls, "nothing to embed for whitespace-only text")

	page, err := store.Scroll(context.Background(), "docs", 10, "")
	require.NoError(t, err)
	assert.Empty(t, page.Points)
}
