package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/ragserve/internal/ai"
	"github.com/xxxsen/ragserve/internal/config"
	"github.com/xxxsen/ragserve/internal/docsource"
	"github.com/xxxsen/ragserve/internal/service"
	"github.com/xxxsen/ragserve/internal/vectorstore"
)

type stubEmbedder struct {
	calls int
}

func (s *stubEmbedder) ModelName() string { return "stub" }

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v := []float32{1, 0}
		if strings.Contains(text, "alpha") {
			v = []float32{0, 1}
		}
		out[i] = v
	}
	return out, nil
}

type stubGenerator struct{}

func (stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	return "stub answer", nil
}

func (stubGenerator) GenerateStream(_ context.Context, prompt string) (<-chan ai.StreamChunk, error) {
	ch := make(chan ai.StreamChunk, 2)
	ch <- ai.StreamChunk{Delta: "stub "}
	ch <- ai.StreamChunk{Delta: "answer"}
	close(ch)
	return ch, nil
}

type fixture struct {
	router   *gin.Engine
	embedder *stubEmbedder
	root     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	root := t.TempDir()
	src, err := docsource.New(config.SourceConfig{Type: "local", Path: root})
	require.NoError(t, err)
	store := vectorstore.NewMemory()
	embedder := &stubEmbedder{}

	ingest := service.NewIngestService(src, embedder, store, service.IngestConfig{
		Collection: "docs", Dim: 2, ChunkSize: 500, Workers: 1,
	})
	query := service.NewQueryService(embedder, stubGenerator{}, store, service.QueryConfig{
		Collection: "docs", TopK: 5,
	})
	docs := service.NewDocService(store, "docs")

	router := gin.New()
	RegisterRoutes(router.Group("/"), RouterDeps{
		Query:  NewQueryHandler(query),
		Ingest: NewIngestHandler(ingest),
		Docs:   NewDocHandler(docs),
	})
	return &fixture{router: router, embedder: embedder, root: root}
}

// closeNotifyRecorder adds the http.CloseNotifier method that gin's
// Context.Stream requires but httptest.ResponseRecorder lacks.
type closeNotifyRecorder struct {
	*httptest.ResponseRecorder
}

func (closeNotifyRecorder) CloseNotify() <-chan bool { return make(chan bool) }

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(closeNotifyRecorder{w}, req)
	return w
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestAskEmptyQueryDoesNotTouchServices(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodPost, "/ask", `{"query":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, f.embedder.calls)
}

func TestIngestThenAsk(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.root, "a.txt"), []byte("alpha beta gamma"), 0o644))

	w := f.do(http.MethodPost, "/ingest?wait=1", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"ingested":1`)

	w = f.do(http.MethodPost, "/ask", `{"query":"alpha"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "stub answer")
}

func TestAskStream(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.root, "a.txt"), []byte("alpha beta gamma"), 0o644))
	w := f.do(http.MethodPost, "/ingest?wait=1", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodPost, "/ask_stream", `{"query":"alpha"}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")
	assert.Contains(t, body, "stub ")
	assert.Contains(t, body, "answer")
	assert.Contains(t, body, "[DONE]")
}

func TestListDocs(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.root, "a.txt"), []byte("alpha beta"), 0o644))

	w := f.do(http.MethodPost, "/ingest?wait=1", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/list-docs?limit=10", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alpha beta")
	assert.Contains(t, w.Body.String(), "a.txt")
}

func TestIngestConflictWhileRunning(t *testing.T) {
	f := newFixture(t)
	// Two sequential waited runs are fine; the guard only rejects overlap.
	w := f.do(http.MethodPost, "/ingest?wait=1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = f.do(http.MethodPost, "/ingest?wait=1", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
