package model

import "time"

// Document is a source artifact discovered by a scan. Path is canonical for
// the owning source (absolute for local files, object key for s3).
type Document struct {
	Path    string    `json:"path"`
	Format  string    `json:"format"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Chunk is a word-count-bounded slice of a document's extracted text. Chunks
// are derived on the fly and persisted only as vector-store points.
type Chunk struct {
	Source string `json:"source"`
	Index  int    `json:"index"`
	Text   string `json:"text"`
}

// Payload keys carried on every point.
const (
	PayloadKeyText   = "text"
	PayloadKeySource = "source"
	PayloadKeyIndex  = "chunk_index"
)

// Point is the persisted unit: deterministic id, embedding vector, payload
// with the chunk text and provenance.
type Point struct {
	ID      string                 `json:"id"`
	Vector  []float32              `json:"vector"`
	Payload map[string]interface{} `json:"payload"`
}

// SearchResult is a point annotated with its similarity score. Higher is
// closer under cosine similarity.
type SearchResult struct {
	ID      string                 `json:"id"`
	Score   float32                `json:"score"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// ScrollPage is one page of a point inventory listing. Cursor is opaque;
// empty means no further pages.
type ScrollPage struct {
	Points     []Point `json:"points"`
	NextCursor string  `json:"next_cursor,omitempty"`
}

type IngestFailure struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// IngestReport summarizes one ingestion run. Skipped counts unsupported
// extensions, which are not failures.
type IngestReport struct {
	Discovered int             `json:"discovered"`
	Ingested   int             `json:"ingested"`
	Skipped    int             `json:"skipped"`
	Failures   []IngestFailure `json:"failures,omitempty"`
	Elapsed    time.Duration   `json:"-"`
	ElapsedMS  int64           `json:"elapsed_ms"`
}
