package errors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrExtraction        = errors.New("extraction failed")
	ErrEmbedding         = errors.New("embedding service error")
	ErrRetrieval         = errors.New("retrieval error")
	ErrSchemaMismatch    = errors.New("collection schema mismatch")
	ErrGeneration        = errors.New("generation service error")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrIngestRunning     = errors.New("ingestion already running")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsUnsupportedFormat(err error) bool {
	return errors.Is(err, ErrUnsupportedFormat)
}
