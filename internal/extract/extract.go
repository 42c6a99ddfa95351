package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	apperr "github.com/xxxsen/ragserve/internal/pkg/errors"
)

// Extractor turns the raw bytes of one document into plain text.
type Extractor func(ctx context.Context, data []byte) (string, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Extractor{}
)

// Register binds a lowercase file extension (".pdf") to an extractor. New
// formats plug in here without touching the dispatcher.
func Register(ext string, fn Extractor) {
	key := strings.ToLower(strings.TrimSpace(ext))
	if key == "" || fn == nil {
		return
	}
	registryMu.Lock()
	registry[key] = fn
	registryMu.Unlock()
}

// Supported reports whether an extractor is registered for ext.
func Supported(ext string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[strings.ToLower(ext)]
	return ok
}

// Extensions returns the registered extensions, for logging.
func Extensions() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for ext := range registry {
		out = append(out, ext)
	}
	return out
}

// Text extracts plain text from data using the extractor registered for ext.
func Text(ctx context.Context, ext string, data []byte) (string, error) {
	registryMu.RLock()
	fn := registry[strings.ToLower(ext)]
	registryMu.RUnlock()
	if fn == nil {
		return "", fmt.Errorf("%w: %s", apperr.ErrUnsupportedFormat, ext)
	}
	text, err := fn(ctx, data)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", apperr.ErrExtraction, ext, err)
	}
	return text, nil
}

func extractPlain(_ context.Context, data []byte) (string, error) {
	return string(bytes.ToValidUTF8(data, nil)), nil
}

// JSON documents are parsed and re-serialized compactly so broken trailing
// bytes do not poison the chunk stream; unparseable input falls back to the
// raw text, matching a best-effort read.
func extractJSON(ctx context.Context, data []byte) (string, error) {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return extractPlain(ctx, data)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return extractPlain(ctx, data)
	}
	return string(out), nil
}

func init() {
	Register(".txt", extractPlain)
	Register(".json", extractJSON)
}
