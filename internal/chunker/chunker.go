package chunker

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// DefaultChunkSize is the word count per chunk when none is configured.
const DefaultChunkSize = 500

// pointNamespace seeds the name-based point ids. Changing it invalidates
// every previously ingested id, so it is fixed for the lifetime of a
// collection.
var pointNamespace = uuid.MustParse("a1e5a7f4-10d1-4c59-9428-0f1a5b4c8e21")

// Split tokenizes text into whitespace-delimited words and groups every
// `size` consecutive words into one chunk, words joined by single spaces.
// The last chunk may be shorter. Original formatting is not preserved.
// Empty or whitespace-only input yields no chunks.
func Split(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	chunks := make([]string, 0, (len(words)+size-1)/size)
	for start := 0; start < len(words); start += size {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}

// PointID derives the deterministic id for the chunk at `index` of the
// document at `path`. Same (path, index) always maps to the same id across
// runs and restarts, which makes re-ingestion an overwrite rather than a
// duplicate. Moving a file changes its ids.
func PointID(path string, index int) string {
	name := fmt.Sprintf("%s-%d", path, index)
	return uuid.NewSHA1(pointNamespace, []byte(name)).String()
}
