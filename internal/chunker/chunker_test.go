package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		size  int
		wantN int
	}{
		{name: "empty", text: "", size: 5, wantN: 0},
		{name: "whitespace only", text: " \n\t  ", size: 5, wantN: 0},
		{name: "single short", text: "alpha beta", size: 5, wantN: 1},
		{name: "exact boundary", text: "a b c d e f", size: 3, wantN: 2},
		{name: "trailing remainder", text: "a b c d e f g", size: 3, wantN: 3},
		{name: "size one", text: "a b c", size: 1, wantN: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.text, tt.size)
			assert.Len(t, got, tt.wantN)
			for i, chunk := range got {
				n := len(strings.Fields(chunk))
				if i < len(got)-1 {
					assert.Equal(t, tt.size, n, "non-final chunk must be full")
				} else {
					assert.LessOrEqual(t, n, tt.size)
				}
			}
		})
	}
}

func TestSplitPreservesWordSequence(t *testing.T) {
	words := make([]string, 1200)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	text := strings.Join(words, " ")

	chunks := Split(text, 500)
	require.Len(t, chunks, 3)

	var rejoined []string
	for _, c := range chunks {
		rejoined = append(rejoined, strings.Fields(c)...)
	}
	assert.Equal(t, words, rejoined)
}

func TestSplitNormalizesWhitespace(t *testing.T) {
	chunks := Split("alpha\n\nbeta\t gamma", 10)
	require.Len(t, chunks, 1)
	assert.Equal(t, "alpha beta gamma", chunks[0])
}

func TestPointIDDeterministic(t *testing.T) {
	a := PointID("/docs/a.txt", 0)
	b := PointID("/docs/a.txt", 0)
	assert.Equal(t, a, b)

	assert.NotEqual(t, PointID("/docs/a.txt", 0), PointID("/docs/a.txt", 1))
	assert.NotEqual(t, PointID("/docs/a.txt", 0), PointID("/docs/b.txt", 0))
}

func TestPointIDNoCollisions(t *testing.T) {
	seen := make(map[string]string, 50_000)
	for doc := 0; doc < 500; doc++ {
		path := fmt.Sprintf("/corpus/doc-%d.txt", doc)
		for idx := 0; idx < 100; idx++ {
			id := PointID(path, idx)
			key := fmt.Sprintf("%s-%d", path, idx)
			if prev, ok := seen[id]; ok {
				t.Fatalf("collision: %s and %s both map to %s", prev, key, id)
			}
			seen[id] = key
		}
	}
}
