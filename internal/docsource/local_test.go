package docsource

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/ragserve/internal/config"
	apperr "github.com/xxxsen/ragserve/internal/pkg/errors"
)

func TestLocalSourceList(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("alpha"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.md"), []byte("# b"), 0o644))

	src, err := New(config.SourceConfig{Type: "local", Path: root})
	require.NoError(t, err)

	docs, err := src.List(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)

	byExt := map[string]string{}
	for _, d := range docs {
		assert.True(t, filepath.IsAbs(d.Path), "paths must be canonical")
		assert.Greater(t, d.Size, int64(0))
		byExt[d.Format] = d.Path
	}
	assert.Contains(t, byExt, ".txt")
	assert.Contains(t, byExt, ".md")

	rc, err := src.Open(context.Background(), byExt[".txt"])
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(data))
}

func TestLocalSourceMissingRoot(t *testing.T) {
	src, err := New(config.SourceConfig{Type: "local", Path: filepath.Join(t.TempDir(), "nope")})
	require.NoError(t, err)

	_, err = src.List(context.Background())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestNewUnknownSource(t *testing.T) {
	_, err := New(config.SourceConfig{Type: "ftp"})
	assert.Error(t, err)
}
