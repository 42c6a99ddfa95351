package docsource

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/xxxsen/ragserve/internal/config"
	"github.com/xxxsen/ragserve/internal/model"
	apperr "github.com/xxxsen/ragserve/internal/pkg/errors"
)

type localSource struct {
	root string
}

func init() {
	Register("local", createLocalSource)
}

func createLocalSource(cfg config.SourceConfig) (Source, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("local source path is required")
	}
	abs, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve document root: %w", err)
	}
	return &localSource{root: abs}, nil
}

func (s *localSource) List(ctx context.Context) ([]model.Document, error) {
	if _, err := os.Stat(s.root); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: document root %s", apperr.ErrNotFound, s.root)
		}
		return nil, err
	}
	var docs []model.Document
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		docs = append(docs, model.Document{
			Path:    path,
			Format:  filepath.Ext(path),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.root, err)
	}
	return docs, nil
}

func (s *localSource) Open(_ context.Context, path string) (io.ReadCloser, error) {
	return os.Open(path)
}
