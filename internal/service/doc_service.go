package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/xxxsen/ragserve/internal/model"
	apperr "github.com/xxxsen/ragserve/internal/pkg/errors"
	"github.com/xxxsen/ragserve/internal/vectorstore"
)

// DocService exposes the point inventory for listing and debugging.
type DocService struct {
	store      vectorstore.Store
	collection string
}

func NewDocService(store vectorstore.Store, collection string) *DocService {
	return &DocService{store: store, collection: collection}
}

func (s *DocService) List(ctx context.Context, limit int, cursor string) (*model.ScrollPage, error) {
	page, err := s.store.Scroll(ctx, s.collection, limit, cursor)
	if err != nil {
		if apperr.IsNotFound(err) {
			// Nothing ingested yet; an empty listing reads better than a 404.
			return &model.ScrollPage{}, nil
		}
		if errors.Is(err, apperr.ErrInvalidRequest) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", apperr.ErrRetrieval, err)
	}
	return page, nil
}
