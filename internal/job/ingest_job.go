package job

import (
	"context"
	"errors"

	apperr "github.com/xxxsen/ragserve/internal/pkg/errors"
	"github.com/xxxsen/ragserve/internal/service"
)

// IngestJob runs the ingestion pipeline on the cron schedule. The service
// itself holds the single-run guard, so a tick that lands while a manual
// trigger is in flight is simply skipped.
type IngestJob struct {
	ingest *service.IngestService
}

func NewIngestJob(ingest *service.IngestService) *IngestJob {
	return &IngestJob{ingest: ingest}
}

func (j *IngestJob) Name() string {
	return "ingest"
}

func (j *IngestJob) Run(ctx context.Context) error {
	if j.ingest == nil {
		return nil
	}
	_, err := j.ingest.Run(ctx)
	if errors.Is(err, apperr.ErrIngestRunning) {
		return nil
	}
	return err
}
