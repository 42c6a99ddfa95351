package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	apperr "github.com/xxxsen/ragserve/internal/pkg/errors"
	"github.com/xxxsen/ragserve/internal/pkg/response"
	"github.com/xxxsen/ragserve/internal/service"
)

type IngestHandler struct {
	ingest *service.IngestService
}

func NewIngestHandler(ingest *service.IngestService) *IngestHandler {
	return &IngestHandler{ingest: ingest}
}

// Trigger kicks off an ingestion run. The default is fire-and-forget;
// ?wait=1 blocks and returns the full run report. Either way a run already
// in flight yields a conflict instead of queued duplicate work.
func (h *IngestHandler) Trigger(c *gin.Context) {
	if c.Query("wait") == "1" {
		report, err := h.ingest.Run(c.Request.Context())
		if err != nil {
			response.Fail(c, err)
			return
		}
		response.Success(c, report)
		return
	}
	if h.ingest.Running() {
		response.Fail(c, apperr.ErrIngestRunning)
		return
	}
	go func() {
		// Detached from the request: the trigger returning must not cancel
		// the run.
		ctx := context.Background()
		if _, err := h.ingest.Run(ctx); err != nil {
			logutil.GetLogger(ctx).Error("background ingestion failed", zap.Error(err))
		}
	}()
	response.Success(c, gin.H{"status": "ingestion triggered"})
}
