package handler

import (
	"fmt"
	"io"

	"github.com/gin-gonic/gin"

	apperr "github.com/xxxsen/ragserve/internal/pkg/errors"
	"github.com/xxxsen/ragserve/internal/pkg/response"
	"github.com/xxxsen/ragserve/internal/service"
)

type QueryHandler struct {
	query *service.QueryService
}

func NewQueryHandler(query *service.QueryService) *QueryHandler {
	return &QueryHandler{query: query}
}

type askRequest struct {
	Query string `json:"query"`
}

func (h *QueryHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, fmt.Errorf("%w: %v", apperr.ErrInvalidRequest, err))
		return
	}
	answer, err := h.query.Ask(c.Request.Context(), req.Query)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, gin.H{"answer": answer})
}

// AskStream answers over server-sent events: one "message" event per text
// fragment, then a terminal "done" event. If the client hangs up mid-stream
// the request context cancels and the generator read stops with it.
func (h *QueryHandler) AskStream(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, fmt.Errorf("%w: %v", apperr.ErrInvalidRequest, err))
		return
	}
	ch, err := h.query.AskStream(c.Request.Context(), req.Query)
	if err != nil {
		response.Fail(c, err)
		return
	}
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Stream(func(io.Writer) bool {
		chunk, ok := <-ch
		if !ok {
			c.SSEvent("done", "[DONE]")
			return false
		}
		if chunk.Err != nil {
			c.SSEvent("error", chunk.Err.Error())
			return false
		}
		c.SSEvent("message", chunk.Delta)
		return true
	})
}
