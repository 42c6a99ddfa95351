package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/ragserve/internal/pkg/response"
	"github.com/xxxsen/ragserve/internal/service"
)

const defaultListLimit = 50

type DocHandler struct {
	docs *service.DocService
}

func NewDocHandler(docs *service.DocService) *DocHandler {
	return &DocHandler{docs: docs}
}

func (h *DocHandler) List(c *gin.Context) {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	page, err := h.docs.List(c.Request.Context(), limit, c.Query("cursor"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, page)
}
