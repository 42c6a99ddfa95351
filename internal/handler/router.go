package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/ragserve/internal/pkg/response"
)

type RouterDeps struct {
	Query  *QueryHandler
	Ingest *IngestHandler
	Docs   *DocHandler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/health", func(c *gin.Context) {
		response.Success(c, gin.H{"status": "ok"})
	})
	api.GET("/list-docs", deps.Docs.List)
	api.POST("/ingest", deps.Ingest.Trigger)
	api.POST("/ask", deps.Query.Ask)
	api.POST("/ask_stream", deps.Query.AskStream)
}
