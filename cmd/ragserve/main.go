package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/ragserve/internal/ai"
	"github.com/xxxsen/ragserve/internal/config"
	"github.com/xxxsen/ragserve/internal/docsource"
	"github.com/xxxsen/ragserve/internal/embedcache"
	"github.com/xxxsen/ragserve/internal/handler"
	"github.com/xxxsen/ragserve/internal/job"
	"github.com/xxxsen/ragserve/internal/middleware"
	"github.com/xxxsen/ragserve/internal/schedule"
	"github.com/xxxsen/ragserve/internal/service"
	"github.com/xxxsen/ragserve/internal/vectorstore"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ragserve",
		Short: "ragserve document retrieval server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run ragserve server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded",
				zap.String("source", cfg.Source.Type),
				zap.String("vector_backend", cfg.Vector.Backend),
				zap.String("collection", cfg.Vector.Collection),
			)
			return runServer(cfg)
		},
	}

	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func buildEmbedder(cfg *config.Config) (ai.IEmbedder, error) {
	provider, err := ai.NewEmbedProvider(cfg.Embed.Provider, map[string]interface{}{
		"api_key":  cfg.Embed.APIKey,
		"base_url": cfg.Embed.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("init embed provider: %w", err)
	}
	embedder := ai.NewEmbedder(provider, cfg.Embed.Model)
	return embedcache.WrapLRU(embedder, cfg.EmbedCacheSize, cfg.EmbedCacheTTL), nil
}

func buildGenerator(cfg *config.Config) (ai.IGenerator, error) {
	provider, err := ai.NewProvider(cfg.Gen.Provider, map[string]interface{}{
		"api_key":  cfg.Gen.APIKey,
		"base_url": cfg.Gen.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("init gen provider: %w", err)
	}
	return ai.NewGenerator(provider, cfg.Gen.Model, cfg.GenMaxTokens), nil
}

func runServer(cfg *config.Config) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("doc_source", cfg.Source.Type),
		zap.String("vector_backend", cfg.Vector.Backend),
	)

	source, err := docsource.New(cfg.Source)
	if err != nil {
		return fmt.Errorf("init doc source: %w", err)
	}
	store, err := vectorstore.New(cfg.Vector)
	if err != nil {
		return fmt.Errorf("init vector store: %w", err)
	}
	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return err
	}
	generator, err := buildGenerator(cfg)
	if err != nil {
		return err
	}

	ingestService := service.NewIngestService(source, embedder, store, service.IngestConfig{
		Collection: cfg.Vector.Collection,
		Dim:        cfg.Vector.Dim,
		ChunkSize:  cfg.ChunkSize,
		Workers:    cfg.IngestWorkers,
	})
	queryService := service.NewQueryService(embedder, generator, store, service.QueryConfig{
		Collection: cfg.Vector.Collection,
		TopK:       cfg.TopK,
	})
	docService := service.NewDocService(store, cfg.Vector.Collection)

	deps := handler.RouterDeps{
		Query:  handler.NewQueryHandler(queryService),
		Ingest: handler.NewIngestHandler(ingestService),
		Docs:   handler.NewDocHandler(docService),
	}

	engine, err := webapi.NewEngine(
		"/",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/ask_stream"})),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewIngestJob(ingestService), fmt.Sprintf("@every %s", cfg.IngestEvery)); err != nil {
		return fmt.Errorf("schedule ingest job: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
