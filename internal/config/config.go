package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/xxxsen/common/logger"
)

type SourceConfig struct {
	Type string // local or s3
	Path string // document root for local
	S3   S3Config
}

type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

type VectorConfig struct {
	Backend    string // qdrant, pgvector or memory
	Collection string
	Dim        int
	QdrantURL  string
	QdrantKey  string
	PGDSN      string
}

type ProviderConfig struct {
	Provider string // openai or gemini
	Model    string
	BaseURL  string
	APIKey   string
}

type Config struct {
	Port        int
	CORSOrigins []string
	LogConfig   logger.LogConfig

	Source SourceConfig
	Vector VectorConfig

	Embed         ProviderConfig
	Gen           ProviderConfig
	GenMaxTokens  int
	ChunkSize     int
	TopK          int
	IngestEvery   time.Duration
	IngestWorkers int

	EmbedCacheSize int
	EmbedCacheTTL  time.Duration
}

// FromEnv builds the configuration from the process environment. A .env file
// in the working directory is folded in first when present; real environment
// variables win over it.
func FromEnv() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port: envInt("PORT", 8080),
		LogConfig: logger.LogConfig{
			File:    os.Getenv("LOG_FILE"),
			Level:   envStr("LOG_LEVEL", "info"),
			Console: envBool("LOG_CONSOLE", true),
		},
		CORSOrigins: envList("CORS_ORIGINS"),
		Source: SourceConfig{
			Type: envStr("DOC_SOURCE", "local"),
			Path: envStr("DOC_PATH", "/mnt/ai-rag-files"),
			S3: S3Config{
				Endpoint:  os.Getenv("S3_ENDPOINT"),
				Region:    envStr("S3_REGION", "us-east-1"),
				Bucket:    os.Getenv("S3_BUCKET"),
				Prefix:    os.Getenv("S3_PREFIX"),
				AccessKey: os.Getenv("S3_ACCESS_KEY"),
				SecretKey: os.Getenv("S3_SECRET_KEY"),
				UseSSL:    envBool("S3_USE_SSL", true),
			},
		},
		Vector: VectorConfig{
			Backend:    envStr("VECTOR_BACKEND", "qdrant"),
			Collection: envStr("COLLECTION_NAME", "documents"),
			Dim:        envInt("EMBEDDING_DIM", 384),
			QdrantURL:  envStr("QDRANT_URL", "http://localhost:6333"),
			QdrantKey:  os.Getenv("QDRANT_API_KEY"),
			PGDSN:      os.Getenv("PG_DSN"),
		},
		Embed: ProviderConfig{
			Provider: envStr("EMBED_PROVIDER", "openai"),
			Model:    envStr("EMBEDDING_MODEL", "all-MiniLM-L6-v2"),
			BaseURL:  os.Getenv("EMBED_BASE_URL"),
			APIKey:   os.Getenv("EMBED_API_KEY"),
		},
		Gen: ProviderConfig{
			Provider: envStr("GEN_PROVIDER", "openai"),
			Model:    envStr("GEN_MODEL", "gpt-4o-mini"),
			BaseURL:  os.Getenv("GEN_BASE_URL"),
			APIKey:   os.Getenv("GEN_API_KEY"),
		},
		GenMaxTokens:   envInt("GEN_MAX_TOKENS", 1024),
		ChunkSize:      envInt("CHUNK_SIZE", 500),
		TopK:           envInt("TOP_K", 5),
		IngestEvery:    time.Duration(envInt("INGEST_INTERVAL_MIN", 10)) * time.Minute,
		IngestWorkers:  envInt("INGEST_WORKERS", 4),
		EmbedCacheSize: envInt("EMBED_CACHE_SIZE", 1024),
		EmbedCacheTTL:  time.Duration(envInt("EMBED_CACHE_TTL_MIN", 120)) * time.Minute,
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive")
	}
	if c.TopK <= 0 {
		return fmt.Errorf("TOP_K must be positive")
	}
	if c.Vector.Dim <= 0 {
		return fmt.Errorf("EMBEDDING_DIM must be positive")
	}
	if c.IngestEvery <= 0 {
		return fmt.Errorf("INGEST_INTERVAL_MIN must be positive")
	}
	if c.IngestWorkers <= 0 {
		c.IngestWorkers = 1
	}
	switch c.Source.Type {
	case "local":
		if c.Source.Path == "" {
			return fmt.Errorf("DOC_PATH is required for local source")
		}
	case "s3":
		if c.Source.S3.Bucket == "" || c.Source.S3.AccessKey == "" || c.Source.S3.SecretKey == "" {
			return fmt.Errorf("S3_BUCKET/S3_ACCESS_KEY/S3_SECRET_KEY are required for s3 source")
		}
	default:
		return fmt.Errorf("DOC_SOURCE must be local or s3")
	}
	switch c.Vector.Backend {
	case "qdrant":
		if c.Vector.QdrantURL == "" {
			return fmt.Errorf("QDRANT_URL is required for qdrant backend")
		}
	case "pgvector":
		if c.Vector.PGDSN == "" {
			return fmt.Errorf("PG_DSN is required for pgvector backend")
		}
	case "memory":
	default:
		return fmt.Errorf("VECTOR_BACKEND must be qdrant, pgvector or memory")
	}
	return nil
}

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
