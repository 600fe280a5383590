package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	// SourceBucket holds the original documents under tenant/file keys.
	// ImageBucket receives extracted images; ImagePublicURL overrides the
	// base URL recorded for uploaded images.
	SourceBucket   string `envconfig:"S3_SOURCE_BUCKET" default:"memento-documents"`
	ImageBucket    string `envconfig:"S3_IMAGE_BUCKET" default:"memento-images"`
	ImagePublicURL string `envconfig:"S3_IMAGE_PUBLIC_URL"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	ChunkSize    int `envconfig:"CHUNK_SIZE" default:"2000"`
	ChunkOverlap int `envconfig:"CHUNK_OVERLAP" default:"400"`

	EmbedBatchSize      int `envconfig:"EMBED_BATCH_SIZE" default:"16"`
	EmbedConcurrency    int `envconfig:"EMBED_CONCURRENCY" default:"2"`
	DescribeConcurrency int `envconfig:"DESCRIBE_CONCURRENCY" default:"4"`
	IngestWorkers       int `envconfig:"INGEST_WORKERS" default:"4"`

	// ScanInterval enables the source-bucket scan worker when positive.
	ScanInterval time.Duration `envconfig:"SCAN_INTERVAL" default:"0"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("MEMENTO", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
