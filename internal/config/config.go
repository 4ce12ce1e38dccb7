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

	// Storage backend selection: "file" or "postgres".
	StoreBackend string `envconfig:"STORE_BACKEND" default:"file"`
	DataFile     string `envconfig:"DATA_FILE" default:"knowledge.jsonl"`
	DatabaseURL  string `envconfig:"DATABASE_URL"`

	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL       string `envconfig:"OPENAI_BASE_URL"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`

	ChunkSize          int     `envconfig:"CHUNK_SIZE" default:"800"`
	ChunkOverlap       int     `envconfig:"CHUNK_OVERLAP" default:"100"`
	MaxContentChars    int     `envconfig:"MAX_CONTENT_CHARS" default:"2000"`
	DuplicateThreshold float64 `envconfig:"DUPLICATE_THRESHOLD" default:"0.8"`
	SearchLimit        int     `envconfig:"SEARCH_LIMIT" default:"5"`

	RetentionDays int           `envconfig:"RETENTION_DAYS" default:"0"`
	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" default:"1h"`

	APIToken     string `envconfig:"API_TOKEN"`
	MaxBodyBytes int64  `envconfig:"MAX_BODY_BYTES" default:"1048576"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	S3Endpoint     string `envconfig:"S3_ENDPOINT"`
	S3AccessKey    string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey    string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket       string `envconfig:"S3_BUCKET" default:"recall-snapshots"`
	S3Region       string `envconfig:"S3_REGION" default:"us-east-1"`
	S3UsePathStyle bool   `envconfig:"S3_USE_PATH_STYLE" default:"true"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("RECALL", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
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

// Validate rejects configurations the store cannot start with.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case "file", "postgres":
	default:
		return fmt.Errorf("invalid RECALL_STORE_BACKEND %q (expected file or postgres)", c.StoreBackend)
	}

	if c.StoreBackend == "postgres" && c.DatabaseURL == "" {
		return fmt.Errorf("RECALL_DATABASE_URL is required for the postgres backend")
	}
	if c.StoreBackend == "file" && c.DataFile == "" {
		return fmt.Errorf("RECALL_DATA_FILE is required for the file backend")
	}

	if c.EmbeddingDimensions <= 0 {
		return fmt.Errorf("RECALL_EMBEDDING_DIMENSIONS must be greater than 0")
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("RECALL_CHUNK_SIZE must be greater than 0")
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("RECALL_CHUNK_OVERLAP must be in [0, chunk size)")
	}
	if c.DuplicateThreshold < 0 || c.DuplicateThreshold > 1 {
		return fmt.Errorf("RECALL_DUPLICATE_THRESHOLD must be in [0, 1]")
	}
	if c.SearchLimit <= 0 {
		return fmt.Errorf("RECALL_SEARCH_LIMIT must be greater than 0")
	}
	if c.RetentionDays < 0 {
		return fmt.Errorf("RECALL_RETENTION_DAYS must not be negative")
	}

	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasSentry() bool {
	return c.SentryDSN != ""
}
