package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Backend names accepted by the *_STORE / *_DRIVER settings.
const (
	VectorStoreQdrant   = "qdrant"
	VectorStorePgvector = "pgvector"
	VectorStoreMemory   = "memory"

	HistorySQLite   = "sqlite"
	HistoryPostgres = "postgres"

	BlobStoreAzure = "azure"
	BlobStoreBolt  = "bolt"
)

// Config holds all configuration for the application.
type Config struct {
	OpenAIAPIKey        string        `yaml:"openai_api_key"`
	OpenAIBaseURL       string        `yaml:"openai_base_url"`
	EmbeddingModel      string        `yaml:"embedding_model"`
	EmbeddingDimensions int           `yaml:"embedding_dimensions"`
	CompletionModel     string        `yaml:"completion_model"`
	ProviderTimeout     time.Duration `yaml:"provider_timeout"`
	ProviderRetries     int           `yaml:"provider_retries"`
	EmbedConcurrency    int           `yaml:"embed_concurrency"`
	SkipEmbeddingCheck  bool          `yaml:"skip_embedding_check"`

	ChunkSize          int     `yaml:"chunk_size"`
	RelevanceThreshold float64 `yaml:"relevance_threshold"`
	RetrievalWorkers   int     `yaml:"retrieval_workers"`

	VectorStore      string `yaml:"vector_store"`
	QdrantURL        string `yaml:"qdrant_url"`
	QdrantCollection string `yaml:"qdrant_collection"`
	PostgresDSN      string `yaml:"postgres_dsn"`
	PgvectorTable    string `yaml:"pgvector_table"`

	HistoryDriver string `yaml:"history_driver"`
	DBPath        string `yaml:"db_path"`

	BlobStore      string `yaml:"blob_store"`
	AzureBlobURL   string `yaml:"azure_blob_url"`
	AzureBlobToken string `yaml:"azure_blob_token"`
	AzureContainer string `yaml:"azure_container"`
	BoltPath       string `yaml:"bolt_path"`

	APIPort        string     `yaml:"api_port"`
	MaxUploadBytes int64      `yaml:"max_upload_bytes"`
	CORSOrigins    []string   `yaml:"cors_allowed_origins"`
	LogLevel       slog.Level `yaml:"-"`
	LogFormat      string     `yaml:"log_format"`
}

func defaults() *Config {
	return &Config{
		EmbeddingModel:      "text-embedding-ada-002",
		EmbeddingDimensions: 1536,
		CompletionModel:     "gpt-4-turbo",
		ProviderTimeout:     30 * time.Second,
		ProviderRetries:     2,
		EmbedConcurrency:    4,
		ChunkSize:           500,
		RelevanceThreshold:  0.4,
		RetrievalWorkers:    4,
		VectorStore:         VectorStoreQdrant,
		QdrantURL:           "http://localhost:6333",
		QdrantCollection:    "chunks",
		PgvectorTable:       "chunks",
		HistoryDriver:       HistorySQLite,
		DBPath:              "./data/docrag.db",
		BlobStore:           BlobStoreBolt,
		BoltPath:            "./data/blobs.db",
		APIPort:             "8000",
		MaxUploadBytes:      32 << 20,
		LogLevel:            slog.LevelInfo,
		LogFormat:           "text",
	}
}

// Load reads configuration from environment variables and returns a Config struct.
// If RAG_CONFIG_FILE points at a YAML file, its values replace the built-in defaults.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env and YAML values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ { // Limit search depth
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := defaults()

	if path := os.Getenv("RAG_CONFIG_FILE"); path != "" {
		if err := loadYAML(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.EmbeddingModel = getEnv("EMBEDDING_MODEL", cfg.EmbeddingModel)
	cfg.CompletionModel = getEnv("COMPLETION_MODEL", cfg.CompletionModel)
	cfg.VectorStore = strings.ToLower(getEnv("VECTOR_STORE", cfg.VectorStore))
	cfg.QdrantURL = getEnv("QDRANT_URL", cfg.QdrantURL)
	cfg.QdrantCollection = getEnv("QDRANT_COLLECTION", cfg.QdrantCollection)
	cfg.PostgresDSN = getEnv("POSTGRES_DSN", cfg.PostgresDSN)
	cfg.PgvectorTable = getEnv("PGVECTOR_TABLE", cfg.PgvectorTable)
	cfg.HistoryDriver = strings.ToLower(getEnv("HISTORY_DRIVER", cfg.HistoryDriver))
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.BlobStore = strings.ToLower(getEnv("BLOB_STORE", cfg.BlobStore))
	cfg.AzureBlobURL = getEnv("AZURE_BLOB_URL", cfg.AzureBlobURL)
	cfg.AzureBlobToken = getEnv("AZURE_BLOB_TOKEN", cfg.AzureBlobToken)
	cfg.AzureContainer = getEnv("AZURE_CONTAINER_NAME", cfg.AzureContainer)
	cfg.BoltPath = getEnv("BOLT_PATH", cfg.BoltPath)
	cfg.APIPort = getEnv("API_PORT", cfg.APIPort)
	cfg.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", cfg.LogFormat))
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}

	if cfg.EmbeddingDimensions, err = getEnvInt("EMBEDDING_DIMENSIONS", cfg.EmbeddingDimensions); err != nil {
		return nil, err
	}
	if cfg.ProviderRetries, err = getEnvInt("PROVIDER_RETRIES", cfg.ProviderRetries); err != nil {
		return nil, err
	}
	if cfg.EmbedConcurrency, err = getEnvInt("EMBED_CONCURRENCY", cfg.EmbedConcurrency); err != nil {
		return nil, err
	}
	if cfg.ChunkSize, err = getEnvInt("CHUNK_SIZE", cfg.ChunkSize); err != nil {
		return nil, err
	}
	if cfg.RetrievalWorkers, err = getEnvInt("RETRIEVAL_WORKERS", cfg.RetrievalWorkers); err != nil {
		return nil, err
	}

	if v := os.Getenv("RELEVANCE_THRESHOLD"); v != "" {
		threshold, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("RELEVANCE_THRESHOLD must be a valid number: %w", err)
		}
		cfg.RelevanceThreshold = threshold
	}
	if v := os.Getenv("PROVIDER_TIMEOUT"); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("PROVIDER_TIMEOUT must be a valid duration: %w", err)
		}
		cfg.ProviderTimeout = timeout
	}
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		size, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("MAX_UPLOAD_BYTES must be a valid integer: %w", err)
		}
		cfg.MaxUploadBytes = size
	}
	if v := os.Getenv("SKIP_EMBEDDING_CHECK"); v != "" {
		skip, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("SKIP_EMBEDDING_CHECK must be a boolean: %w", err)
		}
		cfg.SkipEmbeddingCheck = skip
	}

	level, err := parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Create ./data directory if it doesn't exist
	for _, p := range []string{cfg.DBPath, cfg.BoltPath} {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.EmbeddingDimensions <= 0 {
		return fmt.Errorf("EMBEDDING_DIMENSIONS must be greater than 0")
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be greater than 0")
	}
	if c.RelevanceThreshold < -1 || c.RelevanceThreshold > 1 {
		return fmt.Errorf("RELEVANCE_THRESHOLD must be within [-1, 1]")
	}
	if c.EmbedConcurrency <= 0 {
		return fmt.Errorf("EMBED_CONCURRENCY must be greater than 0")
	}
	if c.ProviderRetries < 0 {
		return fmt.Errorf("PROVIDER_RETRIES must not be negative")
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must be greater than 0")
	}

	switch c.VectorStore {
	case VectorStoreQdrant, VectorStoreMemory:
	case VectorStorePgvector:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for VECTOR_STORE=%s", c.VectorStore)
		}
	default:
		return fmt.Errorf("unknown VECTOR_STORE %q", c.VectorStore)
	}

	switch c.HistoryDriver {
	case HistorySQLite:
	case HistoryPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for HISTORY_DRIVER=%s", c.HistoryDriver)
		}
	default:
		return fmt.Errorf("unknown HISTORY_DRIVER %q", c.HistoryDriver)
	}

	switch c.BlobStore {
	case BlobStoreBolt:
	case BlobStoreAzure:
		if c.AzureBlobURL == "" || c.AzureContainer == "" {
			return fmt.Errorf("AZURE_BLOB_URL and AZURE_CONTAINER_NAME are required for BLOB_STORE=%s", c.BlobStore)
		}
	default:
		return fmt.Errorf("unknown BLOB_STORE %q", c.BlobStore)
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json")
	}
	return nil
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL is invalid: %w", err)
	}
	return level, nil
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return n, nil
}
