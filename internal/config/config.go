// Package config holds the runtime configuration for ingestion and analysis.
// Values come from Default, then an optional YAML file, then the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration.
type Config struct {
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Qdrant    QdrantConfig    `yaml:"qdrant"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Timeouts  TimeoutConfig   `yaml:"timeouts"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

// OpenAIConfig configures the embedding and generation models.
type OpenAIConfig struct {
	APIKey         string `yaml:"-"` // environment only
	BaseURL        string `yaml:"base_url"`
	EmbeddingModel string `yaml:"embedding_model"`
	Dimension      int    `yaml:"dimension"`
}

// QdrantConfig addresses the vector index.
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	APIKey     string `yaml:"-"`
	UseTLS     bool   `yaml:"use_tls"`
	Collection string `yaml:"collection"`
	// Capacity is the planned number of vectors, used for the fullness ratio. 0 disables it.
	Capacity uint64 `yaml:"capacity"`
}

// IngestConfig configures the ingestion pipeline.
type IngestConfig struct {
	CorpusDir     string        `yaml:"corpus_dir"`
	Patterns      []string      `yaml:"patterns"`
	ChunkSize     int           `yaml:"chunk_size"`
	ChunkOverlap  int           `yaml:"chunk_overlap"`
	BatchSize     int           `yaml:"batch_size"`
	EmbedInterval time.Duration `yaml:"embed_interval"`
	BatchInterval time.Duration `yaml:"batch_interval"`
	ManifestPath  string        `yaml:"manifest_path"`
	SmokeQuery    string        `yaml:"smoke_query"`
	GitHubToken   string        `yaml:"-"` // optional, raises GitHub API rate limits
}

// RetrievalConfig configures categorized context retrieval.
type RetrievalConfig struct {
	GeneralCategory   string  `yaml:"general_category"`
	TechnicalCategory string  `yaml:"technical_category"`
	CareerCategory    string  `yaml:"career_category"`
	GeneralTopK       int     `yaml:"general_top_k"`
	RoleTopK          int     `yaml:"role_top_k"`
	CareerTopK        int     `yaml:"career_top_k"`
	MinScore          float64 `yaml:"min_score"`
}

// AnalysisConfig configures the generation call.
type AnalysisConfig struct {
	PrimaryModel  string  `yaml:"primary_model"`
	FallbackModel string  `yaml:"fallback_model"`
	Temperature   float64 `yaml:"temperature"`
	MaxTokens     int     `yaml:"max_tokens"`
	MaxQueryChars int     `yaml:"max_query_chars"`
}

// TimeoutConfig bounds every external call.
type TimeoutConfig struct {
	Embed    time.Duration `yaml:"embed"`
	Index    time.Duration `yaml:"index"`
	Generate time.Duration `yaml:"generate"`
}

// ServerConfig configures cmd/server.
type ServerConfig struct {
	Port       string `yaml:"port"`
	ServerMode bool   `yaml:"server_mode"` // HTTP MCP transport instead of stdio
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		OpenAI: OpenAIConfig{
			EmbeddingModel: "text-embedding-3-small",
			Dimension:      1536,
		},
		Qdrant: QdrantConfig{
			Host:       "localhost",
			Port:       6334,
			Collection: "careerconnect",
		},
		Ingest: IngestConfig{
			CorpusDir:     "data/knowledge_base",
			Patterns:      []string{"*.md", "*.txt"},
			ChunkSize:     1000,
			ChunkOverlap:  200,
			BatchSize:     100,
			EmbedInterval: 100 * time.Millisecond,
			BatchInterval: 500 * time.Millisecond,
			ManifestPath:  ".rag/manifest.db",
			SmokeQuery:    "What are the best practices for writing a resume?",
		},
		Retrieval: RetrievalConfig{
			GeneralCategory:   "resume_best_practices",
			TechnicalCategory: "technical_skills_keywords",
			CareerCategory:    "interview_career_advice",
			GeneralTopK:       3,
			RoleTopK:          2,
			CareerTopK:        2,
			MinScore:          0.65,
		},
		Analysis: AnalysisConfig{
			PrimaryModel:  "gpt-4o",
			FallbackModel: "gpt-3.5-turbo",
			Temperature:   0,
			MaxTokens:     1500,
			MaxQueryChars: 8000,
		},
		Timeouts: TimeoutConfig{
			Embed:    30 * time.Second,
			Index:    15 * time.Second,
			Generate: 90 * time.Second,
		},
		Server: ServerConfig{
			Port: "8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration. An empty path or a missing file yields defaults
// before environment overrides are applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.OpenAI.APIKey = getEnv("OPENAI_API_KEY", c.OpenAI.APIKey)
	c.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", c.OpenAI.BaseURL)
	c.Qdrant.Host = getEnv("QDRANT_HOST", c.Qdrant.Host)
	c.Qdrant.Port = getEnvInt("QDRANT_PORT", c.Qdrant.Port)
	c.Qdrant.APIKey = getEnv("QDRANT_API_KEY", c.Qdrant.APIKey)
	c.Qdrant.UseTLS = getEnvBool("QDRANT_USE_TLS", c.Qdrant.UseTLS)
	c.Qdrant.Collection = getEnv("QDRANT_COLLECTION", c.Qdrant.Collection)
	c.Ingest.CorpusDir = getEnv("KNOWLEDGE_BASE_DIR", c.Ingest.CorpusDir)
	c.Ingest.GitHubToken = getEnv("GITHUB_TOKEN", c.Ingest.GitHubToken)
	c.Analysis.PrimaryModel = getEnv("PRIMARY_MODEL", c.Analysis.PrimaryModel)
	c.Analysis.FallbackModel = getEnv("FALLBACK_MODEL", c.Analysis.FallbackModel)
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.ServerMode = getEnvBool("SERVER_MODE", c.Server.ServerMode)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	var errs []error
	if c.Ingest.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("ingest.chunk_size must be positive, got %d", c.Ingest.ChunkSize))
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		errs = append(errs, fmt.Errorf("ingest.chunk_overlap must be in [0, chunk_size), got %d", c.Ingest.ChunkOverlap))
	}
	if c.Ingest.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("ingest.batch_size must be positive, got %d", c.Ingest.BatchSize))
	}
	if c.OpenAI.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("openai.dimension must be positive, got %d", c.OpenAI.Dimension))
	}
	if c.Retrieval.MinScore < -1 || c.Retrieval.MinScore > 1 {
		errs = append(errs, fmt.Errorf("retrieval.min_score must be in [-1, 1], got %v", c.Retrieval.MinScore))
	}
	if c.Analysis.PrimaryModel == "" || c.Analysis.FallbackModel == "" {
		errs = append(errs, errors.New("analysis.primary_model and analysis.fallback_model are required"))
	}
	if c.Qdrant.Collection == "" {
		errs = append(errs, errors.New("qdrant.collection is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// RequireOpenAI reports a missing API key before any client is built.
func (c *Config) RequireOpenAI() error {
	if c.OpenAI.APIKey == "" {
		return errors.New("OPENAI_API_KEY environment variable not set")
	}
	return nil
}

// NewLogger builds the process logger described by LogConfig.
func (c *Config) NewLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}
