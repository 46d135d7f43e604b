// Package app wires configuration into the clients and orchestrators shared
// by the CLI and the server.
package app

import (
	"fmt"
	"log/slog"

	"github.com/bull/careerconnect-rag/internal/analysis"
	"github.com/bull/careerconnect-rag/internal/config"
	"github.com/bull/careerconnect-rag/internal/embedding"
	"github.com/bull/careerconnect-rag/internal/generation"
	"github.com/bull/careerconnect-rag/internal/indexer"
	"github.com/bull/careerconnect-rag/internal/retrieval"
	"github.com/bull/careerconnect-rag/internal/role"
	"github.com/bull/careerconnect-rag/internal/storage"
)

// Services holds the external clients built from configuration.
type Services struct {
	Config   *config.Config
	Logger   *slog.Logger
	Store    *storage.QdrantStorage
	OpenAI   *embedding.Client
	Embedder *embedding.Embedder
}

// Connect creates the Qdrant and OpenAI clients. Qdrant must be reachable.
func Connect(cfg *config.Config, logger *slog.Logger) (*Services, error) {
	if err := cfg.RequireOpenAI(); err != nil {
		return nil, err
	}

	store, err := storage.NewQdrantStorage(StorageOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", cfg.Qdrant.Host, cfg.Qdrant.Port, err)
	}

	client, err := embedding.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}

	return &Services{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		OpenAI:   client,
		Embedder: embedding.NewEmbedder(client, cfg.OpenAI.EmbeddingModel, cfg.OpenAI.Dimension, cfg.Timeouts.Embed),
	}, nil
}

// Close releases the Qdrant connection.
func (s *Services) Close() error {
	return s.Store.Close()
}

// Retriever builds the retrieval orchestrator.
func (s *Services) Retriever() *retrieval.Orchestrator {
	return retrieval.NewOrchestrator(s.Embedder, s.Store, RetrievalOptions(s.Config), s.Logger)
}

// Analyzer builds the analysis orchestrator over the given retriever.
func (s *Services) Analyzer(retriever *retrieval.Orchestrator) *analysis.Analyzer {
	generator := generation.NewGenerator(s.OpenAI.Client(), s.Config.Timeouts.Generate)
	return analysis.NewAnalyzer(role.NewClassifier(nil), retriever, generator, AnalysisOptions(s.Config), s.Logger)
}

// StorageOptions maps the Qdrant settings.
func StorageOptions(cfg *config.Config) storage.Options {
	return storage.Options{
		Host:       cfg.Qdrant.Host,
		Port:       cfg.Qdrant.Port,
		APIKey:     cfg.Qdrant.APIKey,
		UseTLS:     cfg.Qdrant.UseTLS,
		Collection: cfg.Qdrant.Collection,
		Dimension:  cfg.OpenAI.Dimension,
		Capacity:   cfg.Qdrant.Capacity,
		Timeout:    cfg.Timeouts.Index,
	}
}

// RetrievalOptions maps the retrieval settings.
func RetrievalOptions(cfg *config.Config) retrieval.Options {
	r := cfg.Retrieval
	return retrieval.Options{
		Categories: retrieval.Categories{
			General:   r.GeneralCategory,
			Technical: r.TechnicalCategory,
			Career:    r.CareerCategory,
		},
		GeneralTopK: r.GeneralTopK,
		RoleTopK:    r.RoleTopK,
		CareerTopK:  r.CareerTopK,
		MinScore:    r.MinScore,
	}
}

// AnalysisOptions maps the generation settings.
func AnalysisOptions(cfg *config.Config) analysis.Options {
	a := cfg.Analysis
	return analysis.Options{
		PrimaryModel:  a.PrimaryModel,
		FallbackModel: a.FallbackModel,
		Temperature:   a.Temperature,
		MaxTokens:     a.MaxTokens,
		MaxQueryChars: a.MaxQueryChars,
	}
}

// IngestOptions maps the ingestion settings.
func IngestOptions(cfg *config.Config) indexer.Options {
	i := cfg.Ingest
	return indexer.Options{
		ChunkSize:     i.ChunkSize,
		ChunkOverlap:  i.ChunkOverlap,
		BatchSize:     i.BatchSize,
		EmbedInterval: i.EmbedInterval,
		BatchInterval: i.BatchInterval,
		SmokeQuery:    i.SmokeQuery,
		SmokeTopK:     3,
	}
}

// Categories lists the categories retrieval queries, in section order.
func Categories(cfg *config.Config) []string {
	r := cfg.Retrieval
	return []string{r.GeneralCategory, r.TechnicalCategory, r.CareerCategory}
}
