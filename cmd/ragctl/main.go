// Package main provides ragctl, the knowledge-base ingestion and analysis CLI.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/careerconnect-rag/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "ragctl",
	Short: "CareerConnect knowledge base and resume analysis tool",
	Long: `CLI for ingesting the career-advice knowledge base into Qdrant and
running retrieval-augmented resume analyses against it.

Configuration is read from defaults, then the YAML file given by --config
(ignored when missing), then the environment:
  OPENAI_API_KEY     OpenAI API key (required)
  QDRANT_HOST        Qdrant hostname (default: localhost)
  QDRANT_PORT        Qdrant gRPC port (default: 6334)
  QDRANT_API_KEY     Qdrant API key (optional)
  KNOWLEDGE_BASE_DIR Corpus directory (default: data/knowledge_base)
  GITHUB_TOKEN       GitHub token for --github ingestion (optional)
  LOG_LEVEL          debug, info, warn or error`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to YAML configuration")
	rootCmd.AddCommand(ingestCmd, statusCmd, analyzeCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}
