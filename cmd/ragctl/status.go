package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bull/careerconnect-rag/internal/app"
	"github.com/bull/careerconnect-rag/internal/manifest"
	"github.com/bull/careerconnect-rag/internal/retrieval"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show knowledge base population and run a smoke query",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := cfg.NewLogger()

	svc, err := app.Connect(cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	exists, err := svc.Store.CollectionExists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		fmt.Printf("Collection %q does not exist. Run \"ragctl ingest\" first.\n", svc.Store.Collection())
		return nil
	}
	fmt.Printf("Collection: %s\n", svc.Store.Collection())

	if run := lastRun(cfg.Ingest.ManifestPath); run != nil {
		fmt.Printf("Last ingestion: %s (%d documents, %d chunks from %s)\n",
			run.CompletedAt.Format(time.RFC3339), run.Documents, run.Chunks, run.Location)
	}

	stats, err := svc.Store.Stats(ctx, app.Categories(cfg))
	if err != nil {
		return err
	}
	printStats(stats)
	if stats.TotalVectors == 0 {
		fmt.Println("\nIndex is empty.")
		return nil
	}

	query := cfg.Ingest.SmokeQuery
	matches, err := svc.Retriever().Search(ctx, query, retrieval.Query{TopK: 3})
	if err != nil {
		return fmt.Errorf("smoke query failed: %w", err)
	}
	printMatches(query, matches)
	return nil
}

// lastRun reads the manifest when present. Status never fails on it.
func lastRun(path string) *manifest.Run {
	m, err := manifest.Open(path)
	if err != nil {
		return nil
	}
	defer m.Close()
	run, err := m.LastRun()
	if err != nil {
		return nil
	}
	return run
}
