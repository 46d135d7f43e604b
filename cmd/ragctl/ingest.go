package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/bull/careerconnect-rag/internal/app"
	"github.com/bull/careerconnect-rag/internal/config"
	"github.com/bull/careerconnect-rag/internal/corpus"
	ghclient "github.com/bull/careerconnect-rag/internal/github"
	"github.com/bull/careerconnect-rag/internal/indexer"
	"github.com/bull/careerconnect-rag/internal/manifest"
)

var ingestFlags struct {
	corpusDir     string
	github        string
	ref           string
	recreate      bool
	pruneOrphans  bool
	skipSmokeTest bool
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest the knowledge base into Qdrant",
	Long: `Chunks, embeds and upserts every knowledge-base document.

This command:
1. Connects to Qdrant and ensures the collection exists (or recreates it)
2. Loads *.md and *.txt documents from the corpus directory or a GitHub directory
3. Splits each document into 1000-character chunks overlapping by 200
4. Embeds chunks one at a time, rate limited, and upserts them in batches of 100
5. Reports chunk ids written by the previous run but not by this one
6. Verifies the index with its statistics and a smoke-test query

Any embedding or upsert failure aborts the run with a non-zero exit status.
Re-running on an unchanged corpus overwrites records with identical ids.`,
	RunE: runIngest,
}

func init() {
	f := ingestCmd.Flags()
	f.StringVar(&ingestFlags.corpusDir, "corpus", "", "knowledge base directory (default from config)")
	f.StringVar(&ingestFlags.github, "github", "", "ingest from a GitHub directory instead, as owner/repo/path")
	f.StringVar(&ingestFlags.ref, "ref", "", "git ref for --github (default branch when empty)")
	f.BoolVar(&ingestFlags.recreate, "recreate", false, "drop and recreate the collection first")
	f.BoolVar(&ingestFlags.pruneOrphans, "prune-orphans", false, "delete records written by the previous run but not by this one")
	f.BoolVar(&ingestFlags.skipSmokeTest, "skip-smoke-test", false, "skip the post-ingestion smoke query")
	ingestCmd.MarkFlagsMutuallyExclusive("corpus", "github")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()
	start := time.Now()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := cfg.NewLogger()

	fmt.Println("Starting knowledge base ingestion...")
	fmt.Println()

	// 1. Connect to Qdrant and OpenAI
	fmt.Printf("Connecting to Qdrant at %s:%d...\n", cfg.Qdrant.Host, cfg.Qdrant.Port)
	svc, err := app.Connect(cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()
	fmt.Println("Qdrant healthy")

	// 2. Prepare the collection
	if ingestFlags.recreate {
		fmt.Printf("Recreating collection %q...\n", svc.Store.Collection())
		if err := svc.Store.ClearCollection(ctx); err != nil {
			return fmt.Errorf("failed to recreate collection: %w", err)
		}
	} else if err := svc.Store.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("failed to ensure collection: %w", err)
	}

	// 3. Select the corpus source
	source, err := newSource(cfg)
	if err != nil {
		return err
	}
	fmt.Printf("Reading knowledge base from %s\n", source.Location())

	m, err := manifest.Open(cfg.Ingest.ManifestPath)
	if err != nil {
		return err
	}
	defer m.Close()

	opts := app.IngestOptions(cfg)
	opts.PruneOrphans = ingestFlags.pruneOrphans
	if ingestFlags.skipSmokeTest {
		opts.SmokeQuery = ""
	}

	// 4. Run the pipeline
	pipeline := indexer.NewPipeline(source, svc.Embedder, svc.Store, m, opts, logger)
	pipeline.OnProgress(newProgressRenderer())

	result, err := pipeline.Run(ctx)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Println()
	fmt.Println("Ingestion complete!")
	fmt.Printf("  Documents: %d\n", result.Documents)
	fmt.Printf("  Chunks:    %d\n", result.Chunks)
	fmt.Printf("  Batches:   %d\n", result.Batches)
	if result.Revision != "" {
		fmt.Printf("  Commit:    %s\n", result.Revision)
	}
	if len(result.Orphans) > 0 {
		if result.Pruned > 0 {
			fmt.Printf("  Pruned:    %d orphaned records\n", result.Pruned)
		} else {
			fmt.Printf("  Orphans:   %d records from the previous run remain (use --prune-orphans)\n", len(result.Orphans))
		}
	}

	// 5. Verify
	verification, err := pipeline.Verify(ctx, result.Categories)
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}
	printVerification(verification)

	fmt.Println()
	fmt.Printf("Total time: %s\n", time.Since(start).Round(time.Second))
	return nil
}

func newSource(cfg *config.Config) (corpus.Source, error) {
	if ingestFlags.github != "" {
		owner, repo, basePath, err := ghclient.ParseLocation(ingestFlags.github)
		if err != nil {
			return nil, err
		}
		client, err := ghclient.NewClient(cfg.Ingest.GitHubToken)
		if err != nil {
			return nil, fmt.Errorf("failed to create GitHub client: %w", err)
		}
		fetcher := ghclient.NewFetcher(client, owner, repo, basePath, ingestFlags.ref)
		return corpus.NewGitHubSource(fetcher, cfg.Ingest.Patterns)
	}

	dir := cfg.Ingest.CorpusDir
	if ingestFlags.corpusDir != "" {
		dir = ingestFlags.corpusDir
	}
	return corpus.NewDirSource(dir, cfg.Ingest.Patterns)
}

// newProgressRenderer draws a bar for the embedding stage and one line per batch.
func newProgressRenderer() func(indexer.Progress) {
	var bar *progressbar.ProgressBar
	return func(p indexer.Progress) {
		switch p.Stage {
		case indexer.StageEmbedding:
			if bar == nil {
				bar = progressbar.NewOptions(p.Total,
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionEnableColorCodes(true),
					progressbar.OptionSetWidth(40),
					progressbar.OptionShowCount(),
					progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
					progressbar.OptionOnCompletion(func() {
						fmt.Fprintln(os.Stderr)
					}),
				)
			}
			bar.Set(p.Done)
		case indexer.StageUpserting:
			fmt.Fprintf(os.Stderr, "\nUpserted batch %d/%d\n", p.Done, p.Total)
		}
	}
}
