// Package main serves resume analysis over REST and MCP.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bull/careerconnect-rag/internal/api"
	"github.com/bull/careerconnect-rag/internal/app"
	"github.com/bull/careerconnect-rag/internal/config"
	"github.com/bull/careerconnect-rag/internal/manifest"
	mcpserver "github.com/bull/careerconnect-rag/internal/mcp"
	"github.com/bull/careerconnect-rag/internal/resumefile"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML configuration")
	flag.Parse()

	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	svc, err := app.Connect(cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.Store.EnsureCollection(ctx); err != nil {
		return err
	}

	retriever := svc.Retriever()
	analyzer := svc.Analyzer(retriever)

	mcpCfg := &mcpserver.Config{
		Analyzer:   analyzer,
		Searcher:   retriever,
		Index:      svc.Store,
		Categories: app.Categories(cfg),
		MinScore:   cfg.Retrieval.MinScore,
	}
	if m, err := manifest.Open(cfg.Ingest.ManifestPath); err != nil {
		logger.Warn("Manifest unavailable, index_status will omit the last run", "error", err)
	} else {
		defer m.Close()
		mcpCfg.Manifest = m
	}
	mcp := mcpserver.NewServer(mcpCfg)

	extractor, err := resumefile.NewExtractor(ctx)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/ai/analyze", api.NewAnalyzeHandler(analyzer, extractor, logger))
	mux.HandleFunc("GET /health", api.NewHealthHandler(svc.Store))
	mux.Handle("/mcp", mcp.HTTPHandler(true))
	mux.HandleFunc("/", api.NewLandingHandler())

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "addr", srv.Addr, "mcp_transport", transportName(cfg.Server.ServerMode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if !cfg.Server.ServerMode {
		// Stdio mode: MCP over stdin/stdout for local clients, REST stays up alongside
		go func() {
			logger.Info("Starting MCP server (stdio mode)")
			if err := mcp.Run(ctx); err != nil {
				errCh <- err
				return
			}
			cancel()
		}()
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	return srv.Shutdown(shutdownCtx)
}

func transportName(serverMode bool) string {
	if serverMode {
		return "http"
	}
	return "stdio"
}
