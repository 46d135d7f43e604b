package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bull/careerconnect-rag/internal/analysis"
	"github.com/bull/careerconnect-rag/internal/app"
	"github.com/bull/careerconnect-rag/internal/resumefile"
)

var analyzeFlags struct {
	resume string
	job    string
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Score a resume against a job description",
	Long: `Runs a retrieval-augmented analysis and prints the report as JSON.

When the model output cannot be validated, the raw output is printed to
stderr and the command exits non-zero.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFlags.resume, "resume", "", "resume file, plain text or PDF (required)")
	analyzeCmd.Flags().StringVar(&analyzeFlags.job, "job", "", "job description file")
	analyzeCmd.MarkFlagRequired("resume")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	resume, err := readResume(ctx, analyzeFlags.resume)
	if err != nil {
		return err
	}
	var job []byte
	if analyzeFlags.job != "" {
		if job, err = os.ReadFile(analyzeFlags.job); err != nil {
			return fmt.Errorf("read job description: %w", err)
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := app.Connect(cfg, cfg.NewLogger())
	if err != nil {
		return err
	}
	defer svc.Close()

	report, err := svc.Analyzer(svc.Retriever()).Analyze(ctx, resume, string(job))
	if err != nil {
		var malformed *analysis.MalformedOutputError
		if errors.As(err, &malformed) {
			fmt.Fprintf(os.Stderr, "Raw model output:\n%s\n", malformed.Raw)
		}
		return err
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// readResume returns the resume text, extracting it when the file is a PDF.
func readResume(ctx context.Context, name string) (string, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("read resume: %w", err)
	}
	if !strings.EqualFold(filepath.Ext(name), ".pdf") && !resumefile.IsPDF(data) {
		return string(data), nil
	}

	extractor, err := resumefile.NewExtractor(ctx)
	if err != nil {
		return "", err
	}
	text, err := extractor.ExtractPDF(ctx, data)
	if err != nil {
		return "", fmt.Errorf("read resume %s: %w", name, err)
	}
	return text, nil
}
