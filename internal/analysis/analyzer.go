// Package analysis scores a resume against a job description using retrieved
// career-advice context and a primary/fallback generation policy.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bull/careerconnect-rag/internal/generation"
	"github.com/bull/careerconnect-rag/internal/retrieval"
)

// Classifier maps a job description to a role.
type Classifier interface {
	Classify(jobDescription string) (string, bool)
}

// Retriever builds retrieval context. It must not fail.
type Retriever interface {
	Retrieve(ctx context.Context, queryText, role string) *retrieval.Context
}

// Generator produces model completions.
type Generator interface {
	Generate(ctx context.Context, req generation.Request) (string, error)
}

// Options configures generation.
type Options struct {
	PrimaryModel  string
	FallbackModel string // empty disables the fallback attempt
	Temperature   float64
	MaxTokens     int
	MaxQueryChars int // retrieval query length cap, 0 for none
}

// DefaultOptions returns the production analysis settings.
func DefaultOptions() Options {
	return Options{
		PrimaryModel:  "gpt-4o",
		FallbackModel: "gpt-3.5-turbo",
		Temperature:   0,
		MaxTokens:     1500,
		MaxQueryChars: 8000,
	}
}

// Analyzer runs resume analyses. It is safe for concurrent use.
type Analyzer struct {
	classifier Classifier
	retriever  Retriever
	generator  Generator
	opts       Options
	logger     *slog.Logger
	now        func() time.Time
}

// NewAnalyzer creates an analyzer. retriever may be nil, which disables
// retrieval-augmented context.
func NewAnalyzer(classifier Classifier, retriever Retriever, generator Generator, opts Options, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		classifier: classifier,
		retriever:  retriever,
		generator:  generator,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
	}
}

// Analyze classifies the job, retrieves context, generates and validates the
// analysis. An empty resume fails with ErrMissingInput before any external call.
func (a *Analyzer) Analyze(ctx context.Context, resumeText, jobDescription string) (*Report, error) {
	if strings.TrimSpace(resumeText) == "" {
		return nil, ErrMissingInput
	}

	jobRole, _ := a.classifier.Classify(jobDescription)

	var rc *retrieval.Context
	if a.retriever != nil {
		rc = a.retriever.Retrieve(ctx, truncate(resumeText, a.opts.MaxQueryChars), jobRole)
	} else {
		rc = &retrieval.Context{}
	}

	a.logger.Info("Analyzing resume",
		"job_role", jobRole,
		"context_sources", rc.Sources(),
		"resume_chars", len(resumeText),
	)

	raw, err := a.generate(ctx, buildPrompt(resumeText, jobDescription, jobRole, rc))
	if err != nil {
		return nil, err
	}

	result, err := ParseResult(raw)
	if err != nil {
		a.logger.Warn("Model returned malformed analysis", "error", err)
		return nil, err
	}

	return &Report{
		Analysis: *result,
		Metadata: Metadata{
			RAGEnabled:     rc.Sources() > 0,
			ContextSources: rc.Sources(),
			JobRole:        jobRole,
			Timestamp:      a.now().UTC(),
		},
	}, nil
}

// generate tries the primary model, then the fallback model once.
func (a *Analyzer) generate(ctx context.Context, prompt string) (string, error) {
	req := generation.Request{
		Model:       a.opts.PrimaryModel,
		System:      systemPrompt,
		Prompt:      prompt,
		Temperature: a.opts.Temperature,
		MaxTokens:   a.opts.MaxTokens,
		JSON:        true,
	}

	raw, primaryErr := a.generator.Generate(ctx, req)
	if primaryErr == nil {
		return raw, nil
	}
	if a.opts.FallbackModel == "" {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailure, primaryErr)
	}

	a.logger.Warn("Primary model failed, falling back",
		"primary", a.opts.PrimaryModel,
		"fallback", a.opts.FallbackModel,
		"error", primaryErr,
	)

	req.Model = a.opts.FallbackModel
	raw, fallbackErr := a.generator.Generate(ctx, req)
	if fallbackErr != nil {
		return "", fmt.Errorf("%w: primary: %w; fallback: %w", ErrGenerationFailure, primaryErr, fallbackErr)
	}
	return raw, nil
}
