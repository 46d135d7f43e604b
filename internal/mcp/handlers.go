package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/careerconnect-rag/internal/api"
	"github.com/bull/careerconnect-rag/internal/retrieval"
)

const (
	defaultTopK = 5
	maxTopK     = 20
)

// makeAnalyzeHandler creates the analyze_resume tool handler.
func makeAnalyzeHandler(analyzer Analyzer) func(
	context.Context, *mcp.CallToolRequest, AnalyzeResumeInput,
) (*mcp.CallToolResult, AnalyzeResumeOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AnalyzeResumeInput) (
		*mcp.CallToolResult, AnalyzeResumeOutput, error,
	) {
		report, err := analyzer.Analyze(ctx, input.ResumeText, input.JobDescription)
		if err != nil {
			return nil, AnalyzeResumeOutput{}, newToolError(err)
		}

		return nil, AnalyzeResumeOutput{
			MatchScore:      report.Analysis.MatchScore,
			Strengths:       nonNil(report.Analysis.Strengths),
			Weaknesses:      nonNil(report.Analysis.Weaknesses),
			MissingKeywords: nonNil(report.Analysis.MissingKeywords),
			Verdict:         report.Analysis.Verdict,
			RAGEnabled:      report.Metadata.RAGEnabled,
			ContextSources:  report.Metadata.ContextSources,
			JobRole:         report.Metadata.JobRole,
			Timestamp:       report.Metadata.Timestamp.Format(time.RFC3339),
		}, nil
	}
}

// toolError carries the REST error body of a failed analysis, so tool callers
// see the same kind and raw model output as HTTP callers.
type toolError struct {
	err  error
	body api.ErrorBody
}

func newToolError(err error) *toolError {
	_, body := api.Classify(err)
	return &toolError{err: err, body: body}
}

func (e *toolError) Error() string {
	b, err := json.Marshal(api.ErrorResponse{Error: e.body})
	if err != nil {
		return e.body.Message
	}
	return string(b)
}

func (e *toolError) Unwrap() error { return e.err }

// makeSearchHandler creates the search_knowledge tool handler.
// Search flow:
// 1. Apply defaults and clamp top_k
// 2. Embed the query and fetch top_k*2 raw matches, optionally within one category
// 3. Keep matches scoring at least min_score, in ranking order
func makeSearchHandler(searcher Searcher, defaultMinScore float64) func(
	context.Context, *mcp.CallToolRequest, SearchKnowledgeInput,
) (*mcp.CallToolResult, SearchKnowledgeOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchKnowledgeInput) (
		*mcp.CallToolResult, SearchKnowledgeOutput, error,
	) {
		if strings.TrimSpace(input.Query) == "" {
			return nil, SearchKnowledgeOutput{}, fmt.Errorf("query is required")
		}

		topK := input.TopK
		if topK <= 0 {
			topK = defaultTopK
		}
		topK = min(topK, maxTopK)
		minScore := defaultMinScore
		if input.MinScore != nil {
			minScore = *input.MinScore
		}

		matches, err := searcher.Search(ctx, input.Query, retrieval.Query{
			Category: input.Category,
			TopK:     topK,
			MinScore: minScore,
		})
		if err != nil {
			return nil, SearchKnowledgeOutput{}, fmt.Errorf("search failed: %w", err)
		}

		results := make([]SearchResult, 0, len(matches))
		for _, m := range matches {
			r := SearchResult{ChunkID: m.ID, Score: m.Score}
			if m.Metadata != nil {
				r.Category = m.Metadata.Category
				r.Filename = m.Metadata.Filename
				r.Section = m.Metadata.Section
				r.Text = m.Metadata.Text
			}
			results = append(results, r)
		}

		if len(results) == 0 {
			return nil, SearchKnowledgeOutput{
				Results: []SearchResult{},
				Message: "No passages above the relevance threshold. Try broader terms or a lower min_score.",
			}, nil
		}
		return nil, SearchKnowledgeOutput{Results: results}, nil
	}
}

// makeStatusHandler creates the index_status tool handler.
func makeStatusHandler(index StatsProvider, runs RunReader, categories []string) func(
	context.Context, *mcp.CallToolRequest, IndexStatusInput,
) (*mcp.CallToolResult, IndexStatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input IndexStatusInput) (
		*mcp.CallToolResult, IndexStatusOutput, error,
	) {
		stats, err := index.Stats(ctx, categories)
		if err != nil {
			return nil, IndexStatusOutput{}, fmt.Errorf("qdrant_error: failed to get index stats: %w", err)
		}

		out := IndexStatusOutput{
			Collection:     index.Collection(),
			TotalVectors:   stats.TotalVectors,
			Dimension:      stats.Dimension,
			FullnessRatio:  stats.FullnessRatio,
			CategoryCounts: stats.CategoryCounts,
		}
		if out.CategoryCounts == nil {
			out.CategoryCounts = map[string]uint64{}
		}

		if runs != nil {
			run, err := runs.LastRun()
			if err == nil && run != nil {
				out.LastIngestion = run.CompletedAt.Format(time.RFC3339)
				out.SourceRevision = run.Revision
			}
			// A missing or unreadable manifest is not an error for the tool
		}

		if stats.TotalVectors == 0 {
			out.Warning = "Knowledge base is empty. Run ingestion before analyzing resumes."
		}
		return nil, out, nil
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
