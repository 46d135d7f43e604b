// Package retrieval builds LLM-ready context from categorized similarity
// queries against the knowledge base.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bull/careerconnect-rag/internal/storage"
)

// Embedder turns query text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher runs similarity queries.
type Searcher interface {
	Query(ctx context.Context, req storage.QueryRequest) ([]storage.Match, error)
}

// Categories names the knowledge-base category behind each context section.
type Categories struct {
	General   string
	Technical string
	Career    string
}

// Options configures the three categorized queries.
type Options struct {
	Categories  Categories
	GeneralTopK int
	RoleTopK    int
	CareerTopK  int
	MinScore    float64
}

// DefaultOptions returns the production retrieval settings.
func DefaultOptions() Options {
	return Options{
		Categories: Categories{
			General:   "resume_best_practices",
			Technical: "technical_skills_keywords",
			Career:    "interview_career_advice",
		},
		GeneralTopK: 3,
		RoleTopK:    2,
		CareerTopK:  2,
		MinScore:    0.65,
	}
}

// Query describes a single categorized query.
type Query struct {
	Category string // empty searches every category
	TopK     int
	MinScore float64
}

// Context is the retrieval output for one analysis request. Empty sections
// are empty strings.
type Context struct {
	General      string
	RoleSpecific string
	Career       string
	AllMatches   []storage.Match
}

// Sources returns the number of matches that contributed to the context.
func (c *Context) Sources() int {
	return len(c.AllMatches)
}

// Orchestrator issues the categorized queries.
type Orchestrator struct {
	embedder Embedder
	searcher Searcher
	opts     Options
	logger   *slog.Logger
}

// NewOrchestrator creates a retrieval orchestrator.
func NewOrchestrator(embedder Embedder, searcher Searcher, opts Options, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		embedder: embedder,
		searcher: searcher,
		opts:     opts,
		logger:   logger,
	}
}

// Options returns the configured retrieval options.
func (o *Orchestrator) Options() Options {
	return o.opts
}

// Retrieve runs the general, role-specific and career queries. It never fails:
// a category whose query errors contributes no context. The role-specific
// query runs only when role is non-empty.
func (o *Orchestrator) Retrieve(ctx context.Context, queryText, role string) *Context {
	vectors := newVectorCache(o.embedder)
	out := &Context{}

	general := o.searchCategory(ctx, vectors, "general", queryText, Query{
		Category: o.opts.Categories.General, TopK: o.opts.GeneralTopK, MinScore: o.opts.MinScore,
	})

	var roleSpecific []storage.Match
	if role != "" {
		roleSpecific = o.searchCategory(ctx, vectors, "role", role+" skills requirements", Query{
			Category: o.opts.Categories.Technical, TopK: o.opts.RoleTopK, MinScore: o.opts.MinScore,
		})
	}

	career := o.searchCategory(ctx, vectors, "career", queryText, Query{
		Category: o.opts.Categories.Career, TopK: o.opts.CareerTopK, MinScore: o.opts.MinScore,
	})

	out.General = FormatContext(general)
	out.RoleSpecific = FormatContext(roleSpecific)
	out.Career = FormatContext(career)
	out.AllMatches = make([]storage.Match, 0, len(general)+len(roleSpecific)+len(career))
	out.AllMatches = append(out.AllMatches, general...)
	out.AllMatches = append(out.AllMatches, roleSpecific...)
	out.AllMatches = append(out.AllMatches, career...)

	o.logger.Debug("Retrieved context",
		"general", len(general),
		"role", len(roleSpecific),
		"career", len(career),
		"job_role", role,
	)
	return out
}

func (o *Orchestrator) searchCategory(ctx context.Context, vectors *vectorCache, section, text string, q Query) []storage.Match {
	matches, err := o.search(ctx, vectors, text, q)
	if err != nil {
		o.logger.Warn("Retrieval query failed, continuing without this context",
			"section", section,
			"category", q.Category,
			"error", err,
		)
		return nil
	}
	return matches
}

// Search embeds text and returns at most q.TopK matches scoring at least
// q.MinScore, in the index's ranking order.
func (o *Orchestrator) Search(ctx context.Context, text string, q Query) ([]storage.Match, error) {
	return o.search(ctx, newVectorCache(o.embedder), text, q)
}

func (o *Orchestrator) search(ctx context.Context, vectors *vectorCache, text string, q Query) ([]storage.Match, error) {
	if q.TopK <= 0 {
		return nil, nil
	}

	vector, err := vectors.get(ctx, text)
	if err != nil {
		return nil, err
	}

	req := storage.QueryRequest{
		Vector:          vector,
		TopK:            q.TopK * 2, // headroom for threshold filtering
		IncludeMetadata: true,
	}
	if q.Category != "" {
		req.Filter = &storage.Filter{Category: q.Category}
	}

	raw, err := o.searcher.Query(ctx, req)
	if err != nil {
		return nil, err
	}
	return threshold(raw, q.MinScore, q.TopK), nil
}

// threshold drops matches below minScore and keeps the first topK. Order is preserved.
func threshold(matches []storage.Match, minScore float64, topK int) []storage.Match {
	out := make([]storage.Match, 0, min(len(matches), topK))
	for _, m := range matches {
		if len(out) == topK {
			break
		}
		if m.Score >= minScore {
			out = append(out, m)
		}
	}
	return out
}

// FormatContext renders matches as labeled source blocks. No matches yields "".
func FormatContext(matches []storage.Match) string {
	if len(matches) == 0 {
		return ""
	}

	parts := make([]string, len(matches))
	for i, m := range matches {
		category, text := "Unknown", ""
		if m.Metadata != nil {
			if m.Metadata.Category != "" {
				category = m.Metadata.Category
			}
			text = m.Metadata.Text
		}
		parts[i] = fmt.Sprintf("[Source %d: %s (Relevance: %.3f)]\n%s", i+1, category, m.Score, text)
	}
	return strings.Join(parts, "\n\n---\n\n")
}
