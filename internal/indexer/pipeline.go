package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bull/careerconnect-rag/internal/chunker"
	"github.com/bull/careerconnect-rag/internal/corpus"
	"github.com/bull/careerconnect-rag/internal/manifest"
	"github.com/bull/careerconnect-rag/internal/markdown"
	"github.com/bull/careerconnect-rag/internal/storage"
)

var (
	// ErrEmptyCorpus is returned when the corpus location holds no matching documents.
	ErrEmptyCorpus = errors.New("corpus contains no documents")
	// ErrEmptyIndex is returned by Verify when the index holds no vectors.
	ErrEmptyIndex = errors.New("index contains no vectors")
)

// Embedder turns chunk text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index is the subset of the vector store the pipeline writes to.
type Index interface {
	Upsert(ctx context.Context, records []storage.VectorRecord) error
	Query(ctx context.Context, req storage.QueryRequest) ([]storage.Match, error)
	Stats(ctx context.Context, categories []string) (*storage.IndexStats, error)
	Delete(ctx context.Context, chunkIDs []string) error
}

// Manifest tracks the chunk ids of the previous successful run.
type Manifest interface {
	Orphans(current []string) ([]string, error)
	Replace(entries []manifest.Entry, run manifest.Run) error
}

// Options controls chunking, batching and rate control.
type Options struct {
	ChunkSize     int
	ChunkOverlap  int
	BatchSize     int
	EmbedInterval time.Duration // minimum spacing between embedding calls
	BatchInterval time.Duration // pause after each upsert batch before the next one
	SmokeQuery    string        // run by Verify when non-empty
	SmokeTopK     int
	PruneOrphans  bool
}

// DefaultOptions returns the production ingestion settings.
func DefaultOptions() Options {
	return Options{
		ChunkSize:     1000,
		ChunkOverlap:  200,
		BatchSize:     storage.RecommendedBatchSize,
		EmbedInterval: 100 * time.Millisecond,
		BatchInterval: 500 * time.Millisecond,
		SmokeQuery:    "What are the best practices for writing a resume?",
		SmokeTopK:     3,
	}
}

// Chunk is a chunk awaiting embedding.
type Chunk struct {
	ID       string
	Text     string
	Metadata storage.ChunkMetadata
}

// Result contains statistics about an ingestion run.
type Result struct {
	Location   string
	Revision   string
	Documents  int
	Chunks     int
	Batches    int
	Categories []string
	Orphans    []string
	Pruned     int
	Duration   time.Duration
}

// Pipeline orchestrates corpus loading, chunking, embedding and storage.
type Pipeline struct {
	source   corpus.Source
	embedder Embedder
	index    Index
	manifest Manifest
	outliner *markdown.Outliner
	opts     Options
	progress func(Progress)
	logger   *slog.Logger
}

// NewPipeline creates an ingestion pipeline. manifest may be nil, which disables
// orphan tracking.
func NewPipeline(source corpus.Source, embedder Embedder, index Index, m Manifest, opts Options, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = storage.RecommendedBatchSize
	}
	if opts.SmokeTopK <= 0 {
		opts.SmokeTopK = 3
	}
	return &Pipeline{
		source:   source,
		embedder: embedder,
		index:    index,
		manifest: m,
		outliner: markdown.NewOutliner(),
		opts:     opts,
		progress: func(Progress) {},
		logger:   logger,
	}
}

// OnProgress registers a callback invoked after every embedding and upsert.
func (p *Pipeline) OnProgress(fn func(Progress)) {
	if fn != nil {
		p.progress = fn
	}
}

// Run ingests the whole corpus. Any embedding or upsert failure aborts the run.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{Location: p.source.Location()}

	if r, ok := p.source.(corpus.Revisioner); ok {
		revision, err := r.Revision(ctx)
		if err != nil {
			return nil, fmt.Errorf("get revision: %w", err)
		}
		result.Revision = revision
	}
	p.logger.Info("Starting ingestion", "location", result.Location, "revision", result.Revision)

	// 1. Enumerate documents
	docs, err := p.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyCorpus, result.Location)
	}
	result.Documents = len(docs)
	for _, doc := range docs {
		p.logger.Info("Loaded document", "filename", doc.Filename, "size_kb", fmt.Sprintf("%.2f", float64(doc.SizeBytes)/1024))
	}

	// 2-3. Chunk and assign ids
	chunks, err := p.Prepare(docs)
	if err != nil {
		return nil, err
	}
	result.Chunks = len(chunks)
	result.Categories = categoriesOf(docs)

	// 4-5. Embed and upsert batch by batch
	batches, err := p.write(ctx, chunks)
	result.Batches = batches
	if err != nil {
		return nil, err
	}

	if err := p.reconcile(ctx, chunks, result); err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	p.logger.Info("Ingestion complete",
		"documents", result.Documents,
		"chunks", result.Chunks,
		"batches", result.Batches,
		"orphans", len(result.Orphans),
		"duration", result.Duration,
	)
	return result, nil
}

// Prepare chunks documents in order and assigns corpus-wide sequential ids.
// The same documents in the same order always produce the same chunks.
func (p *Pipeline) Prepare(docs []corpus.Document) ([]Chunk, error) {
	var chunks []Chunk
	next := 0
	for _, doc := range docs {
		windows, err := chunker.Windows(doc.Content, p.opts.ChunkSize, p.opts.ChunkOverlap)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", doc.Filename, err)
		}

		var sections []markdown.Section
		if isMarkdown(doc.Filename) {
			sections, err = p.outliner.Outline([]byte(doc.Content))
			if err != nil {
				p.logger.Warn("Failed to outline document, continuing without sections", "filename", doc.Filename, "error", err)
			}
		}

		for i, w := range windows {
			id := fmt.Sprintf("chunk_%d", next)
			next++
			chunks = append(chunks, Chunk{
				ID:   id,
				Text: w.Text,
				Metadata: storage.ChunkMetadata{
					ChunkID:     id,
					Filename:    doc.Filename,
					Category:    doc.Category,
					ChunkIndex:  i,
					TotalChunks: len(windows),
					Text:        w.Text,
					Section:     markdown.SectionAt(sections, w.Start),
				},
			})
		}
		p.logger.Debug("Chunked document", "filename", doc.Filename, "chunks", len(windows))
	}
	return chunks, nil
}

// write embeds and upserts chunks in order, returning the number of batches written.
func (p *Pipeline) write(ctx context.Context, chunks []Chunk) (int, error) {
	embedLimiter := newLimiter(p.opts.EmbedInterval)
	totalBatches := (len(chunks) + p.opts.BatchSize - 1) / p.opts.BatchSize

	written := 0
	for startIdx := 0; startIdx < len(chunks); startIdx += p.opts.BatchSize {
		end := min(startIdx+p.opts.BatchSize, len(chunks))

		batch := make([]storage.VectorRecord, 0, end-startIdx)
		for i := startIdx; i < end; i++ {
			if err := embedLimiter.Wait(ctx); err != nil {
				return written, err
			}
			vector, err := p.embedder.Embed(ctx, chunks[i].Text)
			if err != nil {
				return written, fmt.Errorf("embed %s: %w", chunks[i].ID, err)
			}
			batch = append(batch, storage.VectorRecord{
				ID:       chunks[i].ID,
				Values:   vector,
				Metadata: chunks[i].Metadata,
			})
			p.progress(Progress{Stage: StageEmbedding, Done: i + 1, Total: len(chunks)})
		}

		if err := p.index.Upsert(ctx, batch); err != nil {
			return written, fmt.Errorf("upsert batch %d/%d: %w", written+1, totalBatches, err)
		}
		written++
		p.progress(Progress{Stage: StageUpserting, Done: written, Total: totalBatches})
		p.logger.Debug("Upserted batch", "batch", written, "of", totalBatches, "records", len(batch))

		if written < totalBatches {
			if err := pause(ctx, p.opts.BatchInterval); err != nil {
				return written, err
			}
		}
	}
	return written, nil
}

// reconcile reports, and optionally prunes, ids written by the previous run but
// not by this one, then records this run in the manifest.
func (p *Pipeline) reconcile(ctx context.Context, chunks []Chunk, result *Result) error {
	if p.manifest == nil {
		return nil
	}

	ids := make([]string, len(chunks))
	entries := make([]manifest.Entry, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
		entries[i] = manifest.Entry{
			ChunkID:     c.ID,
			Filename:    c.Metadata.Filename,
			Category:    c.Metadata.Category,
			ChunkIndex:  c.Metadata.ChunkIndex,
			TotalChunks: c.Metadata.TotalChunks,
		}
	}

	orphans, err := p.manifest.Orphans(ids)
	if err != nil {
		return fmt.Errorf("find orphans: %w", err)
	}
	result.Orphans = orphans

	if len(orphans) > 0 {
		if p.opts.PruneOrphans {
			if err := p.index.Delete(ctx, orphans); err != nil {
				return fmt.Errorf("prune orphans: %w", err)
			}
			result.Pruned = len(orphans)
			p.logger.Info("Pruned orphaned records", "count", len(orphans))
		} else {
			p.logger.Warn("Index holds records from a previous run that this run did not write; rerun with orphan pruning to remove them",
				"count", len(orphans))
		}
	}

	err = p.manifest.Replace(entries, manifest.Run{
		Location:    result.Location,
		Revision:    result.Revision,
		Documents:   result.Documents,
		Chunks:      result.Chunks,
		CompletedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("update manifest: %w", err)
	}
	return nil
}

func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// pause waits d after an upsert before the next batch starts embedding.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func isMarkdown(filename string) bool {
	ext := strings.ToLower(path.Ext(filename))
	return ext == ".md" || ext == ".markdown"
}

func categoriesOf(docs []corpus.Document) []string {
	seen := make(map[string]struct{}, len(docs))
	var out []string
	for _, d := range docs {
		if _, ok := seen[d.Category]; ok {
			continue
		}
		seen[d.Category] = struct{}{}
		out = append(out, d.Category)
	}
	return out
}
