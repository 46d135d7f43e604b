package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/careerconnect-rag/internal/corpus"
	"github.com/bull/careerconnect-rag/internal/manifest"
	"github.com/bull/careerconnect-rag/internal/storage"
)

type fakeSource struct {
	docs     []corpus.Document
	err      error
	revision string
}

func (s *fakeSource) Load(context.Context) ([]corpus.Document, error) { return s.docs, s.err }
func (s *fakeSource) Location() string                                { return "fake://kb" }

type revisionSource struct {
	fakeSource
}

func (s *revisionSource) Revision(context.Context) (string, error) { return s.revision, nil }

type fakeEmbedder struct {
	calls  int
	failAt int // 1-based call that fails, 0 never
	times  []time.Time
}

func (e *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls++
	e.times = append(e.times, time.Now())
	if e.failAt > 0 && e.calls == e.failAt {
		return nil, errors.New("embedding service down")
	}
	return []float32{float32(len(text)), 1}, nil
}

type fakeIndex struct {
	batches   [][]storage.VectorRecord
	deleted   []string
	upsertErr error
	stats     *storage.IndexStats
	matches   []storage.Match
	queries   []storage.QueryRequest

	upsertTimes []time.Time
	onUpsert    func()
}

func (f *fakeIndex) Upsert(_ context.Context, records []storage.VectorRecord) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.batches = append(f.batches, records)
	f.upsertTimes = append(f.upsertTimes, time.Now())
	if f.onUpsert != nil {
		f.onUpsert()
	}
	return nil
}

func (f *fakeIndex) Query(_ context.Context, req storage.QueryRequest) ([]storage.Match, error) {
	f.queries = append(f.queries, req)
	return f.matches, nil
}

func (f *fakeIndex) Stats(context.Context, []string) (*storage.IndexStats, error) {
	return f.stats, nil
}

func (f *fakeIndex) Delete(_ context.Context, ids []string) error {
	f.deleted = append(f.deleted, ids...)
	return nil
}

type fakeManifest struct {
	previous []string
	replaced []manifest.Entry
	run      manifest.Run
}

func (m *fakeManifest) Orphans(current []string) ([]string, error) {
	seen := map[string]bool{}
	for _, id := range current {
		seen[id] = true
	}
	var out []string
	for _, id := range m.previous {
		if !seen[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

func (m *fakeManifest) Replace(entries []manifest.Entry, run manifest.Run) error {
	m.replaced = entries
	m.run = run
	return nil
}

func testOptions() Options {
	return Options{ChunkSize: 10, ChunkOverlap: 2, BatchSize: 3}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleDocs() []corpus.Document {
	return []corpus.Document{
		{Filename: "interview_career_advice.txt", Category: "interview_career_advice", Content: strings.Repeat("a", 25)},
		{Filename: "resume_best_practices.md", Category: "resume_best_practices", Content: "# Resume\n\nKeep it short."},
	}
}

func allRecords(idx *fakeIndex) []storage.VectorRecord {
	var out []storage.VectorRecord
	for _, b := range idx.batches {
		out = append(out, b...)
	}
	return out
}

func TestPrepare_SequentialIDsAcrossCorpus(t *testing.T) {
	p := NewPipeline(&fakeSource{}, &fakeEmbedder{}, &fakeIndex{}, nil, testOptions(), testLogger())

	chunks, err := p.Prepare(sampleDocs())
	require.NoError(t, err)

	// 25 chars at size 10/overlap 2 -> 3 chunks, 24 chars -> 3 chunks
	require.Len(t, chunks, 6)
	for i, c := range chunks {
		assert.Equal(t, fmt.Sprintf("chunk_%d", i), c.ID)
		assert.Equal(t, c.ID, c.Metadata.ChunkID)
		assert.Equal(t, c.Text, c.Metadata.Text)
		assert.LessOrEqual(t, len([]rune(c.Text)), 10)
	}

	assert.Equal(t, "interview_career_advice", chunks[0].Metadata.Category)
	assert.Equal(t, 0, chunks[0].Metadata.ChunkIndex)
	assert.Equal(t, 3, chunks[0].Metadata.TotalChunks)
	assert.Empty(t, chunks[0].Metadata.Section, "plain text has no sections")

	assert.Equal(t, "resume_best_practices.md", chunks[3].Metadata.Filename)
	assert.Equal(t, 0, chunks[3].Metadata.ChunkIndex)
	assert.Equal(t, "# Resume", chunks[3].Metadata.Section)
}

func TestPrepare_Deterministic(t *testing.T) {
	p := NewPipeline(&fakeSource{}, &fakeEmbedder{}, &fakeIndex{}, nil, testOptions(), testLogger())

	first, err := p.Prepare(sampleDocs())
	require.NoError(t, err)
	second, err := p.Prepare(sampleDocs())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPrepare_InvalidChunking(t *testing.T) {
	opts := testOptions()
	opts.ChunkOverlap = opts.ChunkSize
	p := NewPipeline(&fakeSource{}, &fakeEmbedder{}, &fakeIndex{}, nil, opts, testLogger())

	_, err := p.Prepare(sampleDocs())
	assert.Error(t, err)
}

func TestRun_BatchesInOrder(t *testing.T) {
	idx := &fakeIndex{}
	emb := &fakeEmbedder{}
	p := NewPipeline(&fakeSource{docs: sampleDocs()}, emb, idx, nil, testOptions(), testLogger())

	var progress []Progress
	p.OnProgress(func(pr Progress) { progress = append(progress, pr) })

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Documents)
	assert.Equal(t, 6, result.Chunks)
	assert.Equal(t, 2, result.Batches)
	assert.Equal(t, []string{"interview_career_advice", "resume_best_practices"}, result.Categories)
	assert.Equal(t, 6, emb.calls)

	require.Len(t, idx.batches, 2)
	assert.Len(t, idx.batches[0], 3)
	assert.Len(t, idx.batches[1], 3)
	for i, r := range allRecords(idx) {
		assert.Equal(t, fmt.Sprintf("chunk_%d", i), r.ID)
	}

	last := progress[len(progress)-1]
	assert.Equal(t, Progress{Stage: StageUpserting, Done: 2, Total: 2}, last)
}

func TestRun_IdempotentAcrossRuns(t *testing.T) {
	first := &fakeIndex{}
	second := &fakeIndex{}

	_, err := NewPipeline(&fakeSource{docs: sampleDocs()}, &fakeEmbedder{}, first, nil, testOptions(), testLogger()).Run(context.Background())
	require.NoError(t, err)
	_, err = NewPipeline(&fakeSource{docs: sampleDocs()}, &fakeEmbedder{}, second, nil, testOptions(), testLogger()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, allRecords(first), allRecords(second))
}

func TestRun_EmptyCorpus(t *testing.T) {
	p := NewPipeline(&fakeSource{}, &fakeEmbedder{}, &fakeIndex{}, nil, testOptions(), testLogger())

	_, err := p.Run(context.Background())
	assert.ErrorIs(t, err, ErrEmptyCorpus)
}

func TestRun_LoadError(t *testing.T) {
	p := NewPipeline(&fakeSource{err: errors.New("permission denied")}, &fakeEmbedder{}, &fakeIndex{}, nil, testOptions(), testLogger())

	_, err := p.Run(context.Background())
	assert.ErrorContains(t, err, "permission denied")
}

func TestRun_EmbeddingFailureAborts(t *testing.T) {
	idx := &fakeIndex{}
	m := &fakeManifest{}
	emb := &fakeEmbedder{failAt: 5}
	p := NewPipeline(&fakeSource{docs: sampleDocs()}, emb, idx, m, testOptions(), testLogger())

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk_4")

	assert.Equal(t, 5, emb.calls, "no embedding after the failure")
	assert.Len(t, idx.batches, 1, "only the batch completed before the failure is written")
	assert.Nil(t, m.replaced, "manifest untouched on failure")
}

func TestRun_UpsertFailureAborts(t *testing.T) {
	idx := &fakeIndex{upsertErr: storage.ErrIndexUnavailable}
	emb := &fakeEmbedder{}
	p := NewPipeline(&fakeSource{docs: sampleDocs()}, emb, idx, nil, testOptions(), testLogger())

	_, err := p.Run(context.Background())
	assert.ErrorIs(t, err, storage.ErrIndexUnavailable)
	assert.Equal(t, 3, emb.calls)
}

func TestRun_CancelledContext(t *testing.T) {
	opts := testOptions()
	opts.EmbedInterval = 1
	p := NewPipeline(&fakeSource{docs: sampleDocs()}, &fakeEmbedder{}, &fakeIndex{}, nil, opts, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Run(ctx)
	assert.Error(t, err)
}

func TestRun_RateControl(t *testing.T) {
	const (
		embedInterval = 20 * time.Millisecond
		batchInterval = 60 * time.Millisecond
		// Limiter reservations are taken slightly before the recorded call time.
		slack = 5 * time.Millisecond
	)
	opts := testOptions()
	opts.EmbedInterval = embedInterval
	opts.BatchInterval = batchInterval

	idx := &fakeIndex{}
	emb := &fakeEmbedder{}
	p := NewPipeline(&fakeSource{docs: sampleDocs()}, emb, idx, nil, opts, testLogger())

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, emb.times, 6)
	require.Len(t, idx.upsertTimes, 2)

	for i := 1; i < len(emb.times); i++ {
		gap := emb.times[i].Sub(emb.times[i-1])
		assert.GreaterOrEqual(t, gap, embedInterval-slack, "embed call %d came %v after the previous one", i, gap)
	}

	// Batch 2 starts embedding only after the pause that follows batch 1's upsert.
	gap := emb.times[3].Sub(idx.upsertTimes[0])
	assert.GreaterOrEqual(t, gap, batchInterval, "next batch began %v after the upsert", gap)
}

func TestRun_CancelledDuringBatchPause(t *testing.T) {
	opts := testOptions()
	opts.BatchInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	idx := &fakeIndex{onUpsert: cancel}
	emb := &fakeEmbedder{}
	p := NewPipeline(&fakeSource{docs: sampleDocs()}, emb, idx, nil, opts, testLogger())

	start := time.Now()
	_, err := p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Minute)
	assert.Len(t, idx.batches, 1)
	assert.Equal(t, 3, emb.calls)
}

func TestRun_NoPauseAfterLastBatch(t *testing.T) {
	opts := testOptions()
	opts.BatchInterval = time.Hour
	opts.BatchSize = 100

	p := NewPipeline(&fakeSource{docs: sampleDocs()}, &fakeEmbedder{}, &fakeIndex{}, nil, opts, testLogger())

	done := make(chan error, 1)
	go func() {
		_, err := p.Run(context.Background())
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run waited after its only batch")
	}
}

func TestRun_Revision(t *testing.T) {
	src := &revisionSource{fakeSource{docs: sampleDocs(), revision: "abc123"}}
	m := &fakeManifest{}
	p := NewPipeline(src, &fakeEmbedder{}, &fakeIndex{}, m, testOptions(), testLogger())

	result, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc123", result.Revision)
	assert.Equal(t, "abc123", m.run.Revision)
}

func TestRun_OrphansReportedNotPruned(t *testing.T) {
	idx := &fakeIndex{}
	m := &fakeManifest{previous: []string{"chunk_0", "chunk_6", "chunk_7"}}
	p := NewPipeline(&fakeSource{docs: sampleDocs()}, &fakeEmbedder{}, idx, m, testOptions(), testLogger())

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"chunk_6", "chunk_7"}, result.Orphans)
	assert.Zero(t, result.Pruned)
	assert.Empty(t, idx.deleted)

	require.Len(t, m.replaced, 6)
	assert.Equal(t, "chunk_5", m.replaced[5].ChunkID)
	assert.Equal(t, 6, m.run.Chunks)
	assert.Equal(t, "fake://kb", m.run.Location)
}

func TestRun_OrphansPruned(t *testing.T) {
	idx := &fakeIndex{}
	m := &fakeManifest{previous: []string{"chunk_6"}}
	opts := testOptions()
	opts.PruneOrphans = true
	p := NewPipeline(&fakeSource{docs: sampleDocs()}, &fakeEmbedder{}, idx, m, opts, testLogger())

	result, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Pruned)
	assert.Equal(t, []string{"chunk_6"}, idx.deleted)
}

func TestVerify(t *testing.T) {
	idx := &fakeIndex{
		stats:   &storage.IndexStats{TotalVectors: 6, Dimension: 2},
		matches: []storage.Match{{ID: "chunk_3", Score: 0.9}},
	}
	opts := testOptions()
	opts.SmokeQuery = "What are the best practices for writing a resume?"
	p := NewPipeline(&fakeSource{}, &fakeEmbedder{}, idx, nil, opts, testLogger())

	v, err := p.Verify(context.Background(), []string{"resume_best_practices"})
	require.NoError(t, err)
	assert.Equal(t, uint64(6), v.Stats.TotalVectors)
	require.Len(t, v.SmokeMatches, 1)

	require.Len(t, idx.queries, 1)
	assert.Equal(t, 3, idx.queries[0].TopK)
	assert.True(t, idx.queries[0].IncludeMetadata)
}

func TestVerify_NoSmokeQuery(t *testing.T) {
	idx := &fakeIndex{stats: &storage.IndexStats{TotalVectors: 1}}
	emb := &fakeEmbedder{}
	p := NewPipeline(&fakeSource{}, emb, idx, nil, testOptions(), testLogger())

	v, err := p.Verify(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, v.SmokeMatches)
	assert.Zero(t, emb.calls)
}

func TestVerify_EmptyIndex(t *testing.T) {
	idx := &fakeIndex{stats: &storage.IndexStats{}}
	p := NewPipeline(&fakeSource{}, &fakeEmbedder{}, idx, nil, testOptions(), testLogger())

	_, err := p.Verify(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyIndex)
}
