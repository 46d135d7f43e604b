package manifest

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "manifest.db")
	s, err := Open(path)
	require.NoError(t, err)
	return s, path
}

func entries(ids ...string) []Entry {
	out := make([]Entry, len(ids))
	for i, id := range ids {
		out[i] = Entry{ChunkID: id, Filename: "a.md", Category: "a", ChunkIndex: i, TotalChunks: len(ids)}
	}
	return out
}

func TestStore_Empty(t *testing.T) {
	s, _ := openTemp(t)
	defer s.Close()

	run, err := s.LastRun()
	require.NoError(t, err)
	assert.Nil(t, run)

	orphans, err := s.Orphans([]string{"chunk_0"})
	require.NoError(t, err)
	assert.Empty(t, orphans)
}

func TestStore_ReplaceAndOrphans(t *testing.T) {
	s, _ := openTemp(t)
	defer s.Close()

	completed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, s.Replace(entries("chunk_0", "chunk_1", "chunk_2"), Run{
		Location: "./kb", Documents: 1, Chunks: 3, CompletedAt: completed,
	}))

	orphans, err := s.Orphans([]string{"chunk_0"})
	require.NoError(t, err)
	assert.Equal(t, []string{"chunk_1", "chunk_2"}, orphans)

	run, err := s.LastRun()
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "./kb", run.Location)
	assert.Equal(t, 3, run.Chunks)
	assert.True(t, completed.Equal(run.CompletedAt))

	// Replacing drops ids not in the new set
	require.NoError(t, s.Replace(entries("chunk_0"), Run{Chunks: 1}))
	got, err := s.Entries()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "chunk_0", got[0].ChunkID)
}

func TestStore_PersistsAcrossOpen(t *testing.T) {
	s, path := openTemp(t)
	require.NoError(t, s.Replace(entries("chunk_0", "chunk_1"), Run{Chunks: 2}))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Entries()
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
