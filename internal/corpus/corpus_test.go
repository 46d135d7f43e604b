package corpus

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestCategoryOf(t *testing.T) {
	assert.Equal(t, "resume_best_practices", CategoryOf("resume_best_practices.md"))
	assert.Equal(t, "notes", CategoryOf("notes.txt"))
	assert.Equal(t, "archive.tar", CategoryOf("archive.tar.gz"))
	assert.Equal(t, "README", CategoryOf("README"))
}

func TestDirSource_Load(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "technical_skills_keywords.md", "# Skills\nGo, SQL")
	writeFile(t, dir, "interview_career_advice.txt", "Prepare STAR stories.")
	writeFile(t, dir, "resume_best_practices.md", "Quantify impact.")
	writeFile(t, dir, "image.png", "binary")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.md"), 0o755))

	src, err := NewDirSource(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, dir, src.Location())

	docs, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 3)

	// Sorted by filename
	assert.Equal(t, "interview_career_advice.txt", docs[0].Filename)
	assert.Equal(t, "resume_best_practices.md", docs[1].Filename)
	assert.Equal(t, "technical_skills_keywords.md", docs[2].Filename)

	assert.Equal(t, "interview_career_advice", docs[0].Category)
	assert.Equal(t, "Prepare STAR stories.", docs[0].Content)
	assert.Equal(t, int64(len("Prepare STAR stories.")), docs[0].SizeBytes)
}

func TestDirSource_Patterns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "a")
	writeFile(t, dir, "b.txt", "b")

	src, err := NewDirSource(dir, []string{"*.md"})
	require.NoError(t, err)

	docs, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a.md", docs[0].Filename)
}

func TestDirSource_InvalidPattern(t *testing.T) {
	_, err := NewDirSource(t.TempDir(), []string{"[unclosed"})
	assert.Error(t, err)
}

func TestDirSource_MissingDirectory(t *testing.T) {
	src, err := NewDirSource(filepath.Join(t.TempDir(), "missing"), nil)
	require.NoError(t, err)

	_, err = src.Load(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDirSource_NotADirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "file.md", "x")

	src, err := NewDirSource(filepath.Join(dir, "file.md"), nil)
	require.NoError(t, err)

	_, err = src.Load(context.Background())
	assert.Error(t, err)
}

func TestDirSource_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "a")

	src, err := NewDirSource(dir, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
