package actions

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/pilot/internal/models"
)

func TestFileReader(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "hello.txt"), []byte("hello world"), 0644))

	reader := &FileReader{Root: root}

	result := reader.Execute(context.Background(), models.Action{Type: models.ActionReadFile, Path: "hello.txt"})
	assert.True(t, result.Success)
	assert.Equal(t, "hello world", result.Output)

	result = reader.Execute(context.Background(), models.Action{Type: models.ActionReadFile, Path: "missing.txt"})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "missing.txt")
}

func TestFileWriterWriteAndOverwrite(t *testing.T) {
	root := t.TempDir()
	writer := &FileWriter{Root: root}

	result := writer.Execute(context.Background(), models.Action{
		Type:    models.ActionWriteFile,
		Path:    "nested/dir/out.txt",
		Content: "first",
	})
	require.True(t, result.Success, result.Error)

	data, err := os.ReadFile(filepath.Join(root, "nested/dir/out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))

	// write-file overwrites freely.
	result = writer.Execute(context.Background(), models.Action{
		Type:    models.ActionWriteFile,
		Path:    "nested/dir/out.txt",
		Content: "second",
	})
	require.True(t, result.Success)
	data, _ = os.ReadFile(filepath.Join(root, "nested/dir/out.txt"))
	assert.Equal(t, "second", string(data))
}

func TestFileWriterCreateRefusesExisting(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "existing.txt"), []byte("keep me"), 0644))

	writer := &FileWriter{Root: root}
	result := writer.Execute(context.Background(), models.Action{
		Type:    models.ActionCreateFile,
		Path:    "existing.txt",
		Content: "clobber",
	})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "already exists")

	data, _ := os.ReadFile(filepath.Join(root, "existing.txt"))
	assert.Equal(t, "keep me", string(data), "create-file must never overwrite")
}

func TestSearcher(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "dep"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "config.json"), []byte("{}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "app.config.json"), []byte("{}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "dep", "config.json"), []byte("{}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "main.go"), []byte("package main"), 0644))

	searcher := &Searcher{Root: root}

	result := searcher.Execute(context.Background(), models.Action{Type: models.ActionSearchCodebase, Query: "config.json"})
	require.True(t, result.Success)

	matches := strings.Split(result.Output, "\n")
	assert.Len(t, matches, 2)
	assert.Contains(t, matches, "config.json")
	assert.Contains(t, matches, filepath.Join("src", "app.config.json"))
	assert.NotContains(t, result.Output, "node_modules", "dependency directories are skipped")
}

func TestSearcherNoMatches(t *testing.T) {
	searcher := &Searcher{Root: t.TempDir()}

	result := searcher.Execute(context.Background(), models.Action{Type: models.ActionSearchCodebase, Query: "ghost.txt"})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "ghost.txt")
}

func TestSearcherEmptyQuery(t *testing.T) {
	searcher := &Searcher{Root: t.TempDir()}

	result := searcher.Execute(context.Background(), models.Action{Type: models.ActionSearchCodebase, Query: "  "})
	assert.False(t, result.Success)
}

func TestSearcherMaxResults(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"log1.txt", "log2.txt", "log3.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), nil, 0644))
	}

	searcher := &Searcher{Root: root, MaxResults: 2}
	result := searcher.Execute(context.Background(), models.Action{Type: models.ActionSearchCodebase, Query: "log"})
	require.True(t, result.Success)
	assert.Len(t, strings.Split(result.Output, "\n"), 2)
}
