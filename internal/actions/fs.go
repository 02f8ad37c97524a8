package actions

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/harrison/pilot/internal/models"
)

// FileReader executes read-file actions relative to a workspace root.
type FileReader struct {
	Root string
}

// Execute reads the referenced file. A missing file is a failed result with
// a not-found error string so the fallback chain can react to it.
func (e *FileReader) Execute(ctx context.Context, action models.Action) Result {
	path := resolve(e.Root, action.Path)
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{Success: false, Error: fmt.Sprintf("read %s: %v", action.Path, err)}
	}
	return Result{Success: true, Output: string(data)}
}

// FileWriter executes write-file and create-file actions. Parent directories
// are created as needed; create-file refuses to overwrite an existing file.
type FileWriter struct {
	Root string
}

func (e *FileWriter) Execute(ctx context.Context, action models.Action) Result {
	path := resolve(e.Root, action.Path)

	if action.Type == models.ActionCreateFile {
		if _, err := os.Stat(path); err == nil {
			return Result{Success: false, Error: fmt.Sprintf("create %s: file already exists", action.Path)}
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return Result{Success: false, Error: fmt.Sprintf("create directory for %s: %v", action.Path, err)}
	}
	if err := os.WriteFile(path, []byte(action.Content), 0644); err != nil {
		return Result{Success: false, Error: fmt.Sprintf("write %s: %v", action.Path, err)}
	}
	return Result{Success: true, Output: fmt.Sprintf("wrote %d bytes to %s", len(action.Content), action.Path)}
}

// Searcher executes search-codebase actions by walking the workspace for
// file names matching the query. VCS and dependency directories are skipped.
type Searcher struct {
	Root string

	// MaxResults caps the matches returned (0 = 50).
	MaxResults int
}

var skippedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	".idea":        true,
	"dist":         true,
}

func (e *Searcher) Execute(ctx context.Context, action models.Action) Result {
	maxResults := e.MaxResults
	if maxResults <= 0 {
		maxResults = 50
	}

	query := strings.ToLower(strings.TrimSpace(action.Query))
	if query == "" {
		return Result{Success: false, Error: "search query is empty"}
	}

	var matches []string
	err := filepath.WalkDir(e.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries, keep walking
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if skippedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.Contains(strings.ToLower(d.Name()), query) {
			rel, relErr := filepath.Rel(e.Root, path)
			if relErr != nil {
				rel = path
			}
			matches = append(matches, rel)
		}
		if len(matches) >= maxResults {
			return fs.SkipAll
		}
		return nil
	})
	if err != nil && err != fs.SkipAll {
		return Result{Success: false, Error: fmt.Sprintf("search %s: %v", action.Query, err)}
	}

	if len(matches) == 0 {
		return Result{Success: false, Error: fmt.Sprintf("no files matching %q", action.Query)}
	}

	sort.Strings(matches)
	return Result{Success: true, Output: strings.Join(matches, "\n")}
}

// resolve joins a possibly relative action path onto the workspace root.
func resolve(root, path string) string {
	if filepath.IsAbs(path) || root == "" {
		return path
	}
	return filepath.Join(root, path)
}
