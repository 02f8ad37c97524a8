package pattern

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/harrison/pilot/internal/models"
)

// persistedPattern is the on-disk form of a pattern. Timestamps are stored as
// epoch-millisecond integers and converted back to time.Time only at this
// boundary, so no serialization library's implicit date handling is relied on.
type persistedPattern struct {
	ID          string            `json:"id"`
	Signature   string            `json:"signature"`
	Description string            `json:"description"`
	ActionType  string            `json:"action_type"`
	Approach    string            `json:"approach"`
	Context     map[string]string `json:"context,omitempty"`
	UsageCount  int               `json:"usage_count"`
	SuccessRate float64           `json:"success_rate"`
	Confidence  float64           `json:"confidence"`
	CreatedAt   int64             `json:"created_at_ms"`
	LastUsed    int64             `json:"last_used_ms"`
	LastSuccess int64             `json:"last_success_ms"`
}

// patternFile is the top-level blob format shared by the file backend and
// the export/import commands.
type patternFile struct {
	Version  int                `json:"version"`
	Patterns []persistedPattern `json:"patterns"`
}

const patternFileVersion = 1

func encodePatterns(patterns []*Pattern) ([]byte, error) {
	file := patternFile{Version: patternFileVersion}
	file.Patterns = make([]persistedPattern, 0, len(patterns))
	for _, p := range patterns {
		file.Patterns = append(file.Patterns, persistedPattern{
			ID:          p.ID,
			Signature:   p.Signature,
			Description: p.Description,
			ActionType:  string(p.ActionType),
			Approach:    p.Approach,
			Context:     p.Context,
			UsageCount:  p.UsageCount,
			SuccessRate: p.SuccessRate,
			Confidence:  p.Confidence,
			CreatedAt:   p.CreatedAt.UnixMilli(),
			LastUsed:    p.LastUsed.UnixMilli(),
			LastSuccess: p.LastSuccess.UnixMilli(),
		})
	}
	return json.MarshalIndent(file, "", "  ")
}

// decodePatterns parses a pattern blob. Validation is all-or-nothing: any
// malformed record rejects the whole blob.
func decodePatterns(data []byte) ([]*Pattern, error) {
	var file patternFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse pattern data: %w", err)
	}
	if file.Version != patternFileVersion {
		return nil, fmt.Errorf("unsupported pattern data version %d", file.Version)
	}

	patterns := make([]*Pattern, 0, len(file.Patterns))
	seen := make(map[string]bool, len(file.Patterns))
	for i, pp := range file.Patterns {
		if pp.Signature == "" {
			return nil, fmt.Errorf("pattern %d: missing signature", i)
		}
		if seen[pp.Signature] {
			return nil, fmt.Errorf("pattern %d: duplicate signature %s", i, pp.Signature)
		}
		seen[pp.Signature] = true
		if pp.SuccessRate < 0 || pp.SuccessRate > 100 {
			return nil, fmt.Errorf("pattern %d: success rate %.1f out of range", i, pp.SuccessRate)
		}
		if pp.Confidence < 0 || pp.Confidence > 100 {
			return nil, fmt.Errorf("pattern %d: confidence %.1f out of range", i, pp.Confidence)
		}

		patterns = append(patterns, &Pattern{
			ID:          pp.ID,
			Signature:   pp.Signature,
			Description: pp.Description,
			ActionType:  models.ActionType(pp.ActionType),
			Approach:    pp.Approach,
			Context:     pp.Context,
			UsageCount:  pp.UsageCount,
			SuccessRate: pp.SuccessRate,
			Confidence:  pp.Confidence,
			CreatedAt:   time.UnixMilli(pp.CreatedAt),
			LastUsed:    time.UnixMilli(pp.LastUsed),
			LastSuccess: time.UnixMilli(pp.LastSuccess),
		})
	}
	return patterns, nil
}

// FilePersistence stores the pattern set as one JSON blob on disk, guarded by
// a file lock so concurrent pilot processes do not interleave writes.
type FilePersistence struct {
	path string
	lock *flock.Flock
}

// NewFilePersistence creates a file-backed persistence collaborator, creating
// parent directories as needed.
func NewFilePersistence(path string) (*FilePersistence, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create pattern directory: %w", err)
	}
	return &FilePersistence{
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

// Load reads the pattern set. A missing file is an empty store, not an error.
func (f *FilePersistence) Load(ctx context.Context) ([]*Pattern, error) {
	locked, err := f.lock.TryRLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("acquire pattern file lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("pattern file %s is locked", f.path)
	}
	defer f.lock.Unlock()

	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read pattern file: %w", err)
	}
	return decodePatterns(data)
}

// Save replaces the pattern set atomically via a temp-file rename.
func (f *FilePersistence) Save(ctx context.Context, patterns []*Pattern) error {
	data, err := encodePatterns(patterns)
	if err != nil {
		return fmt.Errorf("encode patterns: %w", err)
	}

	locked, err := f.lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("acquire pattern file lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("pattern file %s is locked", f.path)
	}
	defer f.lock.Unlock()

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write pattern file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace pattern file: %w", err)
	}
	return nil
}
