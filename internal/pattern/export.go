package pattern

import (
	"context"
	"fmt"
)

// Export serializes the full pattern set to the portable JSON blob format.
func (s *Store) Export() ([]byte, error) {
	s.mu.RLock()
	snapshot := s.snapshotLocked()
	s.mu.RUnlock()
	return encodePatterns(snapshot)
}

// Import replaces the pattern set with the given blob. Validation is
// all-or-nothing: a single malformed record rejects the entire import and
// leaves the existing set untouched.
func (s *Store) Import(ctx context.Context, data []byte) error {
	patterns, err := decodePatterns(data)
	if err != nil {
		return fmt.Errorf("import patterns: %w", err)
	}

	s.mu.Lock()
	s.patterns = make(map[string]*Pattern, len(patterns))
	for _, p := range patterns {
		s.patterns[p.Signature] = p
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.save(ctx, snapshot)
	return nil
}

// Clear removes every stored pattern, persists the empty set, and reports
// how many patterns were removed.
func (s *Store) Clear(ctx context.Context) int {
	s.mu.Lock()
	removed := len(s.patterns)
	s.patterns = make(map[string]*Pattern)
	s.mu.Unlock()

	s.save(ctx, []*Pattern{})
	return removed
}
