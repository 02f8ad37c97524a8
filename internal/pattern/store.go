package pattern

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/pilot/internal/models"
)

const (
	// DefaultCapacity is the pattern ceiling before pruning kicks in.
	DefaultCapacity = 500

	// pruneFraction is the share of patterns removed in one pruning pass.
	pruneFraction = 0.10

	// relevanceThreshold is the minimum query score for a match.
	relevanceThreshold = 30.0

	// defaultQueryLimit caps query results when the caller does not.
	defaultQueryLimit = 5

	// recencyWindow is how recently a pattern must have been used to earn
	// the recency bonus during queries.
	recencyWindow = 7 * 24 * time.Hour

	// Confidence adjustments. Repeat success on store, and usage feedback.
	confidenceStoreBump   = 5.0
	confidenceUsageBump   = 3.0
	confidenceUsagePenalty = 5.0
)

// Query score weights. Action-type identity dominates; description token
// similarity and context matches are moderate; success rate and recency are
// smaller bonuses.
const (
	weightActionMatch  = 40.0
	weightSimilarity   = 30.0
	weightContextField = 5.0
	maxContextBonus    = 15.0
	weightSuccessRate  = 15.0
	weightRecency      = 5.0
)

// Logger is the minimal logging surface the store needs.
type Logger interface {
	LogDebug(message string)
	LogWarn(message string)
}

// Persistence is the external key-value collaborator backing the store.
// Implementations must treat the pattern set as one atomic blob: Load returns
// the full set, Save replaces it.
type Persistence interface {
	Load(ctx context.Context) ([]*Pattern, error)
	Save(ctx context.Context, patterns []*Pattern) error
}

// Store holds the in-memory pattern set and mediates all reads and writes.
// It tolerates concurrent Query/Store/RecordUsage calls from multiple task
// streams: every read-modify-write is serialized per signature so concurrent
// successes on the same signature never lose an increment.
//
// If the persistence collaborator fails on load, the store degrades to
// in-memory-only operation with a logged warning; it never fails planning or
// execution over persistence trouble.
type Store struct {
	mu       sync.RWMutex
	patterns map[string]*Pattern // keyed by signature

	sigMu    sync.Mutex
	sigLocks map[string]*sync.Mutex

	persist  Persistence
	log      Logger
	capacity int
	degraded bool
	now      func() time.Time
}

// StoreOptions tunes store behavior; zero values select defaults.
type StoreOptions struct {
	// Capacity overrides the 500-pattern ceiling.
	Capacity int

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// NewStore creates a store backed by the given persistence collaborator and
// loads the existing pattern set. persist may be nil for a purely in-memory
// store. Load failures are downgraded to warnings.
func NewStore(persist Persistence, log Logger) *Store {
	return NewStoreWithOptions(persist, log, StoreOptions{})
}

// NewStoreWithOptions is NewStore with explicit tuning.
func NewStoreWithOptions(persist Persistence, log Logger, opts StoreOptions) *Store {
	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Store{
		patterns: make(map[string]*Pattern),
		sigLocks: make(map[string]*sync.Mutex),
		persist:  persist,
		log:      log,
		capacity: capacity,
		now:      now,
	}

	if persist != nil {
		loaded, err := persist.Load(context.Background())
		if err != nil {
			s.degraded = true
			s.logWarn(fmt.Sprintf("pattern store: load failed, continuing in-memory only: %v", err))
		} else {
			for _, p := range loaded {
				s.patterns[p.Signature] = p
			}
		}
	}

	return s
}

// Store records a successful step outcome under its signature. Failed
// outcomes are a logged no-op: the store only learns from success. Existing
// signatures get their usage count, timestamps, success rate, and confidence
// refreshed; new signatures create a pattern seeded from the step's own
// confidence.
func (s *Store) Store(ctx context.Context, step *models.Step, result *models.StepResult, taskContext map[string]string) error {
	if result == nil || !result.Success {
		s.logDebug(fmt.Sprintf("pattern store: ignoring unsuccessful outcome for step %q", step.Title))
		return nil
	}

	signature := Signature(step.Description, step.Action.Type, taskContext)

	unlock := s.lockSignature(signature)
	defer unlock()

	now := s.now()

	s.mu.Lock()
	existing, ok := s.patterns[signature]
	if ok {
		count := existing.UsageCount
		existing.UsageCount = count + 1
		existing.SuccessRate = rollRate(existing.SuccessRate, count, true)
		existing.Confidence = clampRate(existing.Confidence + confidenceStoreBump)
		existing.LastUsed = now
		existing.LastSuccess = now
	} else {
		seed := 50.0
		if step.Confidence != nil {
			seed = float64(step.Confidence.Score)
		}
		s.patterns[signature] = &Pattern{
			ID:          uuid.NewString(),
			Signature:   signature,
			Description: step.Description,
			ActionType:  step.Action.Type,
			Approach:    step.Action.Summary(),
			Context:     copyContext(taskContext),
			UsageCount:  1,
			SuccessRate: 100,
			Confidence:  clampRate(seed),
			CreatedAt:   now,
			LastUsed:    now,
			LastSuccess: now,
		}
		s.pruneLocked()
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.save(ctx, snapshot)
	return nil
}

// Query scores every stored pattern against the request and returns matches
// above the relevance threshold, sorted by descending relevance and truncated
// to the limit.
func (s *Store) Query(ctx context.Context, req QueryRequest) []Match {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}

	now := s.now()

	s.mu.RLock()
	matches := make([]Match, 0)
	for _, p := range s.patterns {
		score := s.relevance(p, req, now)
		if score >= relevanceThreshold {
			matches = append(matches, Match{Pattern: p.clone(), Relevance: score})
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Relevance > matches[j].Relevance
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// relevance computes the weighted query score for one pattern.
func (s *Store) relevance(p *Pattern, req QueryRequest, now time.Time) float64 {
	score := 0.0

	if req.ActionType != "" && p.ActionType == req.ActionType {
		score += weightActionMatch
	}

	score += jaccard(p.Description, req.Description) * weightSimilarity

	contextBonus := 0.0
	for k, v := range req.Context {
		if p.Context[k] == v && v != "" {
			contextBonus += weightContextField
		}
	}
	if contextBonus > maxContextBonus {
		contextBonus = maxContextBonus
	}
	score += contextBonus

	score += p.SuccessRate / 100 * weightSuccessRate

	if now.Sub(p.LastUsed) <= recencyWindow {
		score += weightRecency
	}

	return score
}

// RecordUsage updates a pattern's statistics after it influenced an
// execution: usage count and timestamps always advance, the success rate is
// recalculated from the prior rate and count, and confidence is nudged up on
// success or down on failure.
func (s *Store) RecordUsage(ctx context.Context, patternID string, success bool) error {
	s.mu.RLock()
	var signature string
	for sig, p := range s.patterns {
		if p.ID == patternID {
			signature = sig
			break
		}
	}
	s.mu.RUnlock()

	if signature == "" {
		return fmt.Errorf("pattern %s not found", patternID)
	}

	unlock := s.lockSignature(signature)
	defer unlock()

	now := s.now()

	s.mu.Lock()
	p, ok := s.patterns[signature]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("pattern %s not found", patternID)
	}
	count := p.UsageCount
	p.UsageCount = count + 1
	p.SuccessRate = rollRate(p.SuccessRate, count, success)
	p.LastUsed = now
	if success {
		p.LastSuccess = now
		p.Confidence = clampRate(p.Confidence + confidenceUsageBump)
	} else {
		p.Confidence = clampRate(p.Confidence - confidenceUsagePenalty)
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.save(ctx, snapshot)
	return nil
}

// pruneLocked enforces the capacity ceiling. When the count exceeds capacity
// the bottom 10% ranked by usage x success rate x recency factor are removed,
// least valuable first. Recently used patterns resist pruning even with low
// usage because the recency factor is 1 + 1/(1+daysSinceLastUse).
// Caller must hold s.mu.
func (s *Store) pruneLocked() {
	if len(s.patterns) <= s.capacity {
		return
	}

	now := s.now()
	type ranked struct {
		signature string
		value     float64
	}
	all := make([]ranked, 0, len(s.patterns))
	for sig, p := range s.patterns {
		all = append(all, ranked{signature: sig, value: pruneValue(p, now)})
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].value < all[j].value
	})

	// Reduce to 90% of capacity so pruning is not retriggered on every
	// subsequent insert.
	keep := int(float64(s.capacity) * (1 - pruneFraction))
	remove := len(s.patterns) - keep
	if remove < 1 {
		remove = 1
	}
	if remove > len(all) {
		remove = len(all)
	}
	for _, r := range all[:remove] {
		delete(s.patterns, r.signature)
	}

	s.logDebug(fmt.Sprintf("pattern store: pruned %d patterns, %d remain", remove, len(s.patterns)))
}

// pruneValue ranks a pattern's worth for retention.
func pruneValue(p *Pattern, now time.Time) float64 {
	days := now.Sub(p.LastUsed).Hours() / 24
	if days < 0 {
		days = 0
	}
	recencyFactor := 1 + 1/(1+days)
	return float64(p.UsageCount) * p.SuccessRate * recencyFactor
}

// Flush persists the current pattern set.
func (s *Store) Flush(ctx context.Context) error {
	if s.persist == nil {
		return nil
	}
	s.mu.RLock()
	snapshot := s.snapshotLocked()
	s.mu.RUnlock()
	return s.persist.Save(ctx, snapshot)
}

// Len returns the number of stored patterns.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.patterns)
}

// Degraded reports whether the store is running without working persistence.
func (s *Store) Degraded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.degraded
}

// Stats aggregates the store for reporting.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{Count: len(s.patterns), Degraded: s.degraded}
	if stats.Count == 0 {
		return stats
	}
	for _, p := range s.patterns {
		stats.AvgConfidence += p.Confidence
		stats.AvgSuccessRate += p.SuccessRate
		stats.TotalUsage += p.UsageCount
	}
	stats.AvgConfidence /= float64(stats.Count)
	stats.AvgSuccessRate /= float64(stats.Count)
	return stats
}

// Top returns the n most valuable patterns by retention ranking, best first.
func (s *Store) Top(n int) []*Pattern {
	now := s.now()

	s.mu.RLock()
	all := make([]*Pattern, 0, len(s.patterns))
	for _, p := range s.patterns {
		all = append(all, p.clone())
	}
	s.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool {
		return pruneValue(all[i], now) > pruneValue(all[j], now)
	})
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	return all
}

// lockSignature acquires the per-signature mutex and returns its release
// function.
func (s *Store) lockSignature(signature string) func() {
	s.sigMu.Lock()
	lock, ok := s.sigLocks[signature]
	if !ok {
		lock = &sync.Mutex{}
		s.sigLocks[signature] = lock
	}
	s.sigMu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// snapshotLocked copies the pattern set for persistence. Caller must hold
// s.mu (read or write).
func (s *Store) snapshotLocked() []*Pattern {
	snapshot := make([]*Pattern, 0, len(s.patterns))
	for _, p := range s.patterns {
		snapshot = append(snapshot, p.clone())
	}
	return snapshot
}

// save writes a snapshot through the persistence collaborator, logging (not
// propagating) failures.
func (s *Store) save(ctx context.Context, snapshot []*Pattern) {
	if s.persist == nil {
		return
	}
	if err := s.persist.Save(ctx, snapshot); err != nil {
		s.logWarn(fmt.Sprintf("pattern store: save failed: %v", err))
	}
}

// rollRate recalculates a 0-100 success rate given the prior rate, the prior
// observation count, and one new outcome.
func rollRate(prior float64, priorCount int, success bool) float64 {
	outcome := 0.0
	if success {
		outcome = 100.0
	}
	if priorCount <= 0 {
		return outcome
	}
	return clampRate((prior*float64(priorCount) + outcome) / float64(priorCount+1))
}

func clampRate(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func copyContext(ctx map[string]string) map[string]string {
	if len(ctx) == 0 {
		return nil
	}
	cp := make(map[string]string, len(ctx))
	for k, v := range ctx {
		cp[k] = v
	}
	return cp
}

func (s *Store) logDebug(msg string) {
	if s.log != nil {
		s.log.LogDebug(msg)
	}
}

func (s *Store) logWarn(msg string) {
	if s.log != nil {
		s.log.LogWarn(msg)
	}
}
