package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/obsidianstack/sentinel/pkg/types"
)

// ErrNotFound is returned when an alert ID is unknown to the store.
var ErrNotFound = errors.New("alert not found")

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the wall clock used for TriggeredAt and ResolvedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides the alert ID generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// Store is a thread-safe in-memory alert store. Alerts are never deleted.
type Store struct {
	mu     sync.RWMutex
	alerts map[string]*types.Alert
	order  []string // insertion order

	now   func() time.Time
	newID func() string
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		alerts: make(map[string]*types.Alert),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Create materializes an open alert for rule from the triggering snapshot.
// Severity and channels are copied from the rule so later rule edits do not
// change the alert.
func (s *Store) Create(rule types.AlertRule, snap types.Snapshot) types.Alert {
	a := &types.Alert{
		ID:          s.newID(),
		RuleID:      rule.ID,
		RuleName:    rule.Name,
		Message:     RenderMessage(rule, snap),
		Severity:    rule.Severity,
		Channels:    append([]types.Channel(nil), rule.Channels...),
		TriggeredAt: s.now(),
		Metadata:    snap,
	}

	s.mu.Lock()
	s.alerts[a.ID] = a
	s.order = append(s.order, a.ID)
	s.mu.Unlock()

	return clone(a)
}

// Resolve marks the alert resolved and reports whether this call changed
// it. Resolving an already resolved alert returns the alert with its
// original ResolvedAt and changed false.
func (s *Store) Resolve(id string) (a types.Alert, changed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.alerts[id]
	if !ok {
		return types.Alert{}, false, ErrNotFound
	}
	if !cur.Resolved {
		at := s.now()
		cur.Resolved = true
		cur.ResolvedAt = &at
		changed = true
	}
	return clone(cur), changed, nil
}

// Get returns the alert with the given ID.
func (s *Store) Get(id string) (types.Alert, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.alerts[id]
	if !ok {
		return types.Alert{}, false
	}
	return clone(a), true
}

// List returns every alert, newest TriggeredAt first.
func (s *Store) List() []types.Alert {
	return s.collect(func(*types.Alert) bool { return true })
}

// ListActive returns the unresolved alerts, newest first.
func (s *Store) ListActive() []types.Alert {
	return s.collect(func(a *types.Alert) bool { return !a.Resolved })
}

// Count returns the total number of alerts held.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Stats aggregates the alert history at query time.
func (s *Store) Stats() types.AlertStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := types.AlertStats{
		TotalAlerts:      len(s.order),
		AlertsBySeverity: make(map[types.Severity]int, len(types.Severities)),
	}
	for _, sev := range types.Severities {
		st.AlertsBySeverity[sev] = 0
	}

	var resolved int
	var total time.Duration
	for _, id := range s.order {
		a := s.alerts[id]
		st.AlertsBySeverity[a.Severity]++
		if !a.Resolved {
			st.ActiveAlerts++
			continue
		}
		resolved++
		total += a.ResolvedAt.Sub(a.TriggeredAt)
	}
	if resolved > 0 {
		st.AverageResolutionTime = total / time.Duration(resolved)
	}
	return st
}

func (s *Store) collect(keep func(*types.Alert) bool) []types.Alert {
	s.mu.RLock()
	out := make([]types.Alert, 0, len(s.order))
	// Walk newest-inserted first so equal timestamps keep that order.
	for i := len(s.order) - 1; i >= 0; i-- {
		if a := s.alerts[s.order[i]]; keep(a) {
			out = append(out, clone(a))
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TriggeredAt.After(out[j].TriggeredAt)
	})
	return out
}

func clone(a *types.Alert) types.Alert {
	out := *a
	out.Channels = append([]types.Channel(nil), a.Channels...)
	if a.ResolvedAt != nil {
		at := *a.ResolvedAt
		out.ResolvedAt = &at
	}
	return out
}
