package alerts

import (
	"errors"
	"fmt"
	"sync"

	"github.com/obsidianstack/sentinel/pkg/types"
)

var (
	// ErrDuplicateRule is returned when adding a rule whose ID is taken.
	ErrDuplicateRule = errors.New("duplicate rule id")

	// ErrUnknownRule is returned when a rule ID is not registered.
	ErrUnknownRule = errors.New("unknown rule id")
)

// Registry holds the alert rules in registration order. Rule IDs are unique.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	rules []types.AlertRule
}

// NewRegistry creates a Registry holding rules, in order.
func NewRegistry(rules ...types.AlertRule) (*Registry, error) {
	r := &Registry{}
	for _, rule := range rules {
		if err := r.Add(rule); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add appends rule to the registry.
func (r *Registry) Add(rule types.AlertRule) error {
	if err := validateRule(rule); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexLocked(rule.ID) >= 0 {
		return fmt.Errorf("rule %q: %w", rule.ID, ErrDuplicateRule)
	}
	r.rules = append(r.rules, rule.Clone())
	return nil
}

// Remove deletes the rule with the given ID.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("rule %q: %w", id, ErrUnknownRule)
	}
	r.rules = append(r.rules[:i], r.rules[i+1:]...)
	return nil
}

// SetEnabled enables or disables the rule with the given ID.
func (r *Registry) SetEnabled(id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("rule %q: %w", id, ErrUnknownRule)
	}
	r.rules[i].Enabled = enabled
	return nil
}

// Get returns a copy of the rule with the given ID.
func (r *Registry) Get(id string) (types.AlertRule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.indexLocked(id)
	if i < 0 {
		return types.AlertRule{}, false
	}
	return r.rules[i].Clone(), true
}

// List returns copies of all rules in registration order.
func (r *Registry) List() []types.AlertRule {
	return r.filter(func(types.AlertRule) bool { return true })
}

// Enabled returns copies of the enabled rules in registration order.
func (r *Registry) Enabled() []types.AlertRule {
	return r.filter(func(rule types.AlertRule) bool { return rule.Enabled })
}

// Len returns the number of registered rules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}

// Replace swaps every rule whose Source equals source for rules, appending
// the new set after the rules from other sources. Nothing changes if any new
// rule is invalid or collides with a rule from another source.
// It returns the IDs of the rules that were dropped.
func (r *Registry) Replace(source string, rules []types.AlertRule) ([]string, error) {
	seen := make(map[string]struct{}, len(rules))
	for _, rule := range rules {
		if err := validateRule(rule); err != nil {
			return nil, err
		}
		if _, dup := seen[rule.ID]; dup {
			return nil, fmt.Errorf("rule %q: %w", rule.ID, ErrDuplicateRule)
		}
		seen[rule.ID] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	kept := make([]types.AlertRule, 0, len(r.rules)+len(rules))
	var dropped []string
	for _, existing := range r.rules {
		if existing.Source == source {
			if _, again := seen[existing.ID]; !again {
				dropped = append(dropped, existing.ID)
			}
			continue
		}
		if _, clash := seen[existing.ID]; clash {
			return nil, fmt.Errorf("rule %q: %w", existing.ID, ErrDuplicateRule)
		}
		kept = append(kept, existing)
	}
	for _, rule := range rules {
		rule = rule.Clone()
		rule.Source = source
		kept = append(kept, rule)
	}
	r.rules = kept
	return dropped, nil
}

func (r *Registry) filter(keep func(types.AlertRule) bool) []types.AlertRule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.AlertRule, 0, len(r.rules))
	for _, rule := range r.rules {
		if keep(rule) {
			out = append(out, rule.Clone())
		}
	}
	return out
}

func (r *Registry) indexLocked(id string) int {
	for i, rule := range r.rules {
		if rule.ID == id {
			return i
		}
	}
	return -1
}
