package alerts

import (
	"fmt"

	"github.com/obsidianstack/sentinel/pkg/types"
)

// This file holds the operator-facing query and control surface consumed by
// the HTTP API and dashboard.

// ListAlerts returns every alert, newest first.
func (e *Engine) ListAlerts() []types.Alert { return e.store.List() }

// ListActiveAlerts returns unresolved alerts, newest first.
func (e *Engine) ListActiveAlerts() []types.Alert { return e.store.ListActive() }

// Stats returns aggregate alert statistics.
func (e *Engine) Stats() types.AlertStats { return e.store.Stats() }

// Snapshot returns the current statistics snapshot without evaluating rules.
func (e *Engine) Snapshot() types.Snapshot { return e.source.Snapshot() }

// Rules returns all registered rules in registration order.
func (e *Engine) Rules() []types.AlertRule { return e.rules.List() }

// AddRule registers a new rule. It is considered on the next tick.
func (e *Engine) AddRule(rule types.AlertRule) error {
	if rule.Source == "" {
		rule.Source = SourceAPI
	}
	if err := e.rules.Add(rule); err != nil {
		return err
	}
	e.log.Info("alerts: rule added", "rule", rule.ID, "source", rule.Source)
	return nil
}

// RemoveRule unregisters a rule and forgets its cooldown state. A rule
// re-added later under the same ID starts with no cooldown and may fire on
// the next tick, even inside the removed rule's window.
func (e *Engine) RemoveRule(id string) error {
	if err := e.rules.Remove(id); err != nil {
		return err
	}
	e.forget(id)
	e.log.Info("alerts: rule removed", "rule", id)
	return nil
}

// SetRuleEnabled enables or disables a rule. Cooldown state is kept.
func (e *Engine) SetRuleEnabled(id string, enabled bool) error {
	if err := e.rules.SetEnabled(id, enabled); err != nil {
		return err
	}
	e.log.Info("alerts: rule toggled", "rule", id, "enabled", enabled)
	return nil
}

// ResolveAlert resolves an open alert. The rule's cooldown still runs from
// its trigger time.
func (e *Engine) ResolveAlert(id string) (types.Alert, error) {
	a, changed, err := e.store.Resolve(id)
	if err != nil {
		return types.Alert{}, fmt.Errorf("resolve alert %q: %w", id, err)
	}
	if changed {
		e.metrics.AlertResolved()
		e.metrics.SetActiveAlerts(e.store.Stats().ActiveAlerts)
		e.log.Info("alert resolved", "alert", id, "rule", a.RuleID)
	}
	return a, nil
}

// ReplaceRules swaps the rules registered from source, dropping cooldown
// state of rules that disappear.
func (e *Engine) ReplaceRules(source string, rules []types.AlertRule) error {
	dropped, err := e.rules.Replace(source, rules)
	if err != nil {
		return err
	}
	for _, id := range dropped {
		e.forget(id)
	}
	e.log.Info("alerts: rules replaced", "source", source, "count", len(rules), "dropped", len(dropped))
	return nil
}

func (e *Engine) forget(id string) {
	e.mu.Lock()
	delete(e.lastTriggered, id)
	e.mu.Unlock()
}
