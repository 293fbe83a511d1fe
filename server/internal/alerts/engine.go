package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/obsidianstack/sentinel/pkg/types"
	"github.com/obsidianstack/sentinel/server/internal/store"
	"github.com/obsidianstack/sentinel/server/internal/telemetry"
)

// DefaultInterval is the evaluation period used when Options.Interval is zero.
const DefaultInterval = 30 * time.Second

// minInterval is the finest period the scheduler supports.
const minInterval = time.Second

// SnapshotSource supplies the statistics evaluated on every tick.
type SnapshotSource interface {
	Snapshot() types.Snapshot
}

// Dispatcher delivers a newly created alert. Dispatch must not block on
// channel I/O.
type Dispatcher interface {
	Dispatch(alert types.Alert)
}

// Options configures an Engine. The zero value is usable.
type Options struct {
	// Interval between evaluation ticks. Defaults to DefaultInterval.
	Interval time.Duration

	// Disabled turns Start into a no-op; Tick still works.
	Disabled bool

	Clock   Clock
	Logger  *slog.Logger
	Metrics *telemetry.Metrics
}

// TickResult summarises one evaluation pass.
type TickResult struct {
	Skipped    bool // another tick was still running
	Evaluated  int  // enabled rules considered
	Suppressed int  // rules skipped by cooldown
	Errors     int  // rules whose condition returned an error
	Fired      []types.Alert
}

// Engine evaluates the registry's rules against collector snapshots on a
// recurring schedule, records fired alerts in the store and hands them to
// the dispatcher.
//
// Engine is safe for concurrent use.
type Engine struct {
	source     SnapshotSource
	rules      *Registry
	store      *store.Store
	dispatcher Dispatcher

	interval time.Duration
	disabled bool
	clock    Clock
	log      *slog.Logger
	metrics  *telemetry.Metrics

	mu            sync.Mutex
	lastTriggered map[string]time.Time // rule ID → last fire, from clock

	evaluating atomic.Bool

	runMu  sync.Mutex
	sched  *cron.Cron
	cancel context.CancelFunc
}

// NewEngine wires an Engine from its collaborators.
func NewEngine(source SnapshotSource, rules *Registry, st *store.Store, d Dispatcher, opts Options) *Engine {
	e := &Engine{
		source:        source,
		rules:         rules,
		store:         st,
		dispatcher:    d,
		interval:      opts.Interval,
		disabled:      opts.Disabled,
		clock:         opts.Clock,
		log:           opts.Logger,
		metrics:       opts.Metrics,
		lastTriggered: make(map[string]time.Time),
	}
	if e.interval == 0 {
		e.interval = DefaultInterval
	}
	if e.clock == nil {
		e.clock = SystemClock{}
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	return e
}

// Start schedules Tick every interval. Calling Start on a running engine is
// a no-op. An error means no evaluation will ever happen and must be treated
// as fatal by the caller.
func (e *Engine) Start(ctx context.Context) error {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	if e.disabled {
		e.log.Info("alerts: monitoring disabled, not scheduling evaluation")
		return nil
	}
	if e.sched != nil {
		return nil
	}
	if e.interval < minInterval {
		return fmt.Errorf("alerts: evaluation interval %v is below the %v minimum", e.interval, minInterval)
	}

	runCtx, cancel := context.WithCancel(ctx)
	logger := cronLogger{log: e.log}
	sched := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := sched.AddFunc("@every "+e.interval.String(), func() { e.Tick(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("alerts: schedule evaluation: %w", err)
	}
	sched.Start()

	e.sched = sched
	e.cancel = cancel
	e.log.Info("alerts: monitoring started", "interval", e.interval, "rules", e.rules.Len())
	return nil
}

// Stop cancels the schedule and waits for an in-flight tick to return.
// Alerts already handed to the dispatcher are not aborted. Stop is
// idempotent.
func (e *Engine) Stop() {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	if e.sched == nil {
		return
	}
	e.cancel()
	<-e.sched.Stop().Done()
	e.sched = nil
	e.cancel = nil
	e.log.Info("alerts: monitoring stopped")
}

// Running reports whether the schedule is active.
func (e *Engine) Running() bool {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	return e.sched != nil
}

// Tick runs one evaluation pass. If a pass is already in progress the call
// returns immediately with Skipped set.
func (e *Engine) Tick(ctx context.Context) TickResult {
	if !e.evaluating.CompareAndSwap(false, true) {
		e.log.Warn("alerts: previous evaluation still running, skipping tick")
		e.metrics.TickSkipped()
		return TickResult{Skipped: true}
	}
	defer e.evaluating.Store(false)

	start := time.Now()
	snap := e.source.Snapshot()
	now := e.clock.Now()

	var res TickResult
	for _, rule := range e.rules.Enabled() {
		if ctx.Err() != nil {
			e.log.Info("alerts: evaluation cancelled", "remaining_from", rule.ID)
			break
		}
		res.Evaluated++

		if e.inCooldown(rule, now) {
			res.Suppressed++
			continue
		}

		fires, value, err := evalCondition(rule.Condition, snap)
		if err != nil {
			res.Errors++
			e.metrics.RuleError(rule.ID)
			e.log.Error("alerts: rule evaluation failed", "rule", rule.ID, "err", err)
			continue
		}
		if !fires {
			continue
		}

		alert := e.store.Create(rule, snap)
		e.markTriggered(rule.ID, now)
		e.metrics.AlertFired(rule.ID, rule.Severity)
		e.log.Warn("alert fired",
			"rule", rule.ID,
			"alert", alert.ID,
			"severity", rule.Severity,
			"value", value,
			"message", alert.Message,
		)

		if e.dispatcher != nil {
			e.dispatcher.Dispatch(alert)
		}
		res.Fired = append(res.Fired, alert)
	}

	e.metrics.SetActiveAlerts(e.store.Stats().ActiveAlerts)
	e.metrics.ObserveEvaluation(time.Since(start))
	return res
}

// LastTriggered returns when rule id last fired, per the engine clock.
func (e *Engine) LastTriggered(id string) (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.lastTriggered[id]
	return t, ok
}

func (e *Engine) inCooldown(rule types.AlertRule, now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	last, ok := e.lastTriggered[rule.ID]
	return ok && now.Sub(last) < rule.Cooldown
}

func (e *Engine) markTriggered(id string, now time.Time) {
	e.mu.Lock()
	e.lastTriggered[id] = now
	e.mu.Unlock()
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("alerts: scheduler "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("alerts: scheduler "+msg, append(keysAndValues, "err", err)...)
}
