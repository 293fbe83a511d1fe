package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/obsidianstack/sentinel/pkg/types"
	"github.com/obsidianstack/sentinel/server/internal/alerts"
	"github.com/obsidianstack/sentinel/server/internal/collector"
	"github.com/obsidianstack/sentinel/server/internal/config"
	"github.com/obsidianstack/sentinel/server/internal/store"
)

// maxBodyBytes caps request bodies on write endpoints.
const maxBodyBytes = 1 << 20

// Operator is the alerting surface the API exposes. *alerts.Engine
// satisfies it.
type Operator interface {
	Running() bool
	Snapshot() types.Snapshot
	ListAlerts() []types.Alert
	ListActiveAlerts() []types.Alert
	Stats() types.AlertStats
	ResolveAlert(id string) (types.Alert, error)
	Rules() []types.AlertRule
	AddRule(rule types.AlertRule) error
	RemoveRule(id string) error
	SetRuleEnabled(id string, enabled bool) error
}

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	op  Operator
	rec collector.Recorder
	mux *http.ServeMux
}

// New creates a Handler over op and registers all routes. Samples posted to
// /api/v1/metrics are recorded into rec; a nil rec disables that route.
func New(op Operator, rec collector.Recorder) http.Handler {
	h := &Handler{op: op, rec: rec, mux: http.NewServeMux()}

	h.mux.HandleFunc("GET /api/v1/health", h.health)
	h.mux.HandleFunc("GET /api/v1/snapshot", h.snapshot)
	h.mux.HandleFunc("GET /api/v1/alerts", h.listAlerts)
	h.mux.HandleFunc("GET /api/v1/alerts/active", h.listActive)
	h.mux.HandleFunc("GET /api/v1/alerts/stats", h.stats)
	h.mux.HandleFunc("POST /api/v1/alerts/{id}/resolve", h.resolve)
	h.mux.HandleFunc("GET /api/v1/rules", h.listRules)
	h.mux.HandleFunc("POST /api/v1/rules", h.addRule)
	h.mux.HandleFunc("DELETE /api/v1/rules/{id}", h.removeRule)
	h.mux.HandleFunc("POST /api/v1/rules/{id}/enable", h.toggleRule(true))
	h.mux.HandleFunc("POST /api/v1/rules/{id}/disable", h.toggleRule(false))
	if rec != nil {
		h.mux.HandleFunc("POST /api/v1/metrics", h.ingest)
	}

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	stats := h.op.Stats()
	jsonResp(w, http.StatusOK, HealthResponse{
		Status:       "ok",
		Monitoring:   h.op.Running(),
		RuleCount:    len(h.op.Rules()),
		ActiveAlerts: stats.ActiveAlerts,
		TotalAlerts:  stats.TotalAlerts,
	})
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, BuildSnapshot(h.op.Snapshot()))
}

func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, nonNil(h.op.ListAlerts()))
}

func (h *Handler) listActive(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, nonNil(h.op.ListActiveAlerts()))
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, toStatsResponse(h.op.Stats()))
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	a, err := h.op.ResolveAlert(r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, a)
}

func (h *Handler) listRules(w http.ResponseWriter, r *http.Request) {
	rules := h.op.Rules()
	out := make([]RuleResponse, 0, len(rules))
	for _, rule := range rules {
		out = append(out, toRuleResponse(rule))
	}
	jsonResp(w, http.StatusOK, out)
}

func (h *Handler) addRule(w http.ResponseWriter, r *http.Request) {
	var req RuleRequest
	if err := decodeBody(w, r, &req); err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	rule, err := ruleFromRequest(req)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.op.AddRule(rule); err != nil {
		writeErr(w, err)
		return
	}
	jsonResp(w, http.StatusCreated, toRuleResponse(rule))
}

func (h *Handler) removeRule(w http.ResponseWriter, r *http.Request) {
	if err := h.op.RemoveRule(r.PathValue("id")); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) toggleRule(enabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if err := h.op.SetRuleEnabled(id, enabled); err != nil {
			writeErr(w, err)
			return
		}
		for _, rule := range h.op.Rules() {
			if rule.ID == id {
				jsonResp(w, http.StatusOK, toRuleResponse(rule))
				return
			}
		}
		jsonErr(w, http.StatusNotFound, "rule not found")
	}
}

func (h *Handler) ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := decodeBody(w, r, &req); err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	for i, s := range req.Samples {
		if s.Name == "" {
			jsonErr(w, http.StatusBadRequest, fmt.Sprintf("samples[%d]: name is required", i))
			return
		}
	}
	for _, s := range req.Samples {
		h.rec.Record(s.Name, s.Value, types.Unit(s.Unit), s.Tags)
	}
	jsonResp(w, http.StatusAccepted, IngestResponse{Accepted: len(req.Samples)})
}

// --- helpers ----------------------------------------------------------------

func ruleFromRequest(req RuleRequest) (types.AlertRule, error) {
	var cooldown time.Duration
	if req.Cooldown != "" {
		d, err := time.ParseDuration(req.Cooldown)
		if err != nil {
			return types.AlertRule{}, fmt.Errorf("cooldown: %w", err)
		}
		cooldown = d
	}
	rule, err := alerts.RuleFromConfig(config.RuleConfig{
		ID:        req.ID,
		Name:      req.Name,
		Condition: req.Condition,
		Severity:  req.Severity,
		Channels:  req.Channels,
		Cooldown:  cooldown,
		Enabled:   req.Enabled,
		Message:   req.Message,
	})
	if err != nil {
		return types.AlertRule{}, err
	}
	rule.Source = alerts.SourceAPI
	return rule, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// writeErr maps domain errors onto HTTP status codes.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, alerts.ErrUnknownRule):
		jsonErr(w, http.StatusNotFound, err.Error())
	case errors.Is(err, alerts.ErrDuplicateRule):
		jsonErr(w, http.StatusConflict, err.Error())
	default:
		slog.Warn("api: request failed", "err", err)
		jsonErr(w, http.StatusBadRequest, err.Error())
	}
}

func nonNil(a []types.Alert) []types.Alert {
	if a == nil {
		return []types.Alert{}
	}
	return a
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
