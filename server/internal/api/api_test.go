package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/obsidianstack/sentinel/pkg/types"
	"github.com/obsidianstack/sentinel/server/internal/alerts"
	"github.com/obsidianstack/sentinel/server/internal/api"
	"github.com/obsidianstack/sentinel/server/internal/collector"
	"github.com/obsidianstack/sentinel/server/internal/store"
)

// --- test helpers -----------------------------------------------------------

type fixture struct {
	handler   http.Handler
	engine    *alerts.Engine
	collector *collector.Collector
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	reg, err := alerts.NewRegistry(alerts.DefaultRules()...)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	c := collector.New(100)
	e := alerts.NewEngine(c, reg, store.New(), nil, alerts.Options{})
	return fixture{handler: api.New(e, c), engine: e, collector: c}
}

// fireErrorRate records traffic with a 50% error rate and evaluates once.
func (f fixture) fireErrorRate(t *testing.T) types.Alert {
	t.Helper()
	for i := 0; i < 10; i++ {
		f.collector.Record(types.MetricResponseTime, 100, types.UnitMilliseconds, nil)
	}
	for i := 0; i < 5; i++ {
		f.collector.Record(types.MetricError, 1, types.UnitCount, nil)
	}
	res := f.engine.Tick(context.Background())
	if len(res.Fired) != 1 {
		t.Fatalf("fired = %d, want 1", len(res.Fired))
	}
	return res.Fired[0]
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v (body: %s)", err, rr.Body.String())
	}
}

// --- /api/v1/health ---------------------------------------------------------

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rr := do(t, f.handler, http.MethodGet, "/api/v1/health", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type: got %q", ct)
	}
	var resp api.HealthResponse
	decode(t, rr, &resp)
	if resp.Status != "ok" || resp.RuleCount != 6 || resp.Monitoring {
		t.Errorf("health: got %+v", resp)
	}
}

func TestHealth_MethodNotAllowed(t *testing.T) {
	f := newFixture(t)
	rr := do(t, f.handler, http.MethodPost, "/api/v1/health", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rr.Code)
	}
}

// --- /api/v1/snapshot -------------------------------------------------------

func TestSnapshot_Empty(t *testing.T) {
	f := newFixture(t)
	rr := do(t, f.handler, http.MethodGet, "/api/v1/snapshot", "")

	body := rr.Body.Bytes()
	if got := gjson.GetBytes(body, "snapshot.total_requests").Int(); got != 0 {
		t.Errorf("total_requests: got %d, want 0", got)
	}
	if got := gjson.GetBytes(body, "diagnostics.0.key").String(); got != "no_traffic" {
		t.Errorf("first diagnostic: got %q, want no_traffic", got)
	}
	if !gjson.GetBytes(body, "generated_at").Exists() {
		t.Error("generated_at missing")
	}
}

func TestSnapshot_ErrorDiagnostic(t *testing.T) {
	f := newFixture(t)
	f.fireErrorRate(t)
	rr := do(t, f.handler, http.MethodGet, "/api/v1/snapshot", "")

	body := rr.Body.Bytes()
	if got := gjson.GetBytes(body, "snapshot.error_rate").Float(); got != 0.5 {
		t.Errorf("error_rate: got %v, want 0.5", got)
	}
	if got := gjson.GetBytes(body, `diagnostics.#(key=="error_rate").level`).String(); got != "critical" {
		t.Errorf("error_rate level: got %q, want critical", got)
	}
}

// --- /api/v1/alerts ---------------------------------------------------------

func TestAlerts_EmptyIsArray(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{"/api/v1/alerts", "/api/v1/alerts/active"} {
		rr := do(t, f.handler, http.MethodGet, path, "")
		if got := strings.TrimSpace(rr.Body.String()); got != "[]" {
			t.Errorf("%s: got %s, want []", path, got)
		}
	}
}

func TestAlerts_ResolveFlow(t *testing.T) {
	f := newFixture(t)
	a := f.fireErrorRate(t)

	rr := do(t, f.handler, http.MethodGet, "/api/v1/alerts/active", "")
	if n := gjson.Get(rr.Body.String(), "#").Int(); n != 1 {
		t.Fatalf("active: got %d, want 1", n)
	}

	rr = do(t, f.handler, http.MethodPost, "/api/v1/alerts/"+a.ID+"/resolve", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("resolve status: got %d, want 200", rr.Code)
	}
	if !gjson.Get(rr.Body.String(), "resolved").Bool() {
		t.Error("resolved flag not set")
	}

	rr = do(t, f.handler, http.MethodGet, "/api/v1/alerts/active", "")
	if n := gjson.Get(rr.Body.String(), "#").Int(); n != 0 {
		t.Errorf("active after resolve: got %d, want 0", n)
	}

	rr = do(t, f.handler, http.MethodGet, "/api/v1/alerts/stats", "")
	var stats api.StatsResponse
	decode(t, rr, &stats)
	if stats.TotalAlerts != 1 || stats.ActiveAlerts != 0 || stats.AlertsBySeverity[types.SeverityHigh] != 1 {
		t.Errorf("stats: got %+v", stats)
	}
}

func TestAlerts_ResolveUnknown(t *testing.T) {
	f := newFixture(t)
	rr := do(t, f.handler, http.MethodPost, "/api/v1/alerts/nope/resolve", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
	if gjson.Get(rr.Body.String(), "error").String() == "" {
		t.Error("error body missing")
	}
}

// --- /api/v1/rules ----------------------------------------------------------

func TestRules_ListDefaults(t *testing.T) {
	f := newFixture(t)
	rr := do(t, f.handler, http.MethodGet, "/api/v1/rules", "")

	var rules []api.RuleResponse
	decode(t, rr, &rules)
	if len(rules) != 6 {
		t.Fatalf("rules: got %d, want 6", len(rules))
	}
	if rules[0].ID != "high_error_rate" || rules[0].Condition != "error_rate > 0.05" || rules[0].Cooldown != "15m0s" {
		t.Errorf("first rule: got %+v", rules[0])
	}
}

func TestRules_AddAndDuplicate(t *testing.T) {
	f := newFixture(t)
	body := `{"id":"slow_p99","condition":"p99_response_time > 1500","severity":"medium","channels":["webhook"],"cooldown":"20m"}`

	rr := do(t, f.handler, http.MethodPost, "/api/v1/rules", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201 (%s)", rr.Code, rr.Body.String())
	}
	if got := gjson.Get(rr.Body.String(), "source").String(); got != alerts.SourceAPI {
		t.Errorf("source: got %q, want api", got)
	}

	rr = do(t, f.handler, http.MethodPost, "/api/v1/rules", body)
	if rr.Code != http.StatusConflict {
		t.Errorf("duplicate status: got %d, want 409", rr.Code)
	}
}

func TestRules_AddInvalid(t *testing.T) {
	f := newFixture(t)
	cases := map[string]string{
		"bad json":      `{`,
		"bad condition": `{"id":"x","condition":"nope","severity":"low"}`,
		"bad severity":  `{"id":"x","condition":"error_rate > 0.1","severity":"urgent"}`,
		"bad cooldown":  `{"id":"x","condition":"error_rate > 0.1","severity":"low","cooldown":"soon"}`,
		"unknown field": `{"id":"x","condition":"error_rate > 0.1","severity":"low","colour":"red"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rr := do(t, f.handler, http.MethodPost, "/api/v1/rules", body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want 400", rr.Code)
			}
		})
	}
}

func TestRules_DisableEnableRemove(t *testing.T) {
	f := newFixture(t)

	rr := do(t, f.handler, http.MethodPost, "/api/v1/rules/high_cpu/disable", "")
	if rr.Code != http.StatusOK || gjson.Get(rr.Body.String(), "enabled").Bool() {
		t.Fatalf("disable: got %d %s", rr.Code, rr.Body.String())
	}
	rr = do(t, f.handler, http.MethodPost, "/api/v1/rules/high_cpu/enable", "")
	if rr.Code != http.StatusOK || !gjson.Get(rr.Body.String(), "enabled").Bool() {
		t.Fatalf("enable: got %d %s", rr.Code, rr.Body.String())
	}

	rr = do(t, f.handler, http.MethodDelete, "/api/v1/rules/high_cpu", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete: got %d, want 204", rr.Code)
	}
	rr = do(t, f.handler, http.MethodDelete, "/api/v1/rules/high_cpu", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("second delete: got %d, want 404", rr.Code)
	}
	rr = do(t, f.handler, http.MethodPost, "/api/v1/rules/high_cpu/enable", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("enable removed: got %d, want 404", rr.Code)
	}
}

// --- /api/v1/metrics --------------------------------------------------------

func TestIngest_RecordsSamples(t *testing.T) {
	f := newFixture(t)
	body := `{"samples":[
		{"name":"response_time","value":120,"unit":"ms"},
		{"name":"memory_usage","value":0.42,"unit":"count"}
	]}`
	rr := do(t, f.handler, http.MethodPost, "/api/v1/metrics", body)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status: got %d, want 202 (%s)", rr.Code, rr.Body.String())
	}
	if got := gjson.Get(rr.Body.String(), "accepted").Int(); got != 2 {
		t.Errorf("accepted: got %d, want 2", got)
	}
	snap := f.collector.Snapshot()
	if snap.TotalRequests != 1 || snap.MemoryUsage != 0.42 {
		t.Errorf("snapshot: got %+v", snap)
	}
}

func TestIngest_RejectsNamelessSample(t *testing.T) {
	f := newFixture(t)
	rr := do(t, f.handler, http.MethodPost, "/api/v1/metrics", `{"samples":[{"value":1}]}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rr.Code)
	}
	if f.collector.Len() != 0 {
		t.Errorf("collector len: got %d, want 0", f.collector.Len())
	}
}
