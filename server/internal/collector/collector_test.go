package collector

import (
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/obsidianstack/sentinel/pkg/types"
)

// baseTime is a fixed reference point so all test timings are deterministic.
var baseTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// stepClock returns a clock that advances by step on every call.
func stepClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	cur := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := cur
		cur = cur.Add(step)
		return t
	}
}

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func almostEqual(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestSnapshot_Empty(t *testing.T) {
	c := New(10)
	snap := c.Snapshot()

	if snap.TotalRequests != 0 {
		t.Errorf("TotalRequests = %d, want 0", snap.TotalRequests)
	}
	if snap.ErrorRate != 0 || snap.AverageResponseTime != 0 || snap.Throughput != 0 {
		t.Errorf("expected zeroed ratios, got %+v", snap)
	}
	if snap.P95ResponseTime != 0 || snap.P99ResponseTime != 0 {
		t.Errorf("p95/p99 = %v/%v, want 0/0", snap.P95ResponseTime, snap.P99ResponseTime)
	}
}

func TestSnapshot_Percentiles(t *testing.T) {
	c := New(100)
	c.now = fixedClock(baseTime)
	// Record out of order to prove the percentile path sorts.
	for _, v := range []float64{500, 100, 1000, 300, 200, 700, 900, 400, 800, 600} {
		c.Record(types.MetricResponseTime, v, types.UnitMilliseconds, nil)
	}

	snap := c.Snapshot()
	if snap.TotalRequests != 10 {
		t.Fatalf("TotalRequests = %d, want 10", snap.TotalRequests)
	}
	// floor(10*0.95) = 9 and floor(10*0.99) = 9 → the largest sample.
	if snap.P95ResponseTime != 1000 {
		t.Errorf("P95 = %v, want 1000", snap.P95ResponseTime)
	}
	if snap.P99ResponseTime != 1000 {
		t.Errorf("P99 = %v, want 1000", snap.P99ResponseTime)
	}
	if snap.AverageResponseTime != 550 {
		t.Errorf("AverageResponseTime = %v, want 550", snap.AverageResponseTime)
	}
}

func TestSnapshot_PercentileIndexLargerSet(t *testing.T) {
	c := New(200)
	c.now = fixedClock(baseTime)
	for i := 1; i <= 100; i++ {
		c.Record(types.MetricResponseTime, float64(i), types.UnitMilliseconds, nil)
	}
	snap := c.Snapshot()
	// sorted[95] = 96, sorted[99] = 100.
	if snap.P95ResponseTime != 96 {
		t.Errorf("P95 = %v, want 96", snap.P95ResponseTime)
	}
	if snap.P99ResponseTime != 100 {
		t.Errorf("P99 = %v, want 100", snap.P99ResponseTime)
	}
}

func TestSnapshot_ErrorRate(t *testing.T) {
	c := New(100)
	c.now = fixedClock(baseTime)
	for i := 0; i < 50; i++ {
		c.Record(types.MetricResponseTime, 10, types.UnitMilliseconds, nil)
	}
	for i := 0; i < 3; i++ {
		c.Record(types.MetricError, 1, types.UnitCount, nil)
	}

	snap := c.Snapshot()
	if !almostEqual(snap.ErrorRate, 0.06, 1e-9) {
		t.Errorf("ErrorRate = %v, want 0.06", snap.ErrorRate)
	}
}

func TestSnapshot_ErrorsWithoutRequests(t *testing.T) {
	c := New(10)
	c.Record(types.MetricError, 5, types.UnitCount, nil)

	snap := c.Snapshot()
	if snap.ErrorRate != 0 {
		t.Errorf("ErrorRate = %v, want 0 when no requests were recorded", snap.ErrorRate)
	}
}

func TestSnapshot_Throughput(t *testing.T) {
	c := New(100)
	// Ten samples one second apart; Snapshot reads the clock once more.
	c.now = stepClock(baseTime, time.Second)
	for i := 0; i < 10; i++ {
		c.Record(types.MetricResponseTime, 10, types.UnitMilliseconds, nil)
	}

	snap := c.Snapshot()
	// Window runs from the first sample (t=0) to the snapshot (t=10s).
	if !almostEqual(snap.Throughput, 1, 1e-9) {
		t.Errorf("Throughput = %v, want 1", snap.Throughput)
	}
}

func TestSnapshot_ZeroElapsedThroughput(t *testing.T) {
	c := New(10)
	c.now = fixedClock(baseTime)
	c.Record(types.MetricResponseTime, 10, types.UnitMilliseconds, nil)

	if snap := c.Snapshot(); snap.Throughput != 0 {
		t.Errorf("Throughput = %v, want 0 for a zero-length window", snap.Throughput)
	}
}

func TestSnapshot_GaugesLatestWins(t *testing.T) {
	c := New(10)
	c.Record(types.MetricMemoryUsage, 0.50, types.UnitCount, nil)
	c.Record(types.MetricCPUUsage, 0.20, types.UnitCount, nil)
	c.Record(types.MetricMemoryUsage, 0.95, types.UnitCount, nil)
	c.Record(types.MetricBackupStatus, 1, types.UnitCount, map[string]string{"status": "succeeded"})
	c.Record(types.MetricBackupStatus, 0, types.UnitCount, map[string]string{"status": "failed"})
	c.Record(types.MetricDatabaseError, 1, types.UnitCount, nil)
	c.Record(types.MetricDatabaseError, 2, types.UnitCount, nil)

	snap := c.Snapshot()
	if snap.MemoryUsage != 0.95 {
		t.Errorf("MemoryUsage = %v, want 0.95", snap.MemoryUsage)
	}
	if snap.CPUUsage != 0.20 {
		t.Errorf("CPUUsage = %v, want 0.20", snap.CPUUsage)
	}
	if snap.BackupStatus != "failed" {
		t.Errorf("BackupStatus = %q, want failed", snap.BackupStatus)
	}
	if snap.DatabaseErrors != 3 {
		t.Errorf("DatabaseErrors = %v, want 3", snap.DatabaseErrors)
	}
}

func TestRecord_EvictsOldest(t *testing.T) {
	c := New(3)
	for i := 1; i <= 5; i++ {
		c.Record(types.MetricResponseTime, float64(i), types.UnitMilliseconds, nil)
	}

	if c.Len() != 3 {
		t.Fatalf("Len = %d, want 3", c.Len())
	}
	got := c.Samples()
	want := []float64{3, 4, 5}
	for i, s := range got {
		if s.Value != want[i] {
			t.Errorf("Samples[%d] = %v, want %v", i, s.Value, want[i])
		}
	}
}

func TestRecord_UnknownUnitAccepted(t *testing.T) {
	c := New(3)
	c.Record("queue_depth", 7, types.Unit("furlongs"), nil)

	got := c.Samples()
	if len(got) != 1 || got[0].Unit != "furlongs" {
		t.Fatalf("Samples = %+v, want one sample with opaque unit", got)
	}
}

func TestRecord_DropsNonFinite(t *testing.T) {
	c := New(3)
	c.Record(types.MetricResponseTime, math.NaN(), types.UnitMilliseconds, nil)
	c.Record(types.MetricResponseTime, math.Inf(1), types.UnitMilliseconds, nil)

	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
}

func TestRecord_CopiesTags(t *testing.T) {
	c := New(3)
	tags := map[string]string{"route": "/a"}
	c.Record(types.MetricResponseTime, 1, types.UnitMilliseconds, tags)
	tags["route"] = "/mutated"

	if got := c.Samples()[0].Tags["route"]; got != "/a" {
		t.Errorf("stored tag = %q, want /a", got)
	}
}

func TestNew_DefaultCapacity(t *testing.T) {
	if c := New(0); c.Capacity() != DefaultCapacity {
		t.Errorf("Capacity = %d, want %d", c.Capacity(), DefaultCapacity)
	}
}

func TestConcurrentRecordAndSnapshot(t *testing.T) {
	c := New(64)
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				c.Record(types.MetricResponseTime, float64(j), types.UnitMilliseconds, nil)
			}
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 50; j++ {
			snap := c.Snapshot()
			if snap.TotalRequests > 64 {
				t.Errorf("TotalRequests = %d exceeds capacity", snap.TotalRequests)
			}
		}
	}()
	wg.Wait()

	if c.Len() != 64 {
		t.Errorf("Len after concurrent writes = %d, want 64", c.Len())
	}
}

func TestMiddleware_RecordsRequestsAndErrors(t *testing.T) {
	c := New(10)
	h := Middleware(c, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))

	snap := c.Snapshot()
	if snap.TotalRequests != 2 {
		t.Errorf("TotalRequests = %d, want 2", snap.TotalRequests)
	}
	if snap.ErrorRate != 0.5 {
		t.Errorf("ErrorRate = %v, want 0.5", snap.ErrorRate)
	}
	samples := c.Samples()
	if samples[1].Tags["status"] != "502" {
		t.Errorf("status tag = %q, want 502", samples[1].Tags["status"])
	}
}
