package collector

import (
	"net/http"
	"strconv"
	"time"

	"github.com/obsidianstack/sentinel/pkg/types"
)

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Middleware records a response_time sample for every request served by
// next, plus an error sample for 5xx responses.
func Middleware(rec Recorder, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		tags := map[string]string{
			"method": r.Method,
			"status": strconv.Itoa(sw.status),
		}
		elapsed := float64(time.Since(start).Microseconds()) / 1000
		rec.Record(types.MetricResponseTime, elapsed, types.UnitMilliseconds, tags)
		if sw.status >= http.StatusInternalServerError {
			rec.Record(types.MetricError, 1, types.UnitCount, tags)
		}
	})
}
