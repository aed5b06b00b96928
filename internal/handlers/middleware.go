package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/beiya2414/classboard/internal/metrics"
)

// statusRecorder remembers the response code for the duration metric.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Timed wraps a route handler and observes its duration. The label uses
// the registered pattern rather than the request path so wildcard ids do
// not blow up the label set.
func Timed(pattern string, next http.HandlerFunc) http.HandlerFunc {
	method, path := "", pattern
	if i := strings.IndexByte(pattern, ' '); i >= 0 {
		method, path = pattern[:i], pattern[i+1:]
	}

	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		metrics.APIRequestDuration.WithLabelValues(
			path,
			method,
			strconv.Itoa(rec.status),
		).Observe(time.Since(start).Seconds())
	}
}
