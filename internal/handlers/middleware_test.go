package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/beiya2414/classboard/internal/metrics"
)

func TestTimedObservesDurationWithStatus(t *testing.T) {
	before := testutil.CollectAndCount(metrics.APIRequestDuration)

	wrapped := Timed("GET /api/v1/timed-check/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/timed-check/42", nil)
	rec := httptest.NewRecorder()
	wrapped(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	// a new histogram child shows up for the route/method/status combo
	assert.Equal(t, before+1, testutil.CollectAndCount(metrics.APIRequestDuration))
}

func TestTimedDefaultsToOK(t *testing.T) {
	wrapped := Timed("GET /api/v1/timed-default", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/timed-default", nil)
	rec := httptest.NewRecorder()
	wrapped(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
