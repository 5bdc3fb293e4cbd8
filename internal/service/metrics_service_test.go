package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceExposesSchedulerCounters(t *testing.T) {
	metrics := NewMetricsService()
	metrics.ObserveHTTPRequest(http.MethodPost, "/api/v1/scheduler/generate", http.StatusCreated, 20*time.Millisecond)
	metrics.ObserveGeneration("proposal", 10, 2, 5*time.Millisecond)
	metrics.RecordApply("applied")
	metrics.RecordApply("conflict")
	metrics.RecordSweep(4)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `scheduler_units_total{result="scheduled"} 10`)
	assert.Contains(t, body, `scheduler_applies_total{outcome="conflict"} 1`)
	assert.Contains(t, body, `scheduler_proposals_swept_total 4`)

	snap := metrics.Snapshot()
	assert.EqualValues(t, 1, snap.RequestsTotal)
	assert.EqualValues(t, 1, snap.GenerationsTotal)
	assert.EqualValues(t, 2, snap.AppliesTotal)
}

func TestMetricsServiceNilIsSafe(t *testing.T) {
	var metrics *MetricsService
	metrics.ObserveGeneration("blocked", 0, 1, time.Millisecond)
	metrics.RecordApply("error")
	assert.Equal(t, MetricsSnapshot{}, metrics.Snapshot())

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
