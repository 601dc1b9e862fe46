package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder_Operations(t *testing.T) {
	r := NewRecorder(prometheus.NewRegistry())

	r.ObserveOperation("report", 10*time.Millisecond, nil)
	r.ObserveOperation("report", 20*time.Millisecond, errors.New("boom"))
	r.ObserveOperation("simulate", time.Millisecond, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.operationErrors.WithLabelValues("report")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.operationErrors.WithLabelValues("simulate")))
	assert.Equal(t, 2, testutil.CollectAndCount(r.operationLatency))
}

func TestRecorder_Simulations(t *testing.T) {
	r := NewRecorder(prometheus.NewRegistry())

	r.ObserveSimulation("parametric", 1000, time.Second)
	r.ObserveSimulation("parametric", 500, time.Second)
	r.ObserveSimulation("bootstrap", 200, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.simulations.WithLabelValues("parametric")))
	assert.Equal(t, 1500.0, testutil.ToFloat64(r.simulatedTrials.WithLabelValues("parametric")))
	assert.Equal(t, 200.0, testutil.ToFloat64(r.simulatedTrials.WithLabelValues("bootstrap")))
}

func TestRecorder_Fetch(t *testing.T) {
	r := NewRecorder(prometheus.NewRegistry())

	r.ObserveFetch("AAA", time.Millisecond, nil)
	r.ObserveFetch("BBB", time.Millisecond, errors.New("timeout"))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.fetchErrors.WithLabelValues("BBB")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.fetchErrors))
}

func TestRecorder_Middleware(t *testing.T) {
	r := NewRecorder(prometheus.NewRegistry())

	router := chi.NewRouter()
	router.Use(r.Middleware)
	router.Get("/api/analytics/portfolios/{id}/report", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b"} {
		req := httptest.NewRequest(http.MethodGet, "/api/analytics/portfolios/"+id+"/report", nil)
		router.ServeHTTP(httptest.NewRecorder(), req)
	}

	got := testutil.ToFloat64(r.httpRequests.WithLabelValues("/api/analytics/portfolios/{id}/report", "GET", "404"))
	assert.Equal(t, 2.0, got)
}

func TestNewRecorder_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewRecorder(reg)
	assert.Panics(t, func() { NewRecorder(reg) })
}
