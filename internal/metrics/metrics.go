// Package metrics exports analytics, price fetch and HTTP metrics to prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "horizon"

// Recorder collects metrics. It satisfies analytics.Recorder and
// prices.FetchObserver.
type Recorder struct {
	operationLatency *prometheus.HistogramVec
	operationErrors  *prometheus.CounterVec
	simulations      *prometheus.CounterVec
	simulatedTrials  *prometheus.CounterVec
	simulationTime   *prometheus.HistogramVec
	fetchLatency     prometheus.Histogram
	fetchErrors      *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// NewRecorder creates the collectors and registers them with reg
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		operationLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "analytics",
				Name:      "latency_seconds",
				Help:      "Latency of analytics operations",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		operationErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "analytics",
				Name:      "errors_total",
				Help:      "Failed analytics operations",
			},
			[]string{"operation"},
		),
		simulations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "simulation",
				Name:      "runs_total",
				Help:      "Completed Monte Carlo simulations by model",
			},
			[]string{"model"},
		),
		simulatedTrials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "simulation",
				Name:      "trials_total",
				Help:      "Simulated trials by model",
			},
			[]string{"model"},
		),
		simulationTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "simulation",
				Name:      "duration_seconds",
				Help:      "Monte Carlo run time",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"model"},
		),
		fetchLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "prices",
				Name:      "fetch_seconds",
				Help:      "Latency of price series fetches",
				Buckets:   prometheus.DefBuckets,
			},
		),
		fetchErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "prices",
				Name:      "fetch_errors_total",
				Help:      "Failed price series fetches by instrument",
			},
			[]string{"instrument"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"route", "method"},
		),
	}

	reg.MustRegister(
		r.operationLatency, r.operationErrors,
		r.simulations, r.simulatedTrials, r.simulationTime,
		r.fetchLatency, r.fetchErrors,
		r.httpRequests, r.httpDuration,
	)
	return r
}

// ObserveOperation records a facade operation
func (r *Recorder) ObserveOperation(op string, d time.Duration, err error) {
	r.operationLatency.WithLabelValues(op).Observe(d.Seconds())
	if err != nil {
		r.operationErrors.WithLabelValues(op).Inc()
	}
}

// ObserveSimulation records a completed Monte Carlo run
func (r *Recorder) ObserveSimulation(model string, trials int, d time.Duration) {
	r.simulations.WithLabelValues(model).Inc()
	r.simulatedTrials.WithLabelValues(model).Add(float64(trials))
	r.simulationTime.WithLabelValues(model).Observe(d.Seconds())
}

// ObserveFetch records one price series fetch
func (r *Recorder) ObserveFetch(instrumentID string, d time.Duration, err error) {
	r.fetchLatency.Observe(d.Seconds())
	if err != nil {
		r.fetchErrors.WithLabelValues(instrumentID).Inc()
	}
}

// Middleware records request counts and durations labelled by chi route pattern
func (r *Recorder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, req)

		route := "unmatched"
		if rctx := chi.RouteContext(req.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		r.httpRequests.WithLabelValues(route, req.Method, strconv.Itoa(rw.status)).Inc()
		r.httpDuration.WithLabelValues(route, req.Method).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
