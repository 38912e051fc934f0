// Package metrics registers the Prometheus collectors for the HTTP
// surface and the synchronization and probability paths.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	labelMethod = "method"
	labelPath   = "path"
	labelStatus = "status"
	labelResult = "result"
)

// Metrics bundles the application's Prometheus collectors.
type Metrics struct {
	Requests *prometheus.CounterVec
	Latency  *prometheus.HistogramVec

	SyncRuns         *prometheus.CounterVec
	SyncEntities     *prometheus.CounterVec
	ProbabilityCalcs prometheus.Histogram
}

// New creates the collectors and registers them on reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{labelMethod, labelPath, labelStatus},
		),
		Latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "http_request_duration_seconds",
				Help: "HTTP latency",
			},
			[]string{labelMethod, labelPath},
		),
		SyncRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_sync_runs_total",
				Help: "Catalog synchronization passes by result",
			},
			[]string{labelResult},
		),
		SyncEntities: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_sync_entities_created_total",
				Help: "Entities created by catalog synchronization",
			},
			[]string{"entity"},
		),
		ProbabilityCalcs: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name: "pack_probability_duration_seconds",
				Help: "Pack probability computation latency",
			},
		),
	}

	reg.MustRegister(m.Requests, m.Latency, m.SyncRuns, m.SyncEntities, m.ProbabilityCalcs)
	return m
}

// RecordSync counts one synchronization pass and the entities it
// created.
func (m *Metrics) RecordSync(failed bool, sets, boosters, cards int) {
	result := "ok"
	if failed {
		result = "error"
	}
	m.SyncRuns.WithLabelValues(result).Inc()
	m.SyncEntities.WithLabelValues("set").Add(float64(sets))
	m.SyncEntities.WithLabelValues("booster").Add(float64(boosters))
	m.SyncEntities.WithLabelValues("card").Add(float64(cards))
}

// ObserveProbability records the latency of one pack probability
// computation.
func (m *Metrics) ObserveProbability(d time.Duration) {
	m.ProbabilityCalcs.Observe(d.Seconds())
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latency. pathLabel maps the
// request to a bounded label value, typically the route pattern.
func (m *Metrics) Middleware(pathLabel func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			start := time.Now()
			next.ServeHTTP(sw, r)

			path := pathLabel(r)
			m.Latency.WithLabelValues(r.Method, path).
				Observe(time.Since(start).Seconds())
			m.Requests.WithLabelValues(r.Method, path, strconv.Itoa(sw.status)).
				Inc()
		})
	}
}
