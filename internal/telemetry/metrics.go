// Package telemetry exposes Prometheus metrics for HTTP traffic, scheduled jobs and
// rollout evaluations.
package telemetry

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// Job run outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	httpDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	jobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_runs_total",
			Help: "Single-instance job invocations by outcome",
		},
		[]string{"job", "outcome"},
	)
	jobDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "job_run_duration_seconds",
			Help:    "Duration of job bodies that acquired their bucket",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)

	rolloutEvals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollout_evaluations_total",
			Help: "Gradual rollout evaluations by stickiness kind and result",
		},
		[]string{"stickiness", "result"},
	)

	initOnce sync.Once
)

// Init registers all collectors with the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(httpReqs, httpDur, jobRuns, jobDur, rolloutEvals)
	})
}

// ObserveJob records one invocation of a single-instance job.
// Duration is only recorded for runs that executed the job body.
func ObserveJob(job, outcome string, d time.Duration) {
	jobRuns.WithLabelValues(job, outcome).Inc()
	if outcome != OutcomeSkipped {
		jobDur.WithLabelValues(job).Observe(d.Seconds())
	}
}

// ObserveEvaluation records one rollout evaluation.
func ObserveEvaluation(stickiness string, enabled bool) {
	result := "disabled"
	if enabled {
		result = "enabled"
	}
	rolloutEvals.WithLabelValues(stickiness, result).Inc()
}

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(ww, r)

		// chi fills in the pattern while routing, so read it afterwards
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}

		httpReqs.WithLabelValues(route, r.Method, http.StatusText(ww.status)).Inc()
		httpDur.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
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
