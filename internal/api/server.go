// Package api serves the rollout evaluation and job inspection HTTP endpoints.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/TimurManjosov/flagship-core/internal/logging"
	"github.com/TimurManjosov/flagship-core/internal/rollout"
	"github.com/TimurManjosov/flagship-core/internal/store"
	"github.com/TimurManjosov/flagship-core/internal/telemetry"
)

// DefaultEvaluateRateLimit is the per-IP evaluate budget per minute.
const DefaultEvaluateRateLimit = 600

type Server struct {
	evaluator     *rollout.Evaluator
	jobs          store.JobStore
	adminAPIKey   string
	logger        logging.Logger
	evalRateLimit int
}

// NewServer creates the API server. A nil evaluator uses murmur3 with UUID tokens and a
// nil logger discards output.
func NewServer(evaluator *rollout.Evaluator, jobs store.JobStore, adminKey string, logger logging.Logger) *Server {
	if evaluator == nil {
		evaluator = rollout.NewEvaluator(nil, nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Server{
		evaluator:     evaluator,
		jobs:          jobs,
		adminAPIKey:   adminKey,
		logger:        logger,
		evalRateLimit: DefaultEvaluateRateLimit,
	}
}

// WithEvaluateRateLimit sets how many evaluate requests one client IP may make per
// minute. Zero disables the limit.
func (s *Server) WithEvaluateRateLimit(perMinute int) *Server {
	s.evalRateLimit = perMinute
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Second))
	r.Use(telemetry.Middleware)

	// health
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// public: rollout evaluation
	r.Group(func(r chi.Router) {
		if s.evalRateLimit > 0 {
			r.Use(httprate.Limit(s.evalRateLimit, time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					RateLimitedError(w, r, "too many evaluate requests, retry later")
				}),
			))
		}
		r.Post("/v1/rollout/evaluate", s.handleEvaluate)
	})

	// admin (protected): job records
	r.Get("/v1/jobs", s.authAdmin(s.handleListJobs))

	return r
}

// ---- middleware ----

func (s *Server) authAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		got := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer"))
		if got == "" {
			UnauthorizedError(w, r, "missing bearer token")
			return
		}
		// constant-time compare
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.adminAPIKey)) != 1 {
			ForbiddenError(w, r, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	}
}
