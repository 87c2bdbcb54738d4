// Package jobs runs units of work at most once per time bucket across a cluster.
//
// Arbitration is entirely the JobStore's atomic claim: every process may invoke the same
// job on the same tick, and only the one that acquires the current bucket runs it.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"

	"github.com/TimurManjosov/flagship-core/internal/logging"
	"github.com/TimurManjosov/flagship-core/internal/store"
	"github.com/TimurManjosov/flagship-core/internal/telemetry"
)

// Range is the half-open window [From, To) a job run is responsible for.
type Range struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Func is the body of a single-instance job.
type Func func(ctx context.Context, r Range) (any, error)

// Service wraps job bodies with bucket claiming.
type Service struct {
	store  store.JobStore
	logger logging.Logger
	clock  clock.Clock
}

// NewService creates a Service. A nil logger discards output and a nil clock uses the
// wall clock.
func NewService(st store.JobStore, logger logging.Logger, clk clock.Clock) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	if clk == nil {
		clk = clock.WallClock
	}
	return &Service{store: st, logger: logger, clock: clk}
}

// SingleInstance returns a callable that runs fn only if this process claims the current
// bucket for key.
//
// Outcomes of the returned callable:
//   - bucket already claimed: fn is not called, returns (nil, nil)
//   - fn succeeds: the record is marked completed, returns fn's value
//   - fn fails or panics: the error is logged, the record is marked failed, returns (nil, nil)
//   - the store fails: the store error is returned
//
// A non-positive bucketSize uses store.DefaultBucketSize.
func (s *Service) SingleInstance(key string, fn Func, bucketSize time.Duration) func(ctx context.Context) (any, error) {
	if bucketSize <= 0 {
		bucketSize = store.DefaultBucketSize
	}

	return func(ctx context.Context) (any, error) {
		job, err := s.store.AcquireBucket(ctx, key, bucketSize)
		if err != nil {
			return nil, errors.Annotatef(err, "job %q", key)
		}
		if job == nil {
			s.logger.Debug("job bucket already claimed", "job", key)
			telemetry.ObserveJob(key, telemetry.OutcomeSkipped, 0)
			return nil, nil
		}

		r := Range{From: job.Bucket.Add(-bucketSize), To: job.Bucket}
		s.logger.Debug("job bucket acquired", "job", key, "bucket", job.Bucket, "from", r.From, "to", r.To)

		start := s.clock.Now()
		value, runErr := run(ctx, fn, r)
		finished := s.clock.Now()

		// the outcome is persisted even if the run context already expired
		persistCtx := context.WithoutCancel(ctx)

		if runErr != nil {
			s.logger.Error("job failed", "job", key, "bucket", job.Bucket, "error", runErr)
			telemetry.ObserveJob(key, telemetry.OutcomeFailed, finished.Sub(start))
			if err := s.store.Update(persistCtx, job.Name, job.Bucket, store.Patch{Stage: store.StageFailed, FinishedAt: finished}); err != nil {
				return nil, errors.Annotatef(err, "marking job %q failed", key)
			}
			return nil, nil
		}

		telemetry.ObserveJob(key, telemetry.OutcomeCompleted, finished.Sub(start))
		if err := s.store.Update(persistCtx, job.Name, job.Bucket, store.Patch{Stage: store.StageCompleted, FinishedAt: finished}); err != nil {
			return nil, errors.Annotatef(err, "marking job %q completed", key)
		}
		return value, nil
	}
}

// run calls fn and converts a panic into an error.
func run(ctx context.Context, fn Func, r Range) (value any, err error) {
	defer func() {
		if p := recover(); p != nil {
			value = nil
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn(ctx, r)
}
