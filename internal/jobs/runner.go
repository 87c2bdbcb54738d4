package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/robfig/cron"

	"github.com/TimurManjosov/flagship-core/internal/logging"
)

// DefaultRunTimeout bounds a single scheduled run when NewRunner gets a non-positive timeout.
const DefaultRunTimeout = time.Minute

// Runner fires registered jobs on cron schedules.
type Runner struct {
	cron    *cron.Cron
	logger  logging.Logger
	timeout time.Duration

	mu    sync.Mutex
	names map[string]struct{}
}

// NewRunner creates a Runner that evaluates schedules in UTC.
// Each run gets a context with the given timeout.
func NewRunner(logger logging.Logger, timeout time.Duration) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultRunTimeout
	}
	return &Runner{
		cron:    cron.NewWithLocation(time.UTC),
		logger:  logger,
		timeout: timeout,
		names:   make(map[string]struct{}),
	}
}

// Register schedules job under name. schedule is a six-field cron expression (with seconds)
// or a descriptor such as "@hourly" or "@every 5m".
func (r *Runner) Register(name, schedule string, job func(ctx context.Context) (any, error)) error {
	if name == "" {
		return errors.NotValidf("empty job name")
	}
	sched, err := cron.Parse(schedule)
	if err != nil {
		return errors.NewNotValid(err, "schedule "+schedule)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.names[name]; exists {
		return errors.AlreadyExistsf("job %q", name)
	}
	r.names[name] = struct{}{}

	r.cron.Schedule(sched, cron.FuncJob(func() { r.runOnce(name, job) }))
	r.logger.Info("job registered", "job", name, "schedule", schedule)
	return nil
}

// Start begins firing jobs in the background.
func (r *Runner) Start() { r.cron.Start() }

// Stop halts scheduling. Runs already in progress are not interrupted.
func (r *Runner) Stop() { r.cron.Stop() }

func (r *Runner) runOnce(name string, job func(ctx context.Context) (any, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if _, err := job(ctx); err != nil {
		r.logger.Error("scheduled job returned an error", "job", name, "error", err)
	}
}

// EverySchedule returns the cron descriptor for a fixed interval.
func EverySchedule(d time.Duration) string {
	return "@every " + d.String()
}
