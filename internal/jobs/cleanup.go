package jobs

import (
	"context"
	"time"

	"github.com/juju/errors"

	"github.com/TimurManjosov/flagship-core/internal/logging"
	"github.com/TimurManjosov/flagship-core/internal/store"
)

// RetentionJobName is the key the server registers the retention job under.
const RetentionJobName = "job-retention"

// RetentionJob returns a job body that deletes records whose bucket is older than
// retention, measured from the start of the run's range. The value is the deleted count.
func RetentionJob(pruner store.JobPruner, retention time.Duration, logger logging.Logger) Func {
	if logger == nil {
		logger = logging.NewNop()
	}
	return func(ctx context.Context, r Range) (any, error) {
		cutoff := r.From.Add(-retention)
		deleted, err := pruner.DeleteBefore(ctx, cutoff)
		if err != nil {
			return nil, errors.Annotate(err, "pruning job records")
		}
		logger.Info("pruned job records", "deleted", deleted, "before", cutoff)
		return deleted, nil
	}
}
