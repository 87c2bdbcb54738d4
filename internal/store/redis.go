package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	redis "github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "flagship:jobs:"

// RedisStore is a Redis implementation of the JobStore interface.
// SET NX is the claim; records expire after the configured TTL.
type RedisStore struct {
	rdb   *redis.Client
	ttl   time.Duration
	clock clock.Clock
	owned bool
}

// NewRedisStore wraps an existing client. ttl of zero keeps records forever.
// The client is closed by Close only when owned is true.
func NewRedisStore(rdb *redis.Client, ttl time.Duration, clk clock.Clock, owned bool) *RedisStore {
	if clk == nil {
		clk = clock.WallClock
	}
	return &RedisStore{rdb: rdb, ttl: ttl, clock: clk, owned: owned}
}

// AcquireBucket claims the current bucket for key.
func (r *RedisStore) AcquireBucket(ctx context.Context, key string, bucketSize time.Duration) (*Job, error) {
	job := Job{Name: key, Bucket: BucketFor(r.clock.Now(), bucketSize), Stage: StageAcquired}
	data, err := json.Marshal(job)
	if err != nil {
		return nil, errors.Trace(err)
	}

	ok, err := r.rdb.SetNX(ctx, redisKey(key, job.Bucket), data, r.ttl).Result()
	if err != nil {
		return nil, errors.Annotatef(err, "acquiring bucket for job %q", key)
	}
	if !ok {
		return nil, nil
	}
	return &job, nil
}

// Update finishes an acquired bucket. The write is guarded by WATCH so a concurrent
// change aborts it, and the key keeps its remaining TTL.
func (r *RedisStore) Update(ctx context.Context, name string, bucket time.Time, patch Patch) error {
	if err := validatePatch(patch); err != nil {
		return errors.Trace(err)
	}

	key := redisKey(name, bucket)
	err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return errors.NotFoundf("job %q bucket %s", name, bucket.UTC().Format(time.RFC3339))
		}
		if err != nil {
			return err
		}

		var job Job
		if err := json.Unmarshal(raw, &job); err != nil {
			return errors.Annotatef(err, "decoding job %q", name)
		}
		if job.Stage != StageAcquired {
			return ErrNotAcquired
		}

		finished := patch.FinishedAt.UTC()
		job.Stage = patch.Stage
		job.FinishedAt = &finished
		data, err := json.Marshal(job)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, redis.KeepTTL)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotAcquired), errors.Is(err, errors.NotFound):
		return err
	default:
		return errors.Annotatef(err, "updating job %q", name)
	}
}

// ListJobs returns records newest bucket first.
func (r *RedisStore) ListJobs(ctx context.Context, name string, limit int) ([]Job, error) {
	pattern := redisKeyPrefix + "*"
	if name != "" {
		pattern = redisKeyPrefix + encodeName(name) + ".*"
	}

	jobs := make([]Job, 0)
	iter := r.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		raw, err := r.rdb.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue // expired between scanning and reading
		}
		if err != nil {
			return nil, errors.Annotatef(err, "reading %s", key)
		}
		var job Job
		if err := json.Unmarshal(raw, &job); err != nil {
			return nil, errors.Annotatef(err, "decoding %s", strings.TrimPrefix(key, redisKeyPrefix))
		}
		jobs = append(jobs, job)
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Annotate(err, "listing job keys")
	}

	sortJobs(jobs)
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

// Close closes the client if the store owns it.
func (r *RedisStore) Close() error {
	if !r.owned {
		return nil
	}
	return r.rdb.Close()
}

func redisKey(name string, bucket time.Time) string {
	return redisKeyPrefix + kvKey(name, bucket)
}
