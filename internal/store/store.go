// Package store persists job bucket claims.
//
// A job bucket is a fixed-size time window for a named job. Every backend grants each
// (name, bucket) pair to exactly one caller; that atomic claim is the only thing that
// keeps a job from running twice across the cluster.
package store

import (
	"context"
	"time"

	"github.com/juju/errors"
)

// ErrNotAcquired is returned by Update when the record is no longer in the acquired
// stage, i.e. it was already finished by its owner.
const ErrNotAcquired = errors.ConstError("job bucket is not in the acquired stage")

// Stage is the lifecycle position of a claimed job bucket.
type Stage string

const (
	StageAcquired  Stage = "acquired"
	StageCompleted Stage = "completed"
	StageFailed    Stage = "failed"
)

// DefaultBucketSize is used when a caller passes a non-positive bucket size.
const DefaultBucketSize = 5 * time.Minute

// JobStore defines the interface for job bucket persistence.
// Implementations must be safe for concurrent use.
type JobStore interface {
	// AcquireBucket claims the current bucket for key.
	// Returns (nil, nil) when another caller already holds it.
	AcquireBucket(ctx context.Context, key string, bucketSize time.Duration) (*Job, error)

	// Update finishes a bucket previously returned by AcquireBucket.
	// Returns ErrNotAcquired if the record already left the acquired stage.
	Update(ctx context.Context, name string, bucket time.Time, patch Patch) error

	// Close releases any resources held by the store.
	Close() error
}

// JobLister is implemented by stores that can enumerate job records.
type JobLister interface {
	// ListJobs returns records newest bucket first. An empty name lists every job.
	ListJobs(ctx context.Context, name string, limit int) ([]Job, error)
}

// JobPruner is implemented by stores that need explicit cleanup of old records.
type JobPruner interface {
	// DeleteBefore removes records whose bucket is strictly before the given time.
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// Job is one claimed (name, bucket) pair.
type Job struct {
	Name       string     `json:"name"`
	Bucket     time.Time  `json:"bucket"`
	Stage      Stage      `json:"stage"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// Patch is the terminal state written by the bucket owner.
type Patch struct {
	Stage      Stage     `json:"stage"`
	FinishedAt time.Time `json:"finishedAt"`
}

// BucketFor returns the bucket boundary containing now: now truncated to a multiple of size.
func BucketFor(now time.Time, size time.Duration) time.Time {
	return now.UTC().Truncate(normalizeBucketSize(size))
}

func normalizeBucketSize(size time.Duration) time.Duration {
	if size <= 0 {
		return DefaultBucketSize
	}
	return size
}

func validatePatch(p Patch) error {
	if p.Stage != StageCompleted && p.Stage != StageFailed {
		return errors.NotValidf("stage %q", p.Stage)
	}
	return nil
}
