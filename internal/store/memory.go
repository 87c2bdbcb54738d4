package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
)

type jobKey struct {
	name   string
	bucket int64 // unix nanos; time.Time is not a reliable map key
}

// MemoryStore is an in-memory implementation of the JobStore interface.
// It uses a map for storage and a mutex for thread-safe concurrent access.
// The claim is only exclusive within one process, so this implementation is suitable
// for development, testing, or single-instance deployments.
type MemoryStore struct {
	mu    sync.Mutex
	clock clock.Clock
	jobs  map[jobKey]Job
}

// NewMemoryStore creates a new in-memory store. A nil clock uses the wall clock.
func NewMemoryStore(clk clock.Clock) *MemoryStore {
	if clk == nil {
		clk = clock.WallClock
	}
	return &MemoryStore{
		clock: clk,
		jobs:  make(map[jobKey]Job),
	}
}

// AcquireBucket claims the current bucket for key if nobody has it yet.
func (m *MemoryStore) AcquireBucket(ctx context.Context, key string, bucketSize time.Duration) (*Job, error) {
	bucket := BucketFor(m.clock.Now(), bucketSize)

	m.mu.Lock()
	defer m.mu.Unlock()

	k := jobKey{name: key, bucket: bucket.UnixNano()}
	if _, taken := m.jobs[k]; taken {
		return nil, nil
	}

	job := Job{Name: key, Bucket: bucket, Stage: StageAcquired}
	m.jobs[k] = job
	return &job, nil
}

// Update finishes an acquired bucket.
func (m *MemoryStore) Update(ctx context.Context, name string, bucket time.Time, patch Patch) error {
	if err := validatePatch(patch); err != nil {
		return errors.Trace(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	k := jobKey{name: name, bucket: bucket.UnixNano()}
	job, exists := m.jobs[k]
	if !exists {
		return errors.NotFoundf("job %q bucket %s", name, bucket.UTC().Format(time.RFC3339))
	}
	if job.Stage != StageAcquired {
		return ErrNotAcquired
	}

	finished := patch.FinishedAt.UTC()
	job.Stage = patch.Stage
	job.FinishedAt = &finished
	m.jobs[k] = job
	return nil
}

// ListJobs returns records newest bucket first.
func (m *MemoryStore) ListJobs(ctx context.Context, name string, limit int) ([]Job, error) {
	m.mu.Lock()
	result := make([]Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		if name == "" || job.Name == name {
			result = append(result, job)
		}
	}
	m.mu.Unlock()

	sortJobs(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// DeleteBefore removes records whose bucket is before the given time.
func (m *MemoryStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for k, job := range m.jobs {
		if job.Bucket.Before(before) {
			delete(m.jobs, k)
			deleted++
		}
	}
	return deleted, nil
}

// Close is a no-op for MemoryStore as there are no resources to release.
func (m *MemoryStore) Close() error {
	return nil
}

// sortJobs orders newest bucket first, then by name.
func sortJobs(jobs []Job) {
	sort.Slice(jobs, func(i, j int) bool {
		if !jobs[i].Bucket.Equal(jobs[j].Bucket) {
			return jobs[i].Bucket.After(jobs[j].Bucket)
		}
		return jobs[i].Name < jobs[j].Name
	})
}
