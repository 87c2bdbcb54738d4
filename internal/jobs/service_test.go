package jobs

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TimurManjosov/flagship-core/internal/store"
)

var (
	bucket0005 = time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC)
	testNow    = time.Date(2024, 1, 1, 0, 6, 10, 0, time.UTC)
)

type update struct {
	name   string
	bucket time.Time
	patch  store.Patch
}

// fakeStore hands out queued AcquireBucket results and records updates.
type fakeStore struct {
	mu         sync.Mutex
	grants     []*store.Job
	acquireErr error
	updateErr  error
	acquires   []string
	sizes      []time.Duration
	updates    []update
}

func (f *fakeStore) AcquireBucket(ctx context.Context, key string, size time.Duration) (*store.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquires = append(f.acquires, key)
	f.sizes = append(f.sizes, size)
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	if len(f.grants) == 0 {
		return nil, nil
	}
	job := f.grants[0]
	f.grants = f.grants[1:]
	return job, nil
}

func (f *fakeStore) Update(ctx context.Context, name string, bucket time.Time, patch store.Patch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	f.updates = append(f.updates, update{name, bucket, patch})
	return f.updateErr
}

func (f *fakeStore) Close() error { return nil }

func grant(name string, bucket time.Time) *store.Job {
	return &store.Job{Name: name, Bucket: bucket, Stage: store.StageAcquired}
}

// recordLogger keeps error messages.
type recordLogger struct {
	mu     sync.Mutex
	errors []string
}

func (l *recordLogger) Debug(string, ...any) {}
func (l *recordLogger) Info(string, ...any)  {}
func (l *recordLogger) Warn(string, ...any)  {}
func (l *recordLogger) Error(msg string, kv ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, fmt.Sprint(append([]any{msg}, kv...)...))
}

func TestSingleInstance_RangeIsPreviousBucket(t *testing.T) {
	fs := &fakeStore{grants: []*store.Job{grant("rollup", bucket0005)}}
	svc := NewService(fs, nil, testclock.NewClock(testNow))

	var got Range
	call := svc.SingleInstance("rollup", func(ctx context.Context, r Range) (any, error) {
		got = r
		return nil, nil
	}, 5*time.Minute)

	_, err := call(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), got.From)
	assert.Equal(t, bucket0005, got.To)
}

func TestSingleInstance_SecondInvocationIsNoop(t *testing.T) {
	fs := &fakeStore{grants: []*store.Job{grant("rollup", bucket0005)}}
	svc := NewService(fs, nil, testclock.NewClock(testNow))

	calls := 0
	call := svc.SingleInstance("rollup", func(ctx context.Context, r Range) (any, error) {
		calls++
		return "done", nil
	}, 5*time.Minute)

	first, err := call(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "done", first)

	second, err := call(context.Background())
	require.NoError(t, err)
	assert.Nil(t, second)

	assert.Equal(t, 1, calls)
	assert.Len(t, fs.acquires, 2)
	assert.Len(t, fs.updates, 1)
}

func TestSingleInstance_FailureIsSwallowedAndPersisted(t *testing.T) {
	fs := &fakeStore{grants: []*store.Job{grant("rollup", bucket0005)}}
	logger := &recordLogger{}
	svc := NewService(fs, logger, testclock.NewClock(testNow))

	call := svc.SingleInstance("rollup", func(ctx context.Context, r Range) (any, error) {
		return "partial", fmt.Errorf("upstream unavailable")
	}, 5*time.Minute)

	value, err := call(context.Background())
	require.NoError(t, err)
	assert.Nil(t, value)

	require.Len(t, fs.updates, 1)
	assert.Equal(t, update{"rollup", bucket0005, store.Patch{Stage: store.StageFailed, FinishedAt: testNow}}, fs.updates[0])

	require.Len(t, logger.errors, 1)
	assert.Contains(t, logger.errors[0], "upstream unavailable")
}

func TestSingleInstance_PanicIsTreatedAsFailure(t *testing.T) {
	fs := &fakeStore{grants: []*store.Job{grant("rollup", bucket0005)}}
	logger := &recordLogger{}
	svc := NewService(fs, logger, testclock.NewClock(testNow))

	call := svc.SingleInstance("rollup", func(ctx context.Context, r Range) (any, error) {
		panic("boom")
	}, 5*time.Minute)

	var value any
	var err error
	require.NotPanics(t, func() { value, err = call(context.Background()) })
	require.NoError(t, err)
	assert.Nil(t, value)
	require.Len(t, fs.updates, 1)
	assert.Equal(t, store.StageFailed, fs.updates[0].patch.Stage)
	require.Len(t, logger.errors, 1)
	assert.Contains(t, logger.errors[0], "panic: boom")
}

func TestSingleInstance_SuccessPersistsCompleted(t *testing.T) {
	fs := &fakeStore{grants: []*store.Job{grant("rollup", bucket0005)}}
	svc := NewService(fs, nil, testclock.NewClock(testNow))

	call := svc.SingleInstance("rollup", func(ctx context.Context, r Range) (any, error) {
		return 42, nil
	}, 5*time.Minute)

	value, err := call(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, value)
	require.Len(t, fs.updates, 1)
	assert.Equal(t, update{"rollup", bucket0005, store.Patch{Stage: store.StageCompleted, FinishedAt: testNow}}, fs.updates[0])
}

func TestSingleInstance_AcquireErrorPropagates(t *testing.T) {
	fs := &fakeStore{acquireErr: fmt.Errorf("connection refused")}
	svc := NewService(fs, nil, testclock.NewClock(testNow))

	called := false
	call := svc.SingleInstance("rollup", func(ctx context.Context, r Range) (any, error) {
		called = true
		return nil, nil
	}, 5*time.Minute)

	_, err := call(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.False(t, called)
}

func TestSingleInstance_UpdateErrorPropagates(t *testing.T) {
	fs := &fakeStore{grants: []*store.Job{grant("rollup", bucket0005)}, updateErr: store.ErrNotAcquired}
	svc := NewService(fs, nil, testclock.NewClock(testNow))

	call := svc.SingleInstance("rollup", func(ctx context.Context, r Range) (any, error) {
		return nil, nil
	}, 5*time.Minute)

	_, err := call(context.Background())
	assert.True(t, errors.Is(err, store.ErrNotAcquired), "got %v", err)
}

func TestSingleInstance_DefaultBucketSize(t *testing.T) {
	fs := &fakeStore{grants: []*store.Job{grant("rollup", bucket0005)}}
	svc := NewService(fs, nil, testclock.NewClock(testNow))

	var got Range
	call := svc.SingleInstance("rollup", func(ctx context.Context, r Range) (any, error) {
		got = r
		return nil, nil
	}, 0)

	_, err := call(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{store.DefaultBucketSize}, fs.sizes)
	assert.Equal(t, bucket0005.Add(-store.DefaultBucketSize), got.From)
}

func TestSingleInstance_PersistsAfterContextExpires(t *testing.T) {
	fs := &fakeStore{grants: []*store.Job{grant("rollup", bucket0005)}}
	svc := NewService(fs, nil, testclock.NewClock(testNow))

	ctx, cancel := context.WithCancel(context.Background())
	call := svc.SingleInstance("rollup", func(ctx context.Context, r Range) (any, error) {
		cancel()
		return nil, ctx.Err()
	}, 5*time.Minute)

	_, err := call(ctx)
	require.NoError(t, err)
	require.Len(t, fs.updates, 1)
	assert.Equal(t, store.StageFailed, fs.updates[0].patch.Stage)
}

func TestSingleInstance_MemoryStoreAcrossInstances(t *testing.T) {
	clk := testclock.NewClock(testNow)
	shared := store.NewMemoryStore(clk)

	var mu sync.Mutex
	calls := 0
	body := func(ctx context.Context, r Range) (any, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return nil, nil
	}

	// Two "processes" sharing one store.
	a := NewService(shared, nil, clk).SingleInstance("rollup", body, 5*time.Minute)
	b := NewService(shared, nil, clk).SingleInstance("rollup", body, 5*time.Minute)

	var wg sync.WaitGroup
	for _, call := range []func(context.Context) (any, error){a, b, a, b} {
		wg.Add(1)
		go func(call func(context.Context) (any, error)) {
			defer wg.Done()
			_, err := call(context.Background())
			assert.NoError(t, err)
		}(call)
	}
	wg.Wait()
	assert.Equal(t, 1, calls)

	jobs, err := shared.ListJobs(context.Background(), "rollup", 0)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, store.StageCompleted, jobs[0].Stage)

	// The next bucket runs again.
	clk.Advance(5 * time.Minute)
	_, err = a(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
