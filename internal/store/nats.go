package store

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSStore is a JetStream KeyValue implementation of the JobStore interface.
//
// The claim is a KV Create, which only succeeds when the key does not exist yet.
// Updates use the entry revision for compare-and-swap. Records expire with the
// bucket TTL, so no explicit pruning is needed.
type NATSStore struct {
	kv    jetstream.KeyValue
	clock clock.Clock
	conn  *nats.Conn // closed by Close when the store owns it
}

// NewNATSStore opens (or creates) the KV bucket used for job records.
//
// Parameters:
//   - js: JetStream context
//   - bucket: KV bucket name
//   - ttl: record retention; zero keeps records forever
//   - clk: clock used to compute bucket boundaries (wall clock if nil)
func NewNATSStore(ctx context.Context, js jetstream.JetStream, bucket string, ttl time.Duration, clk clock.Clock) (*NATSStore, error) {
	kv, err := ensureKeyValue(ctx, js, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "job bucket claims",
		TTL:         ttl,
		History:     1,
	})
	if err != nil {
		return nil, errors.Annotatef(err, "opening KV bucket %q", bucket)
	}
	if clk == nil {
		clk = clock.WallClock
	}
	return &NATSStore{kv: kv, clock: clk}, nil
}

// ensureKeyValue creates the bucket, or opens it if another process created it first.
func ensureKeyValue(ctx context.Context, js jetstream.JetStream, cfg jetstream.KeyValueConfig) (jetstream.KeyValue, error) {
	kv, err := js.CreateKeyValue(ctx, cfg)
	if err == nil {
		return kv, nil
	}
	if !errors.Is(err, jetstream.ErrBucketExists) {
		return nil, err
	}
	return js.KeyValue(ctx, cfg.Bucket)
}

// AcquireBucket claims the current bucket for key.
func (n *NATSStore) AcquireBucket(ctx context.Context, key string, bucketSize time.Duration) (*Job, error) {
	job := Job{Name: key, Bucket: BucketFor(n.clock.Now(), bucketSize), Stage: StageAcquired}
	data, err := json.Marshal(job)
	if err != nil {
		return nil, errors.Trace(err)
	}

	if _, err := n.kv.Create(ctx, kvKey(key, job.Bucket), data); err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return nil, nil
		}
		return nil, errors.Annotatef(err, "acquiring bucket for job %q", key)
	}
	return &job, nil
}

// Update finishes an acquired bucket.
func (n *NATSStore) Update(ctx context.Context, name string, bucket time.Time, patch Patch) error {
	if err := validatePatch(patch); err != nil {
		return errors.Trace(err)
	}

	key := kvKey(name, bucket)
	entry, err := n.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return errors.NotFoundf("job %q bucket %s", name, bucket.UTC().Format(time.RFC3339))
	}
	if err != nil {
		return errors.Annotatef(err, "reading job %q", name)
	}

	var job Job
	if err := json.Unmarshal(entry.Value(), &job); err != nil {
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
		return errors.Trace(err)
	}

	if _, err := n.kv.Update(ctx, key, data, entry.Revision()); err != nil {
		return errors.Annotatef(err, "updating job %q", name)
	}
	return nil
}

// ListJobs returns records newest bucket first.
func (n *NATSStore) ListJobs(ctx context.Context, name string, limit int) ([]Job, error) {
	lister, err := n.kv.ListKeys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return []Job{}, nil
		}
		return nil, errors.Annotate(err, "listing job keys")
	}
	defer func() { _ = lister.Stop() }()

	prefix := ""
	if name != "" {
		prefix = encodeName(name) + "."
	}

	jobs := make([]Job, 0)
	for key := range lister.Keys() {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		entry, err := n.kv.Get(ctx, key)
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			continue // expired between listing and reading
		}
		if err != nil {
			return nil, errors.Annotatef(err, "reading %s", key)
		}
		var job Job
		if err := json.Unmarshal(entry.Value(), &job); err != nil {
			return nil, errors.Annotatef(err, "decoding %s", key)
		}
		jobs = append(jobs, job)
	}

	sortJobs(jobs)
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

// Close closes the NATS connection if the store owns it.
func (n *NATSStore) Close() error {
	if n.conn != nil {
		n.conn.Close()
	}
	return nil
}

// kvKey builds "<encoded name>.<unix seconds>". Names are encoded because KV keys only
// allow a restricted character set.
func kvKey(name string, bucket time.Time) string {
	return encodeName(name) + "." + strconv.FormatInt(bucket.Unix(), 10)
}

func encodeName(name string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(name))
}
