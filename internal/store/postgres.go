package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/juju/errors"
)

// DBTX is the subset of pgx used by PostgresStore. *pgxpool.Pool and pgx.Tx satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// The bucket is computed from the database clock so that processes with skewed clocks
// still agree on the boundary.
const (
	acquireBucketSQL = `
INSERT INTO jobs (name, bucket, stage)
VALUES ($1, to_timestamp(floor(extract(epoch FROM now()) / $2::bigint) * $2::bigint), 'acquired')
ON CONFLICT (name, bucket) DO NOTHING
RETURNING name, bucket, stage, finished_at`

	updateJobSQL = `
UPDATE jobs SET stage = $3, finished_at = $4
WHERE name = $1 AND bucket = $2 AND stage = 'acquired'`

	jobExistsSQL = `SELECT EXISTS (SELECT 1 FROM jobs WHERE name = $1 AND bucket = $2)`

	listJobsSQL = `
SELECT name, bucket, stage, finished_at FROM jobs
WHERE ($1::text = '' OR name = $1::text)
ORDER BY bucket DESC, name
LIMIT $2`

	deleteJobsBeforeSQL = `DELETE FROM jobs WHERE bucket < $1`

	// listAllLimit caps ListJobs when the caller passes no limit.
	listAllLimit = 10000
)

// PostgresStore is a PostgreSQL implementation of the JobStore interface.
// The (name, bucket) primary key makes the INSERT ... ON CONFLICT DO NOTHING claim atomic.
type PostgresStore struct {
	db    DBTX
	close func()
}

// NewPostgresStore creates a PostgreSQL-backed store.
// closeFn is called by Close; pass pool.Close when the store owns the pool, or nil.
func NewPostgresStore(db DBTX, closeFn func()) *PostgresStore {
	return &PostgresStore{db: db, close: closeFn}
}

// AcquireBucket claims the current bucket for key.
func (p *PostgresStore) AcquireBucket(ctx context.Context, key string, bucketSize time.Duration) (*Job, error) {
	seconds := int64(normalizeBucketSize(bucketSize) / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	job, err := scanJob(p.db.QueryRow(ctx, acquireBucketSQL, key, seconds))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Annotatef(err, "acquiring bucket for job %q", key)
	}
	return &job, nil
}

// Update finishes an acquired bucket.
func (p *PostgresStore) Update(ctx context.Context, name string, bucket time.Time, patch Patch) error {
	if err := validatePatch(patch); err != nil {
		return errors.Trace(err)
	}

	tag, err := p.db.Exec(ctx, updateJobSQL, name, bucket, string(patch.Stage), patch.FinishedAt)
	if err != nil {
		return errors.Annotatef(err, "updating job %q", name)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := p.db.QueryRow(ctx, jobExistsSQL, name, bucket).Scan(&exists); err != nil {
		return errors.Annotatef(err, "checking job %q", name)
	}
	if !exists {
		return errors.NotFoundf("job %q bucket %s", name, bucket.UTC().Format(time.RFC3339))
	}
	return ErrNotAcquired
}

// ListJobs returns records newest bucket first.
func (p *PostgresStore) ListJobs(ctx context.Context, name string, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = listAllLimit
	}

	rows, err := p.db.Query(ctx, listJobsSQL, name, limit)
	if err != nil {
		return nil, errors.Annotate(err, "listing jobs")
	}
	defer rows.Close()

	jobs := make([]Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, errors.Trace(err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Annotate(err, "listing jobs")
	}
	return jobs, nil
}

// DeleteBefore removes records whose bucket is before the given time.
func (p *PostgresStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := p.db.Exec(ctx, deleteJobsBeforeSQL, before)
	if err != nil {
		return 0, errors.Annotate(err, "pruning jobs")
	}
	return tag.RowsAffected(), nil
}

// Close closes the database connection pool if the store owns it.
func (p *PostgresStore) Close() error {
	if p.close != nil {
		p.close()
	}
	return nil
}

func scanJob(row pgx.Row) (Job, error) {
	var (
		job      Job
		stage    string
		finished pgtype.Timestamptz
	)
	if err := row.Scan(&job.Name, &job.Bucket, &stage, &finished); err != nil {
		return Job{}, err
	}
	job.Bucket = job.Bucket.UTC()
	job.Stage = Stage(stage)
	if finished.Valid {
		t := finished.Time.UTC()
		job.FinishedAt = &t
	}
	return job, nil
}
