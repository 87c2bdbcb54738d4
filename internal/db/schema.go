package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is the subset of pgx used to apply the schema.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// schema creates the jobs table. The primary key on (name, bucket) is what makes
// bucket claims atomic across processes.
const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	name        TEXT        NOT NULL,
	bucket      TIMESTAMPTZ NOT NULL,
	stage       TEXT        NOT NULL DEFAULT 'acquired'
	            CHECK (stage IN ('acquired', 'completed', 'failed')),
	finished_at TIMESTAMPTZ,
	PRIMARY KEY (name, bucket)
);
CREATE INDEX IF NOT EXISTS jobs_bucket_idx ON jobs (bucket);
`

// Migrate creates the tables used by the job store. It is idempotent.
func Migrate(ctx context.Context, db Execer) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply jobs schema: %w", err)
	}
	return nil
}
