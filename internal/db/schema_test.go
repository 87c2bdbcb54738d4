package db

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

type recordingExecer struct {
	sql []string
	err error
}

func (r *recordingExecer) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	r.sql = append(r.sql, sql)
	return pgconn.CommandTag{}, r.err
}

func TestMigrate_CreatesJobsTable(t *testing.T) {
	ex := &recordingExecer{}
	if err := Migrate(context.Background(), ex); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	if len(ex.sql) != 1 {
		t.Fatalf("Expected one statement batch, got %d", len(ex.sql))
	}
	for _, want := range []string{"CREATE TABLE IF NOT EXISTS jobs", "PRIMARY KEY (name, bucket)", "CREATE INDEX IF NOT EXISTS"} {
		if !strings.Contains(ex.sql[0], want) {
			t.Errorf("Expected schema to contain %q", want)
		}
	}
}

func TestMigrate_WrapsError(t *testing.T) {
	cause := errors.New("permission denied")
	err := Migrate(context.Background(), &recordingExecer{err: cause})
	if !errors.Is(err, cause) {
		t.Fatalf("Expected wrapped cause, got %v", err)
	}
}

func TestNewPool_InvalidDSN(t *testing.T) {
	if _, err := NewPool(context.Background(), "://not a dsn"); err == nil {
		t.Fatal("Expected error for invalid DSN")
	}
}
