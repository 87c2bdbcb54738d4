package store

import (
	"context"
	"fmt"
	"time"

	mydb "github.com/TimurManjosov/flagship-core/internal/db"
	"github.com/juju/clock"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	redis "github.com/redis/go-redis/v9"
)

// FactoryOptions selects and configures a JobStore backend.
type FactoryOptions struct {
	Type string // memory, postgres, nats, redis

	DatabaseDSN string

	NATSURL    string
	NATSBucket string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Retention is used as the record TTL by the nats and redis backends.
	Retention time.Duration

	// Clock drives bucket computation for the memory, nats and redis backends.
	// Postgres uses the database clock.
	Clock clock.Clock
}

// NewJobStore creates a new store based on opts.Type.
// Supported types: "memory", "postgres", "nats", "redis"
func NewJobStore(ctx context.Context, opts FactoryOptions) (JobStore, error) {
	switch opts.Type {
	case "memory":
		return NewMemoryStore(opts.Clock), nil
	case "postgres":
		return newPostgres(ctx, opts)
	case "nats":
		return newNATS(ctx, opts)
	case "redis":
		return newRedis(ctx, opts)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", opts.Type)
	}
}

func newPostgres(ctx context.Context, opts FactoryOptions) (JobStore, error) {
	pool, err := mydb.Open(ctx, opts.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	return NewPostgresStore(pool, pool.Close), nil
}

func newNATS(ctx context.Context, opts FactoryOptions) (JobStore, error) {
	nc, err := nats.Connect(opts.NATSURL, nats.Name("flagship"), nats.Timeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create jetstream context: %w", err)
	}
	st, err := NewNATSStore(ctx, js, opts.NATSBucket, opts.Retention, opts.Clock)
	if err != nil {
		nc.Close()
		return nil, err
	}
	st.conn = nc
	return st, nil
}

func newRedis(ctx context.Context, opts FactoryOptions) (JobStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.RedisAddr,
		Password: opts.RedisPassword,
		DB:       opts.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return NewRedisStore(rdb, opts.Retention, opts.Clock, true), nil
}
