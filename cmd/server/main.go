package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/TimurManjosov/flagship-core/internal/api"
	"github.com/TimurManjosov/flagship-core/internal/config"
	"github.com/TimurManjosov/flagship-core/internal/jobs"
	"github.com/TimurManjosov/flagship-core/internal/logging"
	"github.com/TimurManjosov/flagship-core/internal/rollout"
	"github.com/TimurManjosov/flagship-core/internal/store"
	"github.com/TimurManjosov/flagship-core/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr).With("env", cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *logging.ZeroLogger) error {
	telemetry.Init()

	jobStore, err := store.NewJobStore(ctx, store.FactoryOptions{
		Type:          cfg.StoreType,
		DatabaseDSN:   cfg.DatabaseDSN,
		NATSURL:       cfg.NATSURL,
		NATSBucket:    cfg.NATSBucket,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		Retention:     cfg.JobRetention,
	})
	if err != nil {
		return fmt.Errorf("job store: %w", err)
	}
	defer func() {
		if err := jobStore.Close(); err != nil {
			logger.Warn("closing job store", "error", err)
		}
	}()
	logger.Info("job store ready", "type", cfg.StoreType)

	svc := jobs.NewService(jobStore, logger, nil)
	runner := jobs.NewRunner(logger, cfg.BucketSize())
	if pruner, ok := jobStore.(store.JobPruner); ok && cfg.JobRetention > 0 {
		job := svc.SingleInstance(jobs.RetentionJobName, jobs.RetentionJob(pruner, cfg.JobRetention, logger), cfg.BucketSize())
		if err := runner.Register(jobs.RetentionJobName, jobs.EverySchedule(cfg.BucketSize()), job); err != nil {
			return fmt.Errorf("register %s: %w", jobs.RetentionJobName, err)
		}
	}
	runner.Start()
	defer runner.Stop()

	evaluator := rollout.NewEvaluator(nil, rollout.HashByName(cfg.RolloutHash))
	srvAPI := api.NewServer(evaluator, jobStore, cfg.AdminAPIKey, logger).WithEvaluateRateLimit(cfg.EvalRateLimit)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srvAPI.Router(),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	metricsSrv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 3 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()
	go func() {
		logger.Info("metrics listening", "addr", cfg.MetricsAddr)
		if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case runErr = <-errCh:
	}

	ctxShut, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShut)
	_ = metricsSrv.Shutdown(ctxShut)
	logger.Info("stopped")
	return runErr
}
