// Package app is the composition root: it turns a Config into a wired set of
// services with their backing stores, audit pipeline, and platform clients.
// Callers embed App in whatever outer surface they own; this module exposes
// no transport of its own.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"credtrust/internal/audit"
	"credtrust/internal/credential"
	"credtrust/internal/dispute"
	"credtrust/internal/export"
	"credtrust/internal/platform/config"
	"credtrust/internal/platform/database"
	"credtrust/internal/platform/metrics"
	redisclient "credtrust/internal/platform/redis"
	"credtrust/internal/proof"
	"credtrust/internal/sharing"
	"credtrust/internal/token"
)

// App bundles the wired services and owns the lifecycle of their backing
// resources.
type App struct {
	Credentials *credential.Service
	Sharing     *sharing.Service
	Disputes    *dispute.Service
	Exports     *export.Service
	Audit       audit.Store

	logger    *slog.Logger
	pool      *database.Pool
	redis     *redisclient.Client
	publisher *audit.Publisher
	worker    *audit.Worker

	cancelWorker context.CancelFunc
	workerDone   chan struct{}
}

// New wires the application. Stores fall back to in-memory implementations
// for every backend the config leaves empty, so a zero Config yields a fully
// functional single-process instance.
func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	if cfg.DownloadTTL <= 0 {
		cfg.DownloadTTL = config.DefaultDownloadTTL
	}
	if cfg.AuditBuffer <= 0 {
		cfg.AuditBuffer = config.DefaultAuditBuffer
	}
	if cfg.AuditTopic == "" {
		cfg.AuditTopic = "credtrust.audit"
	}

	a := &App{logger: logger}
	m := metrics.New(prometheus.NewRegistry())

	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.PostgresURL
	pool, err := database.New(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	a.pool = pool

	redisClient, err := redisclient.New(cfg.RedisAddr)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	a.redis = redisClient

	var (
		credStore    credential.Store
		sharingStore sharing.Store
		disputeStore dispute.Store
		exportStore  export.Store
		auditStore   audit.Store
	)
	if pool != nil {
		credStore = credential.NewPostgresStore(pool.DB())
		sharingStore = sharing.NewPostgresStore(pool.DB())
		disputeStore = dispute.NewPostgresStore(pool.DB())
		exportStore = export.NewPostgresStore(pool.DB())
		auditStore = audit.NewPostgresStore(pool.DB())
	} else {
		credStore = credential.NewInMemoryStore()
		sharingStore = sharing.NewInMemoryStore()
		disputeStore = dispute.NewInMemoryStore()
		exportStore = export.NewInMemoryStore()
		auditStore = audit.NewInMemoryStore()
	}
	a.Audit = auditStore

	sinks := []audit.Sink{auditStore}
	if cfg.KafkaBrokers != "" {
		publisher, err := audit.NewPublisher(audit.PublisherConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.AuditTopic,
		}, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect kafka: %w", err)
		}
		a.publisher = publisher
		sinks = append(sinks, publisher)
	}

	a.worker = audit.NewWorker(cfg.AuditBuffer, logger, m.IncAuditAppendFailure, sinks...)
	workerCtx, cancel := context.WithCancel(context.Background())
	a.cancelWorker = cancel
	a.workerDone = make(chan struct{})
	go func() {
		defer close(a.workerDone)
		if err := a.worker.Run(workerCtx); err != nil && logger != nil {
			logger.Error("audit worker stopped", "error", err)
		}
	}()

	recorder := audit.NewRecorder(a.worker,
		audit.WithLogger(logger),
		audit.WithMetrics(m),
	)

	tokens := token.NewService(cfg.TokenSigningKey, "credtrust", "credtrust-download")

	a.Credentials = credential.NewService(credStore, proof.NewSyntheticProvider(), recorder,
		credential.WithLogger(logger),
		credential.WithMetrics(m),
	)

	sharingOpts := []sharing.Option{
		sharing.WithLogger(logger),
		sharing.WithMetrics(m),
	}
	if cfg.GrantTTL > 0 {
		sharingOpts = append(sharingOpts, sharing.WithDefaultGrantTTL(cfg.GrantTTL))
	}
	if redisClient != nil {
		sharingOpts = append(sharingOpts, sharing.WithTokenIndex(sharing.NewRedisTokenIndex(redisClient.Client)))
	}
	a.Sharing = sharing.NewService(sharingStore, recorder, sharingOpts...)

	a.Disputes = dispute.NewService(disputeStore, credStore, recorder,
		dispute.WithLogger(logger),
		dispute.WithMetrics(m),
	)

	a.Exports = export.NewService(exportStore, credStore, tokens, recorder,
		export.WithLogger(logger),
		export.WithMetrics(m),
		export.WithDownloadTTL(cfg.DownloadTTL),
	)

	return a, nil
}

// Health pings every configured backend. Memory-backed instances always
// report healthy.
func (a *App) Health(ctx context.Context) error {
	if a.pool != nil {
		if err := a.pool.Health(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Health(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Close stops the audit worker and releases every backing resource. Safe to
// call on a partially constructed App.
func (a *App) Close() {
	if a.cancelWorker != nil {
		a.cancelWorker()
		<-a.workerDone
	}
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.redis != nil {
		a.redis.Close() //nolint:errcheck // best-effort shutdown
	}
	if a.pool != nil {
		a.pool.Close() //nolint:errcheck // best-effort shutdown
	}
}
