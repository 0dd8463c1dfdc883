package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ledgerguard/internal/compliance/handler"
	complianceMetrics "ledgerguard/internal/compliance/metrics"
	"ledgerguard/internal/compliance/service"
	"ledgerguard/internal/jobs"
	jwttoken "ledgerguard/internal/jwt_token"
	"ledgerguard/internal/ledger"
	"ledgerguard/internal/ledger/lock"
	ledgerMetrics "ledgerguard/internal/ledger/metrics"
	"ledgerguard/internal/ledger/store/memory"
	"ledgerguard/internal/ledger/store/postgres"
	"ledgerguard/internal/platform/config"
	"ledgerguard/internal/platform/db"
	"ledgerguard/internal/platform/kafka"
	httpMetrics "ledgerguard/internal/platform/metrics"
	"ledgerguard/internal/platform/redis"
	rlmetrics "ledgerguard/internal/ratelimit/metrics"
	rlmiddleware "ledgerguard/internal/ratelimit/middleware"
	rlmodels "ledgerguard/internal/ratelimit/models"
	"ledgerguard/internal/ratelimit/store/bucket"
	"ledgerguard/internal/rules"
	"ledgerguard/pkg/platform/clock"
)

type app struct {
	router  http.Handler
	jobs    []func(context.Context) error
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func build(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	a := &app{}
	clk := clock.System{}
	health := &healthChecks{}

	store, sqlDB, err := openStore(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if sqlDB != nil {
		a.closers = append(a.closers, func() { _ = sqlDB.Close() })
		health.add("database", sqlDB.PingContext)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, log)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	lm := ledgerMetrics.New()
	ledgerOpts := []ledger.Option{
		ledger.WithLogger(log),
		ledger.WithMetrics(lm),
		ledger.WithMaxAttempts(cfg.Ledger.AppendAttempts),
	}
	if redisClient != nil {
		a.closers = append(a.closers, func() { _ = redisClient.Close() })
		health.add("redis", redisClient.Health)
		ledgerOpts = append(ledgerOpts, ledger.WithLocker(lock.NewRedisLocker(redisClient.Client, redisClient.LockKey(),
			lock.WithTTL(cfg.Redis.LockTTL),
			lock.WithWait(cfg.Redis.LockWait),
		)))
	}
	chain := ledger.New(store, clk, ledgerOpts...)

	catalog := rules.DefaultCatalog()
	if cfg.Rules.CatalogFile != "" {
		if catalog, err = rules.LoadFile(catalog, cfg.Rules.CatalogFile); err != nil {
			a.close()
			return nil, fmt.Errorf("load rule catalog: %w", err)
		}
		log.Info("rule catalog loaded", "file", cfg.Rules.CatalogFile, "rules", len(catalog.Rules()))
	}

	cm := complianceMetrics.New()
	svcOpts := []service.Option{service.WithLogger(log), service.WithMetrics(cm)}
	if cfg.Rules.Parallelism > 0 {
		svcOpts = append(svcOpts, service.WithParallelism(cfg.Rules.Parallelism))
	}
	svc := service.New(chain, catalog, clk, svcOpts...)

	auditor := jobs.NewChainAuditor(chain, cfg.Jobs.AuditInterval, log)
	scanner := jobs.NewEscalationScanner(svc, clk, cfg.Jobs.EscalationInterval, log, cm)
	a.jobs = append(a.jobs, auditor.Start, scanner.Start)
	health.auditor = auditor

	producer, err := kafka.NewProducer(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("connect kafka: %w", err)
	}
	if producer != nil {
		a.closers = append(a.closers, producer.Close)
		health.add("kafka", producer.Health)
		if err := producer.EnsureTopic(ctx, cfg.Kafka.Partitions, cfg.Kafka.ReplicationFactor); err != nil {
			a.close()
			return nil, err
		}
		var cursor jobs.Cursor = &jobs.MemoryCursor{}
		if redisClient != nil {
			cursor = jobs.NewRedisCursor(redisClient.Client, redisClient.CursorKey())
		}
		shipper := jobs.NewLedgerShipper(chain, producer, cursor, cfg.Kafka.ShipInterval, log, lm)
		a.jobs = append(a.jobs, shipper.Start)
	}

	tokens := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.Audience)
	h := handler.New(svc, chain, clk, log, httpMetrics.New(), jwttoken.NewJWTServiceAdapter(tokens),
		handler.WithRateLimiter(newRateLimiter(cfg.Limits, redisClient, clk, log)))

	r := chi.NewRouter()
	r.Get("/health", health.handle)
	r.Handle("/metrics", promhttp.Handler())
	h.Register(r)
	a.router = r
	return a, nil
}

// newRateLimiter keeps budgets in Redis when it is configured, falling back
// to per-process counters while Redis is failing.
func newRateLimiter(cfg config.LimitsConfig, redisClient *redis.Client, clk clock.Clock, log *slog.Logger) *rlmiddleware.Middleware {
	limits := map[rlmodels.EndpointClass]rlmodels.Limit{
		rlmodels.ClassCheck:  {Requests: cfg.CheckRequests, Window: cfg.Window},
		rlmodels.ClassRead:   {Requests: cfg.ReadRequests, Window: cfg.Window},
		rlmodels.ClassVerify: {Requests: cfg.VerifyRequests, Window: cfg.Window},
	}
	opts := []rlmiddleware.Option{
		rlmiddleware.WithDisabled(!cfg.Enabled),
		rlmiddleware.WithMetrics(rlmetrics.New()),
	}
	local := bucket.NewInMemoryBucketStore(clk)
	if redisClient == nil {
		return rlmiddleware.New(local, limits, log, opts...)
	}
	opts = append(opts, rlmiddleware.WithFallback(local, rlmiddleware.BreakerPolicy{
		Trip:    cfg.FailureThreshold,
		Recover: cfg.RecoverySuccesses,
	}))
	return rlmiddleware.New(bucket.NewRedisBucketStore(redisClient.Client, clk), limits, log, opts...)
}

// openStore returns the Postgres store when a DSN is configured and the
// in-memory store otherwise.
func openStore(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (ledger.Store, *sql.DB, error) {
	if cfg.DSN == "" {
		log.Warn("no database configured, ledger is held in memory and lost on restart")
		return memory.NewInMemoryStore(), nil, nil
	}
	sqlDB, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.MigrateOnStart {
		if err := db.RunMigrations(sqlDB, "up"); err != nil {
			_ = sqlDB.Close()
			return nil, nil, err
		}
	}
	return postgres.New(sqlDB), sqlDB, nil
}
