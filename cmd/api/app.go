package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/makeuc/lattice/internal/api"
	"github.com/makeuc/lattice/internal/auth"
	"github.com/makeuc/lattice/internal/config"
	"github.com/makeuc/lattice/internal/discovery"
	"github.com/makeuc/lattice/internal/health"
	"github.com/makeuc/lattice/internal/idempotency"
	"github.com/makeuc/lattice/internal/jobs"
	"github.com/makeuc/lattice/internal/match"
	"github.com/makeuc/lattice/internal/middleware"
	"github.com/makeuc/lattice/internal/profile"
	"github.com/makeuc/lattice/internal/ranking"
	"github.com/makeuc/lattice/internal/registration"
	"github.com/makeuc/lattice/internal/tracing"
	"github.com/makeuc/lattice/internal/upload"
	"github.com/makeuc/lattice/migrations"
)

const serviceName = "lattice-api"

// scheduledJob is background work started with the server.
type scheduledJob struct {
	interval time.Duration
	job      jobs.Job
}

// app is the wired API server and the resources it must release on shutdown.
type app struct {
	handler http.Handler
	closers []func(context.Context) error
}

// newApp connects backing services and builds the HTTP handler. With no
// DATABASE_URL the stores are in memory; with no REDIS_URL rate limits are
// kept in process.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{}
	ready := false
	defer func() {
		if !ready {
			_ = a.Close(context.Background())
		}
	}()

	tp, err := tracing.NewProvider(tracing.Config{
		ServiceName:  serviceName,
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		ExporterType: cfg.TracingExporter,
		OTLPEndpoint: cfg.TracingEndpoint,
		SamplingRate: cfg.TracingSamplingRate,
		InsecureMode: cfg.TracingInsecure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.closers = append(a.closers, tp.Shutdown)

	var (
		profiles       profile.Store
		matches        match.Store
		registrants    registration.Repository
		checkers       []api.HealthChecker
		rateLimitStore middleware.RateLimitStore
		replayStore    idempotency.Store
		background     []scheduledJob
	)

	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return db.Close() })
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)

		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := migrations.Apply(ctx, db, logger); err != nil {
			return nil, err
		}

		profiles = profile.NewPostgresStore(db)
		matches = match.NewPostgresLedger(db)
		registrants = registration.NewPostgresRepository(db)
		checkers = append(checkers, health.NewDBChecker(db))
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory stores")
		profiles = profile.NewInMemoryStore()
		matches = match.NewInMemoryLedger()
		registrants = registration.NewInMemoryRepository()
	}

	httpMetrics := middleware.NewMetrics()

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })

		rateLimitStore = middleware.NewRedisRateLimitStore(client, httpMetrics)
		replayStore = idempotency.NewRedisStore(client, idempotency.DefaultExpiry)
		checkers = append(checkers, health.NewRedisChecker(client))
	} else {
		limits := middleware.NewInMemoryRateLimitStore()
		replays := idempotency.NewInMemoryStore()
		rateLimitStore = limits
		replayStore = replays

		background = append(background,
			scheduledJob{time.Minute, jobs.Job{
				Name: jobs.JobTypeRateLimitCleanup,
				Run: func(context.Context) error {
					limits.Cleanup()
					return nil
				},
			}},
			scheduledJob{time.Hour, jobs.Job{
				Name: jobs.JobTypeIdempotencyCleanup,
				Run: func(ctx context.Context) error {
					_, err := idempotency.CleanupOldKeys(ctx, replays, idempotency.DefaultExpiry)
					return err
				},
			}},
		)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	discoveryMetrics := discovery.NewMetrics()
	if err := discoveryMetrics.Register(registry); err != nil {
		return nil, fmt.Errorf("failed to register discovery metrics: %w", err)
	}
	if err := httpMetrics.Register(registry); err != nil {
		return nil, fmt.Errorf("failed to register http metrics: %w", err)
	}
	jobMetrics := jobs.NewMetrics()
	if err := jobMetrics.Register(registry); err != nil {
		return nil, fmt.Errorf("failed to register job metrics: %w", err)
	}
	if len(background) > 0 {
		jobsCtx, stop := context.WithCancel(context.Background())
		for _, sj := range background {
			go jobs.Every(jobsCtx, sj.interval, sj.job, jobMetrics)
		}
		a.closers = append(a.closers, func(context.Context) error { stop(); return nil })
	}

	weights, err := ranking.LoadCalibration(cfg.RankingCalibrationPath)
	if err != nil {
		logger.Warn("using default ranking weights", "error", err)
	}

	ranker, err := discovery.NewService(discovery.ServiceConfig{
		Profiles: profiles,
		Ledger:   matches,
		Weights:  weights,
		Metrics:  discoveryMetrics,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	var uploader registration.ResumeUploader
	if cfg.R2Enabled() {
		svc, err := upload.NewService(upload.ServiceConfig{
			BucketName:      cfg.R2BucketName,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			Endpoint:        cfg.R2Endpoint,
			MaxSizeMB:       cfg.R2MaxUploadSizeMB,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize uploads: %w", err)
		}
		uploader = svc
	} else {
		logger.Warn("R2 not configured, resume uploads disabled")
	}

	var mailer registration.Mailer
	if cfg.SendGridAPIKey != "" {
		sg, err := registration.NewSendGridMailer(registration.SendGridConfig{APIKey: cfg.SendGridAPIKey, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize mailer: %w", err)
		}
		mailer = sg
	} else {
		logger.Warn("SENDGRID_API_KEY not set, verification emails will only be logged")
		mailer = registration.NewLogMailer(logger)
	}

	registrations, err := registration.NewService(registration.ServiceConfig{
		Repository: registrants,
		Mailer:     mailer,
		Uploader:   uploader,
		Mail: registration.MailConfig{
			FromAddress: cfg.MailFrom,
			ServerHost:  cfg.ServerHost,
			WebsiteURL:  cfg.WebsiteURL,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	a.handler = api.NewRouter(api.RouterConfig{
		Profiles:      api.NewProfileHandlers(profile.NewService(profiles, logger), ranker),
		Matches:       api.NewMatchHandlers(match.NewService(matches, profiles, logger)),
		Registrations: api.NewRegistrationHandlers(registrations, cfg.WebsiteURL),
		Health:        api.NewHealthHandlers(checkers...),

		Tokens: auth.NewJWTService(auth.Config{
			Secret:         cfg.JWTSecret,
			PreviousSecret: cfg.JWTPreviousSecret,
		}),

		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		Metrics:        httpMetrics,

		RateLimitStore: rateLimitStore,
		RateLimit: middleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimitRequests,
			WindowDuration:    time.Duration(cfg.RateLimitWindowSeconds) * time.Second,
		},
		Idempotency: replayStore,

		CORS:        middleware.WebsiteCORS(cfg.WebsiteURL),
		ServiceName: serviceName,
		Logger:      logger,
	})
	ready = true
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
