package server

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/SukhvirKooner/Louder/internal/config"
	"github.com/SukhvirKooner/Louder/internal/datetime"
	"github.com/SukhvirKooner/Louder/internal/mailer"
	"github.com/SukhvirKooner/Louder/internal/metrics"
	"github.com/SukhvirKooner/Louder/internal/rate"
	"github.com/SukhvirKooner/Louder/internal/repository"
	"github.com/SukhvirKooner/Louder/internal/repository/memstore"
	"github.com/SukhvirKooner/Louder/internal/scraper"
	"github.com/SukhvirKooner/Louder/internal/service"
	"github.com/SukhvirKooner/Louder/internal/worker"
	"github.com/SukhvirKooner/Louder/shared/utils/cache"
	"github.com/SukhvirKooner/Louder/shared/utils/id"
)

// App holds every long-lived dependency of the process.
type App struct {
	Config   config.Config
	Logger   *zap.Logger
	Store    *repository.Store
	Cache    *cache.Cache // nil when REDIS_ADDR is unset or unreachable
	Registry *prometheus.Registry

	Events        *service.EventService
	OTP           *service.OTPService
	Subscriptions *service.SubscriptionService
	Worker        *worker.IngestWorker
}

func NewLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	zcfg := zap.NewProductionConfig()
	if format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

func NewApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	// --- Storage ---
	switch cfg.StorageDriver {
	case "memory":
		a.Store = memstore.NewStore()
		logger.Warn("using in-memory storage; data is lost on exit")
	default:
		pool, err := repository.ConnectDB(ctx, cfg.DBConnString)
		if err != nil {
			return nil, fmt.Errorf("connect db: %w", err)
		}
		if err := repository.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		a.Store = repository.NewPostgresStore(pool)
		logger.Info("database connected", zap.Int32("max_conns", pool.Config().MaxConns))
	}

	// --- Redis (optional) ---
	var limiter service.RateLimiter
	if cfg.RateLimitEnabled() {
		c := cache.NewCache([]string{cfg.RedisAddr}, cfg.RedisPass, false)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := c.Ping(pingCtx)
		cancel()
		if err != nil {
			logger.Warn("redis unreachable, rate limiting disabled", zap.Error(err))
			_ = c.Close()
		} else {
			a.Cache = c
			limiter = rate.NewLimiter(c, cfg.OTP_Window, cfg.OTP_MaxPerWindow, cfg.OTP_Cooldown)
			logger.Info("redis connected", zap.String("addr", cfg.RedisAddr))
		}
	}

	// --- Metrics ---
	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(a.Registry)

	// --- Mail ---
	var sender mailer.Sender
	if cfg.SMTPEnabled() {
		sender = mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
	} else {
		sender = mailer.NewLogSender(logger)
		logger.Warn("SMTP_HOST not set, OTP emails will only be logged")
	}

	sf, err := id.NewSnowflake(1)
	if err != nil {
		return nil, fmt.Errorf("init snowflake: %w", err)
	}

	// --- Scraper ---
	parser := scraper.NewParser(datetime.NewNormalizer(time.Now), logger, m)
	pages := scraper.NewHTTPPageFetcher(scraper.NewHTTPClient(cfg.FetchTimeout), cfg.UserAgent)
	fetcher := scraper.NewFetcher(pages, parser, cfg.SourceConcurrency, logger, m)

	// --- Services ---
	a.Events = service.NewEventService(a.Store.Events, fetcher, cfg.Sources, time.Now, logger, m)
	a.OTP = service.NewOTPService(a.Store.OTPs, a.Store.Verifications, limiter, sender, sf,
		service.OTPOptions{TTL: cfg.OTP_TTL, Length: cfg.OTP_Length, Now: time.Now}, logger, m)
	a.Subscriptions = service.NewSubscriptionService(a.Store.Verifications, a.Store.Submissions, a.Store.Events, time.Now, logger, m)
	a.Worker = worker.NewIngestWorker(a.Events, a.OTP, worker.Options{
		Interval:   cfg.ScrapeInterval,
		RunOnStart: cfg.ScrapeOnStart,
		PurgePast:  cfg.PurgePastEvents,
	}, logger)

	return a, nil
}

func (a *App) Close() {
	if a.Cache != nil {
		_ = a.Cache.Close()
	}
	a.Store.Close()
}
