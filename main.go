package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"google.golang.org/api/option"

	"immo-scraper/config"
	"immo-scraper/metrics"
	"immo-scraper/notify"
	"immo-scraper/pipeline"
	"immo-scraper/scraper/immo"
	"immo-scraper/server"
	"immo-scraper/services"
	"immo-scraper/storage"
	"immo-scraper/utils"
)

const pushJob = "immo_scraper"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(cfg.LogEnv, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *utils.Logger) error {
	logger.Info("=== Immo Scraper starting ===")
	logger.Info("Config: fetcher %s | store %s | schedule %q | alerts score>%.0f dist<=%.1fkm rent<%.0f",
		cfg.Fetcher, cfg.Store, cfg.Schedule, cfg.AlertMinScore, cfg.AlertMaxDistanceKm, cfg.AlertMaxHotRent)

	retry := &utils.RetryConfig{
		MaxAttempts: cfg.MaxRetries,
		BaseDelay:   2 * time.Second,
		Logger:      logger,
	}

	store, err := openStore(ctx, cfg, retry)
	if err != nil {
		return err
	}
	defer store.Close()

	fetcher, closeFetcher, err := openFetcher(cfg, logger)
	if err != nil {
		return err
	}
	defer closeFetcher()

	scraper, err := immo.New(
		fetcher,
		services.NewNormalizer(cfg.BaseURL, cfg.MapsBaseURL, logger),
		services.NewScorer(services.Point{Lat: cfg.CenterLat, Lon: cfg.CenterLon}),
		cfg.BaseURL,
		logger,
	)
	if err != nil {
		return err
	}

	var notifier pipeline.Notifier
	if cfg.NotificationsEnabled() {
		notifier = notify.NewTelegram(nil, cfg.TelegramBaseURL, cfg.BotToken,
			cfg.NotifyWorkers, cfg.NotifyRateLimitMs, logger)
	} else {
		logger.Warn("BOT_TOKEN not set, notifications disabled")
	}

	p := pipeline.New(scraper, store, notifier, pipeline.Options{
		SearchURL:        cfg.SearchURL,
		ApplicationState: cfg.ApplicationState,
		AlertRule: services.AlertRule{
			MinScore:      cfg.AlertMinScore,
			MaxDistanceKm: cfg.AlertMaxDistanceKm,
			MaxHotRent:    cfg.AlertMaxHotRent,
		},
		AlertRecipients:   cfg.AlertRecipients(),
		SummaryRecipients: cfg.SummaryRecipients(),
		Report:            os.Stdout,
	}, logger)

	if cfg.Schedule == "" {
		return runOnce(ctx, cfg, p, logger)
	}
	return runScheduled(ctx, cfg, p, logger)
}

func runOnce(ctx context.Context, cfg *config.Config, p *pipeline.Pipeline, logger *utils.Logger) error {
	_, runErr := p.Run(ctx)

	if cfg.PushgatewayURL != "" {
		if err := metrics.Push(ctx, cfg.PushgatewayURL, pushJob); err != nil {
			logger.Warn("%v", err)
		}
	}
	return runErr
}

func runScheduled(ctx context.Context, cfg *config.Config, p *pipeline.Pipeline, logger *utils.Logger) error {
	cl := cronLogger{logger}
	c := cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	if _, err := c.AddFunc(cfg.Schedule, func() { _, _ = p.Run(ctx) }); err != nil {
		return fmt.Errorf("invalid SCHEDULE %q: %w", cfg.Schedule, err)
	}
	c.Start()
	logger.Info("Scheduled runs on %q", cfg.Schedule)

	var srvErr error
	if cfg.MetricsAddr != "" {
		srvErr = server.New(cfg.MetricsAddr, p, logger).Run(ctx)
	} else {
		<-ctx.Done()
	}

	logger.Info("Shutting down, waiting for a running job")
	<-c.Stop().Done()
	return srvErr
}

func openStore(ctx context.Context, cfg *config.Config, retry *utils.RetryConfig) (storage.ListingStore, error) {
	switch cfg.Store {
	case "sheets":
		return storage.NewSheetsStore(ctx, cfg.SheetID, cfg.SheetRange,
			option.WithCredentialsFile(cfg.CredentialsFile))
	case "postgres":
		return storage.NewPostgresStore(ctx, cfg.DSN(), retry)
	case "redis":
		return storage.NewRedisStore(ctx, &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, cfg.RedisKeyPrefix, retry)
	default:
		return storage.NewCSVStore(cfg.CSVPath)
	}
}

func openFetcher(cfg *config.Config, logger *utils.Logger) (immo.PageFetcher, func(), error) {
	if cfg.Fetcher == "browser" {
		bf, err := immo.NewBrowserFetcher(cfg.BaseURL, cfg.ChromeBin, cfg.UserAgent, logger)
		if err != nil {
			return nil, nil, err
		}
		return bf, func() { _ = bf.Close() }, nil
	}
	return immo.NewHTTPFetcher(nil, cfg.UserAgent, logger), func() {}, nil
}

// cronLogger routes cron's own messages through the application logger.
type cronLogger struct {
	l *utils.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("[cron] %s %v", msg, keysAndValues)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("[cron] %s: %v %v", msg, err, keysAndValues)
}
