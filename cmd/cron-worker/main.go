package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/maplecart/storefront-backend/internal/cart"
	"github.com/maplecart/storefront-backend/internal/cron"
	"github.com/maplecart/storefront-backend/internal/emails"
	"github.com/maplecart/storefront-backend/internal/flashsales"
	"github.com/maplecart/storefront-backend/internal/products"
	"github.com/maplecart/storefront-backend/internal/settings"
	"github.com/maplecart/storefront-backend/internal/undo"
	"github.com/maplecart/storefront-backend/pkg/config"
	"github.com/maplecart/storefront-backend/pkg/db"
	"github.com/maplecart/storefront-backend/pkg/logger"
	"github.com/maplecart/storefront-backend/pkg/mailer"
	"github.com/maplecart/storefront-backend/pkg/metrics"
	"github.com/maplecart/storefront-backend/pkg/migrate"
	"github.com/maplecart/storefront-backend/pkg/redis"
)

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	jobName := flag.String("job", "", "run only the named job once and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	integrationMetrics := metrics.NewIntegrationMetrics(prometheus.DefaultRegisterer)
	emailSvc, cartSvc, err := buildJobServices(cfg, logg, dbClient, redisClient, integrationMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to build job services", err)
		os.Exit(1)
	}

	abandonedJob, err := cron.NewAbandonedCartJob(cron.AbandonedCartJobParams{
		Logger:         logg,
		Carts:          cartSvc,
		AbandonedAfter: cfg.Cron.AbandonedAfter,
		Batch:          cfg.Cron.RecoveryBatch,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create abandoned cart job", err)
		os.Exit(1)
	}
	retentionJob, err := cron.NewEmailLogRetentionJob(cron.EmailLogRetentionJobParams{
		Logger:    logg,
		Emails:    emailSvc,
		Retention: cfg.Cron.EmailLogRetention,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create email retention job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron"), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   cron.NewRegistry(abandonedJob, retentionJob),
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Cron.Interval.String(),
	})

	switch {
	case *jobName != "":
		if err := service.RunJob(ctx, *jobName); err != nil {
			logg.Error(logg.WithField(ctx, "job", *jobName), "cron job run failed", err)
			os.Exit(1)
		}
		return
	case *once:
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "cron cycle failed", err)
			os.Exit(1)
		}
		return
	}

	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

// buildJobServices wires the slice of the domain the jobs touch. Products
// are only needed to price carts, so deletes are never scheduled here.
func buildJobServices(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	integrationMetrics *metrics.IntegrationMetrics,
) (emails.Service, cart.Service, error) {
	gdb := dbClient.DB()

	settingsSvc, err := settings.NewService(settings.ServiceParams{
		Repo:     settings.NewRepository(gdb),
		Cache:    redisClient,
		Logger:   logg,
		CacheTTL: cfg.Cache.SettingsTTL,
	})
	if err != nil {
		return nil, nil, err
	}
	flashSvc, err := flashsales.NewService(flashsales.NewRepository(gdb), settingsSvc, logg)
	if err != nil {
		return nil, nil, err
	}
	productSvc, err := products.NewService(products.ServiceParams{
		Repo:       products.NewRepository(gdb),
		DB:         dbClient,
		FlashSales: flashSvc,
		Settings:   settingsSvc,
		Undo:       undo.NewScheduler(cfg.Undo.DeleteDelay, logg),
		Logger:     logg,
	})
	if err != nil {
		return nil, nil, err
	}

	var sender emails.Sender = emails.NoopSender{}
	if cfg.Email.APIKey != "" {
		client, err := mailer.NewClient(cfg.Email.APIKey, cfg.Email.FromAddress, mailer.WithBaseURL(cfg.Email.BaseURL))
		if err != nil {
			return nil, nil, err
		}
		sender = client
	} else {
		logg.Warn(context.Background(), "email api key missing; recovery emails will be logged as failed")
	}

	emailSvc, err := emails.NewService(emails.ServiceParams{
		Repo:      emails.NewRepository(gdb),
		Sender:    sender,
		Metrics:   integrationMetrics,
		Logger:    logg,
		StoreName: cfg.Email.StoreName,
		StoreURL:  cfg.Store.PublicURL,
	})
	if err != nil {
		return nil, nil, err
	}

	cartSvc, err := cart.NewService(cart.ServiceParams{
		Repo:     cart.NewRepository(gdb),
		DB:       dbClient,
		Products: productSvc,
		Mailer:   emailSvc,
		Logger:   logg,
	})
	if err != nil {
		return nil, nil, err
	}
	return emailSvc, cartSvc, nil
}
