package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/maplecart/storefront-backend/api/routes"
	"github.com/maplecart/storefront-backend/internal/admins"
	"github.com/maplecart/storefront-backend/internal/analytics"
	"github.com/maplecart/storefront-backend/internal/cart"
	"github.com/maplecart/storefront-backend/internal/emails"
	"github.com/maplecart/storefront-backend/internal/flashsales"
	"github.com/maplecart/storefront-backend/internal/images"
	"github.com/maplecart/storefront-backend/internal/orders"
	"github.com/maplecart/storefront-backend/internal/products"
	"github.com/maplecart/storefront-backend/internal/qrcodes"
	"github.com/maplecart/storefront-backend/internal/seo"
	"github.com/maplecart/storefront-backend/internal/settings"
	"github.com/maplecart/storefront-backend/internal/shipping"
	"github.com/maplecart/storefront-backend/internal/undo"
	"github.com/maplecart/storefront-backend/pkg/chitchats"
	"github.com/maplecart/storefront-backend/pkg/config"
	"github.com/maplecart/storefront-backend/pkg/db"
	"github.com/maplecart/storefront-backend/pkg/logger"
	"github.com/maplecart/storefront-backend/pkg/mailer"
	"github.com/maplecart/storefront-backend/pkg/metrics"
	"github.com/maplecart/storefront-backend/pkg/migrate"
	"github.com/maplecart/storefront-backend/pkg/redis"
	"github.com/maplecart/storefront-backend/pkg/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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
	scheduler := undo.NewScheduler(cfg.Undo.DeleteDelay, logg)

	services, err := buildServices(cfg, logg, dbClient, redisClient, scheduler, integrationMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to build services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, services, metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutting down api server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "api server shutdown failed", err)
	}
	// pending undo windows are flushed so scheduled deletes still happen
	if err := scheduler.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "undo scheduler shutdown failed", err)
	}
}

func buildServices(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	scheduler *undo.Scheduler,
	integrationMetrics *metrics.IntegrationMetrics,
) (routes.Services, error) {
	gdb := dbClient.DB()

	settingsSvc, err := settings.NewService(settings.ServiceParams{
		Repo:     settings.NewRepository(gdb),
		Cache:    redisClient,
		Logger:   logg,
		CacheTTL: cfg.Cache.SettingsTTL,
	})
	if err != nil {
		return routes.Services{}, err
	}

	flashSvc, err := flashsales.NewService(flashsales.NewRepository(gdb), settingsSvc, logg)
	if err != nil {
		return routes.Services{}, err
	}

	productSvc, err := products.NewService(products.ServiceParams{
		Repo:       products.NewRepository(gdb),
		DB:         dbClient,
		FlashSales: flashSvc,
		Settings:   settingsSvc,
		Undo:       scheduler,
		Logger:     logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	shippingSvc, err := shipping.NewService(shipping.NewRepository(gdb), dbClient, settingsSvc, logg)
	if err != nil {
		return routes.Services{}, err
	}

	emailSvc, err := emails.NewService(emails.ServiceParams{
		Repo:      emails.NewRepository(gdb),
		Sender:    newSender(cfg, logg),
		Metrics:   integrationMetrics,
		Logger:    logg,
		StoreName: cfg.Email.StoreName,
		StoreURL:  cfg.Store.PublicURL,
	})
	if err != nil {
		return routes.Services{}, err
	}

	ordersRepo := orders.NewRepository(gdb)
	orderParams := orders.ServiceParams{
		Repo:     ordersRepo,
		Notifier: emailSvc,
		Logger:   logg,
	}
	if cfg.ChitChats.Enabled() {
		carrier, err := chitchats.NewClient(cfg.ChitChats.ClientID, cfg.ChitChats.AccessToken,
			chitchats.WithBaseURL(cfg.ChitChats.BaseURL),
			chitchats.WithTimeout(cfg.ChitChats.Timeout),
			chitchats.WithObserver(func(operation string, started time.Time, err error) {
				integrationMetrics.ObserveCall("chitchats", operation, started, err)
			}),
		)
		if err != nil {
			return routes.Services{}, err
		}
		orderParams.Carrier = carrier
	} else {
		logg.Warn(context.Background(), "chitchats credentials missing; shipping actions disabled")
	}
	orderSvc, err := orders.NewService(orderParams)
	if err != nil {
		return routes.Services{}, err
	}

	cartRepo := cart.NewRepository(gdb)
	cartSvc, err := cart.NewService(cart.ServiceParams{
		Repo:     cartRepo,
		DB:       dbClient,
		Products: productSvc,
		Mailer:   emailSvc,
		Logger:   logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	qrSvc, err := qrcodes.NewService(qrcodes.ServiceParams{
		Repo:     qrcodes.NewRepository(gdb),
		Undo:     scheduler,
		Logger:   logg,
		ScanBase: cfg.Store.QRScanBase(),
	})
	if err != nil {
		return routes.Services{}, err
	}

	var imageSvc images.Service
	objectStore, err := storage.NewClient(context.Background(), cfg.Storage, logg)
	switch {
	case errors.Is(err, storage.ErrNotConfigured):
		logg.Warn(context.Background(), "storage not configured; image uploads disabled")
	case err != nil:
		return routes.Services{}, err
	default:
		imageSvc, err = images.NewService(images.NewRepository(gdb), objectStore, cfg.Storage.MaxUploadBytes(), logg)
		if err != nil {
			return routes.Services{}, err
		}
	}

	seoRepo := seo.NewRepository(gdb)
	seoSvc, err := seo.NewService(seo.ServiceParams{
		Repo:       seoRepo,
		Pinger:     seo.NewPinger(cfg.SEO.PingEndpoints, integrationMetrics),
		SitemapURL: cfg.SEO.SitemapURL,
		Logger:     logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	analyticsSvc, err := analytics.NewService(ordersRepo, cartRepo, seoRepo)
	if err != nil {
		return routes.Services{}, err
	}

	adminSvc, err := admins.NewService(admins.ServiceParams{
		Repo:   admins.NewRepository(gdb),
		DB:     dbClient,
		Mailer: emailSvc,
		Logger: logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Products:   productSvc,
		FlashSales: flashSvc,
		Settings:   settingsSvc,
		Shipping:   shippingSvc,
		Orders:     orderSvc,
		Carts:      cartSvc,
		Emails:     emailSvc,
		QRCodes:    qrSvc,
		Images:     imageSvc,
		SEO:        seoSvc,
		Analytics:  analyticsSvc,
		Admins:     adminSvc,
	}, nil
}

func newSender(cfg *config.Config, logg *logger.Logger) emails.Sender {
	if cfg.Email.APIKey == "" {
		logg.Warn(context.Background(), "email api key missing; sends will be logged as failed")
		return emails.NoopSender{}
	}
	client, err := mailer.NewClient(cfg.Email.APIKey, cfg.Email.FromAddress, mailer.WithBaseURL(cfg.Email.BaseURL))
	if err != nil {
		logg.Error(context.Background(), "failed to build mailer; falling back to noop sender", err)
		return emails.NoopSender{}
	}
	return client
}
