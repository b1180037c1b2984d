package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/payboard/payboard-backend/api/routes"
	"github.com/payboard/payboard-backend/internal/analytics"
	"github.com/payboard/payboard-backend/internal/audit"
	"github.com/payboard/payboard-backend/internal/paymentinfo"
	"github.com/payboard/payboard-backend/internal/payments"
	"github.com/payboard/payboard-backend/internal/sellers"
	"github.com/payboard/payboard-backend/internal/users"
	"github.com/payboard/payboard-backend/pkg/cache"
	"github.com/payboard/payboard-backend/pkg/config"
	"github.com/payboard/payboard-backend/pkg/db"
	"github.com/payboard/payboard-backend/pkg/discord"
	"github.com/payboard/payboard-backend/pkg/logger"
	"github.com/payboard/payboard-backend/pkg/metrics"
	"github.com/payboard/payboard-backend/pkg/migrate"
	"github.com/payboard/payboard-backend/pkg/outbox"
	"github.com/payboard/payboard-backend/pkg/redis"
	"github.com/payboard/payboard-backend/pkg/sheets"
)

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
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = "sqlite"
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
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

	registry := prometheus.NewRegistry()
	storeMetrics := metrics.NewStoreMetrics(registry)

	sheetsClient, err := sheets.NewClient(context.Background(), cfg.Sheets, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap sheets client", err)
		os.Exit(1)
	}
	store, err := sheets.NewAdapter(sheetsClient, storeMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create row store", err)
		os.Exit(1)
	}

	cacheLayer, err := cache.New(redisClient, cfg.Cache)
	if err != nil {
		logg.Error(context.Background(), "failed to create cache layer", err)
		os.Exit(1)
	}
	cacheLayer = cacheLayer.WithMetrics(metrics.NewCacheMetrics(registry))

	auditService, err := audit.NewService(audit.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create audit service", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	infoService, err := paymentinfo.NewService(store)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment info service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(payments.Deps{
		Store:  store,
		Audit:  auditService,
		Events: outboxService,
		Tx:     dbClient,
		Cache:  cacheLayer,
		Info:   infoService,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	usersService, err := users.NewService(users.Deps{
		Store:    store,
		Cache:    cacheLayer,
		Password: cfg.Password,
		Admin:    cfg.Admin,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	sellersService, err := sellers.NewService(store, cacheLayer, logg, nil)
	if err != nil {
		logg.Error(context.Background(), "failed to create sellers service", err)
		os.Exit(1)
	}

	analyticsService, err := analytics.NewService(paymentsService, nil)
	if err != nil {
		logg.Error(context.Background(), "failed to create analytics service", err)
		os.Exit(1)
	}

	var oauthClient *discord.OAuthClient
	if cfg.Discord.ClientID != "" {
		oauthClient, err = discord.NewOAuthClient(cfg.Discord, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create discord oauth client", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "discord oauth not configured, code login disabled")
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
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config: cfg,
			Logger: logg,
			ReadyProbes: map[string]func(context.Context) error{
				"database": dbClient.Ping,
				"redis":    redisClient.Ping,
			},
			Registry:    registry,
			OAuth:       oauthClient,
			Payments:    paymentsService,
			Audit:       auditService,
			Users:       usersService,
			Sellers:     sellersService,
			PaymentInfo: infoService,
			Analytics:   analyticsService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
