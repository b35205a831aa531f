package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/freightdesk/logistics-backend/internal/consumers"
	"github.com/freightdesk/logistics-backend/internal/exports"
	"github.com/freightdesk/logistics-backend/internal/orders"
	"github.com/freightdesk/logistics-backend/internal/products"
	"github.com/freightdesk/logistics-backend/internal/profiles"
	"github.com/freightdesk/logistics-backend/pkg/config"
	"github.com/freightdesk/logistics-backend/pkg/db"
	"github.com/freightdesk/logistics-backend/pkg/instance"
	"github.com/freightdesk/logistics-backend/pkg/logger"
	"github.com/freightdesk/logistics-backend/pkg/metrics"
	"github.com/freightdesk/logistics-backend/pkg/outbox"
	"github.com/freightdesk/logistics-backend/pkg/pubsub"
	"github.com/freightdesk/logistics-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "error closing pubsub", err)
		}
	}()

	conn := dbClient.DB()
	profilesRepo := profiles.NewRepository(conn)
	productsRepo := products.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)
	exportsRepo := exports.NewRepository(conn)
	outboxService := outbox.NewService(outbox.NewRepository(conn), logg)

	observer, err := profiles.NewFailureObserver(profilesRepo, cfg.Orders.FailureThreshold, logg)
	if err != nil {
		logg.Error(ctx, "failed to create failure observer", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:     ordersRepo,
		DBClient: dbClient,
		Products: productsRepo,
		Emitter:  outboxService,
		Observer: observer,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create order service", err)
		os.Exit(1)
	}

	exportService, err := exports.NewService(exports.ServiceParams{
		Repo:     exportsRepo,
		DBClient: dbClient,
		Orders:   ordersRepo,
		Emitter:  outboxService,
		Config:   cfg.Exports,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create export service", err)
		os.Exit(1)
	}

	workerMetrics := metrics.NewWorkerMetrics(prometheus.DefaultRegisterer)

	consumer, err := consumers.NewDomainConsumer(
		orderService,
		exportService,
		pubsubClient.DomainSubscription(),
		logg,
		workerMetrics,
	)
	if err != nil {
		logg.Error(ctx, "failed to create domain consumer", err)
		os.Exit(1)
	}

	service, err := NewService(ServiceParams{
		Config:         cfg,
		Logger:         logg,
		DB:             dbClient,
		Redis:          redisClient,
		PubSub:         pubsubClient,
		DomainConsumer: consumer,
	})
	if err != nil {
		logg.Error(ctx, "failed to create worker service", err)
		os.Exit(1)
	}

	go serveMetrics(ctx, cfg, logg)

	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "worker shutting down gracefully")
}

func serveMetrics(ctx context.Context, cfg *config.Config, logg *logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: ":" + cfg.App.Port, Handler: mux}
	go func() {
		<-ctx.Done()
		server.Close()
	}()
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "metrics server stopped unexpectedly", err)
	}
}
