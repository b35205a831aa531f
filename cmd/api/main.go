package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/freightdesk/logistics-backend/api/controllers"
	"github.com/freightdesk/logistics-backend/api/routes"
	"github.com/freightdesk/logistics-backend/internal/auth"
	"github.com/freightdesk/logistics-backend/internal/companies"
	"github.com/freightdesk/logistics-backend/internal/exports"
	"github.com/freightdesk/logistics-backend/internal/orders"
	"github.com/freightdesk/logistics-backend/internal/products"
	"github.com/freightdesk/logistics-backend/internal/profiles"
	"github.com/freightdesk/logistics-backend/internal/users"
	"github.com/freightdesk/logistics-backend/pkg/config"
	"github.com/freightdesk/logistics-backend/pkg/db"
	"github.com/freightdesk/logistics-backend/pkg/logger"
	"github.com/freightdesk/logistics-backend/pkg/migrate"
	"github.com/freightdesk/logistics-backend/pkg/outbox"
	"github.com/freightdesk/logistics-backend/pkg/pubsub"
	"github.com/freightdesk/logistics-backend/pkg/redis"
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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	conn := dbClient.DB()
	usersRepo := users.NewRepository(conn)
	companiesRepo := companies.NewRepository(conn)
	profilesRepo := profiles.NewRepository(conn)
	productsRepo := products.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)
	exportsRepo := exports.NewRepository(conn)
	outboxService := outbox.NewService(outbox.NewRepository(conn), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		Users:     usersRepo,
		Profiles:  profilesRepo,
		Companies: companiesRepo,
		JWT:       cfg.JWT,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	productService, err := products.NewService(productsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	observer, err := profiles.NewFailureObserver(profilesRepo, cfg.Orders.FailureThreshold, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create failure observer", err)
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
		logg.Error(context.Background(), "failed to create order service", err)
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
		logg.Error(context.Background(), "failed to create export service", err)
		os.Exit(1)
	}

	profileService, err := profiles.NewService(profilesRepo, dbClient, usersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create profile service", err)
		os.Exit(1)
	}

	readiness := map[string]controllers.Pinger{
		"db":    dbClient,
		"redis": redisClient,
		"queue": pubsubClient,
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
		Handler: routes.NewRouter(
			cfg,
			logg,
			redisClient,
			readiness,
			authService,
			productService,
			orderService,
			exportService,
			profileService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
