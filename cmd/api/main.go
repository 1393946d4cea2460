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
	"go.uber.org/multierr"

	"github.com/storepulse/storepulse-backend/api/routes"
	"github.com/storepulse/storepulse-backend/internal/auth"
	"github.com/storepulse/storepulse-backend/internal/ratings"
	"github.com/storepulse/storepulse-backend/internal/stores"
	"github.com/storepulse/storepulse-backend/internal/users"
	"github.com/storepulse/storepulse-backend/pkg/auth/session"
	"github.com/storepulse/storepulse-backend/pkg/config"
	"github.com/storepulse/storepulse-backend/pkg/db"
	"github.com/storepulse/storepulse-backend/pkg/logger"
	"github.com/storepulse/storepulse-backend/pkg/metrics"
	"github.com/storepulse/storepulse-backend/pkg/migrate"
	"github.com/storepulse/storepulse-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

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

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	userRepo := users.NewRepository(dbClient.DB())
	storeRepo := stores.NewRepository(dbClient.DB())
	ratingRepo := ratings.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	ratingService, err := ratings.NewService(ratings.ServiceParams{
		RatingRepo: ratingRepo,
		StoreRepo:  storeRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ratings service", err)
		os.Exit(1)
	}

	storeService, err := stores.NewService(stores.ServiceParams{
		StoreRepo:  storeRepo,
		UserRepo:   userRepo,
		Transactor: dbClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stores service", err)
		os.Exit(1)
	}

	userService, err := users.NewService(users.ServiceParams{
		UserRepo:       userRepo,
		StoreCounter:   storeRepo,
		RatingCounter:  ratingRepo,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(registry)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:         cfg,
			Logger:         logg,
			DBPinger:       dbClient,
			Redis:          redisClient,
			SessionChecker: sessionManager,
			Registry:       registry,
			HTTPMetrics:    httpMetrics,
			AuthService:    authService,
			RatingService:  ratingService,
			StoreService:   storeService,
			UserService:    userService,
		}),
	}

	serverErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serverErr <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			closeClients(ctx, logg, dbClient, redisClient)
			os.Exit(1)
		}
	case <-stop:
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}

	closeClients(ctx, logg, dbClient, redisClient)
	logg.Info(ctx, "api server stopped")
}

func closeClients(ctx context.Context, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) {
	if err := multierr.Combine(dbClient.Close(), redisClient.Close()); err != nil {
		logg.Error(ctx, "error closing clients", err)
	}
}
