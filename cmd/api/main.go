package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/notifyah/notifyah/internal/config"
	"github.com/notifyah/notifyah/internal/handler"
	authHandler "github.com/notifyah/notifyah/internal/handler/auth"
	debugHandler "github.com/notifyah/notifyah/internal/handler/debug"
	notificationHandler "github.com/notifyah/notifyah/internal/handler/notification"
	"github.com/notifyah/notifyah/internal/middleware"
	"github.com/notifyah/notifyah/internal/repository/postgres"
	"github.com/notifyah/notifyah/internal/router"
	authService "github.com/notifyah/notifyah/internal/service/auth"
	notificationService "github.com/notifyah/notifyah/internal/service/notification"
	"github.com/notifyah/notifyah/internal/worker"
	"github.com/notifyah/notifyah/internal/ws"
	"github.com/notifyah/notifyah/pkg/auth"
	"github.com/notifyah/notifyah/pkg/logger"
	redisBroker "github.com/notifyah/notifyah/pkg/messaging/redis"
	"github.com/notifyah/notifyah/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.New(&logger.Config{
		Level:      logger.InfoLevel,
		TimeFormat: time.RFC3339,
		Pretty:     cfg.Debug,
	})

	// Database
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		appLogger.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	// Message broker
	broker, err := redisBroker.NewBroker(redisBroker.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &appLogger.ZL)
	if err != nil {
		appLogger.Fatal(err, "failed to connect to Redis")
	}
	defer broker.Close()

	// Repositories
	baseRepo := postgres.NewBaseRepository(db)
	notificationRepo := postgres.NewNotificationRepository(baseRepo)
	userRepo := postgres.NewUserRepository(baseRepo)

	// Services
	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWTExpiry())
	authSvc := authService.NewService(userRepo, jwtSvc, appLogger)
	notificationSvc := notificationService.NewService(notificationRepo, appLogger)

	// Delivery pipeline
	pipelineMetrics := metrics.New("notifyah")
	registry := ws.NewRegistry()
	hub := ws.NewHub(registry, appLogger, pipelineMetrics)
	gate := ws.NewHandshakeGate(jwtSvc)
	wsHandler := ws.NewHandler(gate, registry, appLogger, pipelineMetrics, cfg.SendTimeout())

	consumer := worker.NewConsumer(broker, notificationSvc, hub, worker.Config{
		Topic:   cfg.Consumer.Topic,
		Workers: cfg.Consumer.Workers,
	}, appLogger, pipelineMetrics)

	// HTTP surface
	authMw := middleware.NewAuthMiddleware(jwtSvc)
	r := router.New(
		router.Config{
			RateLimit:   rate.Limit(10),
			RateBurst:   20,
			CORSConfig:  middleware.DefaultCORSConfig(),
			EnableDebug: cfg.Debug,
		},
		authMw,
		authHandler.NewHandler(authSvc),
		notificationHandler.NewHandler(notificationSvc, broker),
		debugHandler.NewHandler(broker),
		wsHandler,
		handler.NewHandler(),
	)
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start the bus consumer alongside the server; both share the
	// in-process connection registry.
	go func() {
		if err := consumer.Start(ctx); err != nil {
			appLogger.Error(err, "consumer stopped")
		}
	}()

	go func() {
		appLogger.Info("server listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal(err, "failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatal(err, "server forced to shutdown")
	}

	appLogger.Info("server exited properly")
}
