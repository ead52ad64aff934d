package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/pulsefeed/backend/api/handler"
	"github.com/pulsefeed/backend/internal/config"
	"github.com/pulsefeed/backend/internal/infrastructure/deadletter"
	"github.com/pulsefeed/backend/internal/infrastructure/monitor"
	pgInfra "github.com/pulsefeed/backend/internal/infrastructure/postgres"
	redisInfra "github.com/pulsefeed/backend/internal/infrastructure/redis"
	"github.com/pulsefeed/backend/internal/metrics"
	"github.com/pulsefeed/backend/internal/middleware"
	"github.com/pulsefeed/backend/internal/router"
	"github.com/pulsefeed/backend/internal/services"
	"github.com/pulsefeed/backend/internal/services/lifecycle"
	"github.com/pulsefeed/backend/internal/ws"
	"github.com/pulsefeed/backend/pkg/httpcontext"
	"github.com/pulsefeed/backend/pkg/logger"
	"github.com/pulsefeed/backend/repository/postgres"
	redisRepo "github.com/pulsefeed/backend/repository/redis"
	authUC "github.com/pulsefeed/backend/usecase/auth"
	feedUC "github.com/pulsefeed/backend/usecase/feed"
	ingestUC "github.com/pulsefeed/backend/usecase/ingest"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	redisClient, err := redisInfra.NewClient(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	deadLetters, err := deadletter.Open(cfg.DeadLetter.Path)
	if err != nil {
		zapLogger.Fatal("failed to open dead-letter store", zap.Error(err))
	}
	manager.Register("dead_letter", func(ctx context.Context) error {
		return deadLetters.Close()
	})

	mon := monitor.New(pool, redisClient, deadLetters, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	userRepo := postgres.NewUserRepository(pool)
	eventRepo := postgres.NewEventRepository(pool)
	notificationRepo := postgres.NewNotificationRepository(pool)
	metricsRepo := postgres.NewMetricsRepository(pool)
	sessionRepo := redisRepo.NewSessionRepository(redisClient, cfg.JWT.SessionTTL)

	aggregator := metrics.NewAggregator(metricsRepo, zapLogger)
	hub := ws.NewHub(zapLogger)

	processor := services.NewEventProcessor(
		eventRepo,
		userRepo,
		notificationRepo,
		aggregator,
		hub,
		mon,
		deadLetters,
		zapLogger,
		services.ProcessorConfig{
			Interval:        cfg.Processor.Interval,
			PerEventTimeout: cfg.Processor.PerEventTimeout,
			MaxAttempts:     cfg.Processor.MaxAttempts,
		},
	)
	processor.Start()
	manager.Register("event_processor", func(ctx context.Context) error {
		processor.Stop(ctx)
		return nil
	})

	sampler := services.NewActiveUserSampler(aggregator, hub, zapLogger, services.SamplerConfig{
		Interval:  cfg.Sampler.Interval,
		MaxJitter: cfg.Sampler.MaxJitter,
	})
	sampler.Start()
	manager.Register("active_user_sampler", func(ctx context.Context) error {
		sampler.Stop()
		return nil
	})

	authUseCase := authUC.New(userRepo, sessionRepo, cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.SessionTTL, zapLogger)
	ingestUseCase := ingestUC.New(eventRepo, aggregator, zapLogger)
	feedUseCase := feedUC.New(notificationRepo, userRepo, aggregator, zapLogger)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Auth:   apiHandler.NewAuthHandler(authUseCase, ctxAdapter, zapLogger),
		Event:  apiHandler.NewEventHandler(ingestUseCase, ctxAdapter, zapLogger),
		Feed:   apiHandler.NewFeedHandler(feedUseCase, ctxAdapter, zapLogger),
		Health: apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
		WS:     apiHandler.NewWSHandler(hub, zapLogger),
	}

	authMiddleware := middleware.JWTAuth(cfg.JWT.Secret, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown()
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
