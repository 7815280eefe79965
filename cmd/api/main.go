package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/api"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/api/handler"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/api/middleware"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/application"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/config"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/infrastructure/messaging"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/infrastructure/postgres"
	redisinfra "github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/infrastructure/redis"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/pkg/logger"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/pkg/metrics"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/worker"
)

// @title Cinephoria Booking API
// @version 1.0
// @description 上映スケジュールと座席予約のAPI
// @BasePath /api/v1
func main() {
	cfg := config.Load()
	logger.Init(cfg.App.Env)
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Fatal("サーバー起動エラー", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	if err := cfg.Booking.Validate(); err != nil {
		return fmt.Errorf("設定エラー: %w", err)
	}

	// DB
	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		return fmt.Errorf("DB接続エラー: %w", err)
	}
	defer db.Close()

	if err := postgres.RunMigrations(db.DB, cfg.App.MigrationsPath); err != nil {
		return err
	}

	// Redis
	redisClient, err := redisinfra.NewClient(&redisinfra.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return fmt.Errorf("Redis接続エラー: %w", err)
	}
	defer redisClient.Close()

	// ドメインイベント（Redis Streams）
	wmLogger := messaging.NewZapLoggerAdapter(logger.Named("watermill"))
	publisher, err := messaging.NewRedisPublisher(redisClient, wmLogger)
	if err != nil {
		return err
	}
	defer publisher.Close()
	eventBus, err := messaging.NewEventBus(publisher, wmLogger)
	if err != nil {
		return err
	}

	m := metrics.Init()
	loc := cfg.Booking.Location()
	opts := []application.Option{
		application.WithPublisher(messaging.NewEventPublisher(eventBus)),
		application.WithMetrics(m),
	}

	// リポジトリ・サービス
	txManager := postgres.NewTxManager(db)
	movieRepo := postgres.NewMovieRepository(db)
	roomRepo := postgres.NewRoomRepository(db)
	sessionRepo := postgres.NewSessionRepository(db, loc)
	bookingRepo := postgres.NewBookingRepository(db)
	seatRepo := postgres.NewSeatStatusRepository(db)
	lockManager := redisinfra.NewLockManager(redisClient)
	seatCache := redisinfra.NewSeatCache(redisClient)

	inventoryService := application.NewInventoryService(roomRepo, movieRepo)
	sessionService := application.NewSessionService(
		txManager, sessionRepo, roomRepo, movieRepo, bookingRepo, lockManager,
		cfg.Booking.Buffer, loc, opts...,
	)
	bookingService := application.NewBookingService(
		txManager, bookingRepo, seatRepo, sessionRepo, roomRepo, lockManager, seatCache,
		cfg.Booking.HoldTTL, opts...,
	)

	// HTTP
	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	middleware.SetupMiddleware(e)
	e.Use(middleware.PrometheusMiddleware(m))

	handler.RegisterRoutes(e, handler.Handlers{
		Session:   handler.NewSessionHandler(sessionService),
		Booking:   handler.NewBookingHandler(bookingService),
		Inventory: handler.NewInventoryHandler(inventoryService),
		Health: handler.NewHealthHandler(map[string]handler.HealthChecker{
			"db": func(ctx context.Context) error { return postgres.Ping(ctx, db) },
			"redis": func(ctx context.Context) error {
				return redisinfra.Ping(ctx, redisClient)
			},
		}),
	}, middleware.LoadMetricsConfig())

	cleaner := worker.NewExpiredBookingCleaner(bookingService, cfg.Booking.CleanupInterval, 0)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		cleaner.Start(ctx)
		return nil
	})

	g.Go(func() error {
		logger.Info("サーバー起動", zap.String("port", cfg.Server.Port), zap.String("env", cfg.App.Env))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("サーバーをシャットダウンしています...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		cleaner.Stop()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("サーバーが正常にシャットダウンしました")
	return nil
}
