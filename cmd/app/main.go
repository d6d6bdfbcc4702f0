package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BuzzLyutic/taskflow-api/internal/config"
	"github.com/BuzzLyutic/taskflow-api/internal/handler"
	"github.com/BuzzLyutic/taskflow-api/internal/notify"
	"github.com/BuzzLyutic/taskflow-api/internal/ratelimit"
	"github.com/BuzzLyutic/taskflow-api/internal/repo"
	"github.com/BuzzLyutic/taskflow-api/internal/service"
	"github.com/BuzzLyutic/taskflow-api/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
	logger.Info("Server stopped successfully!")
}

func newLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg.Level = lvl
	return zcfg.Build()
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	sink, err := openSink(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logger.Warn("Failed to close notification sink", zap.Error(err))
		}
	}()

	pool := worker.NewPool(sink, logger, cfg.NotifyWorkers, cfg.NotifyQueueSize, cfg.NotifyRecipient)
	pool.Start(context.WithoutCancel(ctx))
	defer pool.Stop()

	limiter := ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerWindow: cfg.RateLimitRequests,
		WindowSize:        cfg.RateLimitWindow,
	}, logger)

	taskService := service.NewTaskService(store, pool, logger)
	taskHandler := handler.NewTaskHandler(taskService, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.NewRouter(taskHandler, limiter, logger, cfg.MaxBodyBytes),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return limiter.Run(gctx, cfg.RateLimitWindow)
	})

	g.Go(func() error {
		logger.Info("Server started", zap.String("addr", srv.Addr), zap.String("store", cfg.Store), zap.String("notify_sink", cfg.NotifySink))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (repo.TaskRepository, func(), error) {
	if cfg.Store != "postgres" {
		logger.Info("Using in-memory task store")
		return repo.NewMemoryRepo(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	taskRepo := repo.NewTaskRepo(pool)
	if err := taskRepo.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	logger.Info("Successfully connected to the Database!")
	return taskRepo, pool.Close, nil
}

func openSink(cfg config.Config, logger *zap.Logger) (notify.Sink, error) {
	switch cfg.NotifySink {
	case "nats":
		sink, err := notify.DialNATS(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return nil, err
		}
		return sink, nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return notify.NewRedisSink(client, cfg.RedisChannel), nil
	default:
		return notify.NewLogSink(logger), nil
	}
}

