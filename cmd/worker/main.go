// Package main runs the background completion worker: it drains transcoding
// completion events from Redis into the video catalog.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aura-media/vod-backend/config"
	"github.com/aura-media/vod-backend/internal/catalog"
	"github.com/aura-media/vod-backend/internal/reconcile"
	"github.com/aura-media/vod-backend/internal/worker"
	"github.com/aura-media/vod-backend/pkg/database"
	"github.com/aura-media/vod-backend/pkg/queue"
	"github.com/aura-media/vod-backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if cfg.Catalog.Backend != "postgres" {
		logger.Fatal("worker needs the postgres catalog; the memory catalog runs its worker inside the server")
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolOptions{MaxConns: 4}, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	reconciler := reconcile.NewReconciler(catalog.NewRepository(pool), cfg.Catalog.CloudFrontDomain, logger)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewCompletionProcessor(reconciler, jobQueue, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		processor.Run(workerCtx)
		close(done)
	}()
	logger.Info("worker started", zap.String("queue", queue.QueueCompletions))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	select {
	case <-done:
	case <-time.After(queue.PollTimeout + 2*time.Second):
		logger.Warn("worker did not stop in time")
	}
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
