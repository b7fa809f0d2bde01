// Package main runs the video publishing HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aura-media/vod-backend/config"
	"github.com/aura-media/vod-backend/internal/auth"
	"github.com/aura-media/vod-backend/internal/catalog"
	"github.com/aura-media/vod-backend/internal/entitlement"
	"github.com/aura-media/vod-backend/internal/ingest"
	"github.com/aura-media/vod-backend/internal/middleware"
	"github.com/aura-media/vod-backend/internal/playback"
	"github.com/aura-media/vod-backend/internal/reconcile"
	"github.com/aura-media/vod-backend/internal/worker"
	"github.com/aura-media/vod-backend/pkg/database"
	"github.com/aura-media/vod-backend/pkg/queue"
	"github.com/aura-media/vod-backend/pkg/redis"
	"github.com/aura-media/vod-backend/pkg/response"
	"github.com/aura-media/vod-backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	store, closeStore := openCatalog(ctx, cfg, logger)
	defer closeStore()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()
	jobQueue := queue.NewQueue(rdb.Client, logger)

	awsCfg, err := storage.LoadAWSConfig(ctx, cfg.AWS.Region, cfg.AWS.AccessKeyID, cfg.AWS.SecretAccessKey, logger)
	if err != nil {
		logger.Fatal("aws config", zap.Error(err))
	}

	// Auth
	var verifier *auth.Verifier
	if cfg.Auth.JWKSURL != "" {
		verifier, err = auth.NewJWKSVerifier(ctx, cfg.Auth.JWKSURL, cfg.Auth.Issuer, cfg.Auth.ClientID)
		if err != nil {
			logger.Fatal("jwks", zap.Error(err))
		}
	} else {
		logger.Warn("verifying tokens with JWT_SECRET; use a user pool outside local development")
		verifier = auth.NewHMACVerifier(cfg.Auth.HMACSecret, cfg.Auth.Issuer, cfg.Auth.ClientID)
	}

	// Entitlements
	var source entitlement.AttributeSource = entitlement.NoopSource{}
	if cfg.Auth.UserPoolID != "" {
		source = entitlement.NewCognitoSourceFromConfig(awsCfg, cfg.Auth.UserPoolID)
	} else {
		logger.Warn("USER_POOL_ID not set, every viewer resolves to the free tier")
	}
	var tierCache entitlement.Cache
	if cfg.Auth.TierCacheTTLSec > 0 {
		tierCache = redis.NewTierCache(rdb.Client, time.Duration(cfg.Auth.TierCacheTTLSec)*time.Second)
	}
	resolver := entitlement.NewResolver(source, tierCache, logger)

	// Catalog and playback
	catalogHandler := catalog.NewHandler(catalog.NewLister(store), logger)
	playbackHandler := playback.NewHandler(store, resolver, logger)

	// Ingest
	s3Client := storage.NewS3(awsCfg, storage.S3Config{
		InputBucket:          cfg.AWS.InputBucket,
		OutputBucket:         cfg.AWS.OutputBucket,
		PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
	}, logger)
	submitter := ingest.NewSubmitter(
		ingest.NewMediaConvertClient(awsCfg, cfg.MediaConvert.Endpoint),
		ingest.JobTemplate{Role: cfg.MediaConvert.Role, Queue: cfg.MediaConvert.Queue, OutputBucket: cfg.AWS.OutputBucket},
		logger,
	)
	ingestHandler := ingest.NewHandler(s3Client, submitter, logger)
	completionWebhook := reconcile.NewWebhookHandler(jobQueue, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) {
		if err := rdb.Healthy(c.Request.Context()); err != nil {
			response.ServiceUnavailable(c, "redis unavailable")
			return
		}
		response.OK(c, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public catalog
	router.GET("/videos", catalogHandler.List)
	router.GET("/videos/:videoId", catalogHandler.Get)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(verifier))
	{
		api.GET("/videos/:videoId/stream", playbackHandler.Stream)
		api.POST("/uploads", middleware.RequireGroup(cfg.Auth.AdminGroup), ingestHandler.CreateUpload)
	}

	// Webhooks (no JWT; HMAC signature when WEBHOOK_SECRET is set)
	hooks := router.Group("/webhooks")
	hooks.Use(middleware.WebhookSignature(cfg.Webhook.Secret))
	{
		hooks.POST("/upload-created", ingestHandler.UploadCreated)
		hooks.POST("/transcode-complete", completionWebhook.TranscodeComplete)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background worker (completion events into the catalog)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	workerDone := make(chan struct{})
	if cfg.Server.RunWorker {
		reconciler := reconcile.NewReconciler(store, cfg.Catalog.CloudFrontDomain, logger)
		processor := worker.NewCompletionProcessor(reconciler, jobQueue, logger)
		go func() {
			processor.Run(workerCtx)
			close(workerDone)
		}()
		logger.Info("completion worker started in-process")
	} else {
		close(workerDone)
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	workerCancel()
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		logger.Warn("worker did not stop before shutdown deadline")
	}
	logger.Info("server stopped")
}

// openCatalog returns the configured catalog store and a function releasing it.
func openCatalog(ctx context.Context, cfg *config.Config, logger *zap.Logger) (catalog.Store, func()) {
	if cfg.Catalog.Backend == "memory" {
		logger.Warn("using in-memory catalog; records are lost on restart")
		return catalog.NewMemoryStore(), func() {}
	}
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolOptions{MaxConns: 10, MaxConnIdleTime: 5 * time.Minute}, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	if err := database.Migrate(ctx, pool, logger); err != nil {
		pool.Close()
		logger.Fatal("migrate", zap.Error(err))
	}
	return catalog.NewRepository(pool), pool.Close
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
