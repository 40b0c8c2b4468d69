package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/opencourse-api/internal/config"
	"github.com/noah-isme/opencourse-api/internal/database"
	"github.com/noah-isme/opencourse-api/internal/events"
	"github.com/noah-isme/opencourse-api/internal/handler"
	"github.com/noah-isme/opencourse-api/internal/middleware"
	"github.com/noah-isme/opencourse-api/internal/repository"
	"github.com/noah-isme/opencourse-api/internal/router"
	"github.com/noah-isme/opencourse-api/internal/service"
	cloud "github.com/noah-isme/opencourse-api/pkg/cloudinary"
	"github.com/noah-isme/opencourse-api/pkg/gcs"
	"github.com/noah-isme/opencourse-api/pkg/localstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to access database pool: %v", err)
	}
	probes := map[string]handler.Probe{"database": sqlDB.PingContext}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(context.Background(), cfg.RedisURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		probes["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	} else {
		logger.Warn().Msg("redis url not set, engagement cache disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
		probes["nats"] = func(context.Context) error {
			if !natsConn.IsConnected() {
				return fmt.Errorf("nats %s", natsConn.Status())
			}
			return nil
		}
	} else {
		logger.Warn().Msg("nats url not set, activity events will not be published")
	}

	blobs, err := newBlobStore(cfg, logger)
	if err != nil {
		log.Fatalf("failed to create blob store: %v", err)
	}
	defer closeBlobStore(blobs, logger)

	validate := validator.New(validator.WithRequiredStructEnabled())

	store := repository.NewStore(db)
	accumulator := service.NewActivityAccumulator(service.NewScoreTable(cfg.Activity))
	publisher := events.NewNATSPublisher(natsConn, cfg.EventSubjectPrefix, logger)
	cache := service.NewEngagementCache(redisClient, cfg.EngagementCacheTTL, logger)

	engagementService := service.NewEngagementService(store, accumulator, cache, publisher, logger)
	resourceService := service.NewResourceService(store, blobs, accumulator, publisher, validate, cfg.UploadMaxSizeMB, logger)
	interactionService := service.NewInteractionService(store, accumulator, publisher, validate, logger)
	historyService := service.NewHistoryService(store)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.UploadMaxSizeMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSAllowOrigins})
	router.Register(app, cfg, router.Dependencies{
		ResourceHandler:    handler.NewResourceHandler(resourceService, logger),
		InteractionHandler: handler.NewInteractionHandler(interactionService, logger),
		EngagementHandler:  handler.NewEngagementHandler(engagementService, logger),
		HistoryHandler:     handler.NewHistoryHandler(historyService, logger),
		JWTMiddleware:      middleware.JWTProtected(cfg.JWTSecret),
		UploadLimiter:      middleware.RateLimit("resource-upload", cfg.UploadRateLimit, cfg.UploadRateWindow),
		HealthProbes:       probes,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func newBlobStore(cfg config.Config, logger zerolog.Logger) (service.BlobStore, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverGCS:
		return gcs.New(context.Background(), gcs.Config{Bucket: cfg.GCSBucket, CredentialsFile: cfg.GCSCredentialsFile}, logger)
	case config.StorageDriverLocal:
		return localstore.New(cfg.LocalStorageRoot, logger)
	default:
		return cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
	}
}

// closeBlobStore releases stores that hold a client, such as the GCS bucket.
func closeBlobStore(blobs service.BlobStore, logger zerolog.Logger) {
	closer, ok := blobs.(io.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		logger.Warn().Err(err).Msg("failed to close blob store")
	}
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
