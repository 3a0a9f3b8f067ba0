package main

import (
	"context"
	"fmt"
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

	"github.com/noah-isme/gema-proof-api/internal/config"
	"github.com/noah-isme/gema-proof-api/internal/database"
	"github.com/noah-isme/gema-proof-api/internal/handler"
	"github.com/noah-isme/gema-proof-api/internal/middleware"
	"github.com/noah-isme/gema-proof-api/internal/repository"
	"github.com/noah-isme/gema-proof-api/internal/router"
	"github.com/noah-isme/gema-proof-api/internal/service"
	"github.com/noah-isme/gema-proof-api/pkg/ai"
	"github.com/noah-isme/gema-proof-api/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()
	ctx := context.Background()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if cfg.DatabaseAutoMigrate {
		if err := database.Migrate(db); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	store, err := storage.New(ctx, storage.Config{
		Driver: cfg.StorageDriver,
		Bucket: cfg.StorageBucket,
		S3: storage.S3Config{
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			Prefix:          cfg.S3Prefix,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			ForcePathStyle:  cfg.S3ForcePathStyle,
		},
		Azure: storage.AzureConfig{
			ConnectionString: cfg.AzureConnectionString,
			ServiceURL:       cfg.AzureServiceURL,
		},
		Cloudinary: storage.CloudinaryConfig{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryFolder,
		},
		LocalRoot: cfg.LocalStorageRoot,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create storage client: %v", err)
	}

	verifier, closeVerifier, err := newVerifier(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to create ai verifier: %v", err)
	}
	defer closeVerifier()

	opts := service.DocumentValidationOptions{
		InferenceTimeout: cfg.AITimeout,
		MaxFileSizeBytes: int64(cfg.MaxFileSizeMB) * 1024 * 1024,
	}
	if redisClient != nil {
		opts.Guard = service.NewRedisInFlightGuard(redisClient, cfg.LockTTL())
	}
	if redisClient != nil || natsConn != nil {
		opts.Events = service.NewValidationEventPublisher(redisClient, natsConn, cfg.EventsChannel, logger)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	materialRepo := repository.NewValidationMaterialRepository(db)
	contextRepo := repository.NewValidationContextRepository(db)

	validationService := service.NewDocumentValidationService(materialRepo, contextRepo, store, verifier, opts, logger)
	validationHandler := handler.NewDocumentValidationHandler(validationService, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.AITimeout + 30*time.Second,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AccessLog: cfg.AppEnv == "development"})
	router.Register(app, cfg, router.Dependencies{
		ValidationHandler: validationHandler,
		ValidationLimiter: router.ValidationLimiter(cfg),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	logger.Info().
		Str("address", cfg.HTTPAddress()).
		Str("ai_provider", cfg.AIProvider).
		Str("storage_driver", cfg.StorageDriver).
		Bool("redis", redisClient != nil).
		Bool("nats", natsConn != nil).
		Msg("proof validation api started")

	waitForShutdown(app, cfg.AITimeout+5*time.Second)
}

// newVerifier builds the verifier for the configured provider. The returned func releases
// provider resources and is always safe to call.
func newVerifier(ctx context.Context, cfg config.Config, logger zerolog.Logger) (ai.Verifier, func(), error) {
	noop := func() {}
	switch cfg.AIProvider {
	case config.ProviderAnthropic:
		verifier, err := ai.NewAnthropicVerifier(ai.AnthropicConfig{
			APIKey:    cfg.AnthropicAPIKey,
			Model:     cfg.AIModel,
			BaseURL:   cfg.AnthropicBaseURL,
			MaxTokens: cfg.AIMaxTokens,
			Logger:    logger,
		})
		if err != nil {
			return nil, noop, err
		}
		return verifier, noop, nil
	case config.ProviderOpenAI:
		verifier, err := ai.NewOpenAIVerifier(ai.OpenAIConfig{
			APIKey:    cfg.OpenAIAPIKey,
			Model:     cfg.AIModel,
			MaxTokens: cfg.AIMaxTokens,
			Logger:    logger,
		})
		if err != nil {
			return nil, noop, err
		}
		return verifier, noop, nil
	case config.ProviderGemini:
		verifier, err := ai.NewGeminiVerifier(ctx, ai.GeminiConfig{
			APIKey:    cfg.GeminiAPIKey,
			Model:     cfg.AIModel,
			MaxTokens: cfg.AIMaxTokens,
			Logger:    logger,
		})
		if err != nil {
			return nil, noop, err
		}
		return verifier, func() { _ = verifier.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("unsupported ai provider %q", cfg.AIProvider)
	}
}

func waitForShutdown(app *fiber.App, grace time.Duration) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
