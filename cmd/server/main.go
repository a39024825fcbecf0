package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/khoahotran/devconnect/adapters/event"
	httpAdapter "github.com/khoahotran/devconnect/adapters/http"
	"github.com/khoahotran/devconnect/adapters/persistence"
	"github.com/khoahotran/devconnect/internal/application/service"
	profileUC "github.com/khoahotran/devconnect/internal/application/usecase/profile"
	"github.com/khoahotran/devconnect/internal/config"
	"github.com/khoahotran/devconnect/internal/domain/account"
	"github.com/khoahotran/devconnect/internal/domain/profile"
	"github.com/khoahotran/devconnect/pkg/auth"
	"github.com/khoahotran/devconnect/pkg/logger"
	"github.com/khoahotran/devconnect/pkg/tracing"
	"github.com/khoahotran/devconnect/pkg/validation"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: cannot load config: %v", err)
	}

	appLogger := logger.NewZapLogger(cfg.App.Env, "devconnect-api")
	defer appLogger.Sync()
	appLogger.Info("Start DevConnect API Server...", zap.String("store_driver", cfg.Store.Driver))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracing.NewTracerProvider(cfg, appLogger, "devconnect-api")
	if err != nil {
		appLogger.Fatal("cannot init tracing", err)
	}
	defer shutdownTracer(context.Background())

	// Repositories
	var (
		profileRepo profile.Repository
		accountRepo account.Repository
	)
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		appLogger.Warn("Using in-memory stores, data is lost on restart")
		profileRepo = persistence.NewMemoryProfileRepo()
		accountRepo = persistence.NewMemoryAccountRepo()
	default:
		mongoClient, err := persistence.NewMongoClient(ctx, cfg, appLogger)
		if err != nil {
			appLogger.Fatal("cannot connect MongoDB", err)
		}
		defer mongoClient.Disconnect(context.Background())

		mongoDB := mongoClient.Database(cfg.Mongo.Database)
		if err := persistence.EnsureProfileIndexes(ctx, mongoDB); err != nil {
			appLogger.Fatal("cannot create profile indexes", err)
		}
		profileRepo = persistence.NewMongoProfileRepo(mongoDB, appLogger)

		dbPool, err := persistence.NewPostgresPool(ctx, cfg, appLogger)
		if err != nil {
			appLogger.Fatal("cannot connect Postgres", err)
		}
		defer dbPool.Close()
		accountRepo = persistence.NewPostgresAccountRepo(dbPool, appLogger)
	}

	if cfg.Redis.Addr != "" {
		redisClient, err := persistence.NewRedisClient(ctx, cfg, appLogger)
		if err != nil {
			appLogger.Fatal("cannot connect Redis", err)
		}
		defer redisClient.Close()
		profileRepo = persistence.NewCachedProfileRepo(profileRepo, redisClient, cfg.Redis.CacheTTL, appLogger)
	}

	// Services
	var publisher service.EventPublisher = event.NoopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaClient, err := event.NewKafkaProducerClient(cfg, appLogger)
		if err != nil {
			appLogger.Fatal("cannot init Kafka", err)
		}
		defer kafkaClient.Close()
		publisher = kafkaClient
	} else {
		appLogger.Warn("No Kafka brokers configured, profile events are dropped")
	}
	jwtSvc := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenLifespan)

	// Use Cases
	profileUseCase := profileUC.NewProfileUseCase(profileRepo, accountRepo, validation.New(), publisher, appLogger)

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpAdapter.NewRouter(httpAdapter.RouterDeps{
		ProfileHandler: httpAdapter.NewProfileHandler(profileUseCase, appLogger),
		JWTService:     jwtSvc,
		RateLimiter:    httpAdapter.NewIPRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		Metrics:        httpAdapter.NewMetrics(),
		Logger:         appLogger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("Server running", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("Cannot run server", err)
			stop()
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", err)
	}
}
