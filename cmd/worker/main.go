package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/khoahotran/devconnect/adapters/event"
	"github.com/khoahotran/devconnect/adapters/persistence"
	accountUC "github.com/khoahotran/devconnect/internal/application/usecase/account"
	"github.com/khoahotran/devconnect/internal/config"
	"github.com/khoahotran/devconnect/pkg/logger"
	"github.com/khoahotran/devconnect/pkg/tracing"
)

// The worker finishes cascade deletes that left an account behind.
func main() {
	// Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: cannot load config: %v", err)
	}

	appLogger := logger.NewZapLogger(cfg.App.Env, "devconnect-worker")
	defer appLogger.Sync()
	appLogger.Info("Starting DevConnect Worker...")

	if len(cfg.Kafka.Brokers) == 0 {
		appLogger.Fatal("worker needs Kafka brokers", errors.New("kafka.brokers is empty"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracing.NewTracerProvider(cfg, appLogger, "devconnect-worker")
	if err != nil {
		appLogger.Fatal("cannot init tracing", err)
	}
	defer shutdownTracer(context.Background())

	// Database
	dbPool, err := persistence.NewPostgresPool(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("cannot connect Postgres", err)
	}
	defer dbPool.Close()

	// Repositories
	accountRepo := persistence.NewPostgresAccountRepo(dbPool, appLogger)

	// Worker Use Case
	reconcileUC := accountUC.NewReconcileOrphanUseCase(accountRepo, appLogger, cfg.Worker.MaxRetries, cfg.Worker.MaxBackoff)

	// Kafka Consumer
	consumer := event.NewOrphanConsumer(cfg.Kafka.Brokers, reconcileUC, cfg.Worker.MaxRedeliveries, appLogger)
	defer consumer.Close()

	appLogger.Info("Worker listening", zap.String("topic", event.TopicAccountEvents))
	if err := consumer.Run(ctx); err != nil {
		appLogger.Fatal("Worker stopped with an unhandled event", err)
	}
	appLogger.Info("Worker stopped")
}
