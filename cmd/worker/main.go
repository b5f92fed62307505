package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/hugh/tarviz/internal/database"
	"github.com/hugh/tarviz/internal/mail"
	"github.com/hugh/tarviz/internal/pipeline"
	"github.com/hugh/tarviz/internal/tasks"
	"github.com/hugh/tarviz/pkg/config"
	"github.com/hugh/tarviz/pkg/queue"
	"github.com/hugh/tarviz/pkg/util"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting Tarviz worker")

	if err := util.ValidateCronExpr(cfg.Worker.PublishSweepCron); err != nil {
		logger.Error("invalid PUBLISH_SWEEP_CRON", "cron", cfg.Worker.PublishSweepCron, "error", err)
		os.Exit(1)
	}

	// Connect to database
	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	// Create Asynq server
	srv := queue.NewServer(&cfg.Redis, cfg.Worker.Concurrency)

	// Create task handler
	publisher := pipeline.NewService(pipeline.NewRepository(db), logger)
	handler := tasks.NewHandler(mail.NewLogMailer(logger), publisher, logger)

	// Register handlers
	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	// Periodic publish sweep
	scheduler := queue.NewScheduler(&cfg.Redis)
	entryID, err := scheduler.Register(cfg.Worker.PublishSweepCron, tasks.NewPublishSweepTask())
	if err != nil {
		logger.Error("failed to register publish sweep", "error", err)
		os.Exit(1)
	}
	if err := scheduler.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	logger.Info("publish sweep scheduled", "cron", cfg.Worker.PublishSweepCron, "entry_id", entryID)

	// Handle shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down worker...")
		scheduler.Shutdown()
		srv.Shutdown()
		cancel()
	}()

	logger.Info("worker started, waiting for tasks...")

	// Start the server
	if err := srv.Run(mux); err != nil {
		logger.Error("worker error", "error", err)
	}

	// Wait for context cancellation
	<-ctx.Done()

	// Close database connection
	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("worker stopped")
}
