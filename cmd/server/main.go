package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/tarviz/internal/api"
	"github.com/hugh/tarviz/internal/assistant"
	"github.com/hugh/tarviz/internal/auth"
	"github.com/hugh/tarviz/internal/database"
	"github.com/hugh/tarviz/internal/database/models"
	"github.com/hugh/tarviz/internal/mail"
	"github.com/hugh/tarviz/internal/pipeline"
	"github.com/hugh/tarviz/internal/tasks"
	"github.com/hugh/tarviz/pkg/config"
	"github.com/hugh/tarviz/pkg/queue"
	"github.com/hugh/tarviz/pkg/util"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
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

	logger.Info("starting Tarviz API server",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
	)

	// Connect to database
	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if cfg.Server.IsDevelopment() {
		if err := database.AutoMigrate(db); err != nil {
			logger.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warn("failed to connect to Redis", "error", err)
		redisClient = nil
	}

	otpConfig := auth.OTPConfig{
		Length:       cfg.OTP.Length,
		TTL:          cfg.OTP.TTL(),
		MaxAttempts:  cfg.OTP.MaxAttempts,
		ResendWindow: cfg.OTP.ResendWindow(),
	}

	// OTP codes live in their own Redis database; without Redis they stay
	// in process and mail is logged instead of queued.
	var (
		otpStore    auth.OTPStore
		otpRedis    *redis.Client
		dispatcher  auth.OTPDispatcher
		asynqClient *asynq.Client
	)
	if redisClient != nil {
		otpRedis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.OTPDB,
		})
		otpStore = auth.NewRedisOTPStore(otpRedis, otpConfig)

		asynqClient = queue.NewClient(&cfg.Redis)
		dispatcher = tasks.NewOTPEnqueuer(asynqClient)
	} else {
		logger.Warn("using in-memory OTP store and log mailer")
		otpStore = auth.NewMemoryOTPStore(otpConfig)
		dispatcher = mail.NewDispatcher(mail.NewLogMailer(logger))
	}

	// Initialize services
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiry(), cfg.JWT.RefreshExpiry())
	authService := auth.NewService(db, jwtService, otpStore, dispatcher, cfg.OTP.TTL(), logger)

	repo := pipeline.NewRepository(db)
	pipelineService := pipeline.NewService(repo, logger)

	// New clients start with the starter board.
	authService.OnSignup(func(ctx context.Context, user *models.User) error {
		return repo.SeedDemo(ctx, user.OrganizationID)
	})

	assistantService := newAssistant(cfg, logger)

	// Create router
	router := api.NewRouter(api.RouterConfig{
		DB:              db,
		Redis:           redisClient,
		Logger:          logger,
		JWTService:      jwtService,
		AuthService:     authService,
		PipelineService: pipelineService,
		Assistant:       assistantService,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		RateLimitReqs:   cfg.RateLimit.Requests,
		RateLimitSecs:   cfg.RateLimit.WindowSeconds,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if asynqClient != nil {
		asynqClient.Close()
	}
	if otpRedis != nil {
		otpRedis.Close()
	}
	if redisClient != nil {
		redisClient.Close()
	}

	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("server stopped")
}

// newAssistant connects to Gemini when a key is configured. Without one the
// assistant answers with its offline reply.
func newAssistant(cfg *config.Config, logger *slog.Logger) *assistant.Assistant {
	gen, err := assistant.NewGeminiGenerator(context.Background(), cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		logger.Warn("assistant offline", "error", err)
		return assistant.New(nil, logger)
	}

	logger.Info("assistant online", "model", gen.Model(), "requests_per_minute", cfg.Gemini.RequestsPerMinute)
	return assistant.New(assistant.NewLimitedGenerator(gen, cfg.Gemini.RequestsPerMinute), logger)
}
