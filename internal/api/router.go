package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hugh/tarviz/internal/api/handlers"
	"github.com/hugh/tarviz/internal/api/middleware"
	"github.com/hugh/tarviz/internal/assistant"
	"github.com/hugh/tarviz/internal/auth"
	"github.com/hugh/tarviz/internal/database/models"
	"github.com/hugh/tarviz/internal/pipeline"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Per-client limits on the endpoints that send mail or call the model.
const (
	authRateLimitReqs      = 20
	assistantRateLimitReqs = 10
	strictRateLimitSecs    = 60
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB              *gorm.DB
	Redis           *redis.Client
	Logger          *slog.Logger
	JWTService      *auth.JWTService
	AuthService     *auth.Service
	PipelineService *pipeline.Service
	Assistant       *assistant.Assistant
	AllowedOrigins  []string // CORS allowed origins
	RateLimitReqs   int      // Rate limit requests per window
	RateLimitSecs   int      // Rate limit window in seconds
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	if cfg.RateLimitReqs > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitReqs, cfg.RateLimitSecs))
	}

	// CORS - restrict to configured origins, or allow all in development
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Auth-Token"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	assistantSvc := cfg.Assistant
	if assistantSvc == nil {
		assistantSvc = assistant.New(nil, cfg.Logger)
	}

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis, assistantSvc.Available())
	authHandler := handlers.NewAuthHandler(cfg.AuthService, cfg.Logger)
	pipelineHandler := handlers.NewPipelineHandler(cfg.PipelineService, cfg.Logger)
	assistantHandler := handlers.NewAssistantHandler(assistantSvc)
	adminHandler := handlers.NewAdminHandler(cfg.DB, cfg.Logger)
	billingHandler := handlers.NewBillingHandler(cfg.DB, cfg.Logger)

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Auth contract consumed by the portal
	r.Route("/api/auth", func(r chi.Router) {
		r.Use(middleware.RateLimit(authRateLimitReqs, strictRateLimitSecs))

		r.Post("/signin/", authHandler.SignIn)
		r.Post("/signup/", authHandler.Signup)
		r.Post("/verify_signup_otp/", authHandler.VerifySignupOTP)
		r.Post("/send_otp/", authHandler.SendOTP)
		r.Post("/reset_password/", authHandler.ResetPassword)
		r.Post("/resend_otp/", authHandler.ResendOTP)
		r.Post("/refresh/", authHandler.Refresh)
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public marketing-site assistant
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(assistantRateLimitReqs, strictRateLimitSecs))
			r.Post("/assistant/chat", assistantHandler.Chat)
			r.Post("/assistant/seo-audit", assistantHandler.AuditSite)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTService))

			r.Get("/me", authHandler.Me)
			r.Put("/me/profile", authHandler.UpdateProfile)
			r.Get("/me/subscription", billingHandler.ListSubscriptions)
			r.Get("/billing/invoices", billingHandler.ListInvoices)

			r.Route("/pipeline", func(r chi.Router) {
				r.Get("/", pipelineHandler.Board)
				r.Put("/posts/{id}/status", pipelineHandler.Move)
				r.Post("/posts/{id}/approve", pipelineHandler.Approve)
				r.Get("/posts/{id}/revisions", pipelineHandler.Revisions)
				r.Post("/posts/{id}/revisions", pipelineHandler.RequestRevision)
			})

			// Agency staff only
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleAdmin))

				r.Get("/clients", adminHandler.ListClients)

				r.Route("/services", func(r chi.Router) {
					r.Get("/", adminHandler.ListServices)
					r.Post("/", adminHandler.CreateService)
					r.Delete("/{code}", adminHandler.DeleteService)
				})

				r.Get("/company", adminHandler.GetCompany)
				r.Put("/company", adminHandler.UpdateCompany)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RateLimitByUser(assistantRateLimitReqs, strictRateLimitSecs))
					r.Post("/blog/seo", assistantHandler.BlogSEO)
					r.Post("/blog/outline", assistantHandler.BlogOutline)
				})
			})
		})
	})

	return &Router{r}
}
