package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Encryption EncryptionConfig
	RateLimit  RateLimitConfig
	OTP        OTPConfig
	Gemini     GeminiConfig
	Portal     PortalConfig
	Worker     WorkerConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	Env            string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	OTPDB    int
}

type JWTConfig struct {
	Secret             string
	AccessExpiryHours  int
	RefreshExpiryHours int
}

type EncryptionConfig struct {
	Key string
}

type RateLimitConfig struct {
	Requests      int
	WindowSeconds int
}

// OTPConfig controls the one-time codes issued by the auth backend.
type OTPConfig struct {
	Length              int
	TTLMinutes          int
	MaxAttempts         int
	ResendWindowSeconds int
}

type GeminiConfig struct {
	APIKey            string
	Model             string
	RequestsPerMinute int
}

// PortalConfig is read by the terminal client.
type PortalConfig struct {
	APIBaseURL     string
	RequestTimeout time.Duration
	SessionFile    string
	DemoMode       bool
	AdminSentinel  string
}

type WorkerConfig struct {
	Concurrency      int
	PublishSweepCron string
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (j *JWTConfig) AccessExpiry() time.Duration {
	return time.Duration(j.AccessExpiryHours) * time.Hour
}

func (j *JWTConfig) RefreshExpiry() time.Duration {
	return time.Duration(j.RefreshExpiryHours) * time.Hour
}

func (o *OTPConfig) TTL() time.Duration {
	return time.Duration(o.TTLMinutes) * time.Minute
}

func (o *OTPConfig) ResendWindow() time.Duration {
	return time.Duration(o.ResendWindowSeconds) * time.Second
}

func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s *ServerConfig) IsDevelopment() bool {
	return s.Env == "development"
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8000)
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("SERVER_ALLOWED_ORIGINS", "")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "tarviz")
	v.SetDefault("DATABASE_PASSWORD", "tarviz_secret")
	v.SetDefault("DATABASE_NAME", "tarviz")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_OTP_DB", 2)
	v.SetDefault("JWT_SECRET", "change-me-in-production")
	v.SetDefault("JWT_ACCESS_EXPIRY_HOURS", 24)
	v.SetDefault("JWT_REFRESH_EXPIRY_HOURS", 24*14)
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("OTP_LENGTH", 6)
	v.SetDefault("OTP_TTL_MINUTES", 10)
	v.SetDefault("OTP_MAX_ATTEMPTS", 5)
	v.SetDefault("OTP_RESEND_WINDOW_SECONDS", 30)
	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_MODEL", "gemini-2.5-flash")
	v.SetDefault("GEMINI_REQUESTS_PER_MINUTE", 30)
	v.SetDefault("PORTAL_API_BASE_URL", "http://localhost:8000")
	v.SetDefault("PORTAL_REQUEST_TIMEOUT", "30s")
	v.SetDefault("PORTAL_SESSION_FILE", ".tarviz/session.json")
	v.SetDefault("PORTAL_DEMO_MODE", false)
	v.SetDefault("PORTAL_ADMIN_SENTINEL", "admin@tarviz.com")
	v.SetDefault("WORKER_CONCURRENCY", 10)
	v.SetDefault("PUBLISH_SWEEP_CRON", "*/15 * * * *")

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("SERVER_HOST"),
			Port:           v.GetInt("SERVER_PORT"),
			Env:            v.GetString("SERVER_ENV"),
			AllowedOrigins: splitList(v.GetString("SERVER_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DATABASE_HOST"),
			Port:     v.GetInt("DATABASE_PORT"),
			User:     v.GetString("DATABASE_USER"),
			Password: v.GetString("DATABASE_PASSWORD"),
			Name:     v.GetString("DATABASE_NAME"),
			SSLMode:  v.GetString("DATABASE_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			OTPDB:    v.GetInt("REDIS_OTP_DB"),
		},
		JWT: JWTConfig{
			Secret:             v.GetString("JWT_SECRET"),
			AccessExpiryHours:  v.GetInt("JWT_ACCESS_EXPIRY_HOURS"),
			RefreshExpiryHours: v.GetInt("JWT_REFRESH_EXPIRY_HOURS"),
		},
		Encryption: EncryptionConfig{
			Key: v.GetString("ENCRYPTION_KEY"),
		},
		RateLimit: RateLimitConfig{
			Requests:      v.GetInt("RATE_LIMIT_REQUESTS"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		OTP: OTPConfig{
			Length:              v.GetInt("OTP_LENGTH"),
			TTLMinutes:          v.GetInt("OTP_TTL_MINUTES"),
			MaxAttempts:         v.GetInt("OTP_MAX_ATTEMPTS"),
			ResendWindowSeconds: v.GetInt("OTP_RESEND_WINDOW_SECONDS"),
		},
		Gemini: GeminiConfig{
			APIKey:            v.GetString("GEMINI_API_KEY"),
			Model:             v.GetString("GEMINI_MODEL"),
			RequestsPerMinute: v.GetInt("GEMINI_REQUESTS_PER_MINUTE"),
		},
		Portal: PortalConfig{
			APIBaseURL:     strings.TrimRight(v.GetString("PORTAL_API_BASE_URL"), "/"),
			RequestTimeout: v.GetDuration("PORTAL_REQUEST_TIMEOUT"),
			SessionFile:    v.GetString("PORTAL_SESSION_FILE"),
			DemoMode:       v.GetBool("PORTAL_DEMO_MODE"),
			AdminSentinel:  v.GetString("PORTAL_ADMIN_SENTINEL"),
		},
		Worker: WorkerConfig{
			Concurrency:      v.GetInt("WORKER_CONCURRENCY"),
			PublishSweepCron: v.GetString("PUBLISH_SWEEP_CRON"),
		},
	}

	if cfg.OTP.Length != 6 {
		// The portal's OTP input has exactly six slots.
		return nil, fmt.Errorf("OTP_LENGTH must be 6, got %d", cfg.OTP.Length)
	}

	return cfg, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
