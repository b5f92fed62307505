package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/hugh/tarviz/internal/database/models"
)

// Authenticator defines the account operations behind /api/auth.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*SignInResult, error)
	RequestSignup(ctx context.Context, email, userName string) error
	VerifySignup(ctx context.Context, email, code, password string) (*models.User, error)
	SendResetOTP(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	ResendOTP(ctx context.Context, email, purpose string) error
	Refresh(ctx context.Context, refreshToken string) (*SignInResult, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// TokenService defines the interface for JWT token operations.
type TokenService interface {
	GenerateToken(userID, orgID uuid.UUID, email, role string) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// Compile-time interface satisfaction checks
var (
	_ Authenticator = (*Service)(nil)
	_ TokenService  = (*JWTService)(nil)
	_ OTPStore      = (*RedisOTPStore)(nil)
	_ OTPStore      = (*MemoryOTPStore)(nil)
)
