package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hugh/tarviz/internal/database/models"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveUser       = errors.New("user is inactive")
)

// OTPMessage is a code ready to be delivered.
type OTPMessage struct {
	Email     string
	Name      string
	Code      string
	Purpose   string
	ExpiresIn time.Duration
}

// OTPDispatcher hands a code to whatever delivers it (queue or mailer).
type OTPDispatcher interface {
	DispatchOTP(ctx context.Context, msg OTPMessage) error
}

type Service struct {
	db       *gorm.DB
	jwt      *JWTService
	otp      OTPStore
	dispatch OTPDispatcher
	otpTTL   time.Duration
	logger   *slog.Logger

	onSignup func(ctx context.Context, user *models.User) error
}

func NewService(db *gorm.DB, jwt *JWTService, otp OTPStore, dispatch OTPDispatcher, otpTTL time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:       db,
		jwt:      jwt,
		otp:      otp,
		dispatch: dispatch,
		otpTTL:   otpTTL,
		logger:   logger,
	}
}

// OnSignup registers a hook run after a verified signup creates its user,
// e.g. to give the new organization starter content.
func (s *Service) OnSignup(fn func(ctx context.Context, user *models.User) error) {
	s.onSignup = fn
}

type SignInResult struct {
	Tokens *TokenPair
	User   *models.User
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	var user models.User
	if err := s.db.WithContext(ctx).
		Preload("Organization").
		Where("email = ?", normalizeEmail(email)).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	if !CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	tokens, err := s.jwt.GeneratePair(user.ID, user.OrganizationID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}

	return &SignInResult{Tokens: tokens, User: &user}, nil
}

// RequestSignup records a pending signup and sends its verification code.
func (s *Service) RequestSignup(ctx context.Context, email, userName string) error {
	email = normalizeEmail(email)
	if exists, err := s.emailTaken(ctx, email); err != nil {
		return err
	} else if exists {
		return ErrUserExists
	}

	if err := s.otp.SavePending(ctx, PendingSignup{Email: email, UserName: userName}); err != nil {
		return fmt.Errorf("saving pending signup: %w", err)
	}
	return s.issue(ctx, PurposeSignup, email, userName)
}

// VerifySignup checks the code and creates the organization and user.
func (s *Service) VerifySignup(ctx context.Context, email, code, password string) (*models.User, error) {
	email = normalizeEmail(email)
	pending, err := s.otp.LoadPending(ctx, email)
	if err != nil {
		return nil, err
	}

	if err := s.otp.Verify(ctx, PurposeSignup, email, code); err != nil {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	orgName := pending.UserName + "'s Business"
	if pending.UserName == "" {
		orgName = email
	}
	org := models.Organization{
		Name:  orgName,
		Slug:  generateSlug(orgName),
		Email: email,
	}

	var user models.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrUserExists
		}

		if err := tx.Create(&org).Error; err != nil {
			return err
		}

		user = models.User{
			Email:          email,
			PasswordHash:   hash,
			FirstName:      pending.UserName,
			Salutation:     "Mr",
			OrganizationID: org.ID,
			Role:           models.RoleClient,
			IsActive:       true,
			EmailVerified:  true,
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, err
	}

	if err := s.otp.DeletePending(ctx, email); err != nil {
		s.logger.Warn("failed to clear pending signup", "email", email, "error", err)
	}

	user.Organization = &org
	if s.onSignup != nil {
		if err := s.onSignup(ctx, &user); err != nil {
			s.logger.Error("signup hook failed", "user_id", user.ID, "error", err)
		}
	}

	s.logger.Info("user signed up", "user_id", user.ID, "organization_id", org.ID)
	return &user, nil
}

// SendResetOTP sends a reset code when the email belongs to an account.
// Unknown emails succeed silently so the endpoint does not reveal accounts.
func (s *Service) SendResetOTP(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	user, err := s.userByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		s.logger.Info("reset requested for unknown email")
		return nil
	}
	if err != nil {
		return err
	}
	return s.issue(ctx, PurposeReset, email, user.FirstName)
}

func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = normalizeEmail(email)
	if err := s.otp.Verify(ctx, PurposeReset, email, code); err != nil {
		return err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	res := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", email).
		Update("password_hash", hash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ResendOTP issues a fresh code for an outstanding signup or reset.
func (s *Service) ResendOTP(ctx context.Context, email, purpose string) error {
	email = normalizeEmail(email)
	switch purpose {
	case PurposeSignup:
		pending, err := s.otp.LoadPending(ctx, email)
		if err != nil {
			return err
		}
		return s.issue(ctx, PurposeSignup, email, pending.UserName)
	case PurposeReset:
		return s.SendResetOTP(ctx, email)
	default:
		return ErrInvalidPurpose
	}
}

// Refresh exchanges a refresh token for a new pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*SignInResult, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	tokens, err := s.jwt.GeneratePair(user.ID, user.OrganizationID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}
	return &SignInResult{Tokens: tokens, User: user}, nil
}

func (s *Service) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).
		Preload("Organization").
		First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

type BusinessInput struct {
	Name            string
	Address         string
	GSTIN           string
	HSN             string
	Email           string
	Phone           string
	WhatsAppConsent bool
}

type ContactInput struct {
	Salutation      string
	FirstName       string
	LastName        string
	Phone           string
	WhatsAppConsent bool
}

// UpdateProfile saves the business and contact-person details of the
// dashboard's profile tab. The login email is not changed here.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, business BusinessInput, contact ContactInput) (*models.User, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Organization{}).
			Where("id = ?", user.OrganizationID).
			Updates(map[string]any{
				"name":              business.Name,
				"address":           business.Address,
				"gstin":             business.GSTIN,
				"hsn":               business.HSN,
				"email":             business.Email,
				"phone":             business.Phone,
				"whats_app_consent": business.WhatsAppConsent,
			}).Error; err != nil {
			return err
		}

		return tx.Model(&models.User{}).
			Where("id = ?", user.ID).
			Updates(map[string]any{
				"salutation":        contact.Salutation,
				"first_name":        contact.FirstName,
				"last_name":         contact.LastName,
				"phone":             contact.Phone,
				"whats_app_consent": contact.WhatsAppConsent,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	return s.GetUserByID(ctx, userID)
}

func (s *Service) issue(ctx context.Context, purpose, email, name string) error {
	code, err := s.otp.Issue(ctx, purpose, email)
	if err != nil {
		return err
	}

	err = s.dispatch.DispatchOTP(ctx, OTPMessage{
		Email:     email,
		Name:      name,
		Code:      code,
		Purpose:   purpose,
		ExpiresIn: s.otpTTL,
	})
	if err != nil {
		return fmt.Errorf("dispatching otp: %w", err)
	}
	return nil
}

func (s *Service) emailTaken(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Service) userByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func generateSlug(name string) string {
	slug := strings.ToLower(name)
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.ReplaceAll(slug, "'", "")
	return slug + "-" + uuid.NewString()[:8]
}
