package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hugh/tarviz/internal/api/dto"
	"github.com/hugh/tarviz/internal/api/middleware"
	"github.com/hugh/tarviz/internal/api/validation"
	"github.com/hugh/tarviz/internal/auth"
)

// AuthHandler serves /api/auth. Every response, success or not, is a
// dto.Envelope.
type AuthHandler struct {
	authService *auth.Service
	logger      *slog.Logger
}

func NewAuthHandler(authService *auth.Service, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, logger: logger}
}

type validator interface {
	Validate() map[string]string
}

// bind decodes and validates an auth request, answering the client itself
// when either fails.
func bind(w http.ResponseWriter, r *http.Request, req validator) bool {
	if err := decodeJSON(w, r, req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Failure("Invalid request body"))
		return false
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.FieldFailure(errs))
		return false
	}
	return true
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req dto.SignInRequest
	if !bind(w, r, &req) {
		return
	}

	res, err := h.authService.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeJSON(w, http.StatusUnauthorized, dto.Failure("Invalid email or password."))
		case errors.Is(err, auth.ErrInactiveUser):
			writeJSON(w, http.StatusForbidden, dto.Failure("Account is inactive."))
		default:
			h.logger.Error("sign in failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, dto.Failure("Sign in failed."))
		}
		return
	}

	writeJSON(w, http.StatusOK, dto.Envelope{
		Success: true,
		Message: "Login successful.",
		Token:   res.Tokens.Access,
		Refresh: res.Tokens.Refresh,
		User:    dto.NewUserDTO(res.User),
	})
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req dto.SignupRequest
	if !bind(w, r, &req) {
		return
	}

	err := h.authService.RequestSignup(r.Context(), req.Email, strings.TrimSpace(req.UserName))
	if err != nil {
		h.otpError(w, err, "Could not send OTP.")
		return
	}

	writeJSON(w, http.StatusOK, dto.Envelope{
		Success: true,
		Message: fmt.Sprintf("OTP sent to %s", strings.TrimSpace(req.Email)),
	})
}

func (h *AuthHandler) VerifySignupOTP(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifySignupRequest
	if !bind(w, r, &req) {
		return
	}

	user, err := h.authService.VerifySignup(r.Context(), req.Email, req.OTP, req.Password)
	if err != nil {
		h.otpError(w, err, "Could not create account.")
		return
	}

	writeJSON(w, http.StatusCreated, dto.Envelope{
		Success: true,
		Message: "Account created successfully.",
		User:    dto.NewUserDTO(user),
	})
}

func (h *AuthHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req dto.SendOTPRequest
	if !bind(w, r, &req) {
		return
	}

	if err := h.authService.SendResetOTP(r.Context(), req.Email); err != nil {
		h.otpError(w, err, "Could not send OTP.")
		return
	}

	writeJSON(w, http.StatusOK, dto.Envelope{
		Success: true,
		Message: "If this email is registered, an OTP has been sent.",
	})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPasswordRequest
	if !bind(w, r, &req) {
		return
	}

	if err := h.authService.ResetPassword(r.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		h.otpError(w, err, "Could not reset password.")
		return
	}

	writeJSON(w, http.StatusOK, dto.Envelope{Success: true, Message: "Password reset successful."})
}

func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req dto.ResendOTPRequest
	if !bind(w, r, &req) {
		return
	}

	if err := h.authService.ResendOTP(r.Context(), req.Email, req.Purpose); err != nil {
		h.otpError(w, err, "Could not resend OTP.")
		return
	}

	writeJSON(w, http.StatusOK, dto.Envelope{Success: true, Message: "OTP resent successfully."})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if !bind(w, r, &req) {
		return
	}

	res, err := h.authService.Refresh(r.Context(), req.Refresh)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken), errors.Is(err, auth.ErrUserNotFound):
			writeJSON(w, http.StatusUnauthorized, dto.Failure("Session expired. Please log in again."))
		case errors.Is(err, auth.ErrInactiveUser):
			writeJSON(w, http.StatusForbidden, dto.Failure("Account is inactive."))
		default:
			h.logger.Error("token refresh failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, dto.Failure("Could not refresh session."))
		}
		return
	}

	writeJSON(w, http.StatusOK, dto.Envelope{
		Success: true,
		Token:   res.Tokens.Access,
		Refresh: res.Tokens.Refresh,
		User:    dto.NewUserDTO(res.User),
	})
}

func (h *AuthHandler) otpError(w http.ResponseWriter, err error, fallback string) {
	var throttled *auth.ThrottledError
	switch {
	case errors.As(err, &throttled):
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(throttled.Wait.Seconds())+1))
		writeJSON(w, http.StatusTooManyRequests, dto.Failure(throttled.Error()))
	case errors.Is(err, auth.ErrUserExists):
		writeJSON(w, http.StatusConflict, dto.Failure("A user with this email already exists."))
	case errors.Is(err, auth.ErrOTPInvalid):
		writeJSON(w, http.StatusBadRequest, dto.Failure("Invalid OTP."))
	case errors.Is(err, auth.ErrOTPNotFound):
		writeJSON(w, http.StatusBadRequest, dto.Failure("OTP expired or not requested."))
	case errors.Is(err, auth.ErrOTPMaxAttempts):
		writeJSON(w, http.StatusTooManyRequests, dto.Failure("Too many attempts. Please request a new OTP."))
	case errors.Is(err, auth.ErrNoPendingSignup):
		writeJSON(w, http.StatusBadRequest, dto.Failure("No pending signup for this email. Please sign up again."))
	case errors.Is(err, auth.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, dto.Failure("User not found."))
	case errors.Is(err, auth.ErrInvalidPurpose):
		writeJSON(w, http.StatusBadRequest, dto.Failure("Invalid purpose."))
	default:
		h.logger.Error("auth request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.Failure(fallback))
	}
}

// Me returns the signed-in user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.GetUserByID(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "User not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to load user"})
		return
	}

	writeJSON(w, http.StatusOK, dto.NewUserDTO(user))
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	b, c := req.Business, req.ContactPerson
	user, err := h.authService.UpdateProfile(r.Context(), middleware.GetUserID(r.Context()),
		auth.BusinessInput{
			Name:            validation.SanitizeString(strings.TrimSpace(b.Name)),
			Address:         validation.SanitizeString(strings.TrimSpace(b.Address)),
			GSTIN:           strings.ToUpper(b.GSTIN),
			HSN:             b.HSN,
			Email:           strings.TrimSpace(b.Email),
			Phone:           b.Phone,
			WhatsAppConsent: b.WhatsAppConsent,
		},
		auth.ContactInput{
			Salutation:      c.Salutation,
			FirstName:       validation.SanitizeString(strings.TrimSpace(c.FirstName)),
			LastName:        validation.SanitizeString(strings.TrimSpace(c.LastName)),
			Phone:           c.Phone,
			WhatsAppConsent: c.WhatsAppConsent,
		},
	)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "User not found"})
			return
		}
		h.logger.Error("profile update failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to update profile"})
		return
	}

	writeJSON(w, http.StatusOK, dto.NewUserDTO(user))
}
