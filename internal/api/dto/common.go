package dto

import (
	"strings"

	"github.com/hugh/tarviz/internal/api/validation"
)

type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

func isEmail(s string) bool {
	return validation.IsValidEmail(strings.TrimSpace(s))
}

func isOTP(s string) bool {
	return validation.IsValidOTP(s)
}

func isPassword(s string) (bool, string) {
	if s == "" {
		return false, "This field may not be blank."
	}
	return validation.IsValidPassword(s)
}
