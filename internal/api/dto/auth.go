package dto

import (
	"strings"

	"github.com/hugh/tarviz/internal/database/models"
)

// Envelope is the response of every /api/auth endpoint. Errors is either a
// list of messages or a map of field to messages.
type Envelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Token   string   `json:"token,omitempty"`
	Refresh string   `json:"refresh,omitempty"`
	User    *UserDTO `json:"user,omitempty"`
	Errors  any      `json:"errors,omitempty"`
}

// Failure builds a rejected envelope carrying one message.
func Failure(msg string) Envelope {
	return Envelope{Success: false, Errors: []string{msg}}
}

// FieldFailure builds a rejected envelope from validation errors.
func FieldFailure(fields map[string]string) Envelope {
	errs := make(map[string][]string, len(fields))
	for field, msg := range fields {
		errs[field] = []string{msg}
	}
	return Envelope{Success: false, Errors: errs}
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r SignInRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if strings.TrimSpace(r.Email) == "" {
		errors["email"] = "This field may not be blank."
	}
	if r.Password == "" {
		errors["password"] = "This field may not be blank."
	}

	return errors
}

// SignupRequest starts a signup; purpose is always "signup".
type SignupRequest struct {
	Email    string `json:"email"`
	UserName string `json:"user_name"`
	Purpose  string `json:"purpose"`
}

func (r SignupRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if !isEmail(r.Email) {
		errors["email"] = "Enter a valid email address."
	}
	if strings.TrimSpace(r.UserName) == "" {
		errors["user_name"] = "This field may not be blank."
	}
	if r.Purpose != "" && r.Purpose != "signup" {
		errors["purpose"] = "Purpose must be signup."
	}

	return errors
}

type VerifySignupRequest struct {
	Email    string `json:"email"`
	OTP      string `json:"otp"`
	Password string `json:"password"`
}

func (r VerifySignupRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if !isEmail(r.Email) {
		errors["email"] = "Enter a valid email address."
	}
	if !isOTP(r.OTP) {
		errors["otp"] = "Enter the 6-digit code."
	}
	if ok, msg := isPassword(r.Password); !ok {
		errors["password"] = msg
	}

	return errors
}

// SendOTPRequest asks for a password reset code.
type SendOTPRequest struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
}

func (r SendOTPRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if !isEmail(r.Email) {
		errors["email"] = "Enter a valid email address."
	}
	if r.Purpose != "reset" {
		errors["purpose"] = "Purpose must be reset."
	}

	return errors
}

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"new_password"`
}

func (r ResetPasswordRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if !isEmail(r.Email) {
		errors["email"] = "Enter a valid email address."
	}
	if !isOTP(r.OTP) {
		errors["otp"] = "Enter the 6-digit code."
	}
	if ok, msg := isPassword(r.NewPassword); !ok {
		errors["new_password"] = msg
	}

	return errors
}

type ResendOTPRequest struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
}

func (r ResendOTPRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if !isEmail(r.Email) {
		errors["email"] = "Enter a valid email address."
	}
	if r.Purpose != "signup" && r.Purpose != "reset" {
		errors["purpose"] = "Purpose must be signup or reset."
	}

	return errors
}

type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

func (r RefreshRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.Refresh == "" {
		errors["refresh"] = "This field may not be blank."
	}
	return errors
}

type UserDTO struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	Salutation      string `json:"salutation"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Phone           string `json:"phone,omitempty"`
	WhatsAppConsent bool   `json:"whatsapp_consent"`
	Role            string `json:"role"`
	OrganizationID  string `json:"organization_id"`
	OrgName         string `json:"org_name,omitempty"`

	Business *BusinessDetails `json:"business,omitempty"`
}

func NewUserDTO(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	out := &UserDTO{
		ID:              u.ID.String(),
		Email:           u.Email,
		Salutation:      u.Salutation,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Phone:           u.Phone,
		WhatsAppConsent: u.WhatsAppConsent,
		Role:            u.Role,
		OrganizationID:  u.OrganizationID.String(),
	}
	if org := u.Organization; org != nil {
		out.OrgName = org.Name
		out.Business = &BusinessDetails{
			Name:            org.Name,
			Address:         org.Address,
			GSTIN:           org.GSTIN,
			HSN:             org.HSN,
			Email:           org.Email,
			Phone:           org.Phone,
			WhatsAppConsent: org.WhatsAppConsent,
		}
	}
	return out
}
