package dto

import (
	"strings"

	"github.com/hugh/tarviz/internal/api/validation"
	"github.com/hugh/tarviz/internal/database/models"
)

type CreateServiceRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Category    string `json:"category"`
}

func (r CreateServiceRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if strings.TrimSpace(r.Name) == "" {
		errors["name"] = "Name is required"
	}
	if r.Price < 0 {
		errors["price"] = "Price cannot be negative"
	}
	if strings.TrimSpace(r.Category) == "" {
		errors["category"] = "Category is required"
	}

	return errors
}

type CompanySettingsRequest struct {
	Name         string             `json:"name"`
	Address      string             `json:"address"`
	Phone        string             `json:"phone"`
	Email        string             `json:"email"`
	BankDetails  models.BankDetails `json:"bankDetails"`
	PaymentModes []string           `json:"paymentModes"`
	PaymentTerms []string           `json:"paymentTerms"`
}

func (r CompanySettingsRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if strings.TrimSpace(r.Name) == "" {
		errors["name"] = "Name is required"
	}
	if r.Email != "" && !isEmail(r.Email) {
		errors["email"] = "Invalid email format"
	}
	if r.Phone != "" && !validation.IsValidPhone(r.Phone) {
		errors["phone"] = "Invalid phone number"
	}

	return errors
}
