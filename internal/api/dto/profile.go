package dto

import (
	"strings"

	"github.com/hugh/tarviz/internal/api/validation"
)

type BusinessDetails struct {
	Name            string `json:"name"`
	Address         string `json:"address"`
	GSTIN           string `json:"gstin"`
	HSN             string `json:"hsn"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	WhatsAppConsent bool   `json:"whatsapp_consent"`
}

type ContactPersonDetails struct {
	Salutation      string `json:"salutation"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Phone           string `json:"phone"`
	WhatsAppConsent bool   `json:"whatsapp_consent"`
}

// UpdateProfileRequest is the dashboard's profile tab.
type UpdateProfileRequest struct {
	Business      BusinessDetails      `json:"business"`
	ContactPerson ContactPersonDetails `json:"contact_person"`
}

var salutations = map[string]bool{"Mr": true, "Ms": true, "Mrs": true, "Dr": true}

func (r UpdateProfileRequest) Validate() map[string]string {
	errors := make(map[string]string)

	b := r.Business
	if strings.TrimSpace(b.Name) == "" {
		errors["business.name"] = "Business name is required"
	}
	if b.GSTIN != "" && !validation.IsValidGSTIN(strings.ToUpper(b.GSTIN)) {
		errors["business.gstin"] = "Invalid GSTIN"
	}
	if b.HSN != "" && !validation.IsValidHSN(b.HSN) {
		errors["business.hsn"] = "HSN must be 4, 6 or 8 digits"
	}
	if b.Email != "" && !isEmail(b.Email) {
		errors["business.email"] = "Invalid email format"
	}
	if b.Phone != "" && !validation.IsValidPhone(b.Phone) {
		errors["business.phone"] = "Invalid phone number"
	}

	c := r.ContactPerson
	if c.Salutation != "" && !salutations[c.Salutation] {
		errors["contact_person.salutation"] = "Salutation must be Mr, Ms, Mrs or Dr"
	}
	if strings.TrimSpace(c.FirstName) == "" {
		errors["contact_person.first_name"] = "First name is required"
	}
	if c.Phone != "" && !validation.IsValidPhone(c.Phone) {
		errors["contact_person.phone"] = "Invalid phone number"
	}

	return errors
}
