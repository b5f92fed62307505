package models

import "github.com/google/uuid"

const (
	RoleClient = "client"
	RoleAdmin  = "admin"
)

type User struct {
	Base
	Email           string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash    string    `gorm:"not null" json:"-"`
	Salutation      string    `gorm:"size:8" json:"salutation"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	Phone           string    `json:"phone"`
	WhatsAppConsent bool      `json:"whatsapp_consent"`
	OrganizationID  uuid.UUID `gorm:"type:uuid;index" json:"organization_id"`
	Role            string    `gorm:"default:'client'" json:"role"` // client, admin
	IsActive        bool      `gorm:"default:true" json:"is_active"`
	EmailVerified   bool      `gorm:"default:false" json:"email_verified"`

	// Relationships
	Organization *Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) Name() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
