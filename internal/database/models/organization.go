package models

// Organization is a client business. Every client user belongs to one and
// its content pipeline is shared by its users.
type Organization struct {
	Base
	Name            string `gorm:"not null" json:"name"`
	Slug            string `gorm:"uniqueIndex;not null" json:"slug"`
	Address         string `json:"address"`
	GSTIN           string `gorm:"size:15" json:"gstin"`
	HSN             string `gorm:"size:8" json:"hsn"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	WhatsAppConsent bool   `json:"whatsapp_consent"`

	// Relationships
	Users []User `gorm:"foreignKey:OrganizationID" json:"-"`
	Posts []Post `gorm:"foreignKey:OrganizationID" json:"-"`
}

func (Organization) TableName() string {
	return "organizations"
}
