package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	InvoicePaid    = "Paid"
	InvoicePending = "Pending"
	InvoiceOverdue = "Overdue"

	SubscriptionActive    = "Active"
	SubscriptionCancelled = "Cancelled"
)

// Invoice is a bill raised to a client organization.
type Invoice struct {
	Base
	OrganizationID uuid.UUID `gorm:"type:uuid;index;not null" json:"organization_id"`
	Number         string    `gorm:"uniqueIndex;size:32;not null" json:"number"` // INV-2023-001
	IssuedOn       time.Time `gorm:"not null" json:"issued_on"`
	DueOn          time.Time `json:"due_on"`
	Amount         int64     `gorm:"not null" json:"amount"` // rupees
	Status         string    `gorm:"size:16;not null;default:'Pending'" json:"status"`
	Service        string    `json:"service"`
}

func (Invoice) TableName() string {
	return "invoices"
}

// StatusAt reports Overdue for a pending invoice past its due date.
func (i Invoice) StatusAt(now time.Time) string {
	if i.Status == InvoicePending && !i.DueOn.IsZero() && now.After(i.DueOn) {
		return InvoiceOverdue
	}
	return i.Status
}

// Subscription is a service package a client is signed up to.
type Subscription struct {
	Base
	OrganizationID uuid.UUID `gorm:"type:uuid;index;not null" json:"organization_id"`
	Code           string    `gorm:"uniqueIndex;size:32;not null" json:"code"` // SUB-123
	PackageName    string    `gorm:"not null" json:"package_name"`
	StartDate      time.Time `json:"start_date"`
	RenewalDate    time.Time `json:"renewal_date"`
	Status         string    `gorm:"size:16;not null;default:'Active'" json:"status"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}
