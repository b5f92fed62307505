package dto

import "github.com/hugh/tarviz/internal/database/models"

const dateLayout = "2006-01-02"

type InvoiceDTO struct {
	ID      string `json:"id"`
	Date    string `json:"date"`
	DueDate string `json:"due_date,omitempty"`
	Amount  int64  `json:"amount"`
	Status  string `json:"status"`
	Service string `json:"service"`
}

// NewInvoiceDTO takes the status to show separately so a pending invoice
// past its due date can be reported as Overdue.
func NewInvoiceDTO(inv models.Invoice, status string) InvoiceDTO {
	out := InvoiceDTO{
		ID:      inv.Number,
		Date:    inv.IssuedOn.Format(dateLayout),
		Amount:  inv.Amount,
		Status:  status,
		Service: inv.Service,
	}
	if !inv.DueOn.IsZero() {
		out.DueDate = inv.DueOn.Format(dateLayout)
	}
	return out
}

type SubscriptionDTO struct {
	ID          string `json:"id"`
	PackageName string `json:"package_name"`
	StartDate   string `json:"start_date"`
	RenewalDate string `json:"renewal_date"`
	Status      string `json:"status"`
}

func NewSubscriptionDTO(s models.Subscription) SubscriptionDTO {
	return SubscriptionDTO{
		ID:          s.Code,
		PackageName: s.PackageName,
		StartDate:   s.StartDate.Format(dateLayout),
		RenewalDate: s.RenewalDate.Format(dateLayout),
		Status:      s.Status,
	}
}
