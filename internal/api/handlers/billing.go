package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hugh/tarviz/internal/api/dto"
	"github.com/hugh/tarviz/internal/api/middleware"
	"github.com/hugh/tarviz/internal/database/models"
	"gorm.io/gorm"
)

// BillingHandler serves a client's invoices and subscriptions.
type BillingHandler struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
}

func NewBillingHandler(db *gorm.DB, logger *slog.Logger) *BillingHandler {
	return &BillingHandler{db: db, logger: logger, now: time.Now}
}

// ListInvoices returns the organization's invoices, oldest first.
func (h *BillingHandler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var invoices []models.Invoice
	if err := h.db.WithContext(ctx).
		Where("organization_id = ?", middleware.GetOrganizationID(ctx)).
		Order("issued_on ASC, number ASC").
		Find(&invoices).Error; err != nil {
		h.logger.Error("failed to fetch invoices", "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to fetch invoices"})
		return
	}

	now := h.now()
	out := make([]dto.InvoiceDTO, len(invoices))
	for i, inv := range invoices {
		out[i] = dto.NewInvoiceDTO(inv, inv.StatusAt(now))
	}
	writeJSON(w, http.StatusOK, out)
}

// ListSubscriptions returns the organization's packages, active ones first.
func (h *BillingHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var subs []models.Subscription
	if err := h.db.WithContext(ctx).
		Where("organization_id = ?", middleware.GetOrganizationID(ctx)).
		Order("status ASC, renewal_date ASC").
		Find(&subs).Error; err != nil {
		h.logger.Error("failed to fetch subscriptions", "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to fetch subscriptions"})
		return
	}

	out := make([]dto.SubscriptionDTO, len(subs))
	for i, s := range subs {
		out[i] = dto.NewSubscriptionDTO(s)
	}
	writeJSON(w, http.StatusOK, out)
}
