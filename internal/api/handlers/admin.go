package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/tarviz/internal/api/dto"
	"github.com/hugh/tarviz/internal/api/validation"
	"github.com/hugh/tarviz/internal/database/models"
	"github.com/hugh/tarviz/pkg/crypto"
	"gorm.io/gorm"
)

const serviceCodeAttempts = 5

// AdminHandler manages the agency's service catalog, company settings and
// client list.
type AdminHandler struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewAdminHandler(db *gorm.DB, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{db: db, logger: logger}
}

func (h *AdminHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	query := h.db.WithContext(r.Context()).Order("category ASC, code ASC")
	if category := r.URL.Query().Get("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	var services []models.ServiceItem
	if err := query.Find(&services).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to fetch services"})
		return
	}

	writeJSON(w, http.StatusOK, services)
}

func (h *AdminHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateServiceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	item := models.ServiceItem{
		Name:        validation.SanitizeString(strings.TrimSpace(req.Name)),
		Description: validation.SanitizeString(strings.TrimSpace(req.Description)),
		Price:       req.Price,
		Category:    strings.TrimSpace(req.Category),
	}

	code, err := h.freeServiceCode(r)
	if err != nil {
		h.logger.Error("failed to allocate service code", "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create service"})
		return
	}
	item.Code = code

	if err := h.db.WithContext(r.Context()).Create(&item).Error; err != nil {
		h.logger.Error("failed to create service", "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create service"})
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

// freeServiceCode picks an unused SRV-nnnn code.
func (h *AdminHandler) freeServiceCode(r *http.Request) (string, error) {
	for i := 0; i < serviceCodeAttempts; i++ {
		digits, err := crypto.GenerateDigits(4)
		if err != nil {
			return "", err
		}
		code := "SRV-" + digits

		var count int64
		if err := h.db.WithContext(r.Context()).Unscoped().Model(&models.ServiceItem{}).Where("code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", errors.New("no free service code")
}

func (h *AdminHandler) DeleteService(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if !validation.IsValidServiceCode(code) {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid service code"})
		return
	}

	result := h.db.WithContext(r.Context()).Where("code = ?", code).Delete(&models.ServiceItem{})
	if result.Error != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to delete service"})
		return
	}
	if result.RowsAffected == 0 {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Service not found"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetCompany returns the saved settings, or the defaults if none were saved.
func (h *AdminHandler) GetCompany(w http.ResponseWriter, r *http.Request) {
	var settings models.CompanySettings
	err := h.db.WithContext(r.Context()).Order("created_at ASC").First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeJSON(w, http.StatusOK, models.DefaultCompanySettings())
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to fetch company settings"})
		return
	}

	writeJSON(w, http.StatusOK, settings)
}

func (h *AdminHandler) UpdateCompany(w http.ResponseWriter, r *http.Request) {
	var req dto.CompanySettingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	var settings models.CompanySettings
	err := h.db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Order("created_at ASC").First(&settings).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		settings.Name = strings.TrimSpace(req.Name)
		settings.Address = strings.TrimSpace(req.Address)
		settings.Phone = req.Phone
		settings.Email = strings.TrimSpace(req.Email)
		settings.BankDetails = req.BankDetails
		settings.PaymentModes = req.PaymentModes
		settings.PaymentTerms = req.PaymentTerms
		return tx.Save(&settings).Error
	})
	if err != nil {
		h.logger.Error("failed to save company settings", "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to save company settings"})
		return
	}

	writeJSON(w, http.StatusOK, settings)
}

type clientSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	GSTIN string `json:"gstin,omitempty"`
	Users int64  `json:"users"`
	Posts int64  `json:"posts"`
}

// ListClients lists client organizations with their user and post counts.
func (h *AdminHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var orgs []models.Organization
	if err := h.db.WithContext(ctx).Order("name ASC").Find(&orgs).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to fetch clients"})
		return
	}

	out := make([]clientSummary, 0, len(orgs))
	for _, org := range orgs {
		s := clientSummary{
			ID:    org.ID.String(),
			Name:  org.Name,
			Email: org.Email,
			Phone: org.Phone,
			GSTIN: org.GSTIN,
		}
		h.db.WithContext(ctx).Model(&models.User{}).Where("organization_id = ?", org.ID).Count(&s.Users)
		h.db.WithContext(ctx).Model(&models.Post{}).Where("organization_id = ?", org.ID).Count(&s.Posts)
		out = append(out, s)
	}

	writeJSON(w, http.StatusOK, out)
}
