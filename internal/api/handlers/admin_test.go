package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/tarviz/internal/api/handlers"
	"github.com/hugh/tarviz/internal/api/middleware"
	"github.com/hugh/tarviz/internal/api/validation"
	"github.com/hugh/tarviz/internal/database/models"
	"github.com/hugh/tarviz/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAdminTestRouter(t *testing.T) (*chi.Mux, *testutil.TestSetup, string) {
	tc := testutil.NewTestContext(t)
	admin := testutil.CreateTestAdmin(t, tc.DB, tc.Org)
	adminToken := testutil.GenerateTestToken(t, tc.JWTService, admin)

	handler := handlers.NewAdminHandler(tc.DB, testutil.Logger())

	r := chi.NewRouter()
	r.Use(middleware.Auth(tc.JWTService))
	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(middleware.RequireRole(models.RoleAdmin))
		r.Get("/clients", handler.ListClients)
		r.Get("/services", handler.ListServices)
		r.Post("/services", handler.CreateService)
		r.Delete("/services/{code}", handler.DeleteService)
		r.Get("/company", handler.GetCompany)
		r.Put("/company", handler.UpdateCompany)
	})

	return r, tc, adminToken
}

func TestAdminHandler_RequiresAdmin(t *testing.T) {
	router, tc, _ := setupAdminTestRouter(t)

	rr := serve(t, router, http.MethodGet, "/api/v1/admin/services", nil, tc.Token)
	testutil.AssertStatus(t, rr, http.StatusForbidden)
}

func TestAdminHandler_Services(t *testing.T) {
	router, _, token := setupAdminTestRouter(t)

	tests := []struct {
		name       string
		body       map[string]interface{}
		wantStatus int
	}{
		{
			name:       "social media package",
			body:       map[string]interface{}{"name": "Instagram Management", "price": 15000, "category": "Social Media"},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "seo audit",
			body:       map[string]interface{}{"name": "SEO Audit", "description": "Full technical audit", "price": 8000, "category": "SEO"},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "missing name",
			body:       map[string]interface{}{"price": 100, "category": "SEO"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "negative price",
			body:       map[string]interface{}{"name": "Refund", "price": -1, "category": "SEO"},
			wantStatus: http.StatusBadRequest,
		},
	}

	var codes []string
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(t, router, http.MethodPost, "/api/v1/admin/services", tt.body, token)
			testutil.AssertStatus(t, rr, tt.wantStatus)
			if tt.wantStatus == http.StatusCreated {
				var item models.ServiceItem
				testutil.ParseJSONResponse(t, rr, &item)
				assert.True(t, validation.IsValidServiceCode(item.Code), item.Code)
				codes = append(codes, item.Code)
			}
		})
	}
	require.Len(t, codes, 2)
	assert.NotEqual(t, codes[0], codes[1])

	rr := serve(t, router, http.MethodGet, "/api/v1/admin/services?category=SEO", nil, token)
	testutil.AssertStatus(t, rr, http.StatusOK)
	var items []models.ServiceItem
	testutil.ParseJSONResponse(t, rr, &items)
	require.Len(t, items, 1)
	assert.Equal(t, "SEO Audit", items[0].Name)

	rr = serve(t, router, http.MethodDelete, "/api/v1/admin/services/"+codes[0], nil, token)
	testutil.AssertStatus(t, rr, http.StatusNoContent)

	rr = serve(t, router, http.MethodDelete, "/api/v1/admin/services/"+codes[0], nil, token)
	testutil.AssertStatus(t, rr, http.StatusNotFound)

	rr = serve(t, router, http.MethodDelete, "/api/v1/admin/services/bogus", nil, token)
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
}

func TestAdminHandler_Company(t *testing.T) {
	router, _, token := setupAdminTestRouter(t)

	rr := serve(t, router, http.MethodGet, "/api/v1/admin/company", nil, token)
	testutil.AssertStatus(t, rr, http.StatusOK)
	var settings models.CompanySettings
	testutil.ParseJSONResponse(t, rr, &settings)
	assert.Equal(t, "Tarviz Digimart", settings.Name)
	assert.Equal(t, []string{"NEFT/IMPS", "UPI", "Cheque"}, settings.PaymentModes)

	update := map[string]interface{}{
		"name":  "Tarviz Digimart LLP",
		"email": "billing@tarvizdigimart.com",
		"phone": "+91 74 7006 7003",
		"bankDetails": map[string]interface{}{
			"accountName": "Tarviz Digimart LLP",
			"bankName":    "ICICI Bank",
			"ifsc":        "ICIC0000001",
		},
		"paymentModes": []string{"UPI"},
	}
	rr = serve(t, router, http.MethodPut, "/api/v1/admin/company", update, token)
	testutil.AssertStatus(t, rr, http.StatusOK)

	update["name"] = "Tarviz Digimart Pvt Ltd"
	rr = serve(t, router, http.MethodPut, "/api/v1/admin/company", update, token)
	testutil.AssertStatus(t, rr, http.StatusOK)

	rr = serve(t, router, http.MethodGet, "/api/v1/admin/company", nil, token)
	testutil.AssertStatus(t, rr, http.StatusOK)
	settings = models.CompanySettings{}
	testutil.ParseJSONResponse(t, rr, &settings)
	assert.Equal(t, "Tarviz Digimart Pvt Ltd", settings.Name)
	assert.Equal(t, "ICICI Bank", settings.BankDetails.BankName)
	assert.Equal(t, []string{"UPI"}, settings.PaymentModes)

	rr = serve(t, router, http.MethodPut, "/api/v1/admin/company", map[string]interface{}{"name": "", "email": "nope"}, token)
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
}

func TestAdminHandler_ListClients(t *testing.T) {
	router, tc, token := setupAdminTestRouter(t)
	testutil.CreateTestPost(t, tc.DB, tc.Org.ID, "Launch", "backlog", time.Now())
	testutil.CreateTestPost(t, tc.DB, tc.Org.ID, "Follow-up", "writing", time.Now())

	rr := serve(t, router, http.MethodGet, "/api/v1/admin/clients", nil, token)
	testutil.AssertStatus(t, rr, http.StatusOK)

	var clients []struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Users int64  `json:"users"`
		Posts int64  `json:"posts"`
	}
	testutil.ParseJSONResponse(t, rr, &clients)
	require.Len(t, clients, 1)
	assert.Equal(t, tc.Org.ID.String(), clients[0].ID)
	assert.Equal(t, int64(2), clients[0].Users)
	assert.Equal(t, int64(2), clients[0].Posts)
}
