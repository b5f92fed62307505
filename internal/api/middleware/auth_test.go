package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/tarviz/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJWT(expiry time.Duration) *auth.JWTService {
	return auth.NewJWTService("test-secret", expiry, time.Hour)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func TestAuth_ValidToken_AuthorizationHeader(t *testing.T) {
	jwtService := newJWT(24 * time.Hour)

	userID := uuid.New()
	orgID := uuid.New()
	email := "test@example.com"
	role := "client"

	token, err := jwtService.GenerateToken(userID, orgID, email, role)
	require.NoError(t, err)

	handler := Auth(jwtService)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, userID, GetUserID(r.Context()))
		assert.Equal(t, orgID, GetOrganizationID(r.Context()))
		assert.Equal(t, email, GetUserEmail(r.Context()))
		assert.Equal(t, role, GetUserRole(r.Context()))

		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}))

	req := httptest.NewRequest("GET", "/api/v1/pipeline", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestAuth_ValidToken_XAuthTokenHeader(t *testing.T) {
	jwtService := newJWT(24 * time.Hour)

	userID := uuid.New()
	token, err := jwtService.GenerateToken(userID, uuid.New(), "test@example.com", "admin")
	require.NoError(t, err)

	handler := Auth(jwtService)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, userID, GetUserID(r.Context()))
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/v1/me", nil)
	req.Header.Set("X-Auth-Token", token)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_Rejections(t *testing.T) {
	jwtService := newJWT(24 * time.Hour)
	userID, orgID := uuid.New(), uuid.New()

	expired, err := newJWT(time.Millisecond).GenerateToken(userID, orgID, "a@b.com", "client")
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	foreign, err := auth.NewJWTService("other-secret", time.Hour, time.Hour).GenerateToken(userID, orgID, "a@b.com", "client")
	require.NoError(t, err)

	pair, err := jwtService.GeneratePair(userID, orgID, "a@b.com", "client")
	require.NoError(t, err)

	tests := []struct {
		name    string
		header  string
		wantMsg string
	}{
		{"no token", "", "Unauthorized"},
		{"not bearer", "Basic abc", "Unauthorized"},
		{"malformed", "Bearer not-a-jwt", "Unauthorized"},
		{"expired", "Bearer " + expired, "Token expired"},
		{"different secret", "Bearer " + foreign, "Unauthorized"},
		{"refresh token", "Bearer " + pair.Refresh, "Unauthorized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			Auth(jwtService)(okHandler()).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.JSONEq(t, `{"error":"`+tt.wantMsg+`"}`, rec.Body.String())
		})
	}
}

func TestContextGetters_NotInContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, uuid.Nil, GetUserID(ctx))
	assert.Equal(t, uuid.Nil, GetOrganizationID(ctx))
	assert.Empty(t, GetUserEmail(ctx))
	assert.Empty(t, GetUserRole(ctx))
}

func TestContextGetters_WrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), UserIDKey, "not-a-uuid")
	assert.Equal(t, uuid.Nil, GetUserID(ctx))
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name     string
		role     string
		allowed  []string
		wantCode int
	}{
		{"admin allowed", "admin", []string{"admin"}, http.StatusOK},
		{"client refused", "client", []string{"admin"}, http.StatusForbidden},
		{"no role refused", "", []string{"admin"}, http.StatusForbidden},
		{"one of several", "client", []string{"admin", "client"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/admin/services", nil)
			if tt.role != "" {
				req = req.WithContext(context.WithValue(req.Context(), UserRoleKey, tt.role))
			}
			rec := httptest.NewRecorder()
			RequireRole(tt.allowed...)(okHandler()).ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}
