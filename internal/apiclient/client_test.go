package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/hugh/tarviz/internal/authclient"
	"github.com/hugh/tarviz/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedIn(t *testing.T, access, refresh string) *session.MemoryStore {
	t.Helper()
	store := session.NewMemoryStore()
	require.NoError(t, session.Save(context.Background(), store, session.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         json.RawMessage(`{"email":"a@example.com"}`),
	}))
	return store
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_Board(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/pipeline/", r.URL.Path)
		assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{
			"columns": []map[string]any{{"id": "backlog", "label": "Backlog", "empty": true, "posts": []any{}}},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, signedIn(t, "access-1", "refresh-1"))
	board, err := c.Board(context.Background())
	require.NoError(t, err)
	require.Len(t, board.Columns, 1)
	assert.Equal(t, "Backlog", board.Columns[0].Label)
}

func TestClient_Billing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/api/v1/billing/invoices":
			writeJSON(w, http.StatusOK, []map[string]any{{"id": "INV-2023-001", "date": "2023-10-01", "amount": 15000, "status": "Paid", "service": "Spark Package"}})
		case "/api/v1/me/subscription":
			writeJSON(w, http.StatusOK, []map[string]any{{"id": "SUB-123", "package_name": "Radiance Package", "renewal_date": "2024-01-01", "status": "Active"}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, signedIn(t, "access-1", "refresh-1"))

	invoices, err := c.Invoices(context.Background())
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, int64(15000), invoices[0].Amount)

	subs, err := c.Subscriptions(context.Background())
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "Radiance Package", subs[0].PackageName)
}

func TestClient_NotSignedIn(t *testing.T) {
	c := New("http://127.0.0.1:1", session.NewMemoryStore())
	_, err := c.Board(context.Background())
	assert.ErrorIs(t, err, ErrNotSignedIn)
}

func TestClient_PublicEndpointsSkipSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "/api/v1/assistant/chat", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]string{"reply": "Hello!"})
	}))
	defer srv.Close()

	reply, err := New(srv.URL, session.NewMemoryStore()).Chat(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello!", reply)
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "Validation failed",
			"details": map[string]string{"status": "Unknown pipeline status", "id": "bad"},
		})
	}))
	defer srv.Close()

	_, err := New(srv.URL, signedIn(t, "a", "r")).MovePost(context.Background(), "p1", "archived")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Validation failed (id: bad; status: Unknown pipeline status)", apiErr.Error())
}

func TestClient_RefreshesExpiredToken(t *testing.T) {
	var refreshed atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/refresh/":
			refreshed.Add(1)
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			assert.Equal(t, "refresh-1", body["refresh"])
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "token": "access-2", "refresh": "refresh-2"})
		case "/api/v1/me":
			if r.Header.Get("Authorization") != "Bearer access-2" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Token expired"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"email": "a@example.com", "role": "client"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	store := signedIn(t, "access-1", "refresh-1")
	c := New(srv.URL, store, WithRefresher(authclient.New(srv.URL)))

	me, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "client", me.Role)
	assert.Equal(t, int32(1), refreshed.Load())

	sess, err := session.Load(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, "access-2", sess.AccessToken)
	assert.Equal(t, "refresh-2", sess.RefreshToken)
	assert.JSONEq(t, `{"email":"a@example.com"}`, string(sess.User), "user kept when refresh omits it")
}

func TestClient_RefreshFailureReturnsOriginalError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/refresh/" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "errors": []string{"Session expired. Please log in again."}})
			return
		}
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Token expired"})
	}))
	defer srv.Close()

	c := New(srv.URL, signedIn(t, "a", "r"), WithRefresher(authclient.New(srv.URL)))
	_, err := c.Approve(context.Background(), "p1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Token expired", apiErr.Message)
}
