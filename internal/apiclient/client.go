// Package apiclient calls the signed-in /api/v1 endpoints for the portal.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/hugh/tarviz/internal/api/dto"
	"github.com/hugh/tarviz/internal/assistant"
	"github.com/hugh/tarviz/internal/authclient"
	"github.com/hugh/tarviz/internal/session"
)

const basePath = "/api/v1"

var ErrNotSignedIn = errors.New("not signed in; run `portal login` first")

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
	Details map[string]string
}

func (e *APIError) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	fields := make([]string, 0, len(e.Details))
	for field := range e.Details {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, field := range fields {
		parts[i] = field + ": " + e.Details[field]
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

// Refresher exchanges a refresh token; *authclient.Client satisfies it.
type Refresher interface {
	Post(ctx context.Context, endpoint string, body any) (*authclient.Envelope, error)
}

type Client struct {
	baseURL string
	http    authclient.Doer
	store   session.Store
	auth    Refresher
	timeout time.Duration
	logger  *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(d authclient.Doer) Option {
	return func(c *Client) { c.http = d }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRefresher lets the client renew an expired access token once per call.
func WithRefresher(r Refresher) Option {
	return func(c *Client) { c.auth = r }
}

// New creates a client for the API at baseURL (scheme and host). Tokens are
// read from, and refreshed tokens written to, store.
func New(baseURL string, store session.Store, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/") + basePath,
		http:    http.DefaultClient,
		store:   store,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Me(ctx context.Context) (*dto.UserDTO, error) {
	var out dto.UserDTO
	if err := c.do(ctx, http.MethodGet, "/me", nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProfile(ctx context.Context, req dto.UpdateProfileRequest) (*dto.UserDTO, error) {
	var out dto.UserDTO
	if err := c.do(ctx, http.MethodPut, "/me/profile", req, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Board(ctx context.Context) (*dto.BoardResponse, error) {
	var out dto.BoardResponse
	if err := c.do(ctx, http.MethodGet, "/pipeline/", nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) MovePost(ctx context.Context, id, status string) (*dto.PostDTO, error) {
	var out dto.PostDTO
	err := c.do(ctx, http.MethodPut, "/pipeline/posts/"+id+"/status", dto.MovePostRequest{Status: status}, &out, true)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Approve(ctx context.Context, id string) (*dto.PostDTO, error) {
	var out dto.PostDTO
	if err := c.do(ctx, http.MethodPost, "/pipeline/posts/"+id+"/approve", nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RequestRevision(ctx context.Context, id, feedback string) (*dto.PostDTO, error) {
	var out dto.PostDTO
	err := c.do(ctx, http.MethodPost, "/pipeline/posts/"+id+"/revisions", dto.RevisionRequest{Feedback: feedback}, &out, true)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Revisions(ctx context.Context, id string) ([]dto.RevisionDTO, error) {
	var out []dto.RevisionDTO
	if err := c.do(ctx, http.MethodGet, "/pipeline/posts/"+id+"/revisions", nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Invoices(ctx context.Context) ([]dto.InvoiceDTO, error) {
	var out []dto.InvoiceDTO
	if err := c.do(ctx, http.MethodGet, "/billing/invoices", nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Subscriptions(ctx context.Context) ([]dto.SubscriptionDTO, error) {
	var out []dto.SubscriptionDTO
	if err := c.do(ctx, http.MethodGet, "/me/subscription", nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

// Chat and AuditSite are public; they work without a session.
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	var out dto.ChatResponse
	if err := c.do(ctx, http.MethodPost, "/assistant/chat", dto.ChatRequest{Message: message}, &out, false); err != nil {
		return "", err
	}
	return out.Reply, nil
}

func (c *Client) AuditSite(ctx context.Context, url string) (*assistant.AuditResult, error) {
	var out assistant.AuditResult
	if err := c.do(ctx, http.MethodPost, "/assistant/seo-audit", dto.AuditRequest{URL: url}, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) BlogOutline(ctx context.Context, topic string) (string, error) {
	var out dto.OutlineResponse
	if err := c.do(ctx, http.MethodPost, "/admin/blog/outline", dto.BlogOutlineRequest{Topic: topic}, &out, true); err != nil {
		return "", err
	}
	return out.Markdown, nil
}

func (c *Client) BlogSEO(ctx context.Context, topic, snippet string) (*assistant.SEOSuggestion, error) {
	var out assistant.SEOSuggestion
	err := c.do(ctx, http.MethodPost, "/admin/blog/seo", dto.BlogSEORequest{Topic: topic, Snippet: snippet}, &out, true)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, authed bool) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var token string
	if authed {
		sess, err := session.Load(ctx, c.store)
		if errors.Is(err, session.ErrNotFound) || (err == nil && sess.AccessToken == "") {
			return ErrNotSignedIn
		}
		if err != nil {
			return fmt.Errorf("loading session: %w", err)
		}
		token = sess.AccessToken
	}

	err := c.send(ctx, method, path, body, out, token)
	var apiErr *APIError
	if authed && c.auth != nil && errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		fresh, rerr := c.refresh(ctx)
		if rerr != nil {
			c.logger.Debug("token refresh failed", "error", rerr)
			return err
		}
		return c.send(ctx, method, path, body, out, fresh)
	}
	return err
}

func (c *Client) send(ctx context.Context, method, path string, body, out any, token string) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	c.logger.Debug("api request", "method", method, "path", path, "status", resp.StatusCode)

	if resp.StatusCode >= 300 {
		var e dto.ErrorResponse
		_ = json.Unmarshal(raw, &e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error, Details: e.Details}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// refresh swaps the stored refresh token for a new pair and saves it.
func (c *Client) refresh(ctx context.Context) (string, error) {
	sess, err := session.Load(ctx, c.store)
	if err != nil {
		return "", err
	}
	if sess.RefreshToken == "" {
		return "", ErrNotSignedIn
	}

	env, err := c.auth.Post(ctx, "/refresh/", map[string]string{"refresh": sess.RefreshToken})
	if err != nil {
		return "", err
	}

	user := env.User
	if len(user) == 0 {
		user = sess.User
	}
	if err := session.Save(ctx, c.store, session.Session{
		AccessToken:  env.Token,
		RefreshToken: env.Refresh,
		User:         user,
	}); err != nil {
		return "", err
	}
	return env.Token, nil
}
