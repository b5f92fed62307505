// Package authclient is the request helper shared by every call the portal
// makes to the authentication backend.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultBasePath is where the backend mounts its auth endpoints.
const DefaultBasePath = "/api/auth"

// FallbackMessage is surfaced when a failure carries no usable message.
const FallbackMessage = "Something went wrong"

// Envelope is the backend's response shape for every auth endpoint.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Token   string          `json:"token,omitempty"`
	Refresh string          `json:"refresh,omitempty"`
	User    json.RawMessage `json:"user,omitempty"`
	Errors  json.RawMessage `json:"errors,omitempty"`
}

// RejectedError is returned when the backend answers with success=false.
type RejectedError struct {
	Endpoint string
	Status   int
	Message  string
}

func (e *RejectedError) Error() string {
	return e.Message
}

// Doer is satisfied by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	baseURL string
	http    Doer
	timeout time.Duration
	logger  *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(d Doer) Option {
	return func(c *Client) { c.http = d }
}

// WithTimeout bounds each request; zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for the backend at baseURL (scheme and host, with or
// without the /api/auth suffix).
func New(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	if !strings.HasSuffix(baseURL, DefaultBasePath) {
		baseURL += DefaultBasePath
	}

	c := &Client{
		baseURL: baseURL,
		http:    http.DefaultClient,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Post sends body as JSON to endpoint and decodes the envelope. A nil error
// always comes with a successful envelope; any other outcome is an error whose
// message is fit for display.
func (c *Client) Post(ctx context.Context, endpoint string, body any) (*Envelope, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("auth request failed", "endpoint", endpoint, "error", err)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("request timed out: %w", err)
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.logger.Warn("auth response not JSON", "endpoint", endpoint, "status", resp.StatusCode)
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	c.logger.Debug("auth request",
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"success", env.Success,
		"duration", time.Since(start).String(),
	)

	if !env.Success {
		return nil, &RejectedError{
			Endpoint: endpoint,
			Status:   resp.StatusCode,
			Message:  ErrorMessage(env.Errors),
		}
	}

	return &env, nil
}

// DisplayMessage turns any error from Post into the inline text shown to the user.
func DisplayMessage(err error) string {
	if err == nil {
		return ""
	}
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return rejected.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return FallbackMessage
}
