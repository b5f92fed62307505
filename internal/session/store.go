// Package session persists the signed-in portal session between runs.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Storage keys. The app shell reads these; the auth flow only writes them.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
)

var ErrNotFound = errors.New("session key not found")

// Store is a small key/value abstraction over durable client storage.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Session is what a successful sign-in leaves behind.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         json.RawMessage
}

// Save writes all three keys. User is stored as its JSON text.
func Save(ctx context.Context, s Store, sess Session) error {
	user := sess.User
	if len(user) == 0 {
		user = json.RawMessage("null")
	}

	if err := s.Set(ctx, KeyAccessToken, sess.AccessToken); err != nil {
		return fmt.Errorf("saving access token: %w", err)
	}
	if err := s.Set(ctx, KeyRefreshToken, sess.RefreshToken); err != nil {
		return fmt.Errorf("saving refresh token: %w", err)
	}
	if err := s.Set(ctx, KeyUser, string(user)); err != nil {
		return fmt.Errorf("saving user: %w", err)
	}
	return nil
}

// Load returns ErrNotFound when no access token is stored.
func Load(ctx context.Context, s Store) (*Session, error) {
	access, err := s.Get(ctx, KeyAccessToken)
	if err != nil {
		return nil, err
	}

	refresh, err := s.Get(ctx, KeyRefreshToken)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	user, err := s.Get(ctx, KeyUser)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	sess := &Session{AccessToken: access, RefreshToken: refresh}
	if user != "" {
		sess.User = json.RawMessage(user)
	}
	return sess, nil
}

func Clear(ctx context.Context, s Store) error {
	for _, key := range []string{KeyAccessToken, KeyRefreshToken, KeyUser} {
		if err := s.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("clearing %s: %w", key, err)
		}
	}
	return nil
}
