package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hugh/tarviz/pkg/crypto"
)

const (
	PurposeSignup = "signup"
	PurposeReset  = "reset"
)

var (
	ErrOTPNotFound     = errors.New("otp expired or not requested")
	ErrOTPInvalid      = errors.New("invalid otp")
	ErrOTPMaxAttempts  = errors.New("too many otp attempts")
	ErrInvalidPurpose  = errors.New("invalid otp purpose")
	ErrNoPendingSignup = errors.New("no pending signup for this email")
)

// ThrottledError is returned when a code was issued too recently.
type ThrottledError struct {
	Wait time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("please wait %d seconds before requesting a new OTP", int(e.Wait.Seconds()))
}

type OTPConfig struct {
	Length       int
	TTL          time.Duration
	MaxAttempts  int
	ResendWindow time.Duration
}

// PendingSignup is held between /signup/ and /verify_signup_otp/.
type PendingSignup struct {
	Email    string `json:"email"`
	UserName string `json:"user_name"`
}

// OTPStore issues and checks one-time codes and keeps pending signups.
type OTPStore interface {
	Issue(ctx context.Context, purpose, email string) (string, error)
	Verify(ctx context.Context, purpose, email, code string) error
	SavePending(ctx context.Context, p PendingSignup) error
	LoadPending(ctx context.Context, email string) (*PendingSignup, error)
	DeletePending(ctx context.Context, email string) error
}

func ValidPurpose(p string) bool {
	return p == PurposeSignup || p == PurposeReset
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RedisOTPStore keeps codes, attempt counters and resend throttles in Redis.
type RedisOTPStore struct {
	client *redis.Client
	config OTPConfig
}

func NewRedisOTPStore(client *redis.Client, config OTPConfig) *RedisOTPStore {
	return &RedisOTPStore{client: client, config: config}
}

func otpKeys(purpose, email string) (code, attempts, resend string) {
	email = normalizeEmail(email)
	return fmt.Sprintf("otp:%s:%s", purpose, email),
		fmt.Sprintf("otp:att:%s:%s", purpose, email),
		fmt.Sprintf("otp:res:%s:%s", purpose, email)
}

func pendingKey(email string) string {
	return "signup:pending:" + normalizeEmail(email)
}

func (s *RedisOTPStore) Issue(ctx context.Context, purpose, email string) (string, error) {
	if !ValidPurpose(purpose) {
		return "", ErrInvalidPurpose
	}
	codeKey, attemptsKey, resendKey := otpKeys(purpose, email)

	ttl, err := s.client.TTL(ctx, resendKey).Result()
	if err != nil {
		return "", fmt.Errorf("checking resend throttle: %w", err)
	}
	if ttl > 0 {
		return "", &ThrottledError{Wait: ttl}
	}

	code, err := crypto.GenerateDigits(s.config.Length)
	if err != nil {
		return "", fmt.Errorf("generating otp: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, codeKey, code, s.config.TTL)
		pipe.Set(ctx, attemptsKey, 0, s.config.TTL)
		pipe.Set(ctx, resendKey, 1, s.config.ResendWindow)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("storing otp: %w", err)
	}
	return code, nil
}

func (s *RedisOTPStore) Verify(ctx context.Context, purpose, email, code string) error {
	if !ValidPurpose(purpose) {
		return ErrInvalidPurpose
	}
	codeKey, attemptsKey, _ := otpKeys(purpose, email)

	attempts, err := s.client.Incr(ctx, attemptsKey).Result()
	if err != nil {
		return fmt.Errorf("incrementing attempts: %w", err)
	}
	if attempts > int64(s.config.MaxAttempts) {
		s.client.Del(ctx, codeKey, attemptsKey)
		return ErrOTPMaxAttempts
	}

	stored, err := s.client.Get(ctx, codeKey).Result()
	if errors.Is(err, redis.Nil) {
		s.client.Del(ctx, attemptsKey)
		return ErrOTPNotFound
	}
	if err != nil {
		return fmt.Errorf("reading otp: %w", err)
	}
	if stored != code {
		return ErrOTPInvalid
	}

	s.client.Del(ctx, codeKey, attemptsKey)
	return nil
}

func (s *RedisOTPStore) SavePending(ctx context.Context, p PendingSignup) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, pendingKey(p.Email), data, s.config.TTL).Err()
}

func (s *RedisOTPStore) LoadPending(ctx context.Context, email string) (*PendingSignup, error) {
	data, err := s.client.Get(ctx, pendingKey(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoPendingSignup
	}
	if err != nil {
		return nil, fmt.Errorf("reading pending signup: %w", err)
	}

	var p PendingSignup
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding pending signup: %w", err)
	}
	return &p, nil
}

func (s *RedisOTPStore) DeletePending(ctx context.Context, email string) error {
	return s.client.Del(ctx, pendingKey(email)).Err()
}

// MemoryOTPStore is the single-process OTPStore used in tests and local runs
// without Redis.
type MemoryOTPStore struct {
	config OTPConfig
	now    func() time.Time

	mu      sync.Mutex
	codes   map[string]memoryCode
	resend  map[string]time.Time
	pending map[string]memoryPending
}

type memoryCode struct {
	code     string
	attempts int
	expires  time.Time
}

type memoryPending struct {
	signup  PendingSignup
	expires time.Time
}

func NewMemoryOTPStore(config OTPConfig) *MemoryOTPStore {
	return &MemoryOTPStore{
		config:  config,
		now:     time.Now,
		codes:   make(map[string]memoryCode),
		resend:  make(map[string]time.Time),
		pending: make(map[string]memoryPending),
	}
}

func (s *MemoryOTPStore) Issue(_ context.Context, purpose, email string) (string, error) {
	if !ValidPurpose(purpose) {
		return "", ErrInvalidPurpose
	}
	key, _, resendKey := otpKeys(purpose, email)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if until, ok := s.resend[resendKey]; ok && now.Before(until) {
		return "", &ThrottledError{Wait: until.Sub(now)}
	}

	code, err := crypto.GenerateDigits(s.config.Length)
	if err != nil {
		return "", fmt.Errorf("generating otp: %w", err)
	}
	s.codes[key] = memoryCode{code: code, expires: now.Add(s.config.TTL)}
	s.resend[resendKey] = now.Add(s.config.ResendWindow)
	return code, nil
}

func (s *MemoryOTPStore) Verify(_ context.Context, purpose, email, code string) error {
	if !ValidPurpose(purpose) {
		return ErrInvalidPurpose
	}
	key, _, _ := otpKeys(purpose, email)

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.codes[key]
	if !ok || s.now().After(entry.expires) {
		delete(s.codes, key)
		return ErrOTPNotFound
	}

	entry.attempts++
	if entry.attempts > s.config.MaxAttempts {
		delete(s.codes, key)
		return ErrOTPMaxAttempts
	}
	if entry.code != code {
		s.codes[key] = entry
		return ErrOTPInvalid
	}

	delete(s.codes, key)
	return nil
}

func (s *MemoryOTPStore) SavePending(_ context.Context, p PendingSignup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[normalizeEmail(p.Email)] = memoryPending{signup: p, expires: s.now().Add(s.config.TTL)}
	return nil
}

func (s *MemoryOTPStore) LoadPending(_ context.Context, email string) (*PendingSignup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.pending[normalizeEmail(email)]
	if !ok || s.now().After(entry.expires) {
		return nil, ErrNoPendingSignup
	}
	p := entry.signup
	return &p, nil
}

func (s *MemoryOTPStore) DeletePending(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, normalizeEmail(email))
	return nil
}
