package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/tarviz/pkg/crypto"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	enc, err := crypto.NewEncryptor("")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	return NewFileStore(path, enc), path
}

func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.Get(ctx, KeyAccessToken)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = Load(ctx, s)
	assert.ErrorIs(t, err, ErrNotFound)

	sess := Session{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		User:         json.RawMessage(`{"email":"a@b.com","role":"client"}`),
	}
	require.NoError(t, Save(ctx, s, sess))

	v, err := s.Get(ctx, KeyUser)
	require.NoError(t, err)
	assert.JSONEq(t, `{"email":"a@b.com","role":"client"}`, v)

	loaded, err := Load(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, "access-1", loaded.AccessToken)
	assert.Equal(t, "refresh-1", loaded.RefreshToken)
	assert.JSONEq(t, string(sess.User), string(loaded.User))

	require.NoError(t, Clear(ctx, s))
	_, err = Load(ctx, s)
	assert.ErrorIs(t, err, ErrNotFound)

	// Clearing twice is harmless.
	assert.NoError(t, Clear(ctx, s))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	fs, _ := newFileStore(t)
	exerciseStore(t, fs)
}

func TestFileStore_ValuesAreSealed(t *testing.T) {
	fs, path := newFileStore(t)
	ctx := context.Background()

	require.NoError(t, fs.Set(ctx, KeyAccessToken, "plain-access-token"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "plain-access-token")
	assert.Contains(t, string(raw), KeyAccessToken)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	enc, err := crypto.NewEncryptor(key)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "session.json")
	ctx := context.Background()
	require.NoError(t, NewFileStore(path, enc).Set(ctx, KeyRefreshToken, "r-1"))

	enc2, err := crypto.NewEncryptor(key)
	require.NoError(t, err)
	v, err := NewFileStore(path, enc2).Get(ctx, KeyRefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "r-1", v)
}

func TestFileStore_CorruptFile(t *testing.T) {
	fs, path := newFileStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := fs.Get(context.Background(), KeyAccessToken)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "parsing session file")
}

func TestSave_NilUserStoredAsNull(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, Save(ctx, s, Session{AccessToken: "a", RefreshToken: "r"}))

	v, err := s.Get(ctx, KeyUser)
	require.NoError(t, err)
	assert.Equal(t, "null", v)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	require.NoError(t, client.Ping(context.Background()).Err())

	exerciseStore(t, NewRedisStore(client, uuid.NewString(), time.Minute))
}
