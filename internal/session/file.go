package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hugh/tarviz/pkg/crypto"
)

// FileStore keeps values in a JSON document on disk, each value sealed with
// age so tokens never sit in plaintext.
type FileStore struct {
	path      string
	encryptor *crypto.Encryptor
	mu        sync.Mutex
}

func NewFileStore(path string, encryptor *crypto.Encryptor) *FileStore {
	return &FileStore{path: path, encryptor: encryptor}
}

func (f *FileStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.read()
	if err != nil {
		return "", err
	}
	sealed, ok := values[key]
	if !ok {
		return "", ErrNotFound
	}

	plain, err := f.encryptor.DecryptString(sealed)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", key, err)
	}
	return plain, nil
}

func (f *FileStore) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.read()
	if err != nil {
		return err
	}

	sealed, err := f.encryptor.EncryptString(value)
	if err != nil {
		return fmt.Errorf("sealing %s: %w", key, err)
	}
	values[key] = sealed
	return f.write(values)
}

func (f *FileStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return f.write(values)
}

func (f *FileStore) read() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session file: %w", err)
	}

	values := make(map[string]string)
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parsing session file: %w", err)
	}
	return values, nil
}

// write replaces the file atomically via rename.
func (f *FileStore) write(values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session file: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replacing session file: %w", err)
	}
	return nil
}
