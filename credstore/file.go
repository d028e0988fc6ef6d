package credstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dugoutlabs/auth-go"
)

// FileStore persists credentials as a single JSON file, the desktop
// equivalent of the browser's localStorage pair. Writing one file keeps the
// token and user atomic from the reader's perspective: no observer ever sees
// a token without its matching user mid-write.
type FileStore struct {
	path string

	mu sync.Mutex
}

// DefaultFilePath returns the default credentials path under the user
// config directory.
func DefaultFilePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("credstore: resolving user config dir: %w", err)
	}
	return filepath.Join(dir, "dugout", "credentials.json"), nil
}

// NewFileStore creates a file-backed store at path. An empty path uses
// DefaultFilePath.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		var err error
		path, err = DefaultFilePath()
		if err != nil {
			return nil, err
		}
	}
	return &FileStore{path: path}, nil
}

// Save durably stores the token and user together. The record is written to
// a temporary file first and renamed into place, so a reader sees either the
// old pair or the new pair, never a mix.
func (s *FileStore) Save(_ context.Context, token string, user auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(record{Token: token, User: user})
	if err != nil {
		return fmt.Errorf("credstore: encoding record: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("credstore: creating directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("credstore: writing record: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("credstore: replacing record: %w", err)
	}
	return nil
}

// Load returns the stored pair. A missing file, corrupt JSON, or a record
// missing either field all read as empty; Load never surfaces storage
// problems to the caller.
func (s *FileStore) Load(_ context.Context) (string, auth.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", auth.User{}, false
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return "", auth.User{}, false
	}
	if rec.Token == "" || rec.User.ID == "" {
		return "", auth.User{}, false
	}
	return rec.Token, rec.User, true
}

// Clear removes the stored pair. Calling Clear on an already-empty store is
// a no-op, not an error.
func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("credstore: clearing record: %w", err)
	}
	return nil
}

// Path returns the file path backing this store.
func (s *FileStore) Path() string { return s.path }
