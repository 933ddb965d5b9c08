package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// sessionFile is the on-disk schema.
type sessionFile struct {
	AccessToken string `json:"access_token"`
}

// FileStore persists the credential across runs at a fixed path. The file
// is written with 0600 permissions since it holds a bearer token.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Set(token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return errors.Wrap(err, "failed to create session directory")
	}
	data, err := json.Marshal(sessionFile{AccessToken: token})
	if err != nil {
		return errors.Wrap(err, "failed to marshal session")
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return errors.Wrap(err, "failed to write session file")
	}
	return nil
}

func (f *FileStore) Get() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errors.Wrap(err, "failed to read session file")
	}
	var s sessionFile
	if err := json.Unmarshal(data, &s); err != nil {
		return "", errors.Wrap(err, "failed to parse session file")
	}
	return s.AccessToken, nil
}

func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove session file")
	}
	return nil
}
