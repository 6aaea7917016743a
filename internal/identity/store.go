// Package identity persists the logged-in user between runs.
package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwrk-planet/chatsync/internal/domain"
)

const fileName = "identity.json"

var (
	ErrNoIdentity      = errors.New("no stored identity")
	ErrCorruptIdentity = errors.New("stored identity is corrupt")
)

// Identity is what is needed to resume a session without signing up again.
type Identity struct {
	UserID   string `json:"userID"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
	Token    string `json:"token,omitempty"`
	Points   int    `json:"points"`
	Level    int    `json:"level"`
}

func FromUser(u domain.User, token string) Identity {
	return Identity{
		UserID:   u.ID,
		Username: u.Username,
		Avatar:   u.Avatar,
		Token:    token,
		Points:   u.Points,
		Level:    u.Level,
	}
}

func (i Identity) User() domain.User {
	return domain.User{
		ID:       i.UserID,
		Username: i.Username,
		Avatar:   i.Avatar,
		Points:   i.Points,
		Level:    i.Level,
	}
}

type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path() string { return filepath.Join(s.dir, fileName) }

// Load reads the stored identity. An unreadable or incomplete file is removed
// and reported as ErrCorruptIdentity.
func (s *FileStore) Load() (Identity, error) {
	data, err := os.ReadFile(s.path())
	if errors.Is(err, fs.ErrNotExist) {
		return Identity{}, ErrNoIdentity
	}
	if err != nil {
		return Identity{}, fmt.Errorf("read identity: %w", err)
	}

	var id Identity
	if err := json.Unmarshal(data, &id); err != nil || strings.TrimSpace(id.UserID) == "" || strings.TrimSpace(id.Username) == "" {
		_ = os.Remove(s.path())
		if err == nil {
			err = errors.New("missing user id or username")
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrCorruptIdentity, err)
	}
	return id, nil
}

func (s *FileStore) Save(id Identity) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("create identity dir: %w", err)
	}
	data, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write identity: %w", err)
	}
	return os.Rename(tmp, s.path())
}

// Clear removes the stored identity. Clearing an empty store is not an error.
func (s *FileStore) Clear() error {
	err := os.Remove(s.path())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear identity: %w", err)
	}
	return nil
}
