package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrCacheMiss is returned when a cache key has no stored value.
var ErrCacheMiss = errors.New("cache key not found")

// Well-known cache keys. Arbitrary keys are allowed; these are the ones the
// engine and CLI use.
const (
	KeyMachineToken = "machine-token"
	noticesFile     = "notices.json"
	statusCacheDir  = "status-cache"
)

// Store persists client state as JSON documents under the data dir.
// Documents are written 0600 inside a 0700 directory; the machine token
// carries contract credentials.
type Store struct {
	dataDir string
}

// NewStore creates a store rooted at dataDir, creating the directory
// hierarchy if needed.
func NewStore(dataDir string) (*Store, error) {
	for _, dir := range []string{dataDir, filepath.Join(dataDir, statusCacheDir)} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("creating data dir %s: %w", dir, err)
		}
	}
	return &Store{dataDir: dataDir}, nil
}

// DataDir returns the store's root directory.
func (s *Store) DataDir() string {
	return s.dataDir
}

func (s *Store) pathFor(key string) string {
	// Keys may address the status-cache subdirectory ("status-cache/esm-infra");
	// anything else is a flat file. Path traversal is rejected by Clean.
	clean := filepath.Clean(strings.TrimSpace(key))
	if clean == "" || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		clean = "invalid-key"
	}
	return filepath.Join(s.dataDir, clean+".json")
}

// ReadCache reads the value stored under key into v.
func (s *Store) ReadCache(key string, v any) error {
	data, err := os.ReadFile(s.pathFor(key))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrCacheMiss, key)
		}
		return fmt.Errorf("reading cache key %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding cache key %s: %w", key, err)
	}
	return nil
}

// WriteCache stores v under key, replacing any previous value.
func (s *Store) WriteCache(key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache key %s: %w", key, err)
	}
	path := s.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("writing cache key %s: %w", key, err)
	}
	return os.Rename(tmp, path)
}

// DeleteCache removes the value stored under key. Deleting a missing key is
// not an error.
func (s *Store) DeleteCache(key string) error {
	err := os.Remove(s.pathFor(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting cache key %s: %w", key, err)
	}
	return nil
}

// StatusCacheKey returns the cache key for a service's status record.
func StatusCacheKey(service string) string {
	return statusCacheDir + "/" + service
}

// ServiceStatusRecord is the per-service status cache document written
// after a successful enable.
type ServiceStatusRecord struct {
	Service    string    `json:"service"`
	Enabled    bool      `json:"enabled"`
	AccessOnly bool      `json:"access_only,omitempty"`
	Variant    string    `json:"variant,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Notice is a persistent message surfaced by the status command until the
// condition it describes is resolved (e.g. reboot required).
type Notice struct {
	ID      string    `json:"id"`
	Label   string    `json:"label"`
	Message string    `json:"message"`
	AddedAt time.Time `json:"added_at"`
}

// AddNotice records a notice unless one with the same label already exists.
func (s *Store) AddNotice(label, message string) error {
	notices, err := s.Notices()
	if err != nil {
		return err
	}
	for _, n := range notices {
		if n.Label == label {
			return nil
		}
	}
	notices = append(notices, Notice{
		ID:      uuid.NewString(),
		Label:   label,
		Message: message,
		AddedAt: time.Now().UTC(),
	})
	log.Debug().Str("label", label).Msg("Adding notice")
	return s.writeNotices(notices)
}

// RemoveNotice removes all notices with the given label.
func (s *Store) RemoveNotice(label string) error {
	notices, err := s.Notices()
	if err != nil {
		return err
	}
	kept := notices[:0]
	for _, n := range notices {
		if n.Label != label {
			kept = append(kept, n)
		}
	}
	if len(kept) == len(notices) {
		return nil
	}
	return s.writeNotices(kept)
}

// Notices returns all recorded notices.
func (s *Store) Notices() ([]Notice, error) {
	var notices []Notice
	data, err := os.ReadFile(filepath.Join(s.dataDir, noticesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading notices: %w", err)
	}
	if err := json.Unmarshal(data, &notices); err != nil {
		return nil, fmt.Errorf("decoding notices: %w", err)
	}
	return notices, nil
}

func (s *Store) writeNotices(notices []Notice) error {
	data, err := json.MarshalIndent(notices, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dataDir, noticesFile), data, 0600)
}
