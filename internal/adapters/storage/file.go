package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/jsamuelsen/quotesync/internal/domain"
)

// fileDocument is the on-disk layout of a FileStore.
type fileDocument struct {
	Values map[string]string `toml:"values"`
}

// FileStore keeps every key in one TOML document, rewritten on each mutation.
type FileStore struct {
	mu     sync.RWMutex
	path   string
	values map[string]string
}

// OpenFile loads the TOML document at path. A missing file starts empty;
// an unreadable or corrupt file is reported so the operator can decide.
func OpenFile(path string) (*FileStore, error) {
	resolved, err := expandPath(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}

	s := &FileStore{path: resolved, values: map[string]string{}}

	raw, err := os.ReadFile(resolved)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}

	if err != nil {
		return nil, fmt.Errorf("read %s: %w", resolved, err)
	}

	var doc fileDocument
	if err := toml.Unmarshal(raw, &doc); err != nil {
		return nil, domain.NewDecodeError(resolved, err)
	}

	if doc.Values != nil {
		s.values = doc.Values
	}

	return s, nil
}

// Get implements ports.KeyValueStore.
func (s *FileStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return "", domain.NewNotFoundError("storage key", key)
	}

	return v, nil
}

// Set implements ports.KeyValueStore.
func (s *FileStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.values[key]
	s.values[key] = value

	if err := s.flushLocked(); err != nil {
		if had {
			s.values[key] = prev
		} else {
			delete(s.values, key)
		}

		return err
	}

	return nil
}

// Remove implements ports.KeyValueStore.
func (s *FileStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.values[key]
	if !had {
		return nil
	}

	delete(s.values, key)

	if err := s.flushLocked(); err != nil {
		s.values[key] = prev

		return err
	}

	return nil
}

// flushLocked writes the document to a temp file and renames it into place.
func (s *FileStore) flushLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}

	raw, err := toml.Marshal(fileDocument{Values: s.values})
	if err != nil {
		return fmt.Errorf("marshal storage: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write storage: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace storage: %w", err)
	}

	return nil
}

// Close implements io.Closer. Every mutation is already flushed.
func (s *FileStore) Close() error {
	return nil
}

// Name implements ports.HealthChecker.
func (s *FileStore) Name() string {
	return "storage.file"
}

// Check verifies the storage directory is still reachable.
func (s *FileStore) Check(context.Context) error {
	_, err := os.Stat(filepath.Dir(s.path))

	return err
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", errors.New("path is empty")
	}

	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}

		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}

	return filepath.Abs(trimmed)
}
