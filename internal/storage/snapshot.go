package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SnapshotStore keeps one JSON document on disk, replaced atomically on every save.
type SnapshotStore struct {
	Path string
}

// Load decodes the stored document into dst. It reports false when nothing was saved yet.
func (s *SnapshotStore) Load(dst any) (bool, error) {
	stat, err := os.Stat(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat snapshot: %w", err)
	}
	if stat.IsDir() {
		return false, fmt.Errorf("snapshot path is a directory")
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		return false, fmt.Errorf("read snapshot: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("parse snapshot: %w", err)
	}
	return true, nil
}

// Save writes src through a temporary file and renames it into place.
func (s *SnapshotStore) Save(src any) error {
	dir := filepath.Dir(s.Path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(src, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmpPath := s.Path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("write snapshot tmp: %w", err)
	}
	if err := os.Rename(tmpPath, s.Path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// Remove deletes the stored document, if any.
func (s *SnapshotStore) Remove() error {
	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove snapshot: %w", err)
	}
	return nil
}
