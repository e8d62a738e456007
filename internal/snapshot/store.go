package snapshot

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	appName      = "ripple"
	snapshotFile = "queue.json"
)

// Store reads and writes the snapshot file. Writes go through a temp file
// and rename so a crash mid-write never leaves a half-written record.
type Store struct {
	path string
}

// NewStore creates a store at the default XDG state path.
func NewStore() (*Store, error) {
	path, err := xdg.StateFile(filepath.Join(appName, snapshotFile))
	if err != nil {
		return nil, err
	}
	return &Store{path: path}, nil
}

// NewStoreAt creates a store at an explicit path (used in tests).
func NewStoreAt(path string) *Store {
	return &Store{path: path}
}

// Load reads the snapshot. Returns (nil, nil) when no snapshot exists;
// ErrCorrupt when the file cannot be decoded.
func (s *Store) Load() (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}

// Save writes the snapshot atomically.
func (s *Store) Save(snap Snapshot) error {
	data, err := Marshal(snap)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Delete removes the snapshot file. Missing file is not an error.
func (s *Store) Delete() error {
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
