package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
)

// ErrModelMismatch means a persisted index was built with a different
// embedding model than the one configured, so its vectors are unusable.
var ErrModelMismatch = errors.New("index embedding model mismatch")

// Store owns the active Snapshot and its on-disk copy. Snapshots are
// swapped by reference: readers take the current pointer once and search
// an immutable value, so a rebuild never blocks or corrupts a read.
type Store struct {
	path    string
	current atomic.Pointer[Snapshot]
}

// NewStore creates a Store persisting to the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Snapshot returns the active snapshot, or nil if none has been published.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Publish makes snap the active snapshot. Callers already holding the
// previous snapshot keep searching it unaffected.
func (s *Store) Publish(snap *Snapshot) {
	s.current.Store(snap)
}

// Count returns the number of FAQ entries in the active snapshot.
func (s *Store) Count() int {
	snap := s.current.Load()
	if snap == nil {
		return 0
	}
	return snap.Count()
}

// LoadFromDisk loads and publishes a previously saved snapshot. A missing
// file is not an error; the store just stays empty. When expectModel is
// non-empty, an index built with a different model is rejected and nothing
// is published.
func (s *Store) LoadFromDisk(expectModel string) error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read index file: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decode index: %w", err)
	}

	if expectModel != "" && snap.Model != expectModel {
		return fmt.Errorf("%w: index built with %q, embedder uses %q", ErrModelMismatch, snap.Model, expectModel)
	}

	snap.hydrate()
	s.current.Store(&snap)

	return nil
}

// Save persists a snapshot. The write goes to a temp file in the same
// directory and is renamed over the previous index, so a crash mid-write
// never leaves a corrupt index behind.
func (s *Store) Save(snap *Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write index file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("swap index file: %w", err)
	}

	return nil
}
