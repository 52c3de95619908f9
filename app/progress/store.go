package progress

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// Store is the durable set of identifiers that have already been ingested.
// Membership only grows during normal operation; the set is what makes
// repeated runs resume instead of re-fetching completed work.
type Store struct {
	path string
	set  map[string]struct{}
}

func NewStore(path string) *Store {
	return &Store{
		path: path,
		set:  make(map[string]struct{}),
	}
}

// Load reads the persisted set. A missing artifact means a first run and an
// unparseable one is treated the same way: re-processing a few duplicates is
// preferable to a run that cannot start.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read progress file: %w", err)
	}

	var identifiers []string
	if err := json.Unmarshal(data, &identifiers); err != nil {
		slog.Warn("Progress file is corrupt, starting from an empty set", "path", s.path, "error", err)
		s.set = make(map[string]struct{})
		return nil
	}

	for _, id := range identifiers {
		s.set[id] = struct{}{}
	}
	return nil
}

// Add marks an identifier as processed. Idempotent.
func (s *Store) Add(identifier string) {
	s.set[identifier] = struct{}{}
}

func (s *Store) Contains(identifier string) bool {
	_, ok := s.set[identifier]
	return ok
}

func (s *Store) Len() int {
	return len(s.set)
}

// Identifiers returns the set in sorted order.
func (s *Store) Identifiers() []string {
	identifiers := make([]string, 0, len(s.set))
	for id := range s.set {
		identifiers = append(identifiers, id)
	}
	sort.Strings(identifiers)
	return identifiers
}

// Persist rewrites the artifact with the full current set. Sorted list form
// keeps the file reproducible for a given set.
func (s *Store) Persist() error {
	data, err := json.MarshalIndent(s.Identifiers(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize progress: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create progress directory: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write progress file: %w", err)
	}
	return nil
}
