// Package history persists every successful lookup to disk so results
// survive restarts. The file is a single JSON document keyed by
// platform and username, rewritten atomically after each change.
package history

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	errs "socialscope/pkg/errors"
	"socialscope/pkg/logger"
	"socialscope/pkg/social"
)

// Store holds the lookup history in memory and mirrors it to disk.
type Store struct {
	mu      sync.RWMutex
	path    string
	records map[string]social.UserRecord
	logger  logger.Logger
}

// NewStore loads existing history from path, or starts empty when the
// file is absent. A corrupt file is logged and treated as empty rather
// than blocking lookups.
func NewStore(path string, log logger.Logger) *Store {
	if log == nil {
		log = logger.GetLogger()
	}

	s := &Store{
		path:    path,
		records: make(map[string]social.UserRecord),
		logger:  log,
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.WithError(err).Warn("failed to read history file, starting empty")
		}
		return s
	}

	if err := json.Unmarshal(raw, &s.records); err != nil {
		log.WithError(err).Warn("history file is corrupt, starting empty")
		s.records = make(map[string]social.UserRecord)
	}
	return s
}

// Upsert records a successful lookup and persists the store. Persistence
// failures are logged but do not fail the lookup that produced the
// record.
func (s *Store) Upsert(record social.UserRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[social.Key(record.Platform, record.Username)] = record
	if err := s.persistLocked(); err != nil {
		s.logger.WithError(err).Warn("failed to persist search history")
	}
}

// Get returns the most recent stored record for a profile.
func (s *Store) Get(platform social.Platform, username string) (social.UserRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[social.Key(platform, username)]
	return record, ok
}

// List returns all stored records, most recently fetched first.
func (s *Store) List() []social.UserRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]social.UserRecord, 0, len(s.records))
	for _, record := range s.records {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].FetchedAt.After(records[j].FetchedAt)
	})
	return records
}

// Len reports how many profiles the history holds.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Clear removes every record and persists the empty store.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]social.UserRecord)
	return s.persistLocked()
}

// persistLocked writes the store to a temp file and renames it into
// place so a crash mid-write never corrupts the history.
func (s *Store) persistLocked() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errs.Wrap(errs.ErrorTypeUnknown, err, "failed to create history directory")
	}

	raw, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return errs.Wrap(errs.ErrorTypeUnknown, err, "failed to serialize history")
	}

	tmp := fmt.Sprintf("%s.tmp", s.path)
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return errs.Wrap(errs.ErrorTypeUnknown, err, "failed to write history file")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return errs.Wrap(errs.ErrorTypeUnknown, err, "failed to replace history file")
	}
	return nil
}
