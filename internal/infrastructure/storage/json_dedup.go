package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"ReelsAutoposter/internal/domain"
	"ReelsAutoposter/internal/ports"
)

// JSONDedupStore keeps the dedup history as one JSON object keyed by unique id.
// The whole file is loaded at open and rewritten on every Record.
type JSONDedupStore struct {
	path    string
	mu      sync.Mutex
	records map[string]domain.DedupRecord
}

var _ ports.DedupStore = (*JSONDedupStore)(nil)

// OpenJSONDedupStore loads path, treating a missing or empty file as empty history.
// A legacy file holding a JSON array of ids is read as a set of posted records.
func OpenJSONDedupStore(path string) (*JSONDedupStore, error) {
	store := &JSONDedupStore{path: path, records: map[string]domain.DedupRecord{}}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read dedup file %s: %w", path, err)
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return store, nil
	}

	if raw[0] == '[' {
		var ids []string
		if err := json.Unmarshal(raw, &ids); err != nil {
			return nil, fmt.Errorf("parse legacy dedup file %s: %w", path, err)
		}
		for _, id := range ids {
			store.records[id] = domain.DedupRecord{Status: domain.StatusPosted}
		}
		return store, nil
	}

	if err := json.Unmarshal(raw, &store.records); err != nil {
		return nil, fmt.Errorf("parse dedup file %s: %w", path, err)
	}
	if store.records == nil {
		store.records = map[string]domain.DedupRecord{}
	}
	return store, nil
}

// IsPosted reports whether the id has any record, whatever its status.
func (s *JSONDedupStore) IsPosted(_ context.Context, uniqueID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[uniqueID]
	return ok, nil
}

// Get returns the stored record for an id.
func (s *JSONDedupStore) Get(_ context.Context, uniqueID string) (domain.DedupRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[uniqueID]
	return rec, ok, nil
}

// Record upserts the id and rewrites the file. On write failure the
// in-memory state is rolled back so it keeps matching the disk.
func (s *JSONDedupStore) Record(_ context.Context, uniqueID string, record domain.DedupRecord) error {
	if uniqueID == "" {
		return fmt.Errorf("record dedup: empty unique id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.records[uniqueID]
	s.records[uniqueID] = record

	if err := writeJSONAtomic(s.path, s.records); err != nil {
		if existed {
			s.records[uniqueID] = prev
		} else {
			delete(s.records, uniqueID)
		}
		return fmt.Errorf("record dedup %s: %w", uniqueID, err)
	}
	return nil
}
