package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"ReelsAutoposter/internal/ports"
)

// FileCursorStore keeps the cursor as one decimal integer in a text file.
type FileCursorStore struct {
	path string
	mu   sync.Mutex
}

var _ ports.CursorStore = (*FileCursorStore)(nil)

// NewFileCursorStore binds the store to path; the file is created on first Save.
func NewFileCursorStore(path string) *FileCursorStore {
	return &FileCursorStore{path: path}
}

// Load returns 0 when the file is missing or empty.
func (s *FileCursorStore) Load(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save persists cursor unless it is lower than what is already stored.
func (s *FileCursorStore) Save(_ context.Context, cursor int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load()
	if err != nil {
		return err
	}
	if cursor <= current {
		return nil
	}

	if err := writeFileAtomic(s.path, []byte(strconv.FormatInt(cursor, 10)+"\n")); err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	return nil
}

func (s *FileCursorStore) load() (int64, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read cursor file %s: %w", s.path, err)
	}

	text := strings.TrimSpace(string(raw))
	if text == "" {
		return 0, nil
	}

	value, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse cursor file %s: %w", s.path, err)
	}
	return value, nil
}
