package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ReelsAutoposter/internal/domain"
)

const (
	runLockDirName   = ".run.lock"
	runLockOwnerFile = "owner.json"
)

// RunLock guards the state directory against overlapping invocations.
type RunLock struct {
	lockDir string
}

type runLockOwner struct {
	PID       int    `json:"pid"`
	RunID     string `json:"run_id,omitempty"`
	CreatedAt string `json:"created_at"`
	Hostname  string `json:"hostname,omitempty"`
}

// AcquireRunLock creates the lock directory inside stateDir. A lock older than
// staleAfter is considered abandoned by a crashed run and is broken; zero
// disables that.
func AcquireRunLock(stateDir, runID string, staleAfter time.Duration, now time.Time) (RunLock, error) {
	target := strings.TrimSpace(stateDir)
	if target == "" {
		return RunLock{}, fmt.Errorf("state directory is required")
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return RunLock{}, fmt.Errorf("create state directory %s: %w", target, err)
	}

	lockDir := filepath.Join(target, runLockDirName)
	if err := os.Mkdir(lockDir, 0o755); err != nil {
		if !os.IsExist(err) {
			return RunLock{}, fmt.Errorf("acquire run lock for %s: %w", target, err)
		}

		owner, readErr := readOwner(lockDir)
		if staleAfter > 0 && isStale(owner, readErr, lockDir, staleAfter, now) {
			if rmErr := os.RemoveAll(lockDir); rmErr != nil {
				return RunLock{}, fmt.Errorf("break stale run lock %s: %w", lockDir, rmErr)
			}
			return AcquireRunLock(stateDir, runID, 0, now)
		}

		if readErr == nil && owner.PID > 0 {
			return RunLock{}, fmt.Errorf("%w: %s (pid=%d run=%s created_at=%s host=%s)",
				domain.ErrRunLocked, target, owner.PID, owner.RunID, owner.CreatedAt, owner.Hostname)
		}
		return RunLock{}, fmt.Errorf("%w: %s", domain.ErrRunLocked, target)
	}

	owner := runLockOwner{
		PID:       os.Getpid(),
		RunID:     runID,
		CreatedAt: now.UTC().Format(time.RFC3339),
		Hostname:  hostnameOrUnknown(),
	}
	if err := writeJSONAtomic(filepath.Join(lockDir, runLockOwnerFile), owner); err != nil {
		_ = os.RemoveAll(lockDir)
		return RunLock{}, fmt.Errorf("write run lock owner for %s: %w", target, err)
	}

	return RunLock{lockDir: lockDir}, nil
}

// Release removes the lock directory; releasing twice is harmless.
func (l RunLock) Release() error {
	if strings.TrimSpace(l.lockDir) == "" {
		return nil
	}
	if err := os.RemoveAll(l.lockDir); err != nil {
		return fmt.Errorf("release run lock %s: %w", l.lockDir, err)
	}
	return nil
}

func readOwner(lockDir string) (runLockOwner, error) {
	var owner runLockOwner
	err := readJSON(filepath.Join(lockDir, runLockOwnerFile), &owner)
	return owner, err
}

func isStale(owner runLockOwner, readErr error, lockDir string, staleAfter time.Duration, now time.Time) bool {
	if readErr == nil {
		if created, err := time.Parse(time.RFC3339, owner.CreatedAt); err == nil {
			return now.Sub(created) > staleAfter
		}
	}
	info, err := os.Stat(lockDir)
	if err != nil {
		return false
	}
	return now.Sub(info.ModTime()) > staleAfter
}

func hostnameOrUnknown() string {
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	host = strings.TrimSpace(host)
	if host == "" {
		return "unknown"
	}
	return host
}
