package accounting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const (
	recordFileName = "accounting.json"
	lockFileName   = "lock"
)

// ErrLockHeld is returned by blocking lock acquisition when the wait budget
// ran out while another invocation held the store lock.
var ErrLockHeld = errors.New("accounting: store lock held by another invocation")

// Store is the durable home of the accounting record.
//
// One advisory exclusive flock guards all persisted state in the state
// directory; the periodic check and the scheduled reset routine are separate
// processes and must not interleave their read-modify-write passes. Writes
// go through write-to-temp-then-rename so a reader never observes a torn
// record.
type Store struct {
	dir        string
	recordPath string
	lock       *flock.Flock
	log        *slog.Logger
}

// NewStore creates a Store rooted at the given state directory. The
// directory is created if absent.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("accounting: failed to create state dir %q: %w", dir, err)
	}
	return &Store{
		dir:        dir,
		recordPath: filepath.Join(dir, recordFileName),
		lock:       flock.New(filepath.Join(dir, lockFileName)),
		log:        logger.With("component", "accounting.store"),
	}, nil
}

// TryLock attempts a non-blocking exclusive lock acquisition. The periodic
// check uses this: when another instance holds the lock it backs off
// entirely and lets the next scheduled run catch up.
func (s *Store) TryLock() (bool, error) {
	ok, err := s.lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("accounting: lock acquisition failed: %w", err)
	}
	return ok, nil
}

// Lock acquires the exclusive lock, retrying until the context expires.
// The scheduled reset uses this with a bounded wait: a missed reset must
// not happen silently, so exhaustion surfaces as ErrLockHeld.
func (s *Store) Lock(ctx context.Context) error {
	ok, err := s.lock.TryLockContext(ctx, 500*time.Millisecond)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return ErrLockHeld
		}
		return fmt.Errorf("accounting: lock acquisition failed: %w", err)
	}
	if !ok {
		return ErrLockHeld
	}
	return nil
}

// Unlock releases the store lock.
func (s *Store) Unlock() error {
	return s.lock.Unlock()
}

// Load reads the persisted record.
//
// A missing file is the documented cold-start state and yields a zero
// record with no current cycle. An unreadable or unparseable file is data
// corruption: it is logged as a warning and likewise treated as absent,
// which costs at most one cycle's prior accumulation.
func (s *Store) Load() *Record {
	data, err := os.ReadFile(s.recordPath)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("accounting record unreadable, starting from a fresh baseline",
				"path", s.recordPath, "error", err)
		}
		return &Record{}
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.log.Warn("accounting record corrupt, starting from a fresh baseline",
			"path", s.recordPath, "error", err)
		return &Record{}
	}
	return &rec
}

// Save persists the record via atomic replace.
func (s *Store) Save(rec *Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("accounting: failed to encode record: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, recordFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("accounting: failed to create temp record: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("accounting: failed to write temp record: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("accounting: failed to sync temp record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("accounting: failed to close temp record: %w", err)
	}

	if err := os.Rename(tmpName, s.recordPath); err != nil {
		return fmt.Errorf("accounting: failed to replace record: %w", err)
	}
	return nil
}

// Reset removes the persisted record entirely. The next check starts a
// fresh baseline. Missing file is a no-op.
func (s *Store) Reset() error {
	if err := os.Remove(s.recordPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("accounting: failed to remove record: %w", err)
	}
	return nil
}

// RecordPath returns the path of the persisted record file.
func (s *Store) RecordPath() string {
	return s.recordPath
}
