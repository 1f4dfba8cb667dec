package ingest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	docerr "github.com/WhiteShieldPT/docsearch-pt/internal/errors"
)

// Lock serializes ingestion runs across processes. Two concurrent
// runs against the same index corrupt progress accounting, so the CLI
// takes this lock before starting.
type Lock struct {
	flock  *flock.Flock
	locked bool
}

// NewLock creates a lock rooted in the data directory.
func NewLock(dataDir string) *Lock {
	return &Lock{flock: flock.New(filepath.Join(dataDir, ".ingest.lock"))}
}

// TryAcquire attempts the lock without blocking. false means another
// ingestion run holds it.
func (l *Lock) TryAcquire() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.flock.Path()), 0o755); err != nil {
		return false, docerr.New(docerr.ErrCodeFolderNotFound,
			fmt.Sprintf("cannot create lock directory for %s", l.flock.Path()), err)
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, docerr.InternalError("cannot acquire ingest lock", err)
	}
	l.locked = acquired
	return acquired, nil
}

// Release frees the lock. Safe to call when not held.
func (l *Lock) Release() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	return l.flock.Unlock()
}
