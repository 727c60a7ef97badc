package recovery

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sys/unix"
)

// targetLocks hands out an OS-level advisory lock per restore target so a
// second restore on the same path blocks until the first completes, even
// across process boundaries (spec.md §4.4 "idempotent with respect to
// concurrent calls on the same target — second caller blocks until first
// completes").
type targetLocks struct {
	dir string
	mu  sync.Mutex
}

func newTargetLocks(dir string) *targetLocks {
	return &targetLocks{dir: dir}
}

// lockFile holds an open, flock'd file descriptor for one target path.
// release releases the flock and closes the descriptor.
type lockFile struct {
	f *os.File
}

func (t *targetLocks) acquire(target string) (*lockFile, error) {
	if err := os.MkdirAll(t.dir, 0o700); err != nil {
		return nil, err
	}

	path := filepath.Join(t.dir, sanitizeForLockName(target)+".lock")

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, err
	}

	return &lockFile{f: f}, nil
}

func (l *lockFile) release() {
	_ = unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	_ = l.f.Close()
}

func sanitizeForLockName(path string) string {
	return strings.ReplaceAll(strings.TrimPrefix(path, string(os.PathSeparator)), string(os.PathSeparator), "_")
}
