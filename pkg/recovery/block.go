package recovery

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/filewarden/filewarden/pkg/events"
)

// BlockFile strips user/group/other write bits from path. When permanent is
// true it additionally sets the platform's immutable file attribute; if the
// underlying filesystem doesn't support it (FS_IOC_SETFLAGS returns ENOTTY
// or EOPNOTSUPP, e.g. tmpfs or overlayfs) this degrades to chmod-only rather
// than failing the whole operation, per spec.md §4.4.
func (e *Engine) BlockFile(path string, permanent bool) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return err
	}

	if err := os.Chmod(path, info.Mode()&^0o222); err != nil {
		return fmt.Errorf("recovery: block_file: chmod: %w", err)
	}

	method := "chmod"
	if permanent {
		if err := setImmutable(path, true); err == nil {
			method = "chmod+immutable"
		}
	}

	e.emit(events.TypeFileBlocked, events.SeverityWarning, path, map[string]any{"permanent": permanent, "method": method})
	return nil
}

// UnblockFile reverses BlockFile: clears the immutable attribute (if set)
// and restores the owner write bit.
func (e *Engine) UnblockFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return err
	}

	_ = setImmutable(path, false)

	if err := os.Chmod(path, info.Mode()|0o200); err != nil {
		return fmt.Errorf("recovery: unblock_file: chmod: %w", err)
	}
	return nil
}

// setImmutable toggles the FS_IMMUTABLE_FL attribute via the filesystem's
// ioctl flag interface. Tolerates filesystems that don't implement it.
func setImmutable(path string, on bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fd := int(f.Fd())

	flags, err := unix.IoctlGetInt(fd, unix.FS_IOC_GETFLAGS)
	if err != nil {
		return err
	}

	if on {
		flags |= unix.FS_IMMUTABLE_FL
	} else {
		flags &^= unix.FS_IMMUTABLE_FL
	}

	return unix.IoctlSetPointerInt(fd, unix.FS_IOC_SETFLAGS, flags)
}
