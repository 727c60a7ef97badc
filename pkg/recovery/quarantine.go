package recovery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/filewarden/filewarden/pkg/events"
)

// Quarantine moves path into the quarantine root under a sanitized,
// timestamped name and strips all permission bits. If the engine has a
// QuarantineLedger it records the original-path mapping there;
// RestoreFromQuarantine still takes the original path as an argument and
// only deletes that record.
func (e *Engine) Quarantine(ctx context.Context, path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return "", err
	}

	quarantinePath := filepath.Join(e.quarantineDir, timestampedName(path, ".quarantine"))
	if err := moveFile(path, quarantinePath); err != nil {
		return "", fmt.Errorf("recovery: quarantine: %w", err)
	}
	if err := os.Chmod(quarantinePath, 0o000); err != nil {
		e.logWarn("failed to lock down quarantined file mode", quarantinePath, err)
	}

	if e.ledger != nil {
		if _, err := e.ledger.RecordQuarantine(ctx, path, quarantinePath); err != nil {
			e.logWarn("failed to record quarantine sidecar entry", path, err)
		}
	}

	e.emit(events.TypeFileBlocked, events.SeverityCritical, path, map[string]any{"quarantine_path": quarantinePath})
	return quarantinePath, nil
}

// RestoreFromQuarantine moves a quarantined file back to originalPath and
// restores a readable mode. If a ledger entry exists for quarantinePath it
// is deleted once the restore succeeds.
func (e *Engine) RestoreFromQuarantine(ctx context.Context, quarantinePath, originalPath string) error {
	if _, err := os.Stat(quarantinePath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrQuarantineNotFound, quarantinePath)
		}
		return err
	}

	if err := os.Chmod(quarantinePath, 0o644); err != nil {
		e.logWarn("failed to restore mode before unquarantine", quarantinePath, err)
	}
	if err := ensureDir(filepath.Dir(originalPath)); err != nil {
		return err
	}
	if err := moveFile(quarantinePath, originalPath); err != nil {
		return fmt.Errorf("recovery: restore_from_quarantine: %w", err)
	}

	if e.ledger != nil {
		if entry, err := e.ledger.GetQuarantineEntryByPath(ctx, quarantinePath); err == nil {
			_ = e.ledger.DeleteQuarantineEntry(ctx, entry.ID)
		}
	}

	e.emit(events.TypeFileRestored, events.SeverityInfo, originalPath, map[string]any{"quarantine_path": quarantinePath, "method": "quarantine"})
	return nil
}

// moveFile renames src to dst, falling back to copy-then-remove when the
// two paths don't share a filesystem (os.Rename's EXDEV).
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := copyFile(src, dst, info.Mode()); err != nil {
		return err
	}
	return os.Remove(src)
}
