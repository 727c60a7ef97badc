// Package recovery implements the daemon's active countermeasures: backup
// creation, full and per-block restore, file blocking (temporary and
// permanent), quarantine, and termination of processes holding a protected
// file open. See spec.md §4.4.
package recovery

import (
	"context"

	"github.com/filewarden/filewarden/internal/logger"
	"github.com/filewarden/filewarden/pkg/baseline"
	"github.com/filewarden/filewarden/pkg/events"
)

// QuarantineLedger is the subset of *baseline.Store the Engine needs to
// resolve a quarantine path back to its original location. Declared here,
// satisfied by *baseline.Store, so tests can substitute a fake.
type QuarantineLedger interface {
	RecordQuarantine(ctx context.Context, originalPath, quarantinePath string) (string, error)
	GetQuarantineEntryByPath(ctx context.Context, quarantinePath string) (*baseline.QuarantineEntry, error)
	DeleteQuarantineEntry(ctx context.Context, id string) error
}

// Engine implements the Recovery Engine component.
type Engine struct {
	backupDir     string
	quarantineDir string
	lockDir       string
	blockSize     int64

	locks   *targetLocks
	ledger  QuarantineLedger
	emitter events.Emitter
}

// Config configures a new Engine.
type Config struct {
	BackupDir     string
	QuarantineDir string
	LockDir       string
	BlockSize     int64
	Ledger        QuarantineLedger
	Emitter       events.Emitter
}

// New constructs an Engine, creating its backup and quarantine directories
// (mode 0700) if they don't already exist.
func New(cfg Config) (*Engine, error) {
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = 64 * 1024
	}
	if cfg.LockDir == "" {
		cfg.LockDir = cfg.BackupDir + "/.locks"
	}

	e := &Engine{
		backupDir:     cfg.BackupDir,
		quarantineDir: cfg.QuarantineDir,
		lockDir:       cfg.LockDir,
		blockSize:     cfg.BlockSize,
		locks:         newTargetLocks(cfg.LockDir),
		ledger:        cfg.Ledger,
		emitter:       cfg.Emitter,
	}

	for _, dir := range []string{e.backupDir, e.quarantineDir} {
		if err := ensureDir(dir); err != nil {
			return nil, err
		}
	}

	return e, nil
}

func (e *Engine) emit(typ events.Type, severity events.Severity, path string, fields map[string]any) {
	if e.emitter == nil {
		return
	}
	e.emitter.Emit(events.New(typ, severity, path, fields))
}

func (e *Engine) logWarn(msg string, path string, err error) {
	logger.Warn(msg, logger.Path(path), logger.Err(err))
}
