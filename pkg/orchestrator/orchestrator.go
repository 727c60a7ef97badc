// Package orchestrator binds the watcher, Mode Manager, Baseline Store,
// Integrity Engine, and Recovery Engine into the one dispatch loop spec.md
// §4.6 describes: it owns no state of its own beyond statistics, holding
// only non-owning references to the other components.
package orchestrator

import (
	"context"
	"errors"

	"github.com/filewarden/filewarden/internal/logger"
	"github.com/filewarden/filewarden/pkg/baseline"
	"github.com/filewarden/filewarden/pkg/events"
	"github.com/filewarden/filewarden/pkg/integrity"
	"github.com/filewarden/filewarden/pkg/modemgr"
	"github.com/filewarden/filewarden/pkg/watcher"
)

// Store is the subset of *baseline.Store the Orchestrator needs. Declared
// here so tests can substitute a fake instead of an on-disk database.
type Store interface {
	Get(ctx context.Context, path string) (*baseline.FileRecord, error)
	Update(ctx context.Context, path string, newSize int64, newHashes []string, newBackup string) error
	ListPaths(ctx context.Context) ([]string, error)
}

// ModeManager is the subset of *modemgr.Manager the Orchestrator needs.
type ModeManager interface {
	GetMode() modemgr.Mode
	EnterEmergency(reason string)
}

// RecoveryEngine is the subset of *recovery.Engine the Orchestrator needs.
type RecoveryEngine interface {
	CreateBackup(src string) (string, error)
	RestoreFromBackup(target, backup string) error
	RestoreBlocks(target, backup string, indices []int) error
	EmergencyBlockAll(paths []string) (blocked, failed int)
}

// Config configures an Orchestrator.
type Config struct {
	Store      Store
	ModeMgr    ModeManager
	Detector   *integrity.Detector
	Recovery   RecoveryEngine
	Emitter    events.Emitter
	Thresholds integrity.Thresholds

	// RansomwareFilesCountThreshold and RansomwareTimeWindowSeconds gate
	// the burst query the Orchestrator runs before accepting a
	// CriticalChange/UnauthorizedChange/SuspiciousChange classification at
	// face value (spec.md §4.6).
	RansomwareFilesCountThreshold int
	RansomwareTimeWindowSeconds   int
}

// Orchestrator is the sole writer of runtime statistics (spec.md §3); every
// other component is read-only from its perspective.
type Orchestrator struct {
	store      Store
	modeMgr    ModeManager
	detector   *integrity.Detector
	recovery   RecoveryEngine
	emitter    events.Emitter
	thresholds integrity.Thresholds

	ransomwareFilesCountThreshold int
	ransomwareTimeWindowSeconds   int

	stats *stats
}

// New constructs an Orchestrator from cfg.
func New(cfg Config) *Orchestrator {
	return &Orchestrator{
		store:                         cfg.Store,
		modeMgr:                       cfg.ModeMgr,
		detector:                      cfg.Detector,
		recovery:                      cfg.Recovery,
		emitter:                       cfg.Emitter,
		thresholds:                    cfg.Thresholds,
		ransomwareFilesCountThreshold: cfg.RansomwareFilesCountThreshold,
		ransomwareTimeWindowSeconds:   cfg.RansomwareTimeWindowSeconds,
		stats:                         &stats{},
	}
}

// Handle is the watcher.Handler the daemon wires into watcher.New. It never
// blocks indefinitely and never panics: every error path falls through to
// a logged warning rather than propagating across the watcher boundary.
func (o *Orchestrator) Handle(ev watcher.WatchEvent) {
	ctx := context.Background()

	record, err := o.store.Get(ctx, ev.FilePath)
	if errors.Is(err, baseline.ErrNotFound) {
		return // not a protected path; nothing to verify
	}
	if err != nil {
		logger.Warn("baseline lookup failed", logger.Path(ev.FilePath), logger.Err(err))
		return
	}

	switch ev.Type {
	case watcher.Modify, watcher.Create:
		o.handleModify(ctx, record)
	case watcher.Delete:
		o.handleDelete(ctx, record)
	case watcher.Move:
		// spec.md §4.6 defines dispatch only for modify/write-close and
		// delete; a rename of a protected path has no prescribed recovery
		// action and is left to the next poll/kernel event on the new name.
		logger.Info("protected path moved", logger.Path(ev.FilePath))
	}
}

func (o *Orchestrator) emit(typ events.Type, severity events.Severity, path string, fields map[string]any) {
	if o.emitter == nil {
		return
	}
	o.emitter.Emit(events.New(typ, severity, path, fields))
}

// Stats returns a snapshot of the Orchestrator's runtime counters.
func (o *Orchestrator) Stats() Stats {
	return o.stats.snapshot()
}
