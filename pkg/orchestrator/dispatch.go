package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/filewarden/filewarden/internal/logger"
	"github.com/filewarden/filewarden/pkg/baseline"
	"github.com/filewarden/filewarden/pkg/events"
	"github.com/filewarden/filewarden/pkg/integrity"
	"github.com/filewarden/filewarden/pkg/modemgr"
)

// handleModify implements spec.md §4.6's modify/write-close branch: hash the
// current content, classify the change against the baseline, and dispatch
// on the classification.
func (o *Orchestrator) handleModify(ctx context.Context, record *baseline.FileRecord) {
	path := record.FilePath

	current, size, err := integrity.HashVector(path, record.BlockSize)
	if errors.Is(err, integrity.ErrFileNotFound) {
		// File vanished between the watch event and verification: treat it
		// the same as an observed delete (spec.md §9 error-handling table).
		o.handleDelete(ctx, record)
		return
	}
	if errors.Is(err, integrity.ErrPermissionDenied) {
		o.emit(events.TypeWarning, events.SeverityWarning, path, map[string]any{"reason": "permission denied during verification"})
		logger.Warn("cannot verify protected file", logger.Path(path), logger.Err(err))
		return
	}
	if err != nil {
		logger.Warn("unexpected error hashing protected file", logger.Path(path), logger.Err(err))
		return
	}

	reference := record.HashVector()
	changed, changePercent := integrity.Diff(current, reference)
	entropy := integrity.Entropy(path)
	isUpdateMode := o.modeMgr.GetMode() == modemgr.Update

	classification := integrity.Classify(len(changed), changePercent, entropy, isUpdateMode, o.thresholds)

	if o.detector != nil && len(changed) > 0 {
		o.detector.Record(integrity.ModificationEvent{
			FilePath:      path,
			Timestamp:     time.Now(),
			BlocksChanged: len(changed),
			BlocksTotal:   len(reference),
			ChangePercent: changePercent,
			Entropy:       entropy,
		})
	}

	logger.Info("file verified", logger.Path(path), logger.Classification(string(classification)),
		logger.ChangePercent(changePercent), logger.Entropy(entropy))

	switch classification {
	case integrity.NoChange:
		o.stats.recordVerified()
		o.emit(events.TypeFileVerified, events.SeverityInfo, path, nil)

	case integrity.AllowedChange:
		o.handleAllowedChange(ctx, path, current, size)

	case integrity.CriticalChange:
		o.handleHostileChange(ctx, record, changed, true)

	case integrity.UnauthorizedChange, integrity.SuspiciousChange:
		o.handleHostileChange(ctx, record, changed, false)
	}
}

// handleAllowedChange accepts an edit made in Update mode: it re-baselines
// the file and creates a fresh backup to restore from on the next
// unauthorized change.
func (o *Orchestrator) handleAllowedChange(ctx context.Context, path string, hashes []string, size int64) {
	backupPath, err := o.recovery.CreateBackup(path)
	if err != nil {
		logger.Warn("failed to back up allowed change", logger.Path(path), logger.Err(err))
		backupPath = ""
	}

	if err := o.store.Update(ctx, path, size, hashes, backupPath); err != nil {
		logger.Warn("failed to update baseline after allowed change", logger.Path(path), logger.Err(err))
		return
	}

	o.stats.recordModifiedAllowed()
	o.emit(events.TypeFileModifiedAllowed, events.SeverityInfo, path, map[string]any{"backup_path": backupPath})
}

// handleHostileChange implements the CriticalChange/UnauthorizedChange/
// SuspiciousChange branches, which share the same ransomware-burst check
// before deciding between a full and a per-block restore (spec.md §4.6).
func (o *Orchestrator) handleHostileChange(ctx context.Context, record *baseline.FileRecord, changed []int, fullRestore bool) {
	path := record.FilePath

	o.emit(events.TypeFileModifiedUnauthorized, events.SeverityCritical, path, map[string]any{"changed_blocks": len(changed)})
	logger.Warn("unauthorized change detected", logger.Path(path), logger.BlocksChanged(len(changed)))

	if o.detector != nil {
		if positive, detection := o.detector.Detect(o.ransomwareFilesCountThreshold, o.ransomwareTimeWindowSeconds); positive {
			o.triggerEmergency(ctx, detection)
			return
		}
	}

	o.stats.recordRestored()
	if fullRestore || record.BackupPath == "" {
		if err := o.recovery.RestoreFromBackup(path, record.BackupPath); err != nil {
			logger.Warn("full restore failed", logger.Path(path), logger.Err(err))
		}
		return
	}
	if err := o.recovery.RestoreBlocks(path, record.BackupPath, changed); err != nil {
		logger.Warn("block restore failed", logger.Path(path), logger.Err(err))
	}
}

// handleDelete implements spec.md §4.6's delete branch: accept the deletion
// in Update mode, otherwise restore the file from its trusted backup.
func (o *Orchestrator) handleDelete(ctx context.Context, record *baseline.FileRecord) {
	path := record.FilePath

	if o.modeMgr.GetMode() == modemgr.Update {
		o.emit(events.TypePathRemoved, events.SeverityInfo, path, nil)
		return
	}

	o.stats.recordRestored()
	o.emit(events.TypeFileModifiedUnauthorized, events.SeverityCritical, path, map[string]any{"reason": "unauthorized delete"})
	if err := o.recovery.RestoreFromBackup(path, record.BackupPath); err != nil {
		logger.Warn("restore after unauthorized delete failed", logger.Path(path), logger.Err(err))
	}
}

// triggerEmergency enters Emergency mode and blocks every protected path,
// per spec.md §4.4/§4.5's "any detector -> Emergency; unconditional".
func (o *Orchestrator) triggerEmergency(ctx context.Context, detection integrity.Detection) {
	o.stats.recordEmergency()
	o.modeMgr.EnterEmergency("ransomware burst detected")

	paths, err := o.store.ListPaths(ctx)
	if err != nil {
		logger.Error("failed to list protected paths for emergency block", logger.Err(err))
		paths = detection.AffectedPaths
	}

	blocked, failed := o.recovery.EmergencyBlockAll(paths)
	o.emit(events.TypeMassModificationDetected, events.SeverityEmergency, "", map[string]any{
		"files_affected":      detection.FilesAffected,
		"mean_change_percent": detection.MeanChangePercent,
		"mean_entropy":        detection.MeanEntropy,
		"critical_count":      detection.CriticalCount,
		"blocked":             blocked,
		"failed_to_block":     failed,
	})
	logger.Error("ransomware burst detected, emergency mode activated",
		logger.FilesAffected(detection.FilesAffected))
}
