package control

import (
	"context"
	"fmt"

	"github.com/filewarden/filewarden/pkg/baseline"
	"github.com/filewarden/filewarden/pkg/events"
	"github.com/filewarden/filewarden/pkg/integrity"
	"github.com/filewarden/filewarden/pkg/modemgr"
	"github.com/filewarden/filewarden/pkg/recovery"
	"github.com/filewarden/filewarden/pkg/watcher"
)

// Store is the subset of *baseline.Store the control handler needs.
type Store interface {
	Get(ctx context.Context, path string) (*baseline.FileRecord, error)
	AddOrReplace(ctx context.Context, path string, fileSize, blockSize int64, hashes []string, backupPath string) error
	Remove(ctx context.Context, path string) (bool, error)
	ListPaths(ctx context.Context) ([]string, error)
	List(ctx context.Context) ([]baseline.FileRecord, error)
	Count(ctx context.Context) (int64, error)
	Statistics(ctx context.Context) (baseline.Stats, error)
	VerifySelfIntegrity(ctx context.Context) (bool, string)
}

// ModeManager is the subset of *modemgr.Manager the control handler needs.
type ModeManager interface {
	GetStatus() modemgr.Status
	History(limit int) []modemgr.Transition
	ValidateAction(action modemgr.Action, admin string) (bool, error)
	EnterInit(admin string) error
	ExitInit(admin string) error
	EnterUpdate(admin string, timeoutSeconds int) (string, error)
	ExitUpdate(admin string) error
	ExitEmergency(admin string) error
}

// Handler dispatches decoded Commands against the daemon's components,
// replacing the source's dict[str, Callable] lookup with a type switch
// (spec.md §9).
type Handler struct {
	Mode      ModeManager
	Store     Store
	Recovery  *recovery.Engine
	Watcher   *watcher.Watcher
	Logs      *events.Ring
	BlockSize int64
	Emitter   events.Emitter
}

// Dispatch decodes one wire request and runs the matching Command,
// returning the Response to frame back to the client.
func (h *Handler) Dispatch(name string, params []byte) Response {
	cmd, err := decodeCommand(name, params)
	if err != nil {
		return Response{Success: false, Error: err.Error()}
	}
	return h.run(cmd)
}

func (h *Handler) emit(typ events.Type, severity events.Severity, path string, fields map[string]any) {
	if h.Emitter == nil {
		return
	}
	h.Emitter.Emit(events.New(typ, severity, path, fields))
}

func (h *Handler) run(cmd Command) Response {
	ctx := context.Background()

	switch c := cmd.(type) {
	case *PingCommand:
		return ok("pong")

	case *GetStatusCommand:
		return ok(h.Mode.GetStatus())

	case *GetStatisticsCommand:
		stats, err := h.Store.Statistics(ctx)
		return result(stats, err)

	case *GetModeHistoryCommand:
		return ok(h.Mode.History(c.Limit))

	case *ReadLogsCommand:
		if h.Logs == nil {
			return ok([]events.Event{})
		}
		all := h.Logs.Snapshot()
		if c.Limit > 0 && c.Limit < len(all) {
			all = all[len(all)-c.Limit:]
		}
		return ok(all)

	case *EnterInitModeCommand:
		return result(nil, h.Mode.EnterInit(c.Admin))
	case *ExitInitModeCommand:
		return result(nil, h.Mode.ExitInit(c.Admin))
	case *EnterUpdateModeCommand:
		token, err := h.Mode.EnterUpdate(c.Admin, c.TimeoutSeconds)
		return result(map[string]string{"session_token": token}, err)
	case *ExitUpdateModeCommand:
		return result(nil, h.Mode.ExitUpdate(c.Admin))
	case *ExitEmergencyModeCommand:
		return result(nil, h.Mode.ExitEmergency(c.Admin))

	case *StartMonitoringCommand:
		h.Watcher.Start()
		return ok(nil)
	case *StopMonitoringCommand:
		h.Watcher.Stop()
		return ok(nil)
	case *PauseMonitoringCommand:
		h.Watcher.Pause()
		return ok(nil)
	case *ResumeMonitoringCommand:
		h.Watcher.Resume()
		return ok(nil)
	case *AddPathCommand:
		err := h.Watcher.AddPath(c.Path)
		if err == nil {
			h.emit(events.TypePathAdded, events.SeverityInfo, c.Path, nil)
		}
		return result(nil, err)
	case *RemovePathCommand:
		h.Watcher.RemovePath(c.Path)
		h.emit(events.TypePathRemoved, events.SeverityInfo, c.Path, nil)
		return ok(nil)
	case *GetPathsCommand:
		return ok(h.Watcher.Paths())

	case *GetFilesCommand:
		records, err := h.Store.List(ctx)
		return result(records, err)
	case *GetFileInfoCommand:
		record, err := h.Store.Get(ctx, c.Path)
		return result(record, err)
	case *VerifyFileCommand:
		return h.handleVerifyFile(ctx, c.Path)

	case *InitializeBaselineCommand:
		return h.handleInitializeBaseline(ctx, c)
	case *CreateBackupCommand:
		allowed, err := h.Mode.ValidateAction(modemgr.ActionCreateBackup, c.Admin)
		if err != nil || !allowed {
			return forbidden(err)
		}
		backup, err := h.Recovery.CreateBackup(c.Path)
		return result(map[string]string{"backup_path": backup}, err)
	case *RestoreFileCommand:
		allowed, err := h.Mode.ValidateAction(modemgr.ActionRestoreFile, c.Admin)
		if err != nil || !allowed {
			return forbidden(err)
		}
		record, err := h.Store.Get(ctx, c.Path)
		if err != nil {
			return result(nil, err)
		}
		return result(nil, h.Recovery.RestoreFromBackup(c.Path, record.BackupPath))
	case *RestoreBlocksCommand:
		allowed, err := h.Mode.ValidateAction(modemgr.ActionRestoreFile, c.Admin)
		if err != nil || !allowed {
			return forbidden(err)
		}
		record, err := h.Store.Get(ctx, c.Path)
		if err != nil {
			return result(nil, err)
		}
		return result(nil, h.Recovery.RestoreBlocks(c.Path, record.BackupPath, c.Indices))
	case *BlockFileCommand:
		allowed, err := h.Mode.ValidateAction(modemgr.ActionBlockFile, c.Admin)
		if err != nil || !allowed {
			return forbidden(err)
		}
		return result(nil, h.Recovery.BlockFile(c.Path, c.Permanent))
	case *UnblockFileCommand:
		allowed, err := h.Mode.ValidateAction(modemgr.ActionBlockFile, c.Admin)
		if err != nil || !allowed {
			return forbidden(err)
		}
		return result(nil, h.Recovery.UnblockFile(c.Path))
	case *QuarantineCommand:
		allowed, err := h.Mode.ValidateAction(modemgr.ActionBlockFile, c.Admin)
		if err != nil || !allowed {
			return forbidden(err)
		}
		qPath, err := h.Recovery.Quarantine(ctx, c.Path)
		return result(map[string]string{"quarantine_path": qPath}, err)
	case *RestoreFromQuarantineCommand:
		allowed, err := h.Mode.ValidateAction(modemgr.ActionRestoreFile, c.Admin)
		if err != nil || !allowed {
			return forbidden(err)
		}
		return result(nil, h.Recovery.RestoreFromQuarantine(ctx, c.QuarantinePath, c.OriginalPath))
	case *FindProcessesUsingCommand:
		holders, err := h.Recovery.FindProcessesUsing(c.Path)
		return result(holders, err)
	case *TerminateProcessCommand:
		allowed, err := h.Mode.ValidateAction(modemgr.ActionRestoreFile, c.Admin)
		if err != nil || !allowed {
			return forbidden(err)
		}
		return result(nil, h.Recovery.Terminate(c.PID, c.Force))

	case *ShutdownCommand:
		return ok("shutdown acknowledged")

	default:
		return Response{Success: false, Error: fmt.Sprintf("control: unhandled command type %T", cmd)}
	}
}

func (h *Handler) handleVerifyFile(ctx context.Context, path string) Response {
	record, err := h.Store.Get(ctx, path)
	if err != nil {
		return result(nil, err)
	}
	current, _, err := integrity.HashVector(path, record.BlockSize)
	if err != nil {
		return result(nil, err)
	}
	changed, changePercent := integrity.Diff(current, record.HashVector())
	entropy := integrity.Entropy(path)
	return ok(map[string]any{
		"changed_blocks": changed,
		"change_percent": changePercent,
		"entropy":        entropy,
	})
}

func (h *Handler) handleInitializeBaseline(ctx context.Context, c *InitializeBaselineCommand) Response {
	allowed, err := h.Mode.ValidateAction(modemgr.ActionInitializeBaseline, c.Admin)
	if err != nil || !allowed {
		return forbidden(err)
	}

	blockSize := h.BlockSize
	if blockSize <= 0 {
		blockSize = 64 * 1024
	}
	hashes, size, err := integrity.HashVector(c.Path, blockSize)
	if err != nil {
		return result(nil, err)
	}
	backup, err := h.Recovery.CreateBackup(c.Path)
	if err != nil {
		return result(nil, err)
	}
	if err := h.Store.AddOrReplace(ctx, c.Path, size, blockSize, hashes, backup); err != nil {
		return result(nil, err)
	}
	h.emit(events.TypeFileAdded, events.SeverityInfo, c.Path, map[string]any{"backup_path": backup})
	return ok(map[string]string{"backup_path": backup})
}

func ok(data any) Response { return Response{Success: true, Data: data} }

func result(data any, err error) Response {
	if err != nil {
		return Response{Success: false, Error: err.Error()}
	}
	return Response{Success: true, Data: data}
}

func forbidden(err error) Response {
	if err != nil {
		return Response{Success: false, Error: err.Error()}
	}
	return Response{Success: false, Error: "control: action not permitted in current mode"}
}
