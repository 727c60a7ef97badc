package logger

import "log/slog"

// Standard field keys for structured logging across the integrity daemon.
// Use these keys consistently so log aggregation and the control channel's
// "read logs" command can filter on them reliably.
const (
	KeyPath           = "path"
	KeyBlockIndex     = "block_index"
	KeyBlocksChanged  = "blocks_changed"
	KeyBlocksTotal    = "blocks_total"
	KeyChangePercent  = "change_percent"
	KeyEntropy        = "entropy"
	KeyClassification = "classification"
	KeyMode           = "mode"
	KeyPrevMode       = "prev_mode"
	KeySeverity       = "severity"
	KeyBackupPath     = "backup_path"
	KeyPID            = "pid"
	KeyProcessName    = "process_name"
	KeyReason         = "reason"
	KeyAdmin          = "admin"
	KeyToken          = "token"
	KeyEventType      = "event_type"
	KeyDurationMs     = "duration_ms"
	KeyError          = "error"
	KeyCommand        = "command"
	KeyFilesAffected  = "files_affected"
)

// Path returns a slog.Attr for a protected file's absolute path.
func Path(p string) slog.Attr { return slog.String(KeyPath, p) }

// BlockIndex returns a slog.Attr for a block offset index.
func BlockIndex(i int) slog.Attr { return slog.Int(KeyBlockIndex, i) }

// BlocksChanged returns a slog.Attr for the count of changed blocks.
func BlocksChanged(n int) slog.Attr { return slog.Int(KeyBlocksChanged, n) }

// BlocksTotal returns a slog.Attr for the total block count compared.
func BlocksTotal(n int) slog.Attr { return slog.Int(KeyBlocksTotal, n) }

// ChangePercent returns a slog.Attr for the percentage of blocks changed.
func ChangePercent(p float64) slog.Attr { return slog.Float64(KeyChangePercent, p) }

// Entropy returns a slog.Attr for a Shannon entropy sample, bits/byte.
func Entropy(e float64) slog.Attr { return slog.Float64(KeyEntropy, e) }

// Classification returns a slog.Attr for a change classification outcome.
func Classification(c string) slog.Attr { return slog.String(KeyClassification, c) }

// Mode returns a slog.Attr for the current mode-manager state.
func Mode(m string) slog.Attr { return slog.String(KeyMode, m) }

// PrevMode returns a slog.Attr for the mode-manager state before a transition.
func PrevMode(m string) slog.Attr { return slog.String(KeyPrevMode, m) }

// Severity returns a slog.Attr for an emitted event's severity.
func Severity(s string) slog.Attr { return slog.String(KeySeverity, s) }

// BackupPath returns a slog.Attr for a trusted backup file's path.
func BackupPath(p string) slog.Attr { return slog.String(KeyBackupPath, p) }

// PID returns a slog.Attr for an operating-system process ID.
func PID(pid int32) slog.Attr { return slog.Any(KeyPID, pid) }

// ProcessName returns a slog.Attr for a process's executable name.
func ProcessName(name string) slog.Attr { return slog.String(KeyProcessName, name) }

// Reason returns a slog.Attr for a human-readable reason string.
func Reason(r string) slog.Attr { return slog.String(KeyReason, r) }

// Admin returns a slog.Attr for the admin username performing an action.
func Admin(user string) slog.Attr { return slog.String(KeyAdmin, user) }

// EventType returns a slog.Attr for a structured event's type name.
func EventType(t string) slog.Attr { return slog.String(KeyEventType, t) }

// Err returns a slog.Attr for an error, or a no-op attr if err is nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Command returns a slog.Attr for a control-channel command name.
func Command(name string) slog.Attr { return slog.String(KeyCommand, name) }

// FilesAffected returns a slog.Attr for the number of files in a ransomware burst.
func FilesAffected(n int) slog.Attr { return slog.Int(KeyFilesAffected, n) }
