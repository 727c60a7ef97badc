// Package modemgr implements the Mode Manager state machine: the only way
// to change trust policy is through one of its transitions. See spec.md
// §4.5.
package modemgr

import "time"

// Mode is one of the four operating modes.
type Mode string

const (
	Monitor   Mode = "Monitor"
	Init      Mode = "Init"
	Update    Mode = "Update"
	Emergency Mode = "Emergency"
)

// Action is a closed enumeration of operations the Orchestrator validates
// against the current mode before performing them (spec.md §4.5's action
// validation table).
type Action string

const (
	ActionGetStatus          Action = "get_status"
	ActionReadLogs           Action = "read_logs"
	ActionGetStatistics      Action = "get_statistics"
	ActionVerifyFile         Action = "verify_file"
	ActionListFiles          Action = "list_files"
	ActionGetInfo            Action = "get_info"
	ActionAddFile            Action = "add_file"
	ActionCreateBackup       Action = "create_backup"
	ActionInitializeBaseline Action = "initialize_baseline"
	ActionUpdateFile         Action = "update_file"
	ActionModifyFile         Action = "modify_file"
	ActionUpdateHashes       Action = "update_hashes"
	ActionRestoreFile        Action = "restore_file"
	ActionBlockFile          Action = "block_file"
	ActionExitEmergency      Action = "exit_emergency"
)

// State is a point-in-time snapshot of the mode machine.
type State struct {
	Current         Mode
	StartedAt       time.Time
	TimeoutSeconds  int // 0 means no timeout
	EmergencyReason string
}

// Transition is one recorded mode change, kept in a bounded history ring
// (original_source/daemon/auth.py's AuthManager.mode_history).
type Transition struct {
	Timestamp time.Time
	FromMode  Mode
	ToMode    Mode
	AdminUser string
	Timeout   int
	Reason    string
}

// maxHistory bounds the transition ring, matching the source's cap of 1000.
const maxHistory = 1000
