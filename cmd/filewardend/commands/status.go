package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/filewarden/filewarden/internal/cli/output"
	"github.com/filewarden/filewarden/pkg/modemgr"
)

var (
	statusOutput  string
	statusPidFile string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long: `Display whether the daemon process is running and, if it is reachable
over the control socket, its current mode and remaining mode timeout.

Examples:
  filewardend status
  filewardend status --output json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusPidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/filewarden/filewardend.pid)")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// daemonStatus is the CLI's view of the daemon, combining the PID-file
// check (works even if the control socket is unreachable) with a GetStatus
// call against the control socket.
type daemonStatus struct {
	Running          bool   `json:"running" yaml:"running"`
	PID              int    `json:"pid,omitempty" yaml:"pid,omitempty"`
	Reachable        bool   `json:"reachable" yaml:"reachable"`
	Mode             string `json:"mode,omitempty" yaml:"mode,omitempty"`
	RemainingSeconds int    `json:"remaining_seconds,omitempty" yaml:"remaining_seconds,omitempty"`
	EmergencyReason  string `json:"emergency_reason,omitempty" yaml:"emergency_reason,omitempty"`
	Message          string `json:"message" yaml:"message"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	status := daemonStatus{Message: "daemon is not running"}

	pidPath := statusPidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}
	if pidData, err := os.ReadFile(pidPath); err == nil {
		if pid, err := strconv.Atoi(strings.TrimSpace(string(pidData))); err == nil {
			if process, err := os.FindProcess(pid); err == nil {
				if err := process.Signal(syscall.Signal(0)); err == nil {
					status.Running = true
					status.PID = pid
				}
			}
		}
	}

	if resp, err := callControl("get_status", nil); err == nil {
		var s modemgr.Status
		if decodeErr := resp.Decode(&s); decodeErr == nil {
			status.Running = true
			status.Reachable = true
			status.Mode = string(s.Current)
			if s.RemainingSeconds != nil {
				status.RemainingSeconds = *s.RemainingSeconds
			}
			status.EmergencyReason = s.EmergencyReason
			status.Message = fmt.Sprintf("daemon is running, mode=%s", s.Current)
		}
	} else if status.Running {
		status.Message = "daemon process exists but the control socket did not respond"
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(cmd.OutOrStdout(), status)
	case output.FormatYAML:
		return output.PrintYAML(cmd.OutOrStdout(), status)
	default:
		printStatusTable(cmd, status)
	}
	return nil
}

func printStatusTable(cmd *cobra.Command, status daemonStatus) {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "filewardend status")
	fmt.Fprintln(w, "===================")
	fmt.Fprintln(w)

	if status.Running {
		if status.Reachable {
			fmt.Fprintf(w, "  Status:  \033[32m● Running\033[0m\n")
		} else {
			fmt.Fprintf(w, "  Status:  \033[33m● Running (unreachable)\033[0m\n")
		}
		if status.PID != 0 {
			fmt.Fprintf(w, "  PID:     %d\n", status.PID)
		}
		if status.Mode != "" {
			fmt.Fprintf(w, "  Mode:    %s\n", status.Mode)
			if status.Mode == string(modemgr.Update) && status.RemainingSeconds > 0 {
				fmt.Fprintf(w, "  Remaining: %ds\n", status.RemainingSeconds)
			}
			if status.Mode == string(modemgr.Emergency) && status.EmergencyReason != "" {
				fmt.Fprintf(w, "  Reason:  %s\n", status.EmergencyReason)
			}
		}
	} else {
		fmt.Fprintf(w, "  Status:  \033[31m○ Stopped\033[0m\n")
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", status.Message)
	fmt.Fprintln(w)
}
