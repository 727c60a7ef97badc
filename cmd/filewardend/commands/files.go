package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/filewarden/filewarden/internal/cli/output"
	"github.com/filewarden/filewarden/internal/cli/timeutil"
	"github.com/filewarden/filewarden/pkg/baseline"
	"github.com/filewarden/filewarden/pkg/control"
	"github.com/filewarden/filewarden/pkg/recovery"
)

var filesOutput string

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List protected files and their baseline state",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(filesOutput)
		if err != nil {
			return err
		}
		resp, err := callControl("get_files", control.GetFilesCommand{})
		if err != nil {
			return err
		}
		var records []baseline.FileRecord
		if err := resp.Decode(&records); err != nil {
			return err
		}
		switch format {
		case output.FormatJSON:
			return output.PrintJSON(cmd.OutOrStdout(), records)
		case output.FormatYAML:
			return output.PrintYAML(cmd.OutOrStdout(), records)
		default:
			return output.PrintTable(cmd.OutOrStdout(), fileRecordTable(records))
		}
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <path>",
	Short: "Show baseline detail for a single protected file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := callControl("get_file_info", control.GetFileInfoCommand{Path: args[0]})
		if err != nil {
			return err
		}
		var rec baseline.FileRecord
		if err := resp.Decode(&rec); err != nil {
			return err
		}
		cmd.Printf("path:          %s\n", rec.FilePath)
		cmd.Printf("size:          %d bytes\n", rec.FileSize)
		cmd.Printf("block size:    %d bytes\n", rec.BlockSize)
		cmd.Printf("blocks:        %d\n", rec.BlocksCount)
		cmd.Printf("trusted:       %t\n", rec.IsTrusted)
		cmd.Printf("backup path:   %s\n", rec.BackupPath)
		cmd.Printf("created:       %s\n", rec.CreatedAt.Local().Format(timeutil.LocalTimeFormat))
		cmd.Printf("updated:       %s\n", rec.UpdatedAt.Local().Format(timeutil.LocalTimeFormat))
		return nil
	},
}

type fileRecordTable []baseline.FileRecord

func (t fileRecordTable) Headers() []string {
	return []string{"PATH", "SIZE", "BLOCKS", "TRUSTED", "UPDATED"}
}

func (t fileRecordTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, rec := range t {
		rows = append(rows, []string{
			rec.FilePath,
			fmt.Sprintf("%d", rec.FileSize),
			fmt.Sprintf("%d", rec.BlocksCount),
			fmt.Sprintf("%t", rec.IsTrusted),
			rec.UpdatedAt.Local().Format(timeutil.LocalTimeFormat),
		})
	}
	return rows
}

var verifyCmd = &cobra.Command{
	Use:   "verify <path>",
	Short: "Compare a protected file's current contents against its baseline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := callControl("check_file", control.VerifyFileCommand{Path: args[0]})
		if err != nil {
			return err
		}
		var result struct {
			ChangedBlocks []int   `json:"changed_blocks"`
			ChangePercent float64 `json:"change_percent"`
			Entropy       float64 `json:"entropy"`
		}
		if err := resp.Decode(&result); err != nil {
			return err
		}
		cmd.Printf("changed blocks: %d (%.1f%%)\n", len(result.ChangedBlocks), result.ChangePercent)
		cmd.Printf("entropy:        %.2f bits/byte\n", result.Entropy)
		return nil
	},
}

var baselineCmd = &cobra.Command{
	Use:   "baseline <path>",
	Short: "Compute and record a new baseline for a path (requires Init mode)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := callControl("initialize_baseline", control.InitializeBaselineCommand{Path: args[0], Admin: currentAdmin()})
		if err != nil {
			return err
		}
		var data map[string]string
		_ = resp.Decode(&data)
		cmd.Printf("baseline recorded for %s (backup: %s)\n", args[0], data["backup_path"])
		return nil
	},
}

var backupCmd = &cobra.Command{
	Use:   "backup <path>",
	Short: "Create a fresh trusted backup of a protected file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := callControl("create_backup", control.CreateBackupCommand{Path: args[0], Admin: currentAdmin()})
		if err != nil {
			return err
		}
		var data map[string]string
		_ = resp.Decode(&data)
		cmd.Printf("backup created at %s\n", data["backup_path"])
		return nil
	},
}

var restoreBlocks string

var restoreCmd = &cobra.Command{
	Use:   "restore <path>",
	Short: "Restore a file from its backup, in full or by block index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if restoreBlocks == "" {
			_, err := callControl("restore_file", control.RestoreFileCommand{Path: args[0], Admin: currentAdmin()})
			if err != nil {
				return err
			}
			cmd.Printf("restored %s in full\n", args[0])
			return nil
		}

		indices, err := parseIndices(restoreBlocks)
		if err != nil {
			return err
		}
		_, err = callControl("restore_blocks", control.RestoreBlocksCommand{Path: args[0], Admin: currentAdmin(), Indices: indices})
		if err != nil {
			return err
		}
		cmd.Printf("restored %d block(s) of %s\n", len(indices), args[0])
		return nil
	},
}

func parseIndices(csv string) ([]int, error) {
	parts := strings.Split(csv, ",")
	indices := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid block index %q: %w", p, err)
		}
		indices = append(indices, n)
	}
	return indices, nil
}

var blockPermanent bool

var blockCmd = &cobra.Command{
	Use:   "block <path>",
	Short: "Block further writes to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := callControl("block_file", control.BlockFileCommand{Path: args[0], Admin: currentAdmin(), Permanent: blockPermanent})
		if err != nil {
			return err
		}
		cmd.Printf("blocked %s\n", args[0])
		return nil
	},
}

var unblockCmd = &cobra.Command{
	Use:   "unblock <path>",
	Short: "Remove a write block from a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := callControl("unblock_file", control.UnblockFileCommand{Path: args[0], Admin: currentAdmin()})
		if err != nil {
			return err
		}
		cmd.Printf("unblocked %s\n", args[0])
		return nil
	},
}

var quarantineCmd = &cobra.Command{
	Use:   "quarantine <path>",
	Short: "Move a file into quarantine",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := callControl("quarantine_file", control.QuarantineCommand{Path: args[0], Admin: currentAdmin()})
		if err != nil {
			return err
		}
		var data map[string]string
		_ = resp.Decode(&data)
		cmd.Printf("quarantined to %s\n", data["quarantine_path"])
		return nil
	},
}

var unquarantineCmd = &cobra.Command{
	Use:   "unquarantine <quarantine-path> <original-path>",
	Short: "Restore a file from quarantine to its original location",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := callControl("restore_from_quarantine", control.RestoreFromQuarantineCommand{
			QuarantinePath: args[0],
			OriginalPath:   args[1],
			Admin:          currentAdmin(),
		})
		if err != nil {
			return err
		}
		cmd.Printf("restored %s from quarantine\n", args[1])
		return nil
	},
}

var psOutput string

var psCmd = &cobra.Command{
	Use:   "ps <path>",
	Short: "List processes holding a protected file open",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(psOutput)
		if err != nil {
			return err
		}
		resp, err := callControl("find_processes_using", control.FindProcessesUsingCommand{Path: args[0]})
		if err != nil {
			return err
		}
		var holders []recovery.ProcessHandle
		if err := resp.Decode(&holders); err != nil {
			return err
		}
		switch format {
		case output.FormatJSON:
			return output.PrintJSON(cmd.OutOrStdout(), holders)
		case output.FormatYAML:
			return output.PrintYAML(cmd.OutOrStdout(), holders)
		default:
			for _, h := range holders {
				cmd.Printf("%d\t%s\n", h.PID, h.Name)
			}
			return nil
		}
	},
}

var killForce bool

var killCmd = &cobra.Command{
	Use:   "kill <pid>",
	Short: "Terminate a process holding a protected file open",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := strconv.ParseInt(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid PID %q: %w", args[0], err)
		}
		_, err = callControl("terminate_process", control.TerminateProcessCommand{PID: int32(pid), Force: killForce, Admin: currentAdmin()})
		if err != nil {
			return err
		}
		cmd.Printf("terminated PID %d\n", pid)
		return nil
	},
}

var shutdownCmd = &cobra.Command{
	Use:   "shutdown",
	Short: "Ask the running daemon to shut down",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := callControl("shutdown", control.ShutdownCommand{Admin: currentAdmin()})
		if err != nil {
			return err
		}
		cmd.Println("shutdown requested")
		return nil
	},
}

func init() {
	psCmd.Flags().StringVarP(&psOutput, "output", "o", "table", "Output format (table|json|yaml)")
	restoreCmd.Flags().StringVar(&restoreBlocks, "blocks", "", "Comma-separated block indices to restore (default: full file)")
	blockCmd.Flags().BoolVar(&blockPermanent, "permanent", false, "Also set the immutable attribute where the filesystem supports it (unblock clears it)")
	killCmd.Flags().BoolVar(&killForce, "force", false, "Send SIGKILL instead of SIGTERM")
	filesCmd.Flags().StringVarP(&filesOutput, "output", "o", "table", "Output format (table|json|yaml)")
}
