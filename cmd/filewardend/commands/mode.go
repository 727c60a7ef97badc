package commands

import (
	"github.com/spf13/cobra"

	"github.com/filewarden/filewarden/pkg/control"
	"github.com/filewarden/filewarden/pkg/modemgr"
)

var modeCmd = &cobra.Command{
	Use:   "mode",
	Short: "Inspect and transition the mode state machine",
	Long: `The daemon is always in exactly one of four modes: Monitor, Init, Update,
or Emergency. Only an allowed administrator may move it into Init or
Update; the ransomware detector moves it into Emergency on its own. Update
ends on exit-update or when its timeout lapses; Init and Emergency are left
only through an administrator's explicit exit.`,
}

var modeHistoryLimit int

var modeHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent mode transitions",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := callControl("get_mode_history", control.GetModeHistoryCommand{Limit: modeHistoryLimit})
		if err != nil {
			return err
		}
		var transitions []modemgr.Transition
		if err := resp.Decode(&transitions); err != nil {
			return err
		}
		for _, t := range transitions {
			cmd.Printf("%s  %s -> %s  admin=%s reason=%q\n", t.Timestamp.Format("2006-01-02T15:04:05Z07:00"), t.FromMode, t.ToMode, t.AdminUser, t.Reason)
		}
		return nil
	},
}

var modeEnterInitCmd = &cobra.Command{
	Use:   "enter-init",
	Short: "Enter Init mode (required before initializing a baseline)",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := callControl("enter_init_mode", control.EnterInitModeCommand{Admin: currentAdmin()})
		if err != nil {
			return err
		}
		cmd.Println("entered Init mode")
		return nil
	},
}

var modeExitInitCmd = &cobra.Command{
	Use:   "exit-init",
	Short: "Exit Init mode, returning to Monitor",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := callControl("exit_init_mode", control.ExitInitModeCommand{Admin: currentAdmin()})
		if err != nil {
			return err
		}
		cmd.Println("exited Init mode")
		return nil
	},
}

var modeUpdateTimeout int

var modeEnterUpdateCmd = &cobra.Command{
	Use:   "enter-update",
	Short: "Enter Update mode for a bounded session (required before modifying protected files)",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := callControl("enter_update_mode", control.EnterUpdateModeCommand{
			Admin:          currentAdmin(),
			TimeoutSeconds: modeUpdateTimeout,
		})
		if err != nil {
			return err
		}
		var data map[string]string
		if err := resp.Decode(&data); err != nil {
			return err
		}
		cmd.Printf("entered Update mode (session token: %s, timeout: %ds)\n", data["session_token"], modeUpdateTimeout)
		return nil
	},
}

var modeExitUpdateCmd = &cobra.Command{
	Use:   "exit-update",
	Short: "Exit Update mode, returning to Monitor (changes seen during the session were re-baselined as they happened)",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := callControl("exit_update_mode", control.ExitUpdateModeCommand{Admin: currentAdmin()})
		if err != nil {
			return err
		}
		cmd.Println("exited Update mode")
		return nil
	},
}

var modeExitEmergencyCmd = &cobra.Command{
	Use:   "exit-emergency",
	Short: "Exit Emergency mode after the incident has been handled",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := callControl("exit_emergency_mode", control.ExitEmergencyModeCommand{Admin: currentAdmin()})
		if err != nil {
			return err
		}
		cmd.Println("exited Emergency mode")
		return nil
	},
}

func init() {
	modeHistoryCmd.Flags().IntVar(&modeHistoryLimit, "limit", 20, "Number of transitions to show")
	modeEnterUpdateCmd.Flags().IntVar(&modeUpdateTimeout, "timeout", 900, "Update-mode session timeout, in seconds")

	modeCmd.AddCommand(modeHistoryCmd)
	modeCmd.AddCommand(modeEnterInitCmd)
	modeCmd.AddCommand(modeExitInitCmd)
	modeCmd.AddCommand(modeEnterUpdateCmd)
	modeCmd.AddCommand(modeExitUpdateCmd)
	modeCmd.AddCommand(modeExitEmergencyCmd)
}
