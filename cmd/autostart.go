package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/zjrosen/smartnotes/internal/instance"
)

var autostartCmd = &cobra.Command{
	Use:   "autostart",
	Short: "Control which instances start at login",
}

var autostartEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Start an instance at login",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setAutoStart(cmd, args[0], true)
	},
}

var autostartDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Stop starting an instance at login",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setAutoStart(cmd, args[0], false)
	},
}

var autostartListCmd = &cobra.Command{
	Use:   "list",
	Short: "List auto-start entries and the startup hook state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		global, err := e.ctrl.GlobalAutoStart()
		if err != nil {
			return fmt.Errorf("reading startup entries: %w", err)
		}
		state := "off"
		if global {
			state = "on"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Mode: %s\nSystem startup: %s\n", e.cfg.AutoStart.Mode, state)

		entries := e.reg.List()
		if len(entries) == 0 {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "No instances start at login.")
			return err
		}
		ids := make([]string, 0, len(entries))
		for id := range entries {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		rows := make([][]string, 0, len(ids))
		for _, id := range ids {
			entry := entries[id]
			rows = append(rows, []string{instance.ShortID(id), entry.Name, entry.AutoStartEnabled.Date()})
		}
		return renderTable(cmd.OutOrStdout(), []string{"ID", "Name", "Enabled"}, rows)
	},
}

func setAutoStart(cmd *cobra.Command, arg string, on bool) error {
	ctx := cmd.Context()
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	id, err := e.resolve(arg)
	if err != nil {
		return err
	}
	if err := e.ctrl.SetAutoStart(ctx, id, on); err != nil {
		return err
	}
	verb := "Disabled"
	if on {
		verb = "Enabled"
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s auto-start for %s\n", verb, instance.ShortID(id))
	return err
}

func init() {
	autostartCmd.AddCommand(autostartEnableCmd, autostartDisableCmd, autostartListCmd)
	rootCmd.AddCommand(autostartCmd)
}
