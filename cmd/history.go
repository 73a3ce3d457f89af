package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/smartnotes/internal/history"
	"github.com/zjrosen/smartnotes/internal/instance"
)

var historyCmd = &cobra.Command{
	Use:   "history [id]",
	Short: "Show recent widget launches",
	Long: `Show recent widget launches, newest first, for all instances or one.

Examples:
  smartnotes history
  smartnotes history 3f2a --limit 5`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		if e.history == nil {
			return errors.New("launch history is disabled (history.enabled)")
		}
		var launches []history.Launch
		if len(args) == 1 {
			id, err := e.resolve(args[0])
			if err != nil {
				return err
			}
			launches, err = e.history.ForInstance(ctx, id, limit)
			if err != nil {
				return err
			}
		} else {
			launches, err = e.history.Recent(ctx, limit)
			if err != nil {
				return err
			}
		}
		if len(launches) == 0 {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "No launches recorded.")
			return err
		}

		rows := make([][]string, 0, len(launches))
		for _, l := range launches {
			name := "(deleted)"
			if v, ok := e.ctrl.View(l.InstanceID); ok {
				name = v.Name
			}
			exited, result := "", "running"
			if !l.Running() {
				exited = l.ExitedAt.Format("2006-01-02 15:04:05")
				result = "ok"
				if l.ExitError != "" {
					result = firstLine(l.ExitError)
				}
			}
			rows = append(rows, []string{
				instance.ShortID(l.InstanceID), name, fmt.Sprint(l.PID),
				l.StartedAt.Format("2006-01-02 15:04:05"), exited, result,
			})
		}
		return renderTable(cmd.OutOrStdout(), []string{"ID", "Name", "PID", "Started", "Exited", "Result"}, rows)
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "maximum rows to show")
	rootCmd.AddCommand(historyCmd)
}
