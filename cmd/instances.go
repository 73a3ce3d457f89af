package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zjrosen/smartnotes/internal/history"
	"github.com/zjrosen/smartnotes/internal/instance"
	"github.com/zjrosen/smartnotes/internal/supervisor"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List instances",
	Long: `List every instance with its auto-start state and last launch.

Running state is only known for widgets this process launched, so the
table shows the most recent launch recorded in the launch history instead.

Examples:
  smartnotes list
  smartnotes list --json | jq '.[].name'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		e, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		views := e.ctrl.Views()
		for _, s := range e.ctrl.Skipped() {
			fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: %v\n", s.Path, s.Err)
		}

		if asJSON {
			out := make([]instanceJSON, 0, len(views))
			for _, v := range views {
				var last *history.Launch
				if l, ok := e.ctrl.LastLaunch(cmd.Context(), v.ID); ok {
					last = &l
				}
				out = append(out, toJSON(v, last))
			}
			return writeJSON(cmd.OutOrStdout(), out)
		}

		if len(views) == 0 {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "No instances. Create one with `smartnotes create`.")
			return err
		}
		rows := make([][]string, 0, len(views))
		for _, v := range views {
			name := v.Name
			if v.Orphan {
				name += " (missing metadata)"
			}
			last := "never"
			if l, ok := e.ctrl.LastLaunch(cmd.Context(), v.ID); ok {
				last = describeLaunch(l)
			}
			rows = append(rows, []string{instance.ShortID(v.ID), name, v.AutoStartLabel(), v.CreatedDate.Date(), last})
		}
		return renderTable(cmd.OutOrStdout(), []string{"ID", "Name", "Auto-Start", "Created", "Last Launch"}, rows)
	},
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new instance",
	Long: `Create a new instance named "New Instance N".

Examples:
  smartnotes create
  smartnotes create --name "Groceries" --launch`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		name, _ := cmd.Flags().GetString("name")
		launch, _ := cmd.Flags().GetBool("launch")
		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		inst, err := e.ctrl.Create(ctx)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("name") {
			if _, err := e.ctrl.Rename(ctx, inst.ID, name); err != nil {
				return fmt.Errorf("created %s but could not rename it: %w", inst.ID, err)
			}
			inst.Name = strings.TrimSpace(name)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", inst.Name, inst.ID)
		if launch && !e.sup.IsRunning(inst.ID) {
			return launchOne(cmd, e, inst.ID, false)
		}
		return nil
	},
}

var cloneCmd = &cobra.Command{
	Use:   "clone <id>",
	Short: "Clone an instance and its notes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		id, err := e.resolve(args[0])
		if err != nil {
			return err
		}
		inst, err := e.ctrl.Clone(ctx, id)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", inst.Name, inst.ID)
		return err
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename <id> <name...>",
	Short: "Rename an instance",
	Long: `Rename an instance. Remaining arguments are joined with spaces.

Examples:
  smartnotes rename 3f2a Work notes`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		id, err := e.resolve(args[0])
		if err != nil {
			return err
		}
		name := strings.TrimSpace(strings.Join(args[1:], " "))
		if _, err := e.ctrl.Rename(ctx, id, name); err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %s\n", instance.ShortID(id), name)
		return err
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an instance and all of its files",
	Long: `Delete an instance: its metadata, notes, settings and window positions,
its auto-start entry and its launch history. Running instances cannot be
deleted.

Asks for confirmation unless --yes is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		id, err := e.resolve(args[0])
		if err != nil {
			return err
		}
		req, err := e.ctrl.RequestDelete(cmd.Context(), id)
		if err != nil {
			return err
		}
		if !yes {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n\nFiles:\n", req.Prompt())
			for _, f := range req.Files {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", f)
			}
			fmt.Fprint(cmd.OutOrStdout(), "\nDelete? [y/N] ")
			answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return err
			}
		}
		res, err := e.ctrl.ConfirmDelete(ctx, req)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", res.Name)
		for _, p := range res.Problems {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", p)
		}
		return nil
	},
}

var launchCmd = &cobra.Command{
	Use:   "launch <id>",
	Short: "Launch the widget for an instance",
	Long: `Launch the widget for an instance. By default the widget is left
running when this command returns; --wait blocks until it exits.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wait, _ := cmd.Flags().GetBool("wait")
		e, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		id, err := e.resolve(args[0])
		if err != nil {
			return err
		}
		return launchOne(cmd, e, id, wait)
	},
}

func launchOne(cmd *cobra.Command, e *env, id string, wait bool) error {
	if err := e.ctrl.Launch(cmd.Context(), id); err != nil {
		if errors.Is(err, supervisor.ErrAlreadyRunning) {
			return fmt.Errorf("%s: %w", instance.ShortID(id), err)
		}
		return err
	}
	pid, _ := e.sup.PID(id)
	fmt.Fprintf(cmd.OutOrStdout(), "Launched %s (pid %d)\n", instance.ShortID(id), pid)
	if wait {
		e.sup.Wait()
	}
	return nil
}

func init() {
	listCmd.Flags().Bool("json", false, "print JSON instead of a table")
	createCmd.Flags().StringP("name", "n", "", "name for the new instance")
	createCmd.Flags().BoolP("launch", "l", false, "launch the widget after creating")
	deleteCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	launchCmd.Flags().BoolP("wait", "w", false, "wait for the widget to exit")

	rootCmd.AddCommand(listCmd, createCmd, cloneCmd, renameCmd, deleteCmd, launchCmd)
}
