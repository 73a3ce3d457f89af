package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/smartnotes/internal/instance"
	"github.com/zjrosen/smartnotes/internal/startup"
)

var startupCmd = &cobra.Command{
	Use:   "startup",
	Short: "Launch every auto-start instance",
	Long: `Launch every instance in the auto-start registry, waiting --delay first
and --stagger between launches. This is what the system startup entry runs.

--enable-auto-start and --disable-auto-start install or remove that entry
and exit without launching anything.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		enable, _ := cmd.Flags().GetBool("enable-auto-start")
		disable, _ := cmd.Flags().GetBool("disable-auto-start")
		if enable && disable {
			return errors.New("--enable-auto-start and --disable-auto-start are mutually exclusive")
		}
		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		if enable || disable {
			if err := e.ctrl.SetGlobalAutoStart(ctx, enable); err != nil {
				return err
			}
			state := "disabled"
			if enable {
				state = "enabled"
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "System startup %s\n", state)
			return err
		}

		m := &startup.Manager{
			Registry: e.reg,
			Launcher: e.sup,
			Delay:    e.cfg.Startup.Delay,
			Stagger:  e.cfg.Startup.Stagger,
			Tracer:   e.tracing.Tracer(),
		}
		if cmd.Flags().Changed("delay") {
			m.Delay, _ = cmd.Flags().GetDuration("delay")
		}
		if cmd.Flags().Changed("stagger") {
			m.Stagger, _ = cmd.Flags().GetDuration("stagger")
		}
		sum, err := m.Run(ctx)
		for _, id := range sum.Launched {
			fmt.Fprintf(cmd.OutOrStdout(), "Launched %s\n", instance.ShortID(id))
		}
		for _, f := range sum.Failed {
			fmt.Fprintf(cmd.ErrOrStderr(), "Failed to launch %s (%s): %v\n", f.Name, instance.ShortID(f.ID), f.Err)
		}
		if err != nil {
			return err
		}
		if len(sum.Failed) > 0 {
			return fmt.Errorf("%d of %d auto-start instances failed to launch", len(sum.Failed), len(sum.Failed)+len(sum.Launched))
		}
		return nil
	},
}

func init() {
	startupCmd.Flags().Bool("enable-auto-start", false, "install the system startup entry and exit")
	startupCmd.Flags().Bool("disable-auto-start", false, "remove the system startup entry and exit")
	startupCmd.Flags().Duration("delay", 0, "override startup.delay")
	startupCmd.Flags().Duration("stagger", 0, "override startup.stagger")
	rootCmd.AddCommand(startupCmd)
}
