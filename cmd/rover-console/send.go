package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rover-console/internal/console"
	"rover-console/internal/logging"
	"rover-console/internal/rover"
	"rover-console/internal/telemetry"
)

var sendCmd = &cobra.Command{
	Use:       "send COMMAND",
	Short:     "Send one movement command",
	Long:      "send dispatches forward, backward, left, right or stop once. It exits non-zero when the rover rejects the command or cannot be reached.",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"forward", "backward", "left", "right", "stop"},
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := telemetry.ParseCommand(args[0])
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, closer, err := newLogger(cfg, cmd.ErrOrStderr(), "")
		if err != nil {
			return err
		}
		defer closer.Close()
		ctx := logging.NewContext(cmd.Context(), logger)

		d := console.NewDispatcher(rover.NewClient(cfg.RoverAPIURL), cfg.Dispatch.Timeout)
		res := d.Dispatch(ctx, kind)
		out := cmd.OutOrStdout()
		console.NewTextSink(out, logging.IsTerminal(out), nil).HandleDispatch(res)

		switch res.Outcome() {
		case console.OutcomeRejected:
			return fmt.Errorf("%s rejected: %s", kind, res.Result.Error)
		case console.OutcomeFailed:
			return fmt.Errorf("%s failed: %w", kind, res.Err)
		}
		return nil
	},
}
