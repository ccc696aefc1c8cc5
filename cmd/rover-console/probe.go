package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"rover-console/internal/console"
	"rover-console/internal/logging"
	"rover-console/internal/rover"
	"rover-console/internal/telemetry"
)

var probeSkipControl bool

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check connectivity to the rover API",
	Long: "probe fetches the status endpoint and sends a stop command to the control endpoint.\n" +
		"A rejected stop still proves the control endpoint answers. Any failed check exits non-zero.",
	RunE: func(cmd *cobra.Command, args []string) error {
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

		client := rover.NewClient(cfg.RoverAPIURL)
		fmt.Fprintf(cmd.OutOrStdout(), "probing %s\n", client.BaseURL())
		failed := 0
		if !probeStatus(ctx, cmd.OutOrStdout(), client, cfg.Poll.Timeout) {
			failed++
		}
		if !probeSkipControl {
			d := console.NewDispatcher(client, cfg.Dispatch.Timeout)
			if !probeControl(ctx, cmd.OutOrStdout(), d) {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("probe: %d check(s) failed", failed)
		}
		return nil
	},
}

func init() {
	probeCmd.Flags().BoolVar(&probeSkipControl, "skip-control", false, "Only check the status endpoint")
}

func probeStatus(ctx context.Context, out io.Writer, client *rover.Client, timeout time.Duration) bool {
	start := time.Now()
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	snap, err := client.FetchStatus(reqCtx)
	took := time.Since(start).Round(time.Millisecond)
	if err != nil {
		fmt.Fprintf(out, "FAIL %-8s %-7s %s (%s): %v\n", "status", took, rover.StatusPath, rover.Class(err), err)
		return false
	}
	v := console.Render(snap)
	fmt.Fprintf(out, "ok   %-8s %-7s %s battery=%s status=%s comm=%s\n", "status", took, rover.StatusPath, v.BatteryText, v.StatusText, v.CommText)
	return true
}

func probeControl(ctx context.Context, out io.Writer, d *console.Dispatcher) bool {
	res := d.Dispatch(ctx, telemetry.Stop)
	took := res.Completed.Sub(res.Issued).Round(time.Millisecond)
	switch res.Outcome() {
	case console.OutcomeFailed:
		fmt.Fprintf(out, "FAIL %-8s %-7s %s (%s): %v\n", "control", took, rover.ControlPath, rover.Class(res.Err), res.Err)
		return false
	case console.OutcomeRejected:
		fmt.Fprintf(out, "ok   %-8s %-7s %s stop rejected: %s\n", "control", took, rover.ControlPath, res.Result.Error)
	default:
		fmt.Fprintf(out, "ok   %-8s %-7s %s stop accepted\n", "control", took, rover.ControlPath)
	}
	return true
}
