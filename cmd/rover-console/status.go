package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"rover-console/internal/console"
	"rover-console/internal/logging"
	"rover-console/internal/rover"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Poll the rover once and print its telemetry",
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
		res := console.PollResult{Seq: 1, Issued: time.Now()}
		reqCtx, cancel := context.WithTimeout(ctx, cfg.Poll.Timeout)
		res.Snapshot, res.Err = client.FetchStatus(reqCtx)
		cancel()
		res.Completed = time.Now()

		out := cmd.OutOrStdout()
		if statusJSON {
			st := console.NewState(nil)
			st.ApplyPoll(res)
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(st.Status(res.Completed)); err != nil {
				return err
			}
		} else {
			console.NewTextSink(out, logging.IsTerminal(out), nil).HandlePoll(res)
		}
		if res.Err != nil {
			return fmt.Errorf("status: %w", res.Err)
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print the rendered status as JSON")
}
