package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"rover-console/internal/console"
	"rover-console/internal/logging"
	"rover-console/internal/record"
	"rover-console/internal/telemetry"
	"rover-console/internal/tui"
)

var (
	replaySpeed float64
	replayLines bool
)

var replayCmd = &cobra.Command{
	Use:   "replay FILE",
	Short: "Replay a recorded telemetry log",
	Long: "replay feeds snapshots from a JSONL recording through the console renderer.\n" +
		"Commands are not sent during a replay.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		interactive := !replayLines && logging.IsTerminal(os.Stdout)
		fallback := ""
		if interactive {
			fallback = tuiLogFile
		}
		logger, closer, err := newLogger(cfg, cmd.ErrOrStderr(), fallback)
		if err != nil {
			return err
		}
		defer closer.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = logging.NewContext(ctx, logger)

		if !interactive {
			sink := console.NewTextSink(cmd.OutOrStdout(), logging.IsTerminal(cmd.OutOrStdout()), nil)
			return replayInto(ctx, args[0], sink)
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		c := tui.NewConsole(tui.NewModel(tui.Options{
			Context: ctx,
			RoverID: cfg.RoverID,
			Notices: console.NewNotices(cfg.Notices.TTL, cfg.Notices.Max),
			Map:     console.NewGridMap(cfg.Map.Trail),
		}), tea.WithAltScreen())
		go func() {
			err := replayInto(ctx, args[0], c)
			switch {
			case err == nil:
				logger.Info("replay finished", "file", args[0])
			case errors.Is(err, context.Canceled):
			default:
				logger.Error("replay failed", "file", args[0], "err", err)
			}
		}()
		go func() {
			<-ctx.Done()
			c.Quit()
		}()
		return c.Run()
	},
}

func init() {
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier (0 replays without delay)")
	replayCmd.Flags().BoolVar(&replayLines, "lines", false, "Print one line per record even on a terminal")
}

// replayInto hands each recorded snapshot to sink as a successful poll. The
// recording's own sequence numbers are replaced so that concatenated logs
// are not discarded as stale.
func replayInto(ctx context.Context, path string, sink console.PollSink) error {
	var seq uint64
	return record.ReplayFile(ctx, path, replaySpeed, func(rec telemetry.Record) error {
		seq++
		sink.HandlePoll(console.PollResult{
			Seq:       seq,
			Snapshot:  rec.Snapshot,
			Issued:    rec.Timestamp,
			Completed: rec.Timestamp,
		})
		return nil
	})
}
