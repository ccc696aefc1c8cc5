package main

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"rover-console/internal/admin"
	"rover-console/internal/config"
	"rover-console/internal/console"
	"rover-console/internal/logging"
	"rover-console/internal/record"
	"rover-console/internal/rover"
	"rover-console/internal/telemetry"
	"rover-console/internal/tui"
)

// tuiLogFile receives logs when the TUI owns the terminal and no log file is
// configured.
const tuiLogFile = "rover-console.log"

var (
	watchLines    bool
	watchCommands bool
	watchAdmin    string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the interactive rover console",
	Long: "watch polls the rover every second and renders its telemetry. On a terminal it runs a\n" +
		"full screen console that sends movement commands from the keyboard; otherwise it\n" +
		"prints one line per poll.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("admin") {
			cfg.Admin.Addr = watchAdmin
		}
		interactive := !watchLines && logging.IsTerminal(os.Stdout)

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

		recs, err := newRecorders(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := recs.Close(); err != nil {
				logger.Warn("closing recorders", "err", err)
			}
		}()

		client := rover.NewClient(cfg.RoverAPIURL)
		s := session{
			cfg:        cfg,
			client:     client,
			dispatcher: console.NewDispatcher(client, cfg.Dispatch.Timeout),
			board:      console.NewBoard(),
			recorders:  recs,
		}
		logger.Info("console starting", "api", cfg.RoverAPIURL, "rover_id", cfg.RoverID, "interactive", interactive)
		if interactive {
			return s.runTUI(ctx)
		}
		return s.runLines(ctx, cmd.OutOrStdout(), cmd.InOrStdin())
	},
}

func init() {
	watchCmd.Flags().BoolVar(&watchLines, "lines", false, "Print one line per poll even on a terminal")
	watchCmd.Flags().BoolVar(&watchCommands, "commands", false, "In line mode, read commands (forward, backward, left, right, stop) from stdin")
	watchCmd.Flags().StringVar(&watchAdmin, "admin", "", "Address for the read-only view endpoint (empty disables it)")
}

// session holds the collaborators shared by both watch modes.
type session struct {
	cfg        *config.Config
	client     *rover.Client
	dispatcher *console.Dispatcher
	board      *console.Board
	recorders  *record.MultiRecorder
}

func (s *session) pollerOptions() console.PollerOptions {
	opts := console.PollerOptions{
		Interval:   s.cfg.Poll.Interval,
		Timeout:    s.cfg.Poll.Timeout,
		MaxBackoff: s.cfg.Poll.MaxBackoff,
		RoverID:    s.cfg.RoverID,
	}
	if s.recorders != nil && s.recorders.Len() > 0 {
		opts.Recorder = s.recorders
	}
	return opts
}

// startAdmin serves the board when an address is configured and returns the
// bound address. A failed bind is logged and the console runs without it.
func (s *session) startAdmin(ctx context.Context) string {
	if s.cfg.Admin.Addr == "" {
		return ""
	}
	addr, err := admin.NewServer(s.board, s.cfg.RoverID).Start(ctx, s.cfg.Admin.Addr)
	if err != nil {
		logging.FromContext(ctx).Warn("admin endpoint disabled", "addr", s.cfg.Admin.Addr, "err", err)
		return ""
	}
	return addr.String()
}

func (s *session) runTUI(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := tui.NewModel(tui.Options{
		Context:    ctx,
		RoverID:    s.cfg.RoverID,
		Dispatcher: s.dispatcher,
		Notices:    console.NewNotices(s.cfg.Notices.TTL, s.cfg.Notices.Max),
		Map:        console.NewGridMap(s.cfg.Map.Trail),
		Board:      s.board,
		Recording:  recordingLabel(s.cfg),
	})
	c := tui.NewConsole(m, tea.WithAltScreen())

	addr := s.startAdmin(ctx)
	poller := console.NewPoller(s.client, c, s.pollerOptions())
	if err := poller.Start(ctx); err != nil {
		return err
	}
	defer poller.Stop()

	// Send blocks until the program loop runs.
	if addr != "" {
		go c.SetAdminStatus(true, addr)
	}
	go func() {
		<-ctx.Done()
		c.Quit()
	}()
	return c.Run()
}

func (s *session) runLines(ctx context.Context, out io.Writer, in io.Reader) error {
	sink := console.NewTextSink(out, logging.IsTerminal(out), s.board)
	s.startAdmin(ctx)
	poller := console.NewPoller(s.client, sink, s.pollerOptions())
	if err := poller.Start(ctx); err != nil {
		return err
	}
	defer poller.Stop()

	if watchCommands {
		go s.readCommands(ctx, in, sink)
	}
	<-ctx.Done()
	return nil
}

// readCommands dispatches one command per input line while controls are
// enabled.
func (s *session) readCommands(ctx context.Context, in io.Reader, sink *console.TextSink) {
	log := logging.FromContext(ctx)
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		kind, err := telemetry.ParseCommand(line)
		if err != nil {
			log.Warn("ignoring input", "err", err)
			continue
		}
		if st := sink.Status(); st.View == nil || !st.View.ControlsEnabled {
			log.Warn("controls disabled, command ignored", "command", kind.String())
			continue
		}
		sink.HandleDispatch(s.dispatcher.Dispatch(ctx, kind))
	}
}
