package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"

	"rover-console/internal/console"
	"rover-console/internal/logging"
	"rover-console/internal/telemetry"
)

const (
	maxLogLines    = 500
	noticeInterval = time.Second
)

// Dispatcher sends one operator command.
type Dispatcher interface {
	Dispatch(ctx context.Context, kind telemetry.CommandKind) console.DispatchResult
}

// Options wires a Model to its collaborators.
type Options struct {
	Context    context.Context
	RoverID    string
	Dispatcher Dispatcher
	Notices    *console.Notices
	Map        console.MapRenderer
	Board      *console.Board
	Recording  string
}

// noticeTickMsg refreshes notice expiry.
type noticeTickMsg time.Time

// Model is the bubbletea model of the console. It owns the console.State.
type Model struct {
	ctx        context.Context
	roverID    string
	state      *console.State
	dispatcher Dispatcher
	mapr       console.MapRenderer
	board      *console.Board
	recording  string

	keys     keyMap
	help     help.Model
	table    table.Model
	vp       viewport.Model
	logs     []string
	width    int
	height   int
	showMap  bool
	showHelp bool
	admin    bool
	addr     string
	inFlight int
	now      func() time.Time
}

// NewModel creates a Model waiting for its first snapshot.
func NewModel(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	mapr := opts.Map
	if mapr == nil {
		mapr = console.NewGridMap(0)
	}
	cols := []table.Column{
		{Title: "Telemetry", Width: 14},
		{Title: "Value", Width: 20},
	}
	t := table.New(table.WithColumns(cols), table.WithHeight(5))
	m := Model{
		ctx:        ctx,
		roverID:    opts.RoverID,
		state:      console.NewState(opts.Notices),
		dispatcher: opts.Dispatcher,
		mapr:       mapr,
		board:      opts.Board,
		recording:  opts.Recording,
		keys:       defaultKeys(),
		help:       help.New(),
		table:      t,
		vp:         viewport.New(0, 0),
		now:        time.Now,
	}
	m.refreshTable()
	return m
}

func (m Model) Init() tea.Cmd { return noticeTick() }

func noticeTick() tea.Cmd {
	return tea.Tick(noticeInterval, func(t time.Time) tea.Msg { return noticeTickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.vp.Width = msg.Width
		m.help.Width = msg.Width
		m.table.SetWidth(msg.Width)
		m.updateViewportHeight()
		m.refreshViewport()
	case tea.KeyMsg:
		return m.handleKey(msg)
	case pollMsg:
		m.applyPoll(msg.PollResult)
	case dispatchMsg:
		m.applyDispatch(msg.DispatchResult)
	case adminMsg:
		m.admin, m.addr = msg.active, msg.addr
	case noticeTickMsg:
		m.updateViewportHeight()
		return m, noticeTick()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	if m.showHelp {
		if key.Matches(msg, m.keys.Help) || msg.Type == tea.KeyEsc {
			m.showHelp = false
		}
		return m, nil
	}
	if kind, ok := m.keys.command(msg); ok {
		if !m.state.ControlsEnabled() {
			return m, nil
		}
		return m.dispatch(kind)
	}
	switch {
	case key.Matches(msg, m.keys.Map):
		m.showMap = !m.showMap
	case key.Matches(msg, m.keys.Clear):
		m.state.Notices.Dismiss()
		m.updateViewportHeight()
		m.publish()
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
	case key.Matches(msg, m.keys.ScrollUp), key.Matches(msg, m.keys.ScrollDn):
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		return m, cmd
	}
	return m, nil
}

// dispatch runs the command off the Update loop and reports back with a
// dispatchMsg.
func (m Model) dispatch(kind telemetry.CommandKind) (tea.Model, tea.Cmd) {
	if m.dispatcher == nil {
		return m, nil
	}
	m.inFlight++
	d, ctx := m.dispatcher, m.ctx
	return m, func() tea.Msg {
		return dispatchMsg{d.Dispatch(ctx, kind)}
	}
}

func (m *Model) applyPoll(r console.PollResult) {
	prev := m.state.Link
	if !m.state.ApplyPoll(r) {
		logging.FromContext(m.ctx).Debug("discarded stale poll result", "seq", r.Seq, "last", m.state.LastSeq)
		return
	}
	if r.OK() {
		m.mapr.Plot(r.Snapshot)
		if prev != console.LinkLive {
			m.appendLog(r.Completed, "link live")
		}
	} else {
		m.appendLog(r.Completed, fmt.Sprintf("poll #%d failed (%s): %v", r.Seq, m.state.ErrorClass, r.Err))
	}
	m.refreshTable()
	m.publish()
}

func (m *Model) applyDispatch(r console.DispatchResult) {
	if m.inFlight > 0 {
		m.inFlight--
	}
	switch r.Outcome() {
	case console.OutcomeAccepted:
		m.appendLog(r.Completed, fmt.Sprintf("%s accepted", r.Command))
	case console.OutcomeRejected:
		m.appendLog(r.Completed, fmt.Sprintf("%s rejected: %s", r.Command, r.Result.Error))
	default:
		m.appendLog(r.Completed, fmt.Sprintf("%s failed: %v", r.Command, r.Err))
	}
	m.state.ApplyDispatch(r, m.now())
	m.updateViewportHeight()
	m.publish()
}

func (m *Model) appendLog(at time.Time, line string) {
	if at.IsZero() {
		at = m.now()
	}
	m.logs = append(m.logs, at.Format(time.TimeOnly)+" "+line)
	if len(m.logs) > maxLogLines {
		m.logs = m.logs[len(m.logs)-maxLogLines:]
	}
	m.refreshViewport()
}

func (m *Model) refreshViewport() {
	var lines []string
	for _, l := range m.logs {
		if m.vp.Width > 0 {
			l = wordwrap.String(l, m.vp.Width)
		}
		lines = append(lines, l)
	}
	atBottom := m.vp.AtBottom()
	m.vp.SetContent(strings.Join(lines, "\n"))
	if atBottom {
		m.vp.GotoBottom()
	}
}

func (m *Model) refreshTable() {
	if !m.state.HasSnapshot() {
		m.table.SetRows([]table.Row{
			{"Position", "-"},
			{"Status", "-"},
			{"Communication", "-"},
			{"Survivors", "-"},
		})
		return
	}
	v := m.state.View
	m.table.SetRows([]table.Row{
		{"Position", v.PositionText},
		{"Status", v.StatusText},
		{"Communication", v.CommText},
		{"Survivors", v.SurvivorsText},
	})
}

func (m *Model) publish() {
	if m.board != nil {
		m.board.Publish(m.state.Status(m.now()))
	}
}

// State exposes the model's state for inspection.
func (m Model) State() *console.State { return m.state }
