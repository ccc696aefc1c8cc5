// Line-oriented console output for pipes, logs and replays
package console

import (
	"fmt"
	"io"
	"sync"
	"time"
)

const (
	colorReset  = "\x1b[0m"
	colorRed    = "\x1b[31m"
	colorGreen  = "\x1b[32m"
	colorYellow = "\x1b[33m"
	colorOrange = "\x1b[38;5;208m"
	colorCyan   = "\x1b[36m"
	colorGray   = "\x1b[90m"
)

var batteryANSI = map[BatteryColor]string{
	BatteryRed:    colorRed,
	BatteryOrange: colorOrange,
	BatteryGreen:  colorGreen,
}

// TextSink applies poll and dispatch results to its own State and prints one
// line per change.
type TextSink struct {
	mu       sync.Mutex
	out      io.Writer
	colorize bool
	state    *State
	board    *Board
	now      func() time.Time
}

// NewTextSink creates a sink writing to out. board may be nil.
func NewTextSink(out io.Writer, colorize bool, board *Board) *TextSink {
	return &TextSink{out: out, colorize: colorize, state: NewState(nil), board: board, now: time.Now}
}

// HandlePoll implements PollSink.
func (t *TextSink) HandlePoll(r PollResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.state.ApplyPoll(r) {
		return
	}
	ts := r.Completed.Format(time.TimeOnly)
	if r.Err != nil {
		fmt.Fprintf(t.out, "%s %s poll #%d failed (%s): %v\n",
			t.paint(colorGray, "["+ts+"]"), t.paint(colorYellow, linkLabel(t.state.Link)), r.Seq, t.state.ErrorClass, r.Err)
	} else {
		fmt.Fprintf(t.out, "%s %s\n", t.paint(colorGray, "["+ts+"]"), t.formatView(t.state.View))
	}
	t.publish()
}

// HandleDispatch prints the outcome of a command.
func (t *TextSink) HandleDispatch(r DispatchResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ts := r.Completed.Format(time.TimeOnly)
	switch r.Outcome() {
	case OutcomeAccepted:
		fmt.Fprintf(t.out, "%s command %s accepted\n", t.paint(colorGray, "["+ts+"]"), r.Command)
	default:
		nt, _ := t.state.ApplyDispatch(r, t.now())
		col := colorYellow
		if nt.Level == NoticeError {
			col = colorRed
		}
		fmt.Fprintf(t.out, "%s %s %s\n", t.paint(colorGray, "["+ts+"]"), t.paint(col, string(nt.Level)), nt.Text)
	}
	t.publish()
}

// Status returns the sink's current state.
func (t *TextSink) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Status(t.now())
}

func (t *TextSink) publish() {
	if t.board != nil {
		t.board.Publish(t.state.Status(t.now()))
	}
}

func (t *TextSink) formatView(v View) string {
	controls := "enabled"
	if !v.ControlsEnabled {
		controls = "disabled"
	}
	return fmt.Sprintf("battery=%s status=%s comm=%s pos=%s survivors=%s controls=%s",
		t.paint(batteryANSI[v.BatteryColor], v.BatteryText),
		t.paint(colorCyan, v.StatusText),
		v.CommText,
		v.PositionText,
		v.SurvivorsText,
		controls)
}

func (t *TextSink) paint(color, s string) string {
	if !t.colorize || color == "" {
		return s
	}
	return color + s + colorReset
}

func linkLabel(l LinkState) string {
	switch l {
	case LinkStale:
		return "STALE"
	case LinkLive:
		return "LIVE"
	default:
		return "WAITING"
	}
}
