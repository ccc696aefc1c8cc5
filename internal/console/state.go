package console

import (
	"fmt"
	"time"

	"rover-console/internal/rover"
	"rover-console/internal/telemetry"
)

// LinkState describes how fresh the displayed telemetry is.
type LinkState int

const (
	// LinkWaiting means no snapshot has been applied yet.
	LinkWaiting LinkState = iota
	// LinkLive means the last poll succeeded.
	LinkLive
	// LinkStale means the last poll failed and the display shows older data.
	LinkStale
)

func (l LinkState) String() string {
	switch l {
	case LinkLive:
		return "live"
	case LinkStale:
		return "stale"
	default:
		return "waiting"
	}
}

// State is the console's application state. It is owned by a single
// controller goroutine and is not safe for concurrent use; readers on other
// goroutines use a Board.
type State struct {
	Snapshot   telemetry.Snapshot
	View       View
	Link       LinkState
	LastSeq    uint64
	LastError  string
	ErrorClass string
	Failures   int
	UpdatedAt  time.Time
	Notices    *Notices

	haveSnapshot bool
}

// NewState creates an empty state. A nil queue selects the default notice queue.
func NewState(notices *Notices) *State {
	if notices == nil {
		notices = NewNotices(0, 0)
	}
	return &State{Notices: notices}
}

// ApplyPoll folds a poll result into the state. Results older than the last
// applied one are discarded and false is returned. A failed poll keeps the
// previous snapshot and view and marks the link stale.
func (s *State) ApplyPoll(r PollResult) bool {
	if r.Seq <= s.LastSeq {
		return false
	}
	s.LastSeq = r.Seq
	if r.Err != nil {
		s.Failures++
		s.LastError = r.Err.Error()
		s.ErrorClass = rover.Class(r.Err)
		if s.haveSnapshot {
			s.Link = LinkStale
		}
		return true
	}
	s.Snapshot = r.Snapshot
	s.View = Render(r.Snapshot)
	s.Link = LinkLive
	s.Failures = 0
	s.LastError = ""
	s.ErrorClass = ""
	s.UpdatedAt = r.Completed
	s.haveSnapshot = true
	return true
}

// ApplyDispatch surfaces the outcome of a command. A rejected command becomes
// a warning carrying the server message and a failed one becomes an error
// notice. Accepted commands leave the state untouched.
func (s *State) ApplyDispatch(r DispatchResult, now time.Time) (Notice, bool) {
	switch r.Outcome() {
	case OutcomeRejected:
		return s.Notices.Push(NoticeWarning, r.Result.Error, now), true
	case OutcomeFailed:
		text := fmt.Sprintf("%s failed: %v", r.Command, r.Err)
		return s.Notices.Push(NoticeError, text, now), true
	default:
		return Notice{}, false
	}
}

// HasSnapshot reports whether any snapshot has been applied.
func (s *State) HasSnapshot() bool { return s.haveSnapshot }

// ControlsEnabled is false until the first snapshot arrives and then follows
// the last known-good snapshot. A stale link does not change it.
func (s *State) ControlsEnabled() bool {
	return s.haveSnapshot && s.View.ControlsEnabled
}

// Status is a JSON-friendly copy of the state.
type Status struct {
	Link       string              `json:"link"`
	Seq        uint64              `json:"seq"`
	View       *View               `json:"view,omitempty"`
	Snapshot   *telemetry.Snapshot `json:"snapshot,omitempty"`
	UpdatedAt  *time.Time          `json:"updated_at,omitempty"`
	LastError  string              `json:"last_error,omitempty"`
	ErrorClass string              `json:"error_class,omitempty"`
	Failures   int                 `json:"consecutive_failures"`
	Notices    []Notice            `json:"notices"`
}

// Live reports whether the status reflects a successful last poll.
func (st Status) Live() bool { return st.Link == LinkLive.String() }

// Status exports the current state, pruning expired notices.
func (s *State) Status(now time.Time) Status {
	st := Status{
		Link:       s.Link.String(),
		Seq:        s.LastSeq,
		LastError:  s.LastError,
		ErrorClass: s.ErrorClass,
		Failures:   s.Failures,
		Notices:    s.Notices.Active(now),
	}
	if s.haveSnapshot {
		v, snap, at := s.View, s.Snapshot, s.UpdatedAt
		st.View, st.Snapshot, st.UpdatedAt = &v, &snap, &at
	}
	return st
}
