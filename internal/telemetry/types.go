// Telemetry snapshot and command types shared by the rover client and console
package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Snapshot is one complete, server-reported sample of rover state.
type Snapshot struct {
	Battery          int      `json:"battery"`
	Position         Position `json:"position"`
	IsCharging       bool     `json:"is_charging"`
	IsMoving         bool     `json:"is_moving"`
	HasCommunication bool     `json:"has_communication"`
	SurvivorsFound   int      `json:"survivors_found"`
}

// Position is the rover pose on the plane. It travels as a two element array.
type Position struct {
	X float64
	Y float64
}

// MarshalJSON encodes the position as [x, y].
func (p Position) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

// UnmarshalJSON accepts exactly two numbers.
func (p *Position) UnmarshalJSON(b []byte) error {
	var xy []float64
	if err := json.Unmarshal(b, &xy); err != nil {
		return fmt.Errorf("position: %w", err)
	}
	if len(xy) != 2 {
		return fmt.Errorf("position: expected 2 coordinates, got %d", len(xy))
	}
	p.X, p.Y = xy[0], xy[1]
	return nil
}

// wireSnapshot mirrors Snapshot with pointers so missing fields can be told
// apart from zero values.
type wireSnapshot struct {
	Battery          *int      `json:"battery"`
	Position         *Position `json:"position"`
	IsCharging       *bool     `json:"is_charging"`
	IsMoving         *bool     `json:"is_moving"`
	HasCommunication *bool     `json:"has_communication"`
	SurvivorsFound   *int      `json:"survivors_found"`
}

// DecodeSnapshot parses a status payload and validates it.
func DecodeSnapshot(b []byte) (Snapshot, error) {
	var w wireSnapshot
	if err := json.Unmarshal(b, &w); err != nil {
		return Snapshot{}, err
	}
	var missing []string
	if w.Battery == nil {
		missing = append(missing, "battery")
	}
	if w.Position == nil {
		missing = append(missing, "position")
	}
	if w.IsCharging == nil {
		missing = append(missing, "is_charging")
	}
	if w.IsMoving == nil {
		missing = append(missing, "is_moving")
	}
	if w.HasCommunication == nil {
		missing = append(missing, "has_communication")
	}
	if w.SurvivorsFound == nil {
		missing = append(missing, "survivors_found")
	}
	if len(missing) > 0 {
		return Snapshot{}, fmt.Errorf("missing fields: %s", strings.Join(missing, ", "))
	}
	s := Snapshot{
		Battery:          *w.Battery,
		Position:         *w.Position,
		IsCharging:       *w.IsCharging,
		IsMoving:         *w.IsMoving,
		HasCommunication: *w.HasCommunication,
		SurvivorsFound:   *w.SurvivorsFound,
	}
	if err := s.Validate(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// Validate checks the snapshot invariants.
func (s Snapshot) Validate() error {
	var errs []error
	if s.Battery < 0 || s.Battery > 100 {
		errs = append(errs, fmt.Errorf("battery %d out of range [0,100]", s.Battery))
	}
	if s.SurvivorsFound < 0 {
		errs = append(errs, fmt.Errorf("survivors_found %d is negative", s.SurvivorsFound))
	}
	if !finite(s.Position.X) || !finite(s.Position.Y) {
		errs = append(errs, errors.New("position is not finite"))
	}
	return errors.Join(errs...)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// CommandKind is one of the five operator control intents.
type CommandKind int

const (
	Forward CommandKind = iota
	Backward
	Left
	Right
	Stop
)

// Commands lists every CommandKind in control-row order.
var Commands = []CommandKind{Forward, Backward, Left, Right, Stop}

var commandNames = map[CommandKind]string{
	Forward:  "forward",
	Backward: "backward",
	Left:     "left",
	Right:    "right",
	Stop:     "stop",
}

// String returns the wire name of the command.
func (c CommandKind) String() string {
	if n, ok := commandNames[c]; ok {
		return n
	}
	return fmt.Sprintf("command(%d)", int(c))
}

// Valid reports whether c is one of the five known commands.
func (c CommandKind) Valid() bool {
	_, ok := commandNames[c]
	return ok
}

// ParseCommand maps a wire name to its CommandKind.
func ParseCommand(s string) (CommandKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, n := range commandNames {
		if n == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown command %q (want forward, backward, left, right or stop)", s)
}

// CommandResult is the server's verdict on a dispatched command.
type CommandResult struct {
	Command CommandKind
	Error   string
}

// Accepted reports whether the server took the command.
func (r CommandResult) Accepted() bool { return r.Error == "" }

// Record is a snapshot as persisted by recorders.
type Record struct {
	Seq       uint64    `json:"seq"`
	RoverID   string    `json:"rover_id"`
	Timestamp time.Time `json:"ts"`
	Snapshot
}
