// Pure mapping from a telemetry snapshot to presentation values
package console

import (
	"fmt"
	"strconv"

	"rover-console/internal/telemetry"
)

// BatteryColor is the fill colour of the battery gauge.
type BatteryColor string

const (
	BatteryRed    BatteryColor = "red"
	BatteryOrange BatteryColor = "orange"
	BatteryGreen  BatteryColor = "green"
)

// Battery thresholds, strict less-than, checked in order.
const (
	batteryCritical = 10
	batteryLow      = 30
)

// Status and link labels.
const (
	StatusCharging = "Charging"
	StatusMoving   = "Moving"
	StatusIdle     = "Idle"

	CommConnected    = "Connected"
	CommDisconnected = "Disconnected"
)

// View holds the presentation values for one snapshot.
type View struct {
	BatteryText     string       `json:"battery_text"`
	BatteryFill     float64      `json:"battery_fill"`
	BatteryColor    BatteryColor `json:"battery_color"`
	PositionText    string       `json:"position_text"`
	StatusText      string       `json:"status_text"`
	CommText        string       `json:"comm_text"`
	SurvivorsText   string       `json:"survivors_text"`
	ControlsEnabled bool         `json:"controls_enabled"`
}

// Render maps s to its presentation values. It has no side effects.
func Render(s telemetry.Snapshot) View {
	return View{
		BatteryText:     fmt.Sprintf("%d%%", s.Battery),
		BatteryFill:     BatteryFill(s.Battery),
		BatteryColor:    ColorFor(s.Battery),
		PositionText:    FormatPosition(s.Position),
		StatusText:      StatusText(s),
		CommText:        CommText(s.HasCommunication),
		SurvivorsText:   strconv.Itoa(s.SurvivorsFound),
		ControlsEnabled: ControlsEnabled(s),
	}
}

// ColorFor picks the gauge colour for a battery percentage.
func ColorFor(battery int) BatteryColor {
	switch {
	case battery < batteryCritical:
		return BatteryRed
	case battery < batteryLow:
		return BatteryOrange
	default:
		return BatteryGreen
	}
}

// BatteryFill is the gauge fill as a fraction of full width.
func BatteryFill(battery int) float64 {
	f := float64(battery) / 100
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// FormatPosition renders both coordinates with two decimals.
func FormatPosition(p telemetry.Position) string {
	return fmt.Sprintf("(%.2f, %.2f)", p.X, p.Y)
}

// StatusText applies the Charging > Moving > Idle priority.
func StatusText(s telemetry.Snapshot) string {
	switch {
	case s.IsCharging:
		return StatusCharging
	case s.IsMoving:
		return StatusMoving
	default:
		return StatusIdle
	}
}

// CommText labels the communication flag.
func CommText(has bool) string {
	if has {
		return CommConnected
	}
	return CommDisconnected
}

// ControlsEnabled reports whether movement commands may be issued.
// Moving alone does not lock the controls.
func ControlsEnabled(s telemetry.Snapshot) bool {
	return !(s.IsCharging || !s.HasCommunication)
}
