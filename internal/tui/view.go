package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"rover-console/internal/console"
	"rover-console/internal/telemetry"
)

const batteryCells = 20

var (
	red    = lipgloss.Color("9")
	orange = lipgloss.Color("208")
	green  = lipgloss.Color("10")
	grey   = lipgloss.Color("8")
	yellow = lipgloss.Color("11")

	titleStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(grey)
)

var batteryColors = map[console.BatteryColor]lipgloss.Color{
	console.BatteryRed:    red,
	console.BatteryOrange: orange,
	console.BatteryGreen:  green,
}

var commandLabels = map[telemetry.CommandKind]string{
	telemetry.Forward:  "[↑ Forward]",
	telemetry.Backward: "[↓ Backward]",
	telemetry.Left:     "[← Left]",
	telemetry.Right:    "[→ Right]",
	telemetry.Stop:     "[■ Stop]",
}

func (m Model) View() string {
	if m.showHelp {
		return m.renderHelp()
	}
	divider := strings.Repeat("─", max(m.width, 20))
	sections := []string{
		m.renderHeader(),
		m.renderBattery(),
		m.table.View(),
		m.renderControls(),
	}
	if notices := m.renderNotices(); notices != "" {
		sections = append(sections, notices)
	}
	sections = append(sections, divider)
	if m.showMap {
		sections = append(sections, m.mapr.Render(m.mapWidth(), m.mapHeight()))
	} else {
		sections = append(sections, m.vp.View())
	}
	sections = append(sections, divider, m.renderBottom())
	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	var link string
	switch m.state.Link {
	case console.LinkLive:
		link = lipgloss.NewStyle().Foreground(green).Render("● LIVE")
	case console.LinkStale:
		link = lipgloss.NewStyle().Foreground(orange).Render("● STALE")
		if m.state.LastError != "" {
			link += dimStyle.Render(fmt.Sprintf(" %s (%d failed)", m.state.LastError, m.state.Failures))
		}
	default:
		link = dimStyle.Render("● WAITING")
		if m.state.LastError != "" {
			link += dimStyle.Render(" " + m.state.LastError)
		}
	}
	return titleStyle.Render("Rover "+m.roverID) + "  " + link
}

func (m Model) renderBattery() string {
	if !m.state.HasSnapshot() {
		return "Battery " + dimStyle.Render(strings.Repeat("░", batteryCells)) + " --"
	}
	v := m.state.View
	filled := int(v.BatteryFill*batteryCells + 0.5)
	bar := lipgloss.NewStyle().Foreground(batteryColors[v.BatteryColor]).Render(strings.Repeat("█", filled))
	bar += dimStyle.Render(strings.Repeat("░", batteryCells-filled))
	return "Battery " + bar + " " + v.BatteryText
}

func (m Model) renderControls() string {
	enabled := m.state.ControlsEnabled()
	style := lipgloss.NewStyle()
	if !enabled {
		style = dimStyle
	}
	parts := make([]string, 0, len(telemetry.Commands))
	for _, c := range telemetry.Commands {
		parts = append(parts, style.Render(commandLabels[c]))
	}
	line := strings.Join(parts, " ")
	if m.inFlight > 0 {
		line += dimStyle.Render(fmt.Sprintf(" (%d pending)", m.inFlight))
	}
	return line
}

func (m Model) renderNotices() string {
	active := m.state.Notices.Active(m.now())
	if len(active) == 0 {
		return ""
	}
	lines := make([]string, 0, len(active))
	for _, n := range active {
		col := yellow
		switch n.Level {
		case console.NoticeError:
			col = red
		case console.NoticeInfo:
			col = green
		}
		line := lipgloss.NewStyle().Foreground(col).Render("▲ ") + n.Text
		if m.width > 0 {
			line = wordwrap.String(line, m.width)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func indicator(on bool) string {
	c := red
	if on {
		c = green
	}
	return lipgloss.NewStyle().Foreground(c).Render("●")
}

func (m Model) renderBottom() string {
	admin := "Admin UI " + indicator(m.admin)
	if m.admin && m.addr != "" {
		admin += " " + m.addr
	}
	rec := "Recording " + indicator(m.recording != "")
	if m.recording != "" {
		rec += " " + m.recording
	}
	line := strings.Join([]string{admin, rec, "Map " + indicator(m.showMap)}, " | ")
	return line + "\n" + m.help.ShortHelpView(m.keys.ShortHelp())
}

func (m Model) renderHelp() string {
	lines := []string{
		titleStyle.Render("Rover console help"),
		"",
		"Movement keys send one command per press while controls are enabled.",
		"Controls are disabled until telemetry arrives, while charging and without communication.",
		"",
		m.help.FullHelpView(m.keys.FullHelp()),
		"",
		dimStyle.Render("press h, ? or esc to close"),
	}
	return strings.Join(lines, "\n")
}

// chromeHeight counts the lines around the log viewport or map.
func (m Model) chromeHeight() int {
	h := lipgloss.Height(m.renderHeader()) +
		lipgloss.Height(m.renderBattery()) +
		lipgloss.Height(m.table.View()) +
		lipgloss.Height(m.renderControls()) +
		lipgloss.Height(m.renderBottom()) + 2
	if n := m.renderNotices(); n != "" {
		h += lipgloss.Height(n)
	}
	return h
}

func (m *Model) updateViewportHeight() {
	h := m.height - m.chromeHeight()
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
}

func (m Model) mapWidth() int {
	if m.width < 11 {
		return 41
	}
	return m.width
}

func (m Model) mapHeight() int {
	// header, scale and legend lines of the map
	h := m.vp.Height - 3
	if h < 5 {
		return 11
	}
	return h
}
