package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"rover-console/internal/telemetry"
)

type keyMap struct {
	Forward  key.Binding
	Backward key.Binding
	Left     key.Binding
	Right    key.Binding
	Stop     key.Binding
	Map      key.Binding
	Clear    key.Binding
	ScrollUp key.Binding
	ScrollDn key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Forward:  key.NewBinding(key.WithKeys("up", "w"), key.WithHelp("↑/w", "forward")),
		Backward: key.NewBinding(key.WithKeys("down", "s"), key.WithHelp("↓/s", "backward")),
		Left:     key.NewBinding(key.WithKeys("left", "a"), key.WithHelp("←/a", "left")),
		Right:    key.NewBinding(key.WithKeys("right", "d"), key.WithHelp("→/d", "right")),
		Stop:     key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space/x", "stop")),
		Map:      key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "map")),
		Clear:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear notices")),
		ScrollUp: key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll log up")),
		ScrollDn: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll log down")),
		Help:     key.NewBinding(key.WithKeys("h", "?"), key.WithHelp("h/?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// command maps a key press to the CommandKind it issues.
func (k keyMap) command(msg tea.KeyMsg) (telemetry.CommandKind, bool) {
	switch {
	case key.Matches(msg, k.Forward):
		return telemetry.Forward, true
	case key.Matches(msg, k.Backward):
		return telemetry.Backward, true
	case key.Matches(msg, k.Left):
		return telemetry.Left, true
	case key.Matches(msg, k.Right):
		return telemetry.Right, true
	case key.Matches(msg, k.Stop):
		return telemetry.Stop, true
	}
	return 0, false
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Forward, k.Backward, k.Left, k.Right, k.Stop, k.Map, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Forward, k.Backward, k.Left, k.Right, k.Stop},
		{k.Map, k.Clear, k.ScrollUp, k.ScrollDn},
		{k.Help, k.Quit},
	}
}
