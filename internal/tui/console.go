// Terminal console for one rover, built on bubbletea
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"rover-console/internal/console"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// pollMsg carries a poll result into the Update loop.
type pollMsg struct{ console.PollResult }

// dispatchMsg carries a finished command dispatch.
type dispatchMsg struct{ console.DispatchResult }

// adminMsg reports admin endpoint status.
type adminMsg struct {
	active bool
	addr   string
}

// Console runs the TUI program and forwards results from other goroutines
// into it as messages.
type Console struct {
	program teaProgram
	run     func() (tea.Model, error)
}

// NewConsole creates the bubbletea program for m.
func NewConsole(m Model, opts ...tea.ProgramOption) *Console {
	p := tea.NewProgram(m, opts...)
	return &Console{program: p, run: p.Run}
}

// HandlePoll implements console.PollSink.
func (c *Console) HandlePoll(r console.PollResult) {
	c.program.Send(pollMsg{r})
}

// SetAdminStatus updates the admin endpoint indicator.
func (c *Console) SetAdminStatus(active bool, addr string) {
	c.program.Send(adminMsg{active: active, addr: addr})
}

// Quit asks the program to exit.
func (c *Console) Quit() {
	c.program.Send(tea.Quit())
}

// Run blocks until the program exits.
func (c *Console) Run() error {
	_, err := c.run()
	return err
}
