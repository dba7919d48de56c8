package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/CaptianFluffy100/net-sentinel/internal/scheduler"
)

// Run starts the dashboard for sched's registered servers and blocks
// until the user quits.
func Run(sched *scheduler.Scheduler, names []string, version string) error {
	p := tea.NewProgram(New(sched, names, version), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
