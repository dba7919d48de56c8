// Package tui is the live dashboard for a running scheduler.Scheduler,
// built with the teacher's bubbletea/bubbles/lipgloss stack: a
// bubbles/list of monitored servers on the left, a bubbles/viewport
// log tail on the right, refreshed on a tea.Tick. It is the teacher's
// PCAP/Lua config browser repurposed from "pick a file" to "watch
// probes run".
package tui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"

	"github.com/CaptianFluffy100/net-sentinel/internal/scheduler"
)

const (
	minWindowWidth  = 80
	minWindowHeight = 20
	listWidthFrac   = 3 // list gets roughly 1/3 of the available width
	minListWidth    = 24
	footerHeight    = 3
)

// Model is the bubbletea root model for the dashboard.
type Model struct {
	sched *scheduler.Scheduler

	servers     list.Model
	logViewport viewport.Model

	width, height int
	version       string

	selected string
	lastErr  error
}

// New returns a dashboard Model bound to sched, whose server list is
// seeded from names.
func New(sched *scheduler.Scheduler, names []string, version string) Model {
	items := make([]list.Item, 0, len(names))
	for _, n := range names {
		items = append(items, serverItem{name: n})
	}

	l := list.New(items, serverDelegate{}, minListWidth, minWindowHeight-footerHeight)
	l.Title = "monitored servers"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.Styles.Title = styleTitle

	vp := viewport.New(minWindowWidth-minListWidth, minWindowHeight-footerHeight)

	return Model{
		sched:       sched,
		servers:     l,
		logViewport: vp,
		version:     version,
	}
}

type serverItem struct {
	name  string
	state scheduler.State
}

func (s serverItem) Title() string       { return s.name }
func (s serverItem) Description() string { return "" }
func (s serverItem) FilterValue() string { return s.name }
