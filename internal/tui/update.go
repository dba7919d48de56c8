package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		listWidth := m.width / listWidthFrac
		if listWidth < minListWidth {
			listWidth = minListWidth
		}
		m.servers.SetSize(listWidth, m.height-footerHeight)
		m.logViewport.Width = m.width - listWidth
		m.logViewport.Height = m.height - footerHeight
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.servers, cmd = m.servers.Update(msg)
		return m, cmd

	case tickMsg:
		m.refresh()
		return m, tickCmd()
	}

	return m, nil
}

// refresh pulls the latest per-server state from the scheduler and
// updates the selected server's log tail.
func (m *Model) refresh() {
	if m.sched == nil {
		return
	}

	states := m.sched.States()
	items := m.servers.Items()
	for i, it := range items {
		si, ok := it.(serverItem)
		if !ok {
			continue
		}
		si.state = states[si.name]
		items[i] = si
	}
	m.servers.SetItems(items)

	if sel, ok := m.servers.SelectedItem().(serverItem); ok {
		m.selected = sel.name
	}

	m.logViewport.SetContent(m.sched.Log.ReadAll())
	m.logViewport.GotoBottom()
}
