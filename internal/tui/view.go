package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type serverDelegate struct{}

func (d serverDelegate) Height() int                             { return 1 }
func (d serverDelegate) Spacing() int                             { return 0 }
func (d serverDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d serverDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	it, ok := listItem.(serverItem)
	if !ok {
		return
	}

	status := "?"
	statusStyle := styleLabel
	switch {
	case it.state.LastErr != nil:
		status = "DOWN"
		statusStyle = styleStatusDown
	case !it.state.LastRun.IsZero():
		status = "UP"
		statusStyle = styleStatusUp
	}

	line := fmt.Sprintf("%-4s %s", statusStyle.Render(status), it.name)
	if index == m.Index() {
		fmt.Fprint(w, styleSelected.Render("> "+line))
		return
	}
	fmt.Fprint(w, "  "+line)
}

// View renders the dashboard: server list on the left, log tail on
// the right, a one-line footer with key hints below both.
func (m Model) View() string {
	if m.width < minWindowWidth || m.height < minWindowHeight {
		return styleScreenTooSmall.Render(fmt.Sprintf(
			"terminal too small (%dx%d, need %dx%d)", m.width, m.height, minWindowWidth, minWindowHeight))
	}

	header := styleAppTitle.Render(fmt.Sprintf("net-sentinel %s", m.version))

	detail := m.renderDetail()

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		stylePanelTitled.Render(m.servers.View()),
		stylePanelTitled.Width(m.logViewport.Width).Render(detail+"\n"+m.logViewport.View()),
	)

	footer := styleLabel.Render("q: quit   ↑/↓: select")

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m Model) renderDetail() string {
	sel, ok := m.servers.SelectedItem().(serverItem)
	if !ok {
		return styleValue.Render("no server selected")
	}

	var b strings.Builder
	b.WriteString(styleTitle.Render(sel.name))
	b.WriteString("\n")

	if sel.state.LastRun.IsZero() {
		b.WriteString(styleValue.Render("no probe run yet"))
		return b.String()
	}

	b.WriteString(styleLabel.Render("last run") + styleValue.Render(sel.state.LastRun.Format("15:04:05")))
	b.WriteString("\n")

	if sel.state.LastErr != nil {
		b.WriteString(styleLabel.Render("result") + styleStatusDown.Render(sel.state.LastErr.Error()))
	} else if sel.state.LastProbe != nil {
		b.WriteString(styleLabel.Render("result") + styleStatusUp.Render(sel.state.LastProbe.Label))
	}
	return b.String()
}
