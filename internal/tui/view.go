// pattern: Imperative Shell

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"tessera/internal/events"
)

// View renders the TUI.
func (m Model) View() string {
	layout := ComputeLayout(m.width, m.height, m.eventsOpen, m.detailOpen)

	parts := []string{m.renderHeader(layout)}

	treeView := m.renderTree(layout)
	if m.detailOpen {
		parts = append(parts, lipgloss.JoinHorizontal(lipgloss.Top, treeView, m.renderDetailPanel(layout)))
	} else {
		parts = append(parts, treeView)
	}

	if m.eventsOpen {
		separator := m.styles.SeparatorStyle().
			Width(layout.Separator.Width).
			Render(strings.Repeat("─", layout.Separator.Width))
		parts = append(parts, separator, m.renderEventPanel(layout))
	}

	var bottom string
	if m.promptOpen {
		bottom = m.prompt.View()
	} else {
		bottom = m.renderStatusBar(layout.StatusBar.Width)
	}
	parts = append(parts, lipgloss.NewStyle().Width(layout.StatusBar.Width).Render(bottom))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderHeader(layout Layout) string {
	title := m.styles.TitleStyle().Render("tessera")
	st := m.stats
	counters := fmt.Sprintf("%d outputs · %d workspaces · %d windows · %d clients",
		st.Outputs, st.Workspaces, st.Windows, st.Clients)
	txn := fmt.Sprintf("txn %d applied · %d timed out · %d pending",
		st.Transactions.Applied, st.Transactions.TimedOut, st.Transactions.Pending)
	focus := st.Focus
	if focus == "" {
		focus = "none"
	}
	line1 := title + "  " + m.styles.SubtitleStyle().Render(counters)
	line2 := m.styles.HelpStyle().Render(fmt.Sprintf("%s · focus %s · seat %s", txn, focus, st.SeatOp))
	return lipgloss.NewStyle().Width(layout.Header.Width).Render(line1 + "\n" + line2)
}

// renderTree renders the node list under its panel header.
func (m Model) renderTree(layout Layout) string {
	header := m.styles.PanelHeaderStyle(m.panelFocus == FocusTree).
		Width(layout.Tree.Width).
		Render(" Tree")

	body := lipgloss.NewStyle().
		Width(layout.Tree.Width).
		Height(layout.TreeListHeight()).
		MaxHeight(layout.TreeListHeight())
	if len(m.nodes.Items()) == 0 {
		msg := "Waiting for the compositor..."
		if !m.fetching {
			msg = "No outputs."
		}
		return lipgloss.JoinVertical(lipgloss.Left, header,
			body.Render(m.styles.InfoStyle().Render(msg)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body.Render(m.nodes.View()))
}

// renderDetailPanel renders the fields of the selected node.
func (m Model) renderDetailPanel(layout Layout) string {
	if layout.Detail.Width == 0 {
		return ""
	}
	header := m.styles.PanelHeaderStyle(m.panelFocus == FocusDetail).
		Width(layout.Detail.Width).
		Render(" Details")

	bodyHeight := layout.Detail.Height - 1
	panel := lipgloss.NewStyle().
		Width(layout.Detail.Width-2).
		Height(bodyHeight).
		MaxHeight(bodyHeight).
		PaddingLeft(1).
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(lipgloss.Color(m.styles.flavor.Surface1().Hex))

	return lipgloss.JoinVertical(lipgloss.Left, header, panel.Render(m.renderDetailContent()))
}

func (m Model) renderDetailContent() string {
	n, ok := m.SelectedNode()
	if !ok {
		return m.styles.InfoStyle().Render("Nothing selected")
	}
	label := m.styles.HelpStyle()
	value := m.styles.InfoStyle()
	var lines []string
	add := func(k, v string) {
		if v == "" {
			return
		}
		lines = append(lines, label.Render(fmt.Sprintf("%-11s", k))+value.Render(v))
	}
	add("type", n.Type)
	add("id", fmt.Sprint(n.ID))
	add("name", n.Name)
	add("app id", n.AppID)
	if n.PID != 0 {
		add("pid", fmt.Sprint(n.PID))
	}
	add("rect", formatRect(n.Rect))
	if n.Content != nil {
		add("content", formatRect(*n.Content))
	}
	if n.Preview != nil {
		add("preview", formatRect(*n.Preview))
	}
	add("layout", n.Layout)
	add("border", n.Border)
	add("fullscreen", n.Fullscreen)
	add("focused", yesNo(n.Focused))
	if n.Urgent {
		add("urgent", "yes")
	}
	if c := len(n.Nodes); c > 0 {
		add("children", fmt.Sprint(c))
	}
	if c := len(n.Floating); c > 0 {
		add("floating", fmt.Sprint(c))
	}
	return strings.Join(lines, "\n")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// renderEvent formats one event line.
func (m Model) renderEvent(ev events.Event) string {
	ts := m.styles.TimestampStyle().Render(ev.Time.Format("15:04:05.000"))
	kind := m.styles.EventStyle(ev.Type).Render(fmt.Sprintf("%-11s", ev.Type))
	text := ev.Change
	if ev.ID != 0 {
		text += fmt.Sprintf(" #%d", ev.ID)
	}
	if ev.Name != "" {
		text += " " + ev.Name
	}
	if ev.Detail != "" {
		text += " " + m.styles.HelpStyle().Render(ev.Detail)
	}
	return fmt.Sprintf("%s %s %s", ts, kind, text)
}

// renderEventPanel renders the event history.
func (m Model) renderEventPanel(layout Layout) string {
	header := m.styles.PanelHeaderStyle(m.panelFocus == FocusEvents).
		Width(layout.Events.Width).
		Render(fmt.Sprintf(" Events (%d)", len(m.events)))

	if m.eventsReady {
		return lipgloss.JoinVertical(lipgloss.Left, header, m.eventsView.View())
	}

	// Not sized yet: render the tail directly.
	h := layout.EventsViewHeight()
	evs := m.events
	if len(evs) > h {
		evs = evs[len(evs)-h:]
	}
	lines := make([]string, len(evs))
	for i, ev := range evs {
		lines[i] = m.renderEvent(ev)
	}
	if len(lines) == 0 {
		lines = []string{m.styles.InfoStyle().Render("No events yet")}
	}
	body := lipgloss.NewStyle().Width(layout.Events.Width).Height(h).Render(strings.Join(lines, "\n"))
	return lipgloss.JoinVertical(lipgloss.Left, header, body)
}

func (m Model) renderStatusBar(width int) string {
	var statusText string
	switch m.statusLevel {
	case StatusLoading:
		statusText = m.statusSpinner.View() + " " + m.styles.InfoStyle().Render(m.statusMessage)
	case StatusSuccess:
		statusText = m.styles.SuccessStyle().Render("✓ " + m.statusMessage)
	case StatusError:
		statusText = m.styles.ErrorStyle().Render("✗ "+m.statusMessage) + m.styles.HelpStyle().Render(" (esc to clear)")
	default:
		statusText = m.styles.InfoStyle().Render(m.statusMessage)
	}

	help := m.renderContextualHelp()
	spacerWidth := width - lipgloss.Width(statusText) - lipgloss.Width(help) - 2
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	return lipgloss.JoinHorizontal(lipgloss.Bottom, statusText, strings.Repeat(" ", spacerWidth), help)
}

// renderContextualHelp returns help text for the focused panel.
func (m Model) renderContextualHelp() string {
	var help string
	switch m.panelFocus {
	case FocusEvents:
		help = "↑/↓: scroll • g/G: top/bottom • tab: next panel • e: hide events"
	case FocusDetail:
		help = "←/esc: close detail • tab: next panel • :: command"
	default:
		if m.detailOpen {
			help = "↑/↓: navigate • ←: close detail • :: command • r: refresh • q: quit"
		} else {
			help = "↑/↓: navigate • →: details • :: command • e: events • r: refresh • q: quit"
		}
	}
	return m.styles.HelpStyle().Render(help)
}
