// pattern: Imperative Shell

package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"tessera/internal/events"
	"tessera/internal/server"
)

type subscribedMsg struct {
	stream <-chan events.Event
}

type statsMsg struct {
	stats server.Stats
}

type fetchErrorMsg struct {
	err error
}

type commandResultMsg struct {
	line    string
	results []events.CommandResult
	err     error
}

// clearStatusMsg is sent after a timed delay to clear the status bar.
type clearStatusMsg struct{}

const statusClearDelay = 3 * time.Second

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.statusSpinner, cmd = m.statusSpinner.Update(msg)
		return m, cmd

	case subscribedMsg:
		m.stream = msg.stream
		m.setStatus(StatusInfo, "connected")
		return m, waitForEvent(m.stream)

	case events.EventMsg:
		m.appendEvent(msg.Event)
		cmds := []tea.Cmd{waitForEvent(m.stream)}
		switch msg.Event.Type {
		case events.TypeWindow, events.TypeWorkspace, events.TypeOutput:
			cmds = append(cmds, m.requestTree())
		case events.TypeTransaction:
			cmds = append(cmds, m.fetchStats())
		}
		return m, tea.Batch(cmds...)

	case events.StreamErrorMsg:
		m.stream = nil
		if msg.Err != nil {
			m.err = msg.Err
			m.setStatus(StatusError, "event stream: "+msg.Err.Error())
		} else {
			m.setStatus(StatusError, "compositor closed the event stream")
		}
		return m, nil

	case events.TreeUpdateMsg:
		m.fetching = false
		m.setTree(msg.Tree)
		if m.statusLevel == StatusLoading {
			m.setStatus(StatusInfo, "")
		}
		if m.dirty {
			m.dirty = false
			cmd := m.requestTree()
			return m, cmd
		}
		return m, nil

	case statsMsg:
		m.stats = msg.stats
		return m, nil

	case fetchErrorMsg:
		m.fetching = false
		m.dirty = false
		m.err = msg.err
		m.setStatus(StatusError, msg.err.Error())
		return m, nil

	case commandResultMsg:
		cmd := m.handleCommandResult(msg)
		return m, cmd

	case clearStatusMsg:
		if m.statusLevel == StatusSuccess {
			m.setStatus(StatusInfo, "")
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// requestTree starts a tree fetch unless one is already in flight, in
// which case the in-flight reply triggers one more.
func (m *Model) requestTree() tea.Cmd {
	if m.fetching {
		m.dirty = true
		return nil
	}
	m.fetching = true
	return m.fetchTree()
}

func (m *Model) resize() {
	layout := ComputeLayout(m.width, m.height, m.eventsOpen, m.detailOpen)
	m.nodes.SetSize(layout.Tree.Width, layout.TreeListHeight())
	m.prompt.Width = m.width - 2

	if !m.eventsOpen {
		return
	}
	if !m.eventsReady {
		m.eventsView = viewport.New(layout.Events.Width, layout.EventsViewHeight())
		m.eventsReady = true
	} else {
		m.eventsView.Width = layout.Events.Width
		m.eventsView.Height = layout.EventsViewHeight()
	}
	m.refreshEventsView(true)
}

// setTree replaces the list contents and keeps the cursor on the same
// node when it still exists.
func (m *Model) setTree(root events.TreeNode) {
	prev, hadPrev := m.SelectedNode()
	m.tree = root
	items := toListItems(root)
	m.nodes.SetItems(items)
	if !hadPrev {
		return
	}
	for i, it := range items {
		n := it.(nodeItem).node
		if n.ID == prev.ID && n.Type == prev.Type {
			m.nodes.Select(i)
			return
		}
	}
	if idx := m.nodes.Index(); idx >= len(items) && len(items) > 0 {
		m.nodes.Select(len(items) - 1)
	}
}

func (m *Model) appendEvent(ev events.Event) {
	m.events = append(m.events, ev)
	if over := len(m.events) - maxEvents; over > 0 {
		m.events = m.events[over:]
	}
	if m.eventsReady {
		m.refreshEventsView(m.eventsView.AtBottom())
	}
}

func (m *Model) refreshEventsView(follow bool) {
	lines := make([]string, len(m.events))
	for i, ev := range m.events {
		lines[i] = m.renderEvent(ev)
	}
	m.eventsView.SetContent(strings.Join(lines, "\n"))
	if follow {
		m.eventsView.GotoBottom()
	}
}

func (m *Model) setStatus(level StatusLevel, message string) {
	m.statusLevel = level
	m.statusMessage = message
}

func (m *Model) handleCommandResult(msg commandResultMsg) tea.Cmd {
	if msg.err != nil {
		m.err = msg.err
		m.setStatus(StatusError, msg.err.Error())
		return nil
	}
	for _, r := range msg.results {
		if !r.Success {
			text := fmt.Sprintf("%s: %s", r.Command, r.Status)
			if r.Error != "" {
				text += ": " + r.Error
			}
			m.setStatus(StatusError, text)
			return nil
		}
	}
	m.err = nil
	m.setStatus(StatusSuccess, msg.line)
	return tea.Tick(statusClearDelay, func(time.Time) tea.Msg { return clearStatusMsg{} })
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.promptOpen {
		return m.handlePromptKey(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.cancel()
		return m, tea.Quit

	case ":":
		m.promptOpen = true
		m.prompt.SetValue("")
		cmd := m.prompt.Focus()
		return m, cmd

	case "esc":
		switch {
		case m.err != nil:
			m.err = nil
			m.setStatus(StatusInfo, "")
		case m.detailOpen:
			m.detailOpen = false
			m.panelFocus = FocusTree
			m.resize()
		}
		return m, nil

	case "r":
		cmds := []tea.Cmd{m.requestTree(), m.fetchStats()}
		if m.stream == nil {
			cmds = append(cmds, m.subscribe())
		}
		return m, tea.Batch(cmds...)

	case "e":
		m.eventsOpen = !m.eventsOpen
		if !m.eventsOpen && m.panelFocus == FocusEvents {
			m.panelFocus = FocusTree
		}
		m.resize()
		return m, nil

	case "tab":
		m.panelFocus = m.nextFocus()
		return m, nil

	case "enter", "right", "l":
		if m.panelFocus == FocusTree && len(m.nodes.Items()) > 0 {
			m.detailOpen = true
			m.resize()
		}
		return m, nil

	case "left", "h":
		if m.detailOpen {
			m.detailOpen = false
			m.panelFocus = FocusTree
			m.resize()
		}
		return m, nil
	}

	switch m.panelFocus {
	case FocusEvents:
		switch msg.String() {
		case "g", "home":
			m.eventsView.GotoTop()
			return m, nil
		case "G", "end":
			m.eventsView.GotoBottom()
			return m, nil
		}
		var cmd tea.Cmd
		m.eventsView, cmd = m.eventsView.Update(msg)
		return m, cmd
	case FocusTree:
		var cmd tea.Cmd
		m.nodes, cmd = m.nodes.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.promptOpen = false
		m.prompt.Blur()
		return m, nil
	case tea.KeyEnter:
		line := strings.TrimSpace(m.prompt.Value())
		m.promptOpen = false
		m.prompt.Blur()
		if line == "" {
			return m, nil
		}
		m.setStatus(StatusLoading, line)
		return m, m.runCommand(line)
	}
	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m Model) nextFocus() PanelFocus {
	order := []PanelFocus{FocusTree}
	if m.detailOpen {
		order = append(order, FocusDetail)
	}
	if m.eventsOpen {
		order = append(order, FocusEvents)
	}
	for i, f := range order {
		if f == m.panelFocus {
			return order[(i+1)%len(order)]
		}
	}
	return FocusTree
}
