package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"tessera/internal/events"
	"tessera/internal/server"
)

// Source is the compositor connection the viewer reads from.
// *instance.Client satisfies it.
type Source interface {
	Tree(ctx context.Context) (events.TreeNode, error)
	Stats(ctx context.Context) (server.Stats, error)
	Command(ctx context.Context, line string) ([]events.CommandResult, error)
	Subscribe(ctx context.Context, types []string) (<-chan events.Event, error)
}

// PanelFocus names the panel receiving navigation keys.
type PanelFocus int

const (
	FocusTree PanelFocus = iota
	FocusDetail
	FocusEvents
)

// StatusLevel selects the icon and colour of the status bar message.
type StatusLevel int

const (
	StatusInfo StatusLevel = iota
	StatusLoading
	StatusSuccess
	StatusError
)

// maxEvents bounds the event panel's history.
const maxEvents = 500

const requestTimeout = 5 * time.Second

// Model represents the TUI application state.
type Model struct {
	width  int
	height int
	styles *Styles

	source Source
	ctx    context.Context
	cancel context.CancelFunc

	tree  events.TreeNode
	stats server.Stats
	nodes list.Model

	stream      <-chan events.Event
	events      []events.Event
	eventsView  viewport.Model
	eventsReady bool
	eventsOpen  bool

	detailOpen bool
	panelFocus PanelFocus

	prompt     textinput.Model
	promptOpen bool

	statusSpinner spinner.Model
	statusMessage string
	statusLevel   StatusLevel

	// fetching is set while a tree request is in flight; dirty records
	// that another change arrived meanwhile and a refetch is due.
	fetching bool
	dirty    bool

	err error
}

// NewModel creates a viewer reading from source.
func NewModel(source Source, theme string) Model {
	styles := NewStyles(theme)

	nodes := list.New([]list.Item{}, newNodeDelegate(styles), 0, 0)
	nodes.SetShowTitle(false)
	nodes.SetShowStatusBar(false)
	nodes.SetFilteringEnabled(false)
	nodes.SetShowHelp(false)
	nodes.SetShowPagination(false)

	prompt := textinput.New()
	prompt.Prompt = ":"
	prompt.Placeholder = "focus left; layout tabbed"
	prompt.CharLimit = 512

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.AccentStyle()

	ctx, cancel := context.WithCancel(context.Background())
	return Model{
		styles:        styles,
		source:        source,
		ctx:           ctx,
		cancel:        cancel,
		nodes:         nodes,
		eventsOpen:    true,
		prompt:        prompt,
		statusSpinner: sp,
		statusMessage: "connecting",
		statusLevel:   StatusLoading,
		fetching:      true,
	}
}

// Init subscribes to the event stream and fetches the first snapshot.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.subscribe(),
		m.fetchTree(),
		m.fetchStats(),
		m.statusSpinner.Tick,
	)
}

// subscribe opens the event stream.
func (m Model) subscribe() tea.Cmd {
	return func() tea.Msg {
		ch, err := m.source.Subscribe(m.ctx, nil)
		if err != nil {
			return events.StreamErrorMsg{Err: err}
		}
		return subscribedMsg{stream: ch}
	}
}

// waitForEvent delivers the next streamed event.
func waitForEvent(stream <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-stream
		if !ok {
			return events.StreamErrorMsg{}
		}
		return events.EventMsg{Event: ev}
	}
}

func (m Model) fetchTree() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, requestTimeout)
		defer cancel()
		root, err := m.source.Tree(ctx)
		if err != nil {
			return fetchErrorMsg{err: err}
		}
		return events.TreeUpdateMsg{Tree: root}
	}
}

func (m Model) fetchStats() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, requestTimeout)
		defer cancel()
		st, err := m.source.Stats(ctx)
		if err != nil {
			return fetchErrorMsg{err: err}
		}
		return statsMsg{stats: st}
	}
}

func (m Model) runCommand(line string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, requestTimeout)
		defer cancel()
		results, err := m.source.Command(ctx, line)
		return commandResultMsg{line: line, results: results, err: err}
	}
}

// SelectedNode returns the node under the cursor.
func (m Model) SelectedNode() (events.TreeNode, bool) {
	item, ok := m.nodes.SelectedItem().(nodeItem)
	if !ok {
		return events.TreeNode{}, false
	}
	return item.node, true
}

// Events returns the retained event history, oldest first.
func (m Model) Events() []events.Event {
	return m.events
}

// Tree returns the last fetched tree.
func (m Model) Tree() events.TreeNode {
	return m.tree
}

// Status returns the status bar level and message.
func (m Model) Status() (StatusLevel, string) {
	return m.statusLevel, m.statusMessage
}
