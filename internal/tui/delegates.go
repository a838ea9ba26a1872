// pattern: Imperative Shell

package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"tessera/internal/events"
)

// nodeItem wraps one tree node for display in a list.
type nodeItem struct {
	node  events.TreeNode
	depth int
}

// Title returns the node's one-line label.
func (i nodeItem) Title() string {
	n := i.node
	switch n.Type {
	case "output", "workspace":
		return n.Type + " " + n.Name
	case "column":
		return fmt.Sprintf("column %d [%s]", n.ID, n.Layout)
	case "window":
		return fmt.Sprintf("window %d %s %q", n.ID, n.AppID, n.Name)
	}
	return n.Type
}

// Description returns the node's geometry and state flags.
func (i nodeItem) Description() string {
	n := i.node
	parts := []string{formatRect(n.Rect)}
	if n.Focused {
		parts = append(parts, "focused")
	}
	if n.Active && n.Type != "window" {
		parts = append(parts, "visible")
	}
	if n.Urgent {
		parts = append(parts, "urgent")
	}
	if n.Fullscreen != "" && n.Fullscreen != "none" {
		parts = append(parts, "fullscreen:"+n.Fullscreen)
	}
	return strings.Join(parts, " ")
}

// FilterValue returns the value to filter on.
func (i nodeItem) FilterValue() string {
	return i.Title()
}

func formatRect(r events.Rect) string {
	return fmt.Sprintf("%gx%g+%g+%g", r.Width, r.Height, r.X, r.Y)
}

// nodeDelegate renders tree nodes one per line, indented by depth.
type nodeDelegate struct {
	styles *Styles
}

func newNodeDelegate(styles *Styles) nodeDelegate {
	return nodeDelegate{styles: styles}
}

// Height returns the height of a single item.
func (d nodeDelegate) Height() int {
	return 1
}

// Spacing returns the spacing between items.
func (d nodeDelegate) Spacing() int {
	return 0
}

// Update handles item-specific updates.
func (d nodeDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd {
	return nil
}

// Render renders a single node, truncated to the list width.
func (d nodeDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ni, ok := item.(nodeItem)
	if !ok {
		return
	}

	isSelected := index == m.Index()

	indicator := "  "
	if isSelected {
		indicator = lipgloss.NewStyle().
			Foreground(lipgloss.Color(d.styles.flavor.Mauve().Hex)).
			Render("▸ ")
	}

	titleStyle := d.styles.NodeStyle(ni.node.Type, ni.node.Focused, ni.node.Urgent)
	if isSelected {
		titleStyle = titleStyle.Underline(true)
	}
	descStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(d.styles.flavor.Overlay0().Hex))

	line := indicator + strings.Repeat("  ", ni.depth) +
		titleStyle.Render(ni.Title()) + " " + descStyle.Render(ni.Description())
	if width := m.Width(); width > 0 {
		line = ansi.Truncate(line, width, "…")
	}
	_, _ = fmt.Fprint(w, line)
}

// toListItems flattens the tree below root, depth first. Outputs sit at
// depth zero.
func toListItems(root events.TreeNode) []list.Item {
	var items []list.Item
	root.Walk(func(n events.TreeNode, depth int) {
		if depth == 0 {
			return
		}
		items = append(items, nodeItem{node: n, depth: depth - 1})
	})
	return items
}
