// pattern: Functional Core

package tui

// Region defines a rectangular area within the terminal.
type Region struct {
	X      int // Left position (0-indexed)
	Y      int // Top position (0-indexed)
	Width  int // Width in cells
	Height int // Height in lines
}

// Layout holds computed regions for all UI components.
type Layout struct {
	Header    Region // Title and counters (2 lines)
	Content   Region // Tree and detail together
	Tree      Region // Tree view (left side, 50% when detail open, 100% otherwise)
	Detail    Region // Detail panel (right side when open)
	Separator Region // Separator above the event panel (1 line when open)
	Events    Region // Event panel when open
	StatusBar Region // Status bar or command prompt (1 line)
}

const (
	headerHeight    = 2 // Title + counters
	statusBarHeight = 1
	marginHeight    = 2 // Top + bottom margins
	separatorHeight = 1
	minContent      = 4
)

// ComputeLayout calculates regions based on terminal dimensions.
// When eventsOpen is true, the area below the header splits 50/50 between
// the tree and the event panel. When detailOpen is true, the tree shares
// its row with the detail panel.
func ComputeLayout(width, height int, eventsOpen, detailOpen bool) Layout {
	available := height - headerHeight - statusBarHeight - marginHeight
	if available < minContent {
		available = minContent
	}

	contentHeight, eventsHeight := available, 0
	if eventsOpen {
		available -= separatorHeight
		contentHeight = available / 2
		eventsHeight = available - contentHeight
	}

	y := 0
	header := Region{X: 0, Y: y, Width: width, Height: headerHeight}
	y += headerHeight

	content := Region{X: 0, Y: y, Width: width, Height: contentHeight}
	var tree, detail Region
	if detailOpen {
		treeWidth := width / 2
		tree = Region{X: 0, Y: y, Width: treeWidth, Height: contentHeight}
		detail = Region{X: treeWidth, Y: y, Width: width - treeWidth, Height: contentHeight}
	} else {
		tree = Region{X: 0, Y: y, Width: width, Height: contentHeight}
		detail = Region{X: 0, Y: y}
	}
	y += contentHeight

	var separator, evs Region
	if eventsOpen {
		separator = Region{X: 0, Y: y, Width: width, Height: separatorHeight}
		y += separatorHeight
		evs = Region{X: 0, Y: y, Width: width, Height: eventsHeight}
		y += eventsHeight
	}

	return Layout{
		Header:    header,
		Content:   content,
		Tree:      tree,
		Detail:    detail,
		Separator: separator,
		Events:    evs,
		StatusBar: Region{X: 0, Y: y, Width: width, Height: statusBarHeight},
	}
}

// TreeListHeight returns the rows available to the node list after its
// panel header.
func (l Layout) TreeListHeight() int {
	h := l.Tree.Height - 1
	if h < 1 {
		h = 1
	}
	return h
}

// EventsViewHeight returns the rows available to the event viewport after
// its panel header.
func (l Layout) EventsViewHeight() int {
	h := l.Events.Height - 1
	if h < 1 {
		h = 1
	}
	return h
}
