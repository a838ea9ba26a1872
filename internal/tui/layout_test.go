package tui

import "testing"

func TestComputeLayout(t *testing.T) {
	tests := []struct {
		name        string
		width       int
		height      int
		eventsOpen  bool
		detailOpen  bool
		wantContent int
		wantEvents  int
		wantTreeW   int
		wantDetailW int
	}{
		{
			name:        "tree only",
			width:       80,
			height:      24,
			wantContent: 19, // 24 - 5 fixed lines
			wantTreeW:   80,
		},
		{
			name:        "with events",
			width:       80,
			height:      24,
			eventsOpen:  true,
			wantContent: 9, // (19 - separator) / 2
			wantEvents:  9,
			wantTreeW:   80,
		},
		{
			name:        "odd split gives events the extra row",
			width:       80,
			height:      25,
			eventsOpen:  true,
			wantContent: 9,
			wantEvents:  10,
			wantTreeW:   80,
		},
		{
			name:        "with detail",
			width:       81,
			height:      24,
			detailOpen:  true,
			wantContent: 19,
			wantTreeW:   40,
			wantDetailW: 41,
		},
		{
			name:        "minimum height",
			width:       80,
			height:      6,
			wantContent: 4,
			wantTreeW:   80,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := ComputeLayout(tt.width, tt.height, tt.eventsOpen, tt.detailOpen)

			if l.Header.Height != 2 || l.Header.Width != tt.width {
				t.Errorf("Header = %+v, want %dx2", l.Header, tt.width)
			}
			if l.Content.Height != tt.wantContent {
				t.Errorf("Content.Height = %d, want %d", l.Content.Height, tt.wantContent)
			}
			if l.Tree.Height != tt.wantContent {
				t.Errorf("Tree.Height = %d, want %d", l.Tree.Height, tt.wantContent)
			}
			if l.Events.Height != tt.wantEvents {
				t.Errorf("Events.Height = %d, want %d", l.Events.Height, tt.wantEvents)
			}
			if l.Tree.Width != tt.wantTreeW {
				t.Errorf("Tree.Width = %d, want %d", l.Tree.Width, tt.wantTreeW)
			}
			if l.Detail.Width != tt.wantDetailW {
				t.Errorf("Detail.Width = %d, want %d", l.Detail.Width, tt.wantDetailW)
			}
			if tt.detailOpen && l.Detail.X != l.Tree.Width {
				t.Errorf("Detail.X = %d, want %d", l.Detail.X, l.Tree.Width)
			}
			if tt.eventsOpen {
				if l.Separator.Height != 1 {
					t.Errorf("Separator.Height = %d, want 1", l.Separator.Height)
				}
				if l.Events.Y != l.Separator.Y+1 {
					t.Errorf("Events.Y = %d, want %d", l.Events.Y, l.Separator.Y+1)
				}
			}
			wantStatusY := 2 + tt.wantContent
			if tt.eventsOpen {
				wantStatusY += 1 + tt.wantEvents
			}
			if l.StatusBar.Y != wantStatusY {
				t.Errorf("StatusBar.Y = %d, want %d", l.StatusBar.Y, wantStatusY)
			}
		})
	}
}

func TestLayout_ViewHeights(t *testing.T) {
	l := ComputeLayout(80, 24, true, false)
	if got := l.TreeListHeight(); got != l.Tree.Height-1 {
		t.Errorf("TreeListHeight() = %d, want %d", got, l.Tree.Height-1)
	}
	if got := l.EventsViewHeight(); got != l.Events.Height-1 {
		t.Errorf("EventsViewHeight() = %d, want %d", got, l.Events.Height-1)
	}

	tiny := Layout{}
	if tiny.TreeListHeight() != 1 || tiny.EventsViewHeight() != 1 {
		t.Error("view heights should never drop below 1")
	}
}
