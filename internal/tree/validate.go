// pattern: Functional Core

package tree

import (
	"errors"
	"fmt"
	"slices"
)

// Validate checks the structural invariants of the pending tree and returns
// every violation found, joined. A nil result means the tree is consistent.
func (r *Root) Validate() error {
	var errs []error
	fail := func(ref NodeRef, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%s: %s", ref, fmt.Sprintf(format, args...)))
	}

	globalFS := 0
	for _, wsID := range r.pending.Workspaces {
		ws := r.workspaces[wsID]
		if ws == nil {
			fail(wsID.Ref(), "listed workspace does not exist")
			continue
		}
		if len(ws.pending.Tiling) > 0 && !slices.Contains(ws.pending.Tiling, ws.pending.ActiveColumn) {
			fail(wsID.Ref(), "active column %d is not one of %v", ws.pending.ActiveColumn, ws.pending.Tiling)
		}
		if len(ws.pending.Tiling) == 0 && ws.pending.ActiveColumn != 0 {
			fail(wsID.Ref(), "empty tiling list has active column %d", ws.pending.ActiveColumn)
		}
		if len(ws.pending.Floating) > 0 && !slices.Contains(ws.pending.Floating, ws.pending.ActiveFloating) {
			fail(wsID.Ref(), "active floating window %d is not floating here", ws.pending.ActiveFloating)
		}

		wsFS := 0
		n := len(ws.pending.Tiling)
		for i, cID := range ws.pending.Tiling {
			c := r.columns[cID]
			if c == nil {
				fail(cID.Ref(), "listed column does not exist")
				continue
			}
			if c.pending.Workspace != wsID || c.pending.Output != ws.pending.Output {
				fail(cID.Ref(), "back-reference (%d, %d) does not match owner (%d, %d)",
					c.pending.Workspace, c.pending.Output, wsID, ws.pending.Output)
			}
			if c.pending.IsFirstChild != (i == 0) || c.pending.IsLastChild != (i == n-1) {
				fail(cID.Ref(), "first/last flags wrong at index %d of %d", i, n)
			}
			if len(c.pending.Children) > 0 && !slices.Contains(c.pending.Children, c.pending.ActiveChild) {
				fail(cID.Ref(), "active child %d is not a child", c.pending.ActiveChild)
			}
			if len(c.pending.Children) == 0 && c.pending.ActiveChild != 0 {
				fail(cID.Ref(), "empty column has active child %d", c.pending.ActiveChild)
			}
			m := len(c.pending.Children)
			for j, wID := range c.pending.Children {
				w := r.windows[wID]
				if w == nil {
					fail(wID.Ref(), "listed window does not exist")
					continue
				}
				if w.pending.Column != cID || w.pending.Workspace != wsID || w.pending.Output != ws.pending.Output {
					fail(wID.Ref(), "back-reference does not match column %d", cID)
				}
				if w.pending.IsFirstChild != (j == 0) || w.pending.IsLastChild != (j == m-1) {
					fail(wID.Ref(), "first/last flags wrong at index %d of %d", j, m)
				}
				switch w.pending.Fullscreen {
				case FullscreenWorkspace:
					wsFS++
				case FullscreenGlobal:
					globalFS++
				}
			}
		}
		for _, wID := range ws.pending.Floating {
			w := r.windows[wID]
			if w == nil {
				fail(wID.Ref(), "listed window does not exist")
				continue
			}
			if w.pending.Column != 0 || w.pending.Workspace != wsID {
				fail(wID.Ref(), "floating back-reference does not match workspace %d", wsID)
			}
			switch w.pending.Fullscreen {
			case FullscreenWorkspace:
				wsFS++
			case FullscreenGlobal:
				globalFS++
			}
		}
		if wsFS > 1 {
			fail(wsID.Ref(), "%d windows are workspace-fullscreen", wsFS)
		}
		if wsFS == 1 && ws.pending.Fullscreen == 0 {
			fail(wsID.Ref(), "fullscreen window not recorded on workspace")
		}
	}
	if globalFS > 1 {
		fail(RootRef, "%d windows are globally fullscreen", globalFS)
	}
	return errors.Join(errs...)
}
