// pattern: Functional Core

package tree

// Publisher owns the transitions between the three state buffers. It is
// handed out once, by New, to the transaction manager.
type Publisher struct {
	root *Root
}

// Snapshot is one entity's pending state as copied into a transaction.
// Promoting it makes exactly that state visible, even if later
// transactions have snapshotted the entity again since.
type Snapshot struct {
	ref NodeRef

	root      RootState
	output    OutputState
	workspace WorkspaceState
	column    ColumnState
	window    WindowState
}

// Ref returns the entity the snapshot was taken of.
func (s Snapshot) Ref() NodeRef { return s.ref }

// RootState returns the snapshotted root state. It is only meaningful for
// a snapshot of RootRef.
func (s Snapshot) RootState() RootState { return s.root.clone() }

// Window returns the snapshotted window state, if the snapshot is of a
// window.
func (s Snapshot) Window() (WindowState, bool) {
	return s.window, s.ref.Kind == KindWindow
}

// Root returns the tree the publisher belongs to.
func (p *Publisher) Root() *Root { return p.root }

// TakeDirty runs the arrange pass and returns every entity whose pending
// state changed since the last call, clearing their dirty flags. The root
// comes first whenever anything changed.
func (p *Publisher) TakeDirty() []NodeRef {
	r := p.root
	r.Arrange()
	if !r.dirty {
		return nil
	}
	refs := append([]NodeRef{RootRef}, r.dirtyNodes...)
	r.dirtyNodes = nil
	r.dirty = false
	for _, ref := range refs {
		switch ref.Kind {
		case KindOutput:
			if o := r.outputs[OutputID(ref.ID)]; o != nil {
				o.dirty = false
			}
		case KindWorkspace:
			if ws := r.workspaces[WorkspaceID(ref.ID)]; ws != nil {
				ws.dirty = false
			}
		case KindColumn:
			if c := r.columns[ColumnID(ref.ID)]; c != nil {
				c.dirty = false
			}
		case KindWindow:
			if w := r.windows[WindowID(ref.ID)]; w != nil {
				w.dirty = false
			}
		}
	}
	return refs
}

// Snapshot copies ref's pending state into committed, takes a transaction
// reference on the entity and returns the copy. It reports false when the
// entity is gone.
func (p *Publisher) Snapshot(ref NodeRef) (Snapshot, bool) {
	r := p.root
	s := Snapshot{ref: ref}
	switch ref.Kind {
	case KindRoot:
		r.committed = r.pending.clone()
		s.root = r.pending.clone()
	case KindOutput:
		o := r.outputs[OutputID(ref.ID)]
		if o == nil {
			return s, false
		}
		o.committed = o.pending
		o.txnRefs++
		s.output = o.pending
	case KindWorkspace:
		ws := r.workspaces[WorkspaceID(ref.ID)]
		if ws == nil {
			return s, false
		}
		ws.committed = ws.pending.clone()
		ws.txnRefs++
		s.workspace = ws.pending.clone()
	case KindColumn:
		c := r.columns[ColumnID(ref.ID)]
		if c == nil {
			return s, false
		}
		c.committed = c.pending.clone()
		c.txnRefs++
		s.column = c.pending.clone()
	case KindWindow:
		w := r.windows[WindowID(ref.ID)]
		if w == nil {
			return s, false
		}
		w.committed = w.pending
		w.txnRefs++
		s.window = w.pending
	default:
		return s, false
	}
	return s, true
}

// Configure sends the window's committed state to its client when it
// differs from what the client was last asked for. It returns the serial
// to wait for and whether a request was sent.
func (p *Publisher) Configure(id WindowID) (uint32, bool) {
	w := p.root.windows[id]
	if w == nil || w.surface == nil || w.committed.Dead || w.committed.Workspace == 0 {
		return 0, false
	}
	req := configureFor(w.committed)
	if w.configured && req == w.lastConfigure {
		return 0, false
	}
	w.configured = true
	w.lastConfigure = req
	return w.surface.Configure(req), true
}

// Promote makes the snapshotted state current.
func (p *Publisher) Promote(s Snapshot) {
	r := p.root
	switch s.ref.Kind {
	case KindRoot:
		r.current = s.root.clone()
	case KindOutput:
		if o := r.outputs[OutputID(s.ref.ID)]; o != nil {
			o.current = s.output
		}
	case KindWorkspace:
		if ws := r.workspaces[WorkspaceID(s.ref.ID)]; ws != nil {
			ws.current = s.workspace.clone()
		}
	case KindColumn:
		if c := r.columns[ColumnID(s.ref.ID)]; c != nil {
			c.current = s.column.clone()
		}
	case KindWindow:
		if w := r.windows[WindowID(s.ref.ID)]; w != nil {
			w.current = s.window
		}
	}
}

// Release drops a transaction reference taken by Snapshot and frees the
// entity if it is dead and nothing else holds it.
func (p *Publisher) Release(ref NodeRef) {
	r := p.root
	switch ref.Kind {
	case KindOutput:
		if o := r.outputs[OutputID(ref.ID)]; o != nil {
			o.txnRefs--
			o.considerDestroy()
		}
	case KindWorkspace:
		if ws := r.workspaces[WorkspaceID(ref.ID)]; ws != nil {
			ws.txnRefs--
			ws.considerDestroy()
		}
	case KindColumn:
		if c := r.columns[ColumnID(ref.ID)]; c != nil {
			c.txnRefs--
			c.considerDestroy()
		}
	case KindWindow:
		if w := r.windows[WindowID(ref.ID)]; w != nil {
			w.txnRefs--
			w.considerDestroy()
		}
	}
}
