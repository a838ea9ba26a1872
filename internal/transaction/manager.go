// pattern: Imperative Shell

// Package transaction publishes pending tree changes atomically. Changes
// made between Begin and the outermost End are snapshotted together, sent
// to the affected clients, and become visible in one scene push once every
// client has acknowledged its new state or the deadline passes.
package transaction

import (
	"slices"
	"time"

	"tessera/internal/events"
	"tessera/internal/logging"
	"tessera/internal/tree"
)

// DefaultTimeout is how long a transaction waits for client acks.
const DefaultTimeout = 200 * time.Millisecond

// Clock supplies the time used for deadlines.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// Frame is one batch of newly visible state.
type Frame struct {
	Transaction uint64
	Nodes       []tree.NodeRef
	Tree        events.TreeNode
	TimedOut    bool
}

// Scene receives every applied transaction. It is write-only from the
// manager's side.
type Scene interface {
	Push(Frame)
}

// Options configures a Manager.
type Options struct {
	Timeout time.Duration
	Clock   Clock
	Scene   Scene
}

// Stats are the manager's lifetime counters.
type Stats struct {
	Committed uint64 `json:"committed"`
	Applied   uint64 `json:"applied"`
	TimedOut  uint64 `json:"timed_out"`
	LateAcks  uint64 `json:"late_acks"`
	Pending   int    `json:"pending"`
}

type instruction struct {
	window  tree.WindowID
	serial  uint32
	waiting bool
}

// Transaction is a committed batch waiting to become visible.
type Transaction struct {
	id        uint64
	snapshots []tree.Snapshot
	waits     []*instruction
	created   time.Time
	deadline  time.Time
}

// ID returns the transaction's sequence number.
func (t *Transaction) ID() uint64 { return t.id }

// Deadline returns when the transaction applies regardless of acks.
func (t *Transaction) Deadline() time.Time { return t.deadline }

func (t *Transaction) ready() bool {
	for _, in := range t.waits {
		if in.waiting {
			return false
		}
	}
	return true
}

func (t *Transaction) waitingOn() int {
	n := 0
	for _, in := range t.waits {
		if in.waiting {
			n++
		}
	}
	return n
}

func (t *Transaction) refs() []tree.NodeRef {
	refs := make([]tree.NodeRef, len(t.snapshots))
	for i, s := range t.snapshots {
		refs[i] = s.Ref()
	}
	return refs
}

// Manager runs transactions for one tree. It must only be used from the
// goroutine that owns the tree.
type Manager struct {
	log     *logging.ScopedLogger
	pub     *tree.Publisher
	clock   Clock
	scene   Scene
	timeout time.Duration

	depth    int
	nextID   uint64
	queue    []*Transaction
	applying bool

	beforeCommit []func(tree.RootState)
	afterApply   []func(Frame)

	stats Stats
}

// New creates a manager publishing through pub.
func New(log *logging.ScopedLogger, pub *tree.Publisher, opts Options) *Manager {
	if log == nil {
		log = logging.NopLogger()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	m := &Manager{
		log:     log,
		pub:     pub,
		clock:   opts.Clock,
		scene:   opts.Scene,
		timeout: opts.Timeout,
	}
	pub.Root().OnDestroy(m.dropWaiting)
	return m
}

// SetTimeout changes the ack deadline for transactions committed from now on.
func (m *Manager) SetTimeout(d time.Duration) {
	if d > 0 {
		m.timeout = d
	}
}

// BeforeCommit registers fn to run with the transaction's root state just
// before its changes become visible.
func (m *Manager) BeforeCommit(fn func(tree.RootState)) {
	m.beforeCommit = append(m.beforeCommit, fn)
}

// AfterApply registers fn to run after each frame has been pushed.
func (m *Manager) AfterApply(fn func(Frame)) {
	m.afterApply = append(m.afterApply, fn)
}

// Begin opens a transaction scope. Scopes nest; only the outermost End
// commits.
func (m *Manager) Begin() {
	m.depth++
}

// End closes a transaction scope. The outermost End snapshots everything
// that changed, configures affected clients and queues the transaction. A
// scope that changed nothing is a no-op.
func (m *Manager) End() {
	if m.depth == 0 {
		m.log.Error("transaction end without begin")
		return
	}
	m.depth--
	if m.depth > 0 || m.applying {
		return
	}
	m.commit()
	m.process()
}

// Run calls fn inside one Begin/End scope.
func (m *Manager) Run(fn func()) {
	m.Begin()
	defer m.End()
	fn()
}

// Depth returns the current nesting depth.
func (m *Manager) Depth() int { return m.depth }

func (m *Manager) commit() {
	refs := m.pub.TakeDirty()
	if len(refs) == 0 {
		return
	}

	now := m.clock.Now()
	m.nextID++
	t := &Transaction{
		id:       m.nextID,
		created:  now,
		deadline: now.Add(m.timeout),
	}
	for _, ref := range refs {
		if s, ok := m.pub.Snapshot(ref); ok {
			t.snapshots = append(t.snapshots, s)
		}
	}
	for _, s := range t.snapshots {
		if s.Ref().Kind != tree.KindWindow {
			continue
		}
		id := tree.WindowID(s.Ref().ID)
		if serial, sent := m.pub.Configure(id); sent {
			t.waits = append(t.waits, &instruction{window: id, serial: serial, waiting: true})
		}
	}

	m.queue = append(m.queue, t)
	m.stats.Committed++
	m.log.Debug("transaction committed", "id", t.id, "nodes", len(t.snapshots), "waiting", len(t.waits))
}

// Ack records a client's acknowledgement of serial. Every waiting
// instruction for the window with a serial up to and including it is
// satisfied. Acks for transactions that already applied are ignored.
func (m *Manager) Ack(window tree.WindowID, serial uint32) {
	matched := false
	for _, t := range m.queue {
		for _, in := range t.waits {
			if in.waiting && in.window == window && in.serial <= serial {
				in.waiting = false
				matched = true
			}
		}
	}
	if !matched {
		m.stats.LateAcks++
		m.log.Debug("ignoring ack", "window", uint64(window), "serial", serial)
		return
	}
	m.process()
}

// Tick applies whatever the clock says is due.
func (m *Manager) Tick() {
	m.process()
}

// NextDeadline returns the deadline of the oldest queued transaction.
func (m *Manager) NextDeadline() (time.Time, bool) {
	if len(m.queue) == 0 {
		return time.Time{}, false
	}
	return m.queue[0].deadline, true
}

// Pending returns the number of queued transactions.
func (m *Manager) Pending() int { return len(m.queue) }

// Stats returns the lifetime counters.
func (m *Manager) Stats() Stats {
	s := m.stats
	s.Pending = len(m.queue)
	return s
}

// dropWaiting forgets every instruction waiting on a window that is being
// destroyed. It never applies anything itself; the next End, Ack or Tick
// does.
func (m *Manager) dropWaiting(ref tree.NodeRef) {
	if ref.Kind != tree.KindWindow {
		return
	}
	id := tree.WindowID(ref.ID)
	for _, t := range m.queue {
		t.waits = slices.DeleteFunc(t.waits, func(in *instruction) bool {
			return in.window == id
		})
	}
}

// process applies queued transactions in order, stopping at the first
// that is still waiting and not yet due.
func (m *Manager) process() {
	if m.applying {
		return
	}
	now := m.clock.Now()
	for len(m.queue) > 0 {
		t := m.queue[0]
		timedOut := false
		if !t.ready() {
			if now.Before(t.deadline) {
				return
			}
			timedOut = true
			m.log.Warn("transaction timed out", "id", t.id, "waiting", t.waitingOn(), "age", now.Sub(t.created).String())
		}
		m.queue = m.queue[1:]
		m.apply(t, timedOut)
	}
}

func (m *Manager) apply(t *Transaction, timedOut bool) {
	m.applying = true
	defer func() { m.applying = false }()

	for _, s := range t.snapshots {
		if s.Ref().Kind == tree.KindRoot {
			state := s.RootState()
			for _, fn := range m.beforeCommit {
				fn(state)
			}
			break
		}
	}

	for _, s := range t.snapshots {
		m.pub.Promote(s)
	}
	frame := Frame{
		Transaction: t.id,
		Nodes:       t.refs(),
		Tree:        m.pub.Root().Describe(),
		TimedOut:    timedOut,
	}
	if m.scene != nil {
		m.scene.Push(frame)
	}
	for _, s := range t.snapshots {
		m.pub.Release(s.Ref())
	}

	m.stats.Applied++
	if timedOut {
		m.stats.TimedOut++
	}
	m.log.Debug("transaction applied", "id", t.id, "nodes", len(t.snapshots), "timed_out", timedOut)

	for _, fn := range m.afterApply {
		fn(frame)
	}
}
