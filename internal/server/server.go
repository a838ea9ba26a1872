// pattern: Imperative Shell

// Package server wires the tree, the transaction manager, the seat and the
// headless backend together behind a single event loop.
package server

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"tessera/internal/command"
	"tessera/internal/config"
	"tessera/internal/events"
	"tessera/internal/focus"
	"tessera/internal/headless"
	"tessera/internal/logging"
	"tessera/internal/process"
	"tessera/internal/seat"
	"tessera/internal/transaction"
	"tessera/internal/tree"
)

// ErrOutputExists is returned when adding an output whose name is taken.
var ErrOutputExists = errors.New("output already exists")

// Options configure a Server.
type Options struct {
	Config config.Config
	Logs   logging.LoggerProvider
	// Clock drives transaction deadlines; nil means the wall clock.
	Clock transaction.Clock
	// Launcher runs exec commands; nil means a process.Launcher.
	Launcher command.Launcher
}

// Server owns one compositor instance. Its exported methods are safe to
// call from any goroutine; they run on the loop.
type Server struct {
	log  *logging.ScopedLogger
	logs logging.LoggerProvider
	cfg  config.Config

	loop     *Loop
	root     *tree.Root
	txn      *transaction.Manager
	seat     *seat.Seat
	focus    *focus.Coordinator
	runner   *command.Runner
	scene    *headless.Scene
	keyboard *headless.Keyboard
	launcher command.Launcher

	// The bar is started and stopped off the loop, since stopping waits for
	// the child to exit.
	barMu     sync.Mutex
	barReload sync.Mutex
	bar       *process.Supervisor
	barCfg    config.BarConfig
	runCtx    context.Context

	clients map[tree.WindowID]*headless.Client
	layers  map[string]*headless.Layer

	mu        sync.Mutex
	listeners []func(events.Event)
}

// New builds a server and creates the configured outputs. Nothing runs
// until Run.
func New(opts Options) (*Server, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logs := opts.Logs
	if logs == nil {
		logs = nopProvider{}
	}

	s := &Server{
		log:      logs.For("server"),
		logs:     logs,
		cfg:      cfg,
		loop:     NewLoop(),
		scene:    headless.NewScene(cfg.Colors(), headless.DefaultHistory),
		keyboard: headless.NewKeyboard(),
		clients:  make(map[tree.WindowID]*headless.Client),
		layers:   make(map[string]*headless.Layer),
		barCfg:   cfg.Bar,
	}

	root, pub := tree.New(logs.For("tree"), cfg.TreeOptions())
	s.root = root
	s.txn = transaction.New(logs.For("transaction"), pub, transaction.Options{
		Timeout: cfg.TransactionTimeout(),
		Clock:   opts.Clock,
		Scene:   s.scene,
	})
	s.focus = focus.New(logs.For("focus"), s.keyboard)
	s.txn.BeforeCommit(s.focus.Commit)
	s.txn.AfterApply(s.frameApplied)
	s.seat = seat.New("seat0", logs.For("seat.seat0"), root, s.txn, s.focus, cfg.SeatOptions())

	s.launcher = opts.Launcher
	if s.launcher == nil {
		l := process.NewLauncher(logs.For("process.exec"))
		l.OnExit(func(pid int) {
			s.loop.Post(func() { s.root.RemoveWorkspacePID(pid) })
		})
		s.launcher = l
	}
	s.runner = command.New(logs.For("command"), root, s.txn, s.launcher)

	root.OnEvent(s.publish)
	root.OnDestroy(func(ref tree.NodeRef) {
		if ref.Kind == tree.KindWindow {
			delete(s.clients, tree.WindowID(ref.ID))
		}
	})

	if cfg.Bar.Command != "" {
		barCfg, err := process.BarConfig(cfg.Bar.Command, cfg.Bar.Restart)
		if err != nil {
			return nil, err
		}
		s.bar = process.NewSupervisor(barCfg, logs.For("process.bar"))
	}

	s.txn.Run(func() {
		for _, o := range cfg.Outputs {
			root.AddOutput(o.Name, o.Box())
		}
	})
	return s, nil
}

// Run starts the bar and autostart programs and then runs the loop until
// ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.barMu.Lock()
	s.runCtx = ctx
	bar := s.bar
	s.barMu.Unlock()
	s.startBar(ctx, bar)
	defer func() {
		s.barMu.Lock()
		s.runCtx = nil
		bar := s.bar
		s.bar = nil
		s.barMu.Unlock()
		s.retireBar(bar)
	}()
	s.loop.Post(s.autostart)

	s.log.Info("compositor running", "outputs", len(s.cfg.Outputs))
	err := s.loop.Run(ctx, s.txn.NextDeadline, s.txn.Tick)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	s.log.Info("compositor stopped")
	return err
}

func (s *Server) startBar(ctx context.Context, bar *process.Supervisor) {
	if bar == nil || ctx == nil {
		return
	}
	if err := bar.Start(ctx); err != nil {
		s.log.Warn("failed to start bar", "error", err)
	}
}

// scopeCleaner is implemented by logger providers that cache scoped
// loggers, such as *logging.Manager.
type scopeCleaner interface {
	Cleanup(scopePrefix string)
}

// retireBar stops bar and drops its cached logger.
func (s *Server) retireBar(bar *process.Supervisor) {
	if bar == nil {
		return
	}
	if err := bar.Stop(); err != nil {
		s.log.Warn("failed to stop bar", "error", err)
	}
	if c, ok := s.logs.(scopeCleaner); ok {
		c.Cleanup("process.bar")
	}
}

// reloadBar replaces the bar when its configuration changed.
func (s *Server) reloadBar(cfg config.BarConfig) error {
	s.barReload.Lock()
	defer s.barReload.Unlock()

	s.barMu.Lock()
	if cfg == s.barCfg {
		s.barMu.Unlock()
		return nil
	}
	s.barMu.Unlock()

	var barCfg process.Config
	if cfg.Command != "" {
		var err error
		if barCfg, err = process.BarConfig(cfg.Command, cfg.Restart); err != nil {
			return err
		}
	}

	s.barMu.Lock()
	old := s.bar
	s.bar = nil
	s.barCfg = cfg
	s.barMu.Unlock()
	s.retireBar(old)

	if cfg.Command == "" {
		s.log.Info("bar removed")
		return nil
	}
	next := process.NewSupervisor(barCfg, s.logs.For("process.bar"))
	s.barMu.Lock()
	s.bar = next
	ctx := s.runCtx
	s.barMu.Unlock()
	s.log.Info("bar replaced", "command", cfg.Command)
	s.startBar(ctx, next)
	return nil
}

// Loop returns the server's event loop.
func (s *Server) Loop() *Loop { return s.loop }

// OnEvent registers fn to receive every tree, command and transaction
// event. fn runs on the loop and must not block.
func (s *Server) OnEvent(fn func(events.Event)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Server) publish(ev events.Event) {
	s.mu.Lock()
	listeners := s.listeners
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(ev)
	}
}

func (s *Server) frameApplied(f transaction.Frame) {
	change := events.ChangeApplied
	if f.TimedOut {
		change = events.ChangeTimedOut
	}
	s.publish(events.Event{
		Type:   events.TypeTransaction,
		Change: change,
		ID:     f.Transaction,
		Detail: fmt.Sprintf("%d nodes", len(f.Nodes)),
	})
}

func (s *Server) autostart() {
	for _, line := range s.cfg.Autostart {
		for _, r := range s.runner.Execute("exec " + line) {
			if r.Status != command.StatusSuccess {
				s.log.Warn("autostart failed", "command", line, "error", r.Err)
			}
		}
	}
}

// do runs fn on the loop and returns its error.
func (s *Server) do(ctx context.Context, fn func() error) error {
	var err error
	if lerr := s.loop.Do(ctx, func() { err = fn() }); lerr != nil {
		return lerr
	}
	return err
}

// Tree returns the visible tree.
func (s *Server) Tree(ctx context.Context) (events.TreeNode, error) {
	var node events.TreeNode
	err := s.do(ctx, func() error {
		node = s.root.Describe()
		return nil
	})
	return node, err
}

// Execute runs a command line and returns one result per command.
func (s *Server) Execute(ctx context.Context, line string) ([]events.CommandResult, error) {
	var out []events.CommandResult
	err := s.do(ctx, func() error {
		for _, r := range s.runner.Execute(line) {
			ev := r.Event()
			out = append(out, ev)
			s.publish(events.Event{Type: events.TypeBinding, Change: events.ChangeRun, Name: ev.Command, Detail: ev.Status})
		}
		return nil
	})
	return out, err
}

// Stats summarise the server's state.
type Stats struct {
	Transactions transaction.Stats `json:"transactions"`
	Frames       uint64            `json:"frames"`
	TimedOut     uint64            `json:"timed_out_frames"`
	Outputs      int               `json:"outputs"`
	Workspaces   int               `json:"workspaces"`
	Windows      int               `json:"windows"`
	Clients      int               `json:"clients"`
	Focus        string            `json:"focus"`
	SeatOp       string            `json:"seat_op"`
	Commands     []string          `json:"commands"`
	BarPID       int               `json:"bar_pid,omitempty"`
}

// Stats returns a snapshot of the server's counters.
func (s *Server) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.do(ctx, func() error {
		st.Transactions = s.txn.Stats()
		st.Frames, st.TimedOut = s.scene.Counts()
		st.Outputs = len(s.root.Outputs())
		st.Workspaces = len(s.root.Workspaces())
		st.Windows = len(s.root.Windows())
		st.Clients = len(s.clients)
		st.Focus = s.focus.Current().String()
		st.SeatOp = s.seat.Op().Name()
		st.Commands = s.runner.Names()
		return nil
	})
	s.barMu.Lock()
	if s.bar != nil {
		st.BarPID = s.bar.PID()
	}
	s.barMu.Unlock()
	return st, err
}

// Decorations returns the borders drawn in the latest frame.
func (s *Server) Decorations(ctx context.Context) ([]headless.Decoration, error) {
	var out []headless.Decoration
	err := s.do(ctx, func() error {
		out = s.scene.Decorations()
		return nil
	})
	return out, err
}

// Reload applies a new config. Existing workspaces take the new gaps, and
// the bar is restarted when its command changed.
func (s *Server) Reload(ctx context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := s.reloadBar(cfg.Bar); err != nil {
		return err
	}
	return s.do(ctx, func() error {
		s.cfg = cfg
		s.txn.SetTimeout(cfg.TransactionTimeout())
		s.seat.SetOptions(cfg.SeatOptions())
		s.scene.SetColors(cfg.Colors())
		s.txn.Run(func() { s.root.SetOptions(cfg.TreeOptions()) })
		s.log.Info("config applied", "theme", cfg.Theme)
		return nil
	})
}
