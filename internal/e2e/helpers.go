//go:build e2e
// +build e2e

package e2e

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"tessera/internal/config"
	"tessera/internal/instance"
	"tessera/internal/ipc"
	"tessera/internal/logging"
	"tessera/internal/server"
	"tessera/internal/tui"
)

// SkipIfMissing skips the test if the named program is not in PATH.
func SkipIfMissing(t *testing.T, program string) {
	t.Helper()
	if _, err := exec.LookPath(program); err != nil {
		t.Skipf("Skipping test: %s not found in PATH", program)
	}
}

// TestConfig returns a two-output config with a short transaction timeout.
func TestConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.Transaction.TimeoutMS = 100
	cfg.Outputs = []config.OutputConfig{
		{Name: "HEADLESS-1", Width: 1920, Height: 1080},
		{Name: "HEADLESS-2", X: 1920, Width: 1280, Height: 720},
	}
	return cfg
}

// TestLogManager creates a file-backed log manager in a temp dir.
func TestLogManager(t *testing.T) *logging.Manager {
	t.Helper()
	lm, err := logging.NewManager(logging.Config{
		FilePath:       filepath.Join(t.TempDir(), "tessera.log"),
		MaxSizeMB:      1,
		MaxBackups:     1,
		MaxAgeDays:     1,
		ChannelBufSize: 1000,
		Level:          "debug",
	})
	if err != nil {
		t.Fatalf("create log manager: %v", err)
	}
	return lm
}

// Compositor is a running compositor with its IPC server and published
// instance record.
type Compositor struct {
	Server  *server.Server
	DataDir string
	Client  *instance.Client
}

// StartCompositor runs a compositor the way the tessera binary does: lock,
// logging, IPC and instance record, with the real process launcher.
func StartCompositor(t *testing.T, cfg config.Config) *Compositor {
	t.Helper()

	dataDir := t.TempDir()
	inst, err := instance.Acquire(dataDir)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	lm := TestLogManager(t)
	logs := logging.NewBroadcaster(logging.DefaultHistory)
	go logs.Run(lm.Entries())

	srv, err := server.New(server.Options{Config: cfg, Logs: lm})
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- srv.Run(ctx) }()

	ipcServer := ipc.New(ipc.Config{Bind: "127.0.0.1"}, srv, lm, logs)
	srv.OnEvent(ipcServer.Publish)
	ln, err := ipcServer.Listen()
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	serveDone := make(chan error, 1)
	go func() { serveDone <- ipcServer.Serve(ln) }()

	if err := inst.Publish(instance.Record{
		Addr:    ipcServer.Addr(),
		Session: ipcServer.Session(),
		PID:     os.Getpid(),
		Started: time.Now(),
	}); err != nil {
		t.Fatalf("publish record: %v", err)
	}

	t.Cleanup(func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		_ = ipcServer.Shutdown(sctx)
		if err := <-serveDone; err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Logf("serve: %v", err)
		}
		cancel()
		<-runDone
		inst.Release()
		_ = lm.Close()
		<-logs.Done()
	})

	return &Compositor{
		Server:  srv,
		DataDir: dataDir,
		Client:  instance.NewClientWithTimeout("http://"+ipcServer.Addr(), 5*time.Second),
	}
}

// TUITestRunner helps drive the viewer through Update() calls for testing.
type TUITestRunner struct {
	t     *testing.T
	model tui.Model
	// wait bounds how long a command may block before its result is
	// dropped; event waits and status timers never return on their own.
	wait time.Duration
}

// NewTUITestRunner creates a new test runner with the given model.
func NewTUITestRunner(t *testing.T, model tui.Model) *TUITestRunner {
	return &TUITestRunner{
		t:     t,
		model: model,
		wait:  500 * time.Millisecond,
	}
}

// Model returns the current model state.
func (r *TUITestRunner) Model() tui.Model {
	return r.model
}

// Init runs the Init command and processes results.
func (r *TUITestRunner) Init() {
	r.t.Helper()
	r.runCmd(r.model.Init())
}

// Send delivers msg to the model and runs the resulting command.
func (r *TUITestRunner) Send(msg tea.Msg) {
	r.t.Helper()
	model, cmd := r.model.Update(msg)
	r.model = model.(tui.Model)
	r.runCmd(cmd)
}

// PressKey simulates pressing a regular key.
func (r *TUITestRunner) PressKey(key rune) {
	r.t.Helper()
	r.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{key}})
}

// PressSpecialKey simulates pressing a special key like Enter or Tab.
func (r *TUITestRunner) PressSpecialKey(keyType tea.KeyType) {
	r.t.Helper()
	r.Send(tea.KeyMsg{Type: keyType})
}

// TypeText types a string character by character.
func (r *TUITestRunner) TypeText(text string) {
	r.t.Helper()
	for _, ch := range text {
		r.PressKey(ch)
	}
}

// SendWindowSize sends a window size message.
func (r *TUITestRunner) SendWindowSize(width, height int) {
	r.t.Helper()
	r.Send(tea.WindowSizeMsg{Width: width, Height: height})
}

// WaitFor refreshes until cond holds for the model or timeout passes.
func (r *TUITestRunner) WaitFor(cond func(tui.Model) bool, timeout time.Duration) bool {
	r.t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond(r.model) {
			return true
		}
		r.PressKey('r')
		time.Sleep(50 * time.Millisecond)
	}
	return cond(r.model)
}

// runCmd executes a Bubbletea command and processes its result.
func (r *TUITestRunner) runCmd(cmd tea.Cmd) {
	r.runCmdWithDepth(cmd, 0)
}

// runCmdWithDepth executes a command with depth tracking to prevent infinite recursion.
func (r *TUITestRunner) runCmdWithDepth(cmd tea.Cmd, depth int) {
	if cmd == nil || depth > 10 {
		return
	}

	result := make(chan tea.Msg, 1)
	go func() { result <- cmd() }()
	var msg tea.Msg
	select {
	case msg = <-result:
	case <-time.After(r.wait):
		return
	}
	if msg == nil {
		return
	}

	// Handle batch messages (result of tea.Batch)
	if batchMsg, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batchMsg {
			if c != nil {
				r.runCmdWithDepth(c, depth+1)
			}
		}
		return
	}

	switch msg.(type) {
	case tea.QuitMsg, spinner.TickMsg:
		return
	}

	model, nextCmd := r.model.Update(msg)
	r.model = model.(tui.Model)
	r.runCmdWithDepth(nextCmd, depth+1)
}
