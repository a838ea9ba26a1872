package process

import (
	"context"
	"testing"
	"time"

	"tessera/internal/logging"
)

func testLogger(t *testing.T) *logging.ScopedLogger {
	t.Helper()
	lm := logging.NewTestLogManager(100)
	t.Cleanup(func() { _ = lm.Close() })
	return lm.For("test")
}

func TestSupervisor_StartAndStop(t *testing.T) {
	s := NewSupervisor(Config{
		Name:   "sleeper",
		Binary: "sleep",
		Args:   []string{"60"},
	}, testLogger(t))

	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Give the process a moment to start
	time.Sleep(100 * time.Millisecond)

	if !s.Running() {
		t.Error("expected Running() to be true")
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	// Done channel should be closed
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Error("Done() not closed after Stop()")
	}

	if s.Running() {
		t.Error("expected Running() to be false after Stop()")
	}
}

func TestSupervisor_ProcessExits(t *testing.T) {
	s := NewSupervisor(Config{
		Name:      "echo",
		Binary:    "true",
		RestartOn: Never,
	}, testLogger(t))

	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("process did not exit in time")
	}
}

func TestSupervisor_RestartOnFailure(t *testing.T) {
	s := NewSupervisor(Config{
		Name:       "failer",
		Binary:     "false",
		RestartOn:  OnFailure,
		MaxRetries: 2,
		RetryDelay: 50 * time.Millisecond,
	}, testLogger(t))

	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not stop after max retries")
	}
}

func TestSupervisor_NoRestartOnSuccess(t *testing.T) {
	s := NewSupervisor(Config{
		Name:       "succeeder",
		Binary:     "true",
		RestartOn:  OnFailure,
		MaxRetries: 3,
		RetryDelay: 50 * time.Millisecond,
	}, testLogger(t))

	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	select {
	case <-s.Done():
		// Good - should exit without retrying since exit code is 0
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor should have stopped after successful exit")
	}
}

func TestSupervisor_DoubleStartFails(t *testing.T) {
	s := NewSupervisor(Config{
		Name:   "sleeper",
		Binary: "sleep",
		Args:   []string{"60"},
	}, testLogger(t))

	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("First Start() error = %v", err)
	}
	defer s.Stop()

	time.Sleep(50 * time.Millisecond)

	if err := s.Start(ctx); err == nil {
		t.Error("expected error on double Start()")
	}
}

func TestSupervisor_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	s := NewSupervisor(Config{
		Name:   "sleeper",
		Binary: "sleep",
		Args:   []string{"60"},
	}, testLogger(t))

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-s.Done():
	case <-time.After(3 * time.Second):
		t.Error("Done() not closed after context cancellation")
	}
}

func TestSupervisor_StopBeforeStart(t *testing.T) {
	s := NewSupervisor(Config{Name: "bar", Binary: "true"}, nil)
	done := make(chan error, 1)
	go func() { done <- s.Stop() }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Stop() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Stop() blocked on a supervisor that never started")
	}
}

func TestSupervisor_StartAndExitHooks(t *testing.T) {
	started := make(chan int, 1)
	exited := make(chan [2]int, 1)
	s := NewSupervisor(Config{
		Name:    "bar",
		Binary:  "sh",
		Args:    []string{"-c", "exit 3"},
		OnStart: func(pid int) { started <- pid },
		OnExit:  func(pid, code int) { exited <- [2]int{pid, code} },
	}, testLogger(t))

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	<-s.Done()

	pid := <-started
	if pid <= 0 {
		t.Errorf("OnStart pid = %d, want > 0", pid)
	}
	got := <-exited
	if got[0] != pid || got[1] != 3 {
		t.Errorf("OnExit = %v, want [%d 3]", got, pid)
	}
	if s.PID() != 0 {
		t.Errorf("PID() after exit = %d, want 0", s.PID())
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line    string
		binary  string
		args    []string
		wantErr bool
	}{
		{line: "waybar", binary: "waybar"},
		{line: `swaybar --bar_id "bar 0"`, binary: "swaybar", args: []string{"--bar_id", "bar 0"}},
		{line: "   ", wantErr: true},
		{line: `bar "unterminated`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			cfg, err := ParseCommand("bar", tt.line)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCommand() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if cfg.Binary != tt.binary {
				t.Errorf("Binary: got %q, want %q", cfg.Binary, tt.binary)
			}
			if len(cfg.Args) != len(tt.args) {
				t.Fatalf("Args: got %q, want %q", cfg.Args, tt.args)
			}
			for i := range tt.args {
				if cfg.Args[i] != tt.args[i] {
					t.Errorf("Args[%d]: got %q, want %q", i, cfg.Args[i], tt.args[i])
				}
			}
		})
	}
}

func TestBarConfig(t *testing.T) {
	cfg, err := BarConfig("waybar -c cfg", true)
	if err != nil {
		t.Fatalf("BarConfig() error = %v", err)
	}
	if cfg.Name != "bar" || cfg.RestartOn != Always || cfg.RetryDelay != time.Second {
		t.Errorf("BarConfig() = %+v", cfg)
	}
	cfg, _ = BarConfig("waybar", false)
	if cfg.RestartOn != Never {
		t.Errorf("RestartOn without restart: got %v, want Never", cfg.RestartOn)
	}
}

func TestLauncher_LaunchAndReap(t *testing.T) {
	l := NewLauncher(testLogger(t))
	exited := make(chan int, 1)
	l.OnExit(func(pid int) { exited <- pid })

	pid, err := l.Launch("echo hello; exit 0")
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if pid <= 0 {
		t.Fatalf("Launch() pid = %d, want > 0", pid)
	}

	select {
	case got := <-exited:
		if got != pid {
			t.Errorf("OnExit pid = %d, want %d", got, pid)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("child was not reaped")
	}
	l.Wait()
	if running := l.Running(); len(running) != 0 {
		t.Errorf("Running() = %v, want none", running)
	}
}

func TestLauncher_RejectsEmpty(t *testing.T) {
	l := NewLauncher(nil)
	if _, err := l.Launch("  "); err == nil {
		t.Error("Launch(empty) should fail")
	}
}

func TestLauncher_LaunchAll(t *testing.T) {
	l := NewLauncher(testLogger(t))
	pids := l.LaunchAll([]string{"true", "", "true"})
	if len(pids) != 2 {
		t.Errorf("LaunchAll() started %d, want 2", len(pids))
	}
	l.Wait()
}
