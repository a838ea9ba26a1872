// pattern: Imperative Shell

// Package process runs the compositor's children: the supervised bar, the
// autostart list and programs started with exec.
package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/kballard/go-shellquote"

	"tessera/internal/logging"
)

// RestartPolicy controls when a process is restarted after exit.
type RestartPolicy int

const (
	Never     RestartPolicy = iota // Never restart
	OnFailure                      // Restart only on non-zero exit
	Always                         // Always restart (unless Stop is called)
)

// Config describes a child process to supervise.
type Config struct {
	Name       string
	Binary     string
	Args       []string
	RestartOn  RestartPolicy
	MaxRetries int
	RetryDelay time.Duration
	// OnStart and OnExit see every run of the process, restarts included.
	OnStart func(pid int)
	OnExit  func(pid, code int)
}

// ParseCommand splits a command line with shell quoting rules into a
// Config's binary and arguments.
func ParseCommand(name, line string) (Config, error) {
	argv, err := shellquote.Split(line)
	if err != nil {
		return Config{}, fmt.Errorf("parse %s command: %w", name, err)
	}
	if len(argv) == 0 {
		return Config{}, fmt.Errorf("%s command is empty", name)
	}
	return Config{Name: name, Binary: argv[0], Args: argv[1:]}, nil
}

// BarConfig describes the status bar. A bar with restart enabled comes
// back after every exit, with a growing pause after repeated failures.
func BarConfig(line string, restart bool) (Config, error) {
	cfg, err := ParseCommand("bar", line)
	if err != nil {
		return Config{}, err
	}
	if restart {
		cfg.RestartOn = Always
		cfg.RetryDelay = time.Second
	}
	return cfg, nil
}

// Supervisor manages the lifecycle of a child process.
type Supervisor struct {
	cfg    Config
	logger *logging.ScopedLogger

	mu      sync.Mutex
	cmd     *exec.Cmd
	started bool
	running bool
	stopped bool
	done    chan struct{}
}

// NewSupervisor creates a new child process supervisor.
func NewSupervisor(cfg Config, logger *logging.ScopedLogger) *Supervisor {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Supervisor{
		cfg:    cfg,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start launches the child process in a goroutine. Non-blocking.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("supervisor: already running")
	}
	s.running = true
	s.started = true
	s.mu.Unlock()

	go s.run(ctx)
	return nil
}

// Stop sends SIGTERM and waits up to 5 seconds, then SIGKILL. Stopping a
// supervisor that never started is a no-op.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	s.stopped = true
	cmd := s.cmd
	started := s.started
	s.mu.Unlock()

	if !started {
		return nil
	}

	if cmd == nil || cmd.Process == nil {
		// Not running or already exited
		<-s.done
		return nil
	}

	// Send SIGTERM
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// Process may already be gone
		<-s.done
		return nil
	}

	// Wait up to 5 seconds for graceful exit
	select {
	case <-s.done:
		return nil
	case <-time.After(5 * time.Second):
	}

	// Force kill
	s.mu.Lock()
	cmd = s.cmd
	s.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}

	<-s.done
	return nil
}

// Running returns whether the child process is currently running.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// PID returns the pid of the running child, or 0.
func (s *Supervisor) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// Done returns a channel that is closed when the supervisor exits
// (either the process exited without restart or Stop was called).
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

func (s *Supervisor) run(ctx context.Context) {
	defer close(s.done)
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	retries := 0
	for {
		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		exitCode := s.runOnce(ctx)

		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		shouldRestart := false
		switch s.cfg.RestartOn {
		case Always:
			shouldRestart = true
		case OnFailure:
			shouldRestart = exitCode != 0
		case Never:
			shouldRestart = false
		}

		if !shouldRestart {
			return
		}

		retries++
		if s.cfg.MaxRetries > 0 && retries > s.cfg.MaxRetries {
			s.logger.Error("max retries exceeded", "retries", retries-1, "process", s.cfg.Name)
			return
		}

		delay := s.cfg.RetryDelay
		if delay == 0 {
			delay = time.Second
		}
		if exitCode != 0 && retries > 1 {
			delay *= time.Duration(min(retries, 8))
		}

		s.logger.Info("restarting process", "process", s.cfg.Name, "attempt", retries, "delay", delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
}

func (s *Supervisor) runOnce(ctx context.Context) int {
	cmd := exec.CommandContext(ctx, s.cfg.Binary, s.cfg.Args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		s.logger.Error("failed to create stdout pipe", "error", err, "process", s.cfg.Name)
		return -1
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		s.logger.Error("failed to create stderr pipe", "error", err, "process", s.cfg.Name)
		return -1
	}

	s.logger.Info("starting process", "process", s.cfg.Name, "binary", s.cfg.Binary, "args", fmt.Sprintf("%v", s.cfg.Args))

	if err := cmd.Start(); err != nil {
		s.logger.Error("failed to start process", "error", err, "process", s.cfg.Name)
		return -1
	}

	s.mu.Lock()
	s.cmd = cmd
	s.mu.Unlock()
	pid := cmd.Process.Pid
	if s.cfg.OnStart != nil {
		s.cfg.OnStart(pid)
	}

	// Capture stdout and stderr into logger
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			s.logger.Info(scanner.Text(), "stream", "stdout", "process", s.cfg.Name)
		}
	}()
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			s.logger.Info(scanner.Text(), "stream", "stderr", "process", s.cfg.Name)
		}
	}()

	wg.Wait()
	err = cmd.Wait()

	s.mu.Lock()
	s.cmd = nil
	s.mu.Unlock()

	code := exitCode(err)
	switch {
	case err == nil:
		s.logger.Info("process exited cleanly", "process", s.cfg.Name)
	case code >= 0:
		s.logger.Warn("process exited", "process", s.cfg.Name, "exit_code", code)
	default:
		// Context cancellation or a signal
		s.logger.Info("process stopped", "process", s.cfg.Name, "error", err)
	}
	if s.cfg.OnExit != nil {
		s.cfg.OnExit(pid, code)
	}
	return code
}

// exitCode maps a Wait error to an exit status: 0 for success, the
// status for a normal non-zero exit and -1 otherwise.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		return exitErr.ExitCode()
	}
	return -1
}
