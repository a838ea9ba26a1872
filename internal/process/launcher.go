// pattern: Imperative Shell

package process

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"syscall"

	"tessera/internal/logging"
)

// DefaultShell runs exec and autostart command lines.
const DefaultShell = "/bin/sh"

// Launcher starts fire-and-forget children through the shell and reaps
// them. It implements the command layer's exec launcher.
type Launcher struct {
	logger *logging.ScopedLogger
	shell  string

	mu       sync.Mutex
	children map[int]string
	onExit   []func(pid int)
	wg       sync.WaitGroup
}

// NewLauncher creates a launcher using DefaultShell.
func NewLauncher(logger *logging.ScopedLogger) *Launcher {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Launcher{
		logger:   logger,
		shell:    DefaultShell,
		children: make(map[int]string),
	}
}

// OnExit registers fn to run, on the reaping goroutine, when a child exits.
func (l *Launcher) OnExit(fn func(pid int)) {
	l.mu.Lock()
	l.onExit = append(l.onExit, fn)
	l.mu.Unlock()
}

// Launch runs line with the shell in its own process group and returns
// its pid.
func (l *Launcher) Launch(line string) (int, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, errors.New("empty command")
	}
	cmd := exec.Command(l.shell, "-c", line)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 0, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return 0, fmt.Errorf("failed to create stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start %q: %w", line, err)
	}

	pid := cmd.Process.Pid
	l.mu.Lock()
	l.children[pid] = line
	l.mu.Unlock()
	l.logger.Debug("child started", "pid", pid, "command", line)

	l.wg.Add(1)
	go l.reap(cmd, pid, line, stdout, stderr)
	return pid, nil
}

// LaunchAll launches every line, logging the ones that fail to start.
func (l *Launcher) LaunchAll(lines []string) []int {
	var pids []int
	for _, line := range lines {
		pid, err := l.Launch(line)
		if err != nil {
			l.logger.Warn("autostart failed", "command", line, "error", err)
			continue
		}
		pids = append(pids, pid)
	}
	return pids
}

// Running returns the pids of children that have not exited, sorted.
func (l *Launcher) Running() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	pids := make([]int, 0, len(l.children))
	for pid := range l.children {
		pids = append(pids, pid)
	}
	sort.Ints(pids)
	return pids
}

// Wait blocks until every launched child has exited and been reaped.
func (l *Launcher) Wait() {
	l.wg.Wait()
}

func (l *Launcher) reap(cmd *exec.Cmd, pid int, line string, stdout, stderr io.Reader) {
	defer l.wg.Done()

	var wg sync.WaitGroup
	wg.Add(2)
	pipe := func(r io.Reader, stream string) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			l.logger.Debug(scanner.Text(), "stream", stream, "pid", pid)
		}
	}
	go pipe(stdout, "stdout")
	go pipe(stderr, "stderr")
	wg.Wait()

	code := exitCode(cmd.Wait())
	l.logger.Debug("child exited", "pid", pid, "command", line, "exit_code", code)

	l.mu.Lock()
	delete(l.children, pid)
	hooks := append([]func(int){}, l.onExit...)
	l.mu.Unlock()
	for _, fn := range hooks {
		fn(pid)
	}
}
