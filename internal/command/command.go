// pattern: Imperative Shell

// Package command parses and runs the text commands that IPC clients and
// key bindings send to the compositor.
package command

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"

	"tessera/internal/events"
	"tessera/internal/logging"
	"tessera/internal/tree"
)

// Status is the outcome class of one command.
type Status int

const (
	StatusSuccess Status = iota
	// StatusInvalid means the command was not understood. Nothing changed.
	StatusInvalid
	// StatusFailure means the command was understood but could not be
	// carried out, usually because its target is missing.
	StatusFailure
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusInvalid:
		return "invalid"
	case StatusFailure:
		return "failure"
	}
	return "unknown"
}

// ErrInvalidArgs marks a command whose arguments did not parse.
var ErrInvalidArgs = errors.New("invalid arguments")

// Result is the outcome of one command in a line.
type Result struct {
	Command string
	Status  Status
	Err     error
}

// Event converts the result to its IPC payload.
func (r Result) Event() events.CommandResult {
	ev := events.CommandResult{
		Command: r.Command,
		Status:  r.Status.String(),
		Success: r.Status == StatusSuccess,
	}
	if r.Err != nil {
		ev.Error = r.Err.Error()
	}
	return ev
}

// Transactor scopes tree mutations into transactions.
type Transactor interface {
	Begin()
	End()
}

// Launcher starts a shell command for exec and returns its pid.
type Launcher interface {
	Launch(cmd string) (int, error)
}

// call is one parsed command.
type call struct {
	name string
	args []string
	// rest is the raw text after the command name.
	rest string
}

type handler func(r *Runner, c call) error

// Runner executes command lines against the tree.
type Runner struct {
	log      *logging.ScopedLogger
	root     *tree.Root
	txn      Transactor
	launcher Launcher
	handlers map[string]handler
}

// New creates a runner. launcher may be nil, in which case exec fails.
func New(log *logging.ScopedLogger, root *tree.Root, txn Transactor, launcher Launcher) *Runner {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Runner{
		log:      log,
		root:     root,
		txn:      txn,
		launcher: launcher,
		handlers: map[string]handler{
			"border":          cmdBorder,
			"exec":            cmdExec,
			"floating":        cmdFloating,
			"focus":           cmdFocus,
			"fullscreen":      cmdFullscreen,
			"gaps":            cmdGaps,
			"kill":            cmdKill,
			"layout":          cmdLayout,
			"move":            cmdMove,
			"nop":             cmdNop,
			"rename":          cmdRename,
			"resize":          cmdResize,
			"titlebar_height": cmdTitlebarHeight,
			"workspace":       cmdWorkspace,
		},
	}
}

// Names returns the sorted command names the runner understands.
func (r *Runner) Names() []string {
	return slices.Sorted(maps.Keys(r.handlers))
}

// Execute runs every ;-separated command in line and returns one result per
// command. All of the line's changes land in a single transaction.
func (r *Runner) Execute(line string) []Result {
	r.txn.Begin()
	defer r.txn.End()

	var results []Result
	for _, segment := range splitCommands(line) {
		results = append(results, r.run(segment))
	}
	return results
}

func (r *Runner) run(segment string) Result {
	words, err := shellquote.Split(segment)
	if err != nil {
		return r.finish(segment, fmt.Errorf("%w: %v", ErrInvalidArgs, err))
	}
	if len(words) == 0 {
		return r.finish(segment, invalidf("empty command"))
	}
	name := strings.ToLower(words[0])
	h, ok := r.handlers[name]
	if !ok {
		return r.finish(segment, fmt.Errorf("%w: unknown command %q", ErrInvalidArgs, words[0]))
	}
	c := call{
		name: name,
		args: words[1:],
		rest: strings.TrimSpace(segment[len(firstWord(segment)):]),
	}

	r.txn.Begin()
	err = h(r, c)
	r.txn.End()
	return r.finish(segment, err)
}

func (r *Runner) finish(segment string, err error) Result {
	res := Result{Command: segment, Err: err}
	switch {
	case err == nil:
		res.Status = StatusSuccess
		r.log.Debug("command ran", "command", segment)
	case errors.Is(err, ErrInvalidArgs):
		res.Status = StatusInvalid
		r.log.Warn("invalid command", "command", segment, "error", err)
	default:
		res.Status = StatusFailure
		r.log.Warn("command failed", "command", segment, "error", err)
	}
	return res
}

// splitCommands splits line on semicolons outside quotes and drops empty
// commands.
func splitCommands(line string) []string {
	var out []string
	var quote rune
	escaped := false
	start := 0
	flush := func(end int) {
		if s := strings.TrimSpace(line[start:end]); s != "" {
			out = append(out, s)
		}
	}
	for i, ch := range line {
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && quote != '\'':
			escaped = true
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == ';':
			flush(i)
			start = i + 1
		}
	}
	flush(len(line))
	return out
}

func firstWord(s string) string {
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i]
	}
	return s
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgs, fmt.Sprintf(format, args...))
}

// parsePixels parses "<n>", "<n>px" or "<n> px" at the start of args and
// returns how many arguments it used.
func parsePixels(args []string) (float64, int, error) {
	if len(args) == 0 {
		return 0, 0, invalidf("expected a size")
	}
	s := strings.TrimSuffix(strings.ToLower(args[0]), "px")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, 0, invalidf("invalid size %q", args[0])
	}
	used := 1
	if len(args) > 1 && strings.EqualFold(args[1], "px") {
		used = 2
	}
	return float64(n), used, nil
}

// focused returns the focused window or a not-found error.
func (r *Runner) focused() (*tree.Window, error) {
	w := r.root.FocusedWindow()
	if w == nil {
		return nil, fmt.Errorf("no focused window: %w", tree.ErrNotFound)
	}
	return w, nil
}
