// pattern: Imperative Shell
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"tessera/internal/instance"
)

// Delegate coordinates discovering a running compositor and delegating a
// CLI command to it over IPC. It handles error classification (no
// instance vs other errors) and exit code logic.
type Delegate struct {
	// ConfigDir is the directory holding the lock and instance record.
	ConfigDir string

	// ExitFunc is called to exit the process. Defaults to os.Exit.
	// Overridable for testing.
	ExitFunc func(int)

	// Stdout and Stderr default to os.Stdout and os.Stderr.
	Stdout io.Writer
	Stderr io.Writer

	// ClientTimeout is the HTTP client timeout. Defaults to 10 seconds.
	ClientTimeout time.Duration

	// Discover finds the instance. Defaults to instance.Discover.
	Discover func(dir string) (instance.Record, error)
}

func (d *Delegate) defaults() {
	if d.ExitFunc == nil {
		d.ExitFunc = os.Exit
	}
	if d.Stdout == nil {
		d.Stdout = os.Stdout
	}
	if d.Stderr == nil {
		d.Stderr = os.Stderr
	}
	if d.ClientTimeout == 0 {
		d.ClientTimeout = 10 * time.Second
	}
	if d.Discover == nil {
		d.Discover = instance.Discover
	}
}

// Client discovers the running instance and returns a client for it. On
// failure it prints the error, calls ExitFunc and returns nil.
func (d *Delegate) Client() *instance.Client {
	d.defaults()

	rec, err := d.Discover(ResolveDataDir(d.ConfigDir))
	if err != nil {
		fmt.Fprintf(d.Stderr, "error: %v\n", err)
		if errors.Is(err, instance.ErrNotRunning) {
			d.ExitFunc(2)
		} else {
			d.ExitFunc(1)
		}
		return nil
	}
	return instance.NewClientWithTimeout(rec.BaseURL(), d.ClientTimeout)
}

// Run executes a delegated command by discovering the running instance and
// invoking fn with a client targeting it.
//
// Exit codes:
// - 2: no running tessera instance found
// - 1: any other error (connection, command failed, etc.)
// - 0: success (fn returned nil)
func (d *Delegate) Run(fn func(*instance.Client) error) {
	client := d.Client()
	if client == nil {
		return
	}

	if err := fn(client); err != nil {
		var apiErr *instance.APIError
		if errors.As(err, &apiErr) {
			fmt.Fprintf(d.Stderr, "error: %s\n", apiErr.Message)
		} else {
			fmt.Fprintf(d.Stderr, "error: %s\n", err)
		}
		d.ExitFunc(1)
	}
}

// PrintJSON writes v as JSON. Terminals get indented output.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	if isTerminal(w) {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
