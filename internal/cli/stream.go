// pattern: Imperative Shell
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"tessera/internal/instance"
	"tessera/internal/logging"
)

// LogStreamConfig configures StreamLogs.
type LogStreamConfig struct {
	Scope   string
	Level   string
	Tail    int
	NoColor bool
	Writer  io.Writer
	// Retry is the pause before reconnecting a dropped stream. Defaults to
	// one second.
	Retry time.Duration
}

// StreamLogs prints log entries until ctx is cancelled. A dropped stream is
// reconnected once; a second consecutive failure is returned. Entries
// already shown are not replayed on reconnect.
func StreamLogs(ctx context.Context, client *instance.Client, cfg LogStreamConfig) error {
	if cfg.Retry == 0 {
		cfg.Retry = time.Second
	}
	tail := cfg.Tail
	var last time.Time
	failures := 0

	for {
		received := false
		err := client.Logs(ctx, instance.LogOptions{Scope: cfg.Scope, Level: cfg.Level, Tail: tail}, func(e logging.LogEntry) error {
			received = true
			if !e.Timestamp.After(last) && !last.IsZero() {
				return nil
			}
			last = e.Timestamp
			if cfg.NoColor {
				e.Message = StripANSI(e.Message)
			}
			_, err := fmt.Fprintln(cfg.Writer, e.String())
			return err
		})
		if ctx.Err() != nil {
			return nil
		}
		if received {
			failures = 0
		}
		failures++
		if failures > 1 {
			if err == nil {
				err = fmt.Errorf("log stream closed")
			}
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(cfg.Retry):
		}
	}
}

// StreamEvents prints each event as one JSON line until ctx is cancelled or
// the compositor goes away.
func StreamEvents(ctx context.Context, client *instance.Client, types []string, w io.Writer) error {
	stream, err := client.Subscribe(ctx, types)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	for ev := range stream {
		if err := enc.Encode(ev); err != nil {
			return err
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	return fmt.Errorf("event stream closed")
}
