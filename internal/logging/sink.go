// pattern: Imperative Shell

package logging

import (
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// ErrSinkClosed is returned by writes after Close.
var ErrSinkClosed = errors.New("channel sink closed")

// ChannelSink is the zap WriteSyncer behind Manager.Entries. It decodes
// each JSON line into a LogEntry and queues it for the Broadcaster. A full
// queue loses its oldest entry; logging never waits on a slow reader.
type ChannelSink struct {
	entries chan LogEntry

	mu     sync.Mutex
	closed bool
}

// NewChannelSink creates a sink queueing up to bufferSize entries.
func NewChannelSink(bufferSize int) *ChannelSink {
	return &ChannelSink{entries: make(chan LogEntry, bufferSize)}
}

// Write queues the entry encoded in p. Lines that are not JSON objects are
// swallowed so a bad line never fails the file core it is teed with.
func (s *ChannelSink) Write(p []byte) (int, error) {
	entry, err := decodeEntry(p)
	if err != nil {
		return len(p), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrSinkClosed
	}
	s.offer(entry)
	return len(p), nil
}

// offer queues e, evicting the oldest entry when the queue is full. Callers
// hold s.mu, so no other writer can refill the slot in between.
func (s *ChannelSink) offer(e LogEntry) {
	select {
	case s.entries <- e:
		return
	default:
	}
	select {
	case <-s.entries:
	default:
	}
	select {
	case s.entries <- e:
	default:
	}
}

// Sync has nothing to flush.
func (s *ChannelSink) Sync() error { return nil }

// Close ends the entry stream. Later calls do nothing.
func (s *ChannelSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.entries)
	}
	return nil
}

// Entries returns the queue. It is closed by Close.
func (s *ChannelSink) Entries() <-chan LogEntry {
	return s.entries
}

// decodeEntry turns one line written with entryEncoderConfig into a
// LogEntry. Keys other than ts, level, logger and msg become Fields; caller
// and stacktrace are dropped.
func decodeEntry(line []byte) (LogEntry, error) {
	var raw map[string]any
	if err := json.Unmarshal(line, &raw); err != nil {
		return LogEntry{}, err
	}

	e := LogEntry{
		Timestamp: time.Now(),
		Level:     "INFO",
		Scope:     "app",
		Fields:    make(map[string]any, len(raw)),
	}
	for k, v := range raw {
		switch k {
		case "msg":
			if msg, ok := v.(string); ok {
				e.Message = msg
			}
		case "level":
			if level, ok := v.(string); ok {
				e.Level = ParseLevel(level)
			}
		case "logger":
			if scope, ok := v.(string); ok && scope != "" {
				e.Scope = scope
			}
		case "ts":
			if ts, ok := v.(float64); ok {
				sec := int64(ts)
				e.Timestamp = time.Unix(sec, int64((ts-float64(sec))*1e9))
			}
		case "caller", "stacktrace":
		default:
			e.Fields[k] = v
		}
	}
	return e, nil
}
