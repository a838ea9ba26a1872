// pattern: Imperative Shell

package ipc

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"tessera/internal/events"
	"tessera/internal/logging"
)

// subscription is one event stream. An empty type set receives everything.
type subscription struct {
	id      string
	ch      chan events.Event
	types   map[string]bool
	dropped int
}

func (s *subscription) wants(ev events.Event) bool {
	return len(s.types) == 0 || s.types[ev.Type]
}

// eventBroker fans compositor events out to stream subscribers.
type eventBroker struct {
	mu          sync.Mutex
	subscribers map[*subscription]struct{}
}

func newEventBroker() *eventBroker {
	return &eventBroker{
		subscribers: make(map[*subscription]struct{}),
	}
}

// Subscribe registers a stream for the given event types. The caller must
// call Unsubscribe when done.
func (b *eventBroker) Subscribe(types []string) *subscription {
	sub := &subscription{
		id:    uuid.NewString(),
		ch:    make(chan events.Event, 64),
		types: make(map[string]bool),
	}
	for _, t := range types {
		if t = strings.TrimSpace(t); t != "" {
			sub.types[t] = true
		}
	}
	b.mu.Lock()
	b.subscribers[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscription.
func (b *eventBroker) Unsubscribe(sub *subscription) {
	b.mu.Lock()
	delete(b.subscribers, sub)
	b.mu.Unlock()
}

// Publish hands ev to every interested subscriber. Non-blocking: a
// subscriber whose buffer is full misses the event.
func (b *eventBroker) Publish(ev events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subscribers {
		if !sub.wants(ev) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			sub.dropped++
		}
	}
}

// Len returns the number of subscribers.
func (b *eventBroker) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

// sseStream prepares w for server-sent events.
func sseStream(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	return flusher, true
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

// handleEvents is the SSE event stream. ?types=window,workspace limits
// the stream to those event types.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := sseStream(w)
	if !ok {
		return
	}

	var types []string
	if q := r.URL.Query().Get("types"); q != "" {
		types = strings.Split(q, ",")
	}
	sub := s.events.Subscribe(types)
	defer s.events.Unsubscribe(sub)

	if err := writeSSE(w, flusher, "connected", map[string]string{"id": sub.id, "session": s.session}); err != nil {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.done:
			return
		case ev := <-sub.ch:
			if err := writeSSE(w, flusher, ev.Type, ev); err != nil {
				return
			}
		}
	}
}

// handleLogs streams log entries over SSE. ?scope= and ?level= filter the
// stream; ?tail=N first replays up to N recent entries.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if s.logs == nil {
		writeError(w, http.StatusServiceUnavailable, "log streaming unavailable")
		return
	}
	q := r.URL.Query()
	filter := logging.Filter{Scope: q.Get("scope"), MinLevel: q.Get("level")}
	tail := 0
	if t := q.Get("tail"); t != "" {
		n, err := strconv.Atoi(t)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "tail must be a non-negative integer")
			return
		}
		tail = n
	}

	flusher, ok := sseStream(w)
	if !ok {
		return
	}
	ch, cancel := s.logs.Subscribe(filter, 256)
	defer cancel()

	for _, e := range s.logs.Recent(tail, filter) {
		if err := writeSSE(w, flusher, "log", e); err != nil {
			return
		}
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.done:
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			if err := writeSSE(w, flusher, "log", e); err != nil {
				return
			}
		}
	}
}
