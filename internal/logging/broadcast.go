// pattern: Imperative Shell

package logging

import (
	"sync"
)

// DefaultHistory is how many recent entries a Broadcaster replays to new
// subscribers.
const DefaultHistory = 200

// Filter selects entries for a subscriber.
type Filter struct {
	Scope    string // Scope prefix; empty matches all
	MinLevel string // Minimum level; empty admits all
}

// Match reports whether e passes the filter.
func (f Filter) Match(e LogEntry) bool {
	return e.MatchesScope(f.Scope) && e.AtLeast(f.MinLevel)
}

type subscriber struct {
	ch     chan LogEntry
	filter Filter
}

// Broadcaster fans one entry channel out to many subscribers and keeps a
// short history. Slow subscribers lose entries rather than stall logging.
type Broadcaster struct {
	mu      sync.Mutex
	subs    map[int]*subscriber
	nextID  int
	history []LogEntry
	limit   int
	done    chan struct{}
}

// NewBroadcaster creates a broadcaster that keeps up to history entries.
func NewBroadcaster(history int) *Broadcaster {
	if history <= 0 {
		history = DefaultHistory
	}
	return &Broadcaster{
		subs:  make(map[int]*subscriber),
		limit: history,
		done:  make(chan struct{}),
	}
}

// Run consumes src until it closes, then closes every subscriber.
func (b *Broadcaster) Run(src <-chan LogEntry) {
	defer close(b.done)
	for e := range src {
		b.Publish(e)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, s := range b.subs {
		close(s.ch)
		delete(b.subs, id)
	}
}

// Done is closed once Run returns.
func (b *Broadcaster) Done() <-chan struct{} {
	return b.done
}

// Publish records e and hands it to every matching subscriber.
func (b *Broadcaster) Publish(e LogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.history = append(b.history, e)
	if len(b.history) > b.limit {
		b.history = append(b.history[:0], b.history[len(b.history)-b.limit:]...)
	}
	for _, s := range b.subs {
		if !s.filter.Match(e) {
			continue
		}
		select {
		case s.ch <- e:
		default:
		}
	}
}

// Recent returns up to n of the latest entries passing f, oldest first.
func (b *Broadcaster) Recent(n int, f Filter) []LogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []LogEntry
	for i := len(b.history) - 1; i >= 0 && len(out) < n; i-- {
		if f.Match(b.history[i]) {
			out = append(out, b.history[i])
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Subscribe registers a subscriber. The returned cancel func unregisters it
// and closes the channel; it is safe to call more than once.
func (b *Broadcaster) Subscribe(f Filter, buffer int) (<-chan LogEntry, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	s := &subscriber{ch: make(chan LogEntry, buffer), filter: f}
	b.subs[id] = s

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(s.ch)
			}
		})
	}
	return s.ch, cancel
}

// Subscribers returns the number of live subscribers.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
