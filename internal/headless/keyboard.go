// pattern: Imperative Shell

package headless

import (
	"sync"

	"tessera/internal/focus"
	"tessera/internal/seat"
)

// Delivery is one key event and the target that received it.
type Delivery struct {
	Target string
	Event  seat.KeyEvent
}

// Keyboard records keyboard focus handoffs and key deliveries. It
// implements focus.KeyboardSink.
type Keyboard struct {
	mu        sync.Mutex
	entered   focus.Target
	handoffs  int
	delivered []Delivery
}

// NewKeyboard creates an empty keyboard.
func NewKeyboard() *Keyboard {
	return &Keyboard{}
}

func (k *Keyboard) Enter(t focus.Target) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.entered = t
	k.handoffs++
}

func (k *Keyboard) Leave(t focus.Target) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.entered == t {
		k.entered = focus.Target{}
	}
}

func (k *Keyboard) Key(t focus.Target, ev seat.KeyEvent) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.delivered = append(k.delivered, Delivery{Target: t.String(), Event: ev})
}

// Entered returns the target that currently has keyboard enter.
func (k *Keyboard) Entered() focus.Target {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.entered
}

// Handoffs returns how many times focus entered a new target.
func (k *Keyboard) Handoffs() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.handoffs
}

// Delivered returns every key delivery so far.
func (k *Keyboard) Delivered() []Delivery {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]Delivery, len(k.delivered))
	copy(out, k.delivered)
	return out
}
