// pattern: Imperative Shell

// Package headless provides a display backend without a display: simulated
// clients that acknowledge configure requests on a timer, a scene that
// records every applied frame, and a keyboard that records focus handoffs.
package headless

import (
	"sync"
	"time"

	"tessera/internal/tree"
)

// AckFunc delivers a client's acknowledgement. It is called from a timer
// goroutine and must hand the ack to the goroutine that owns the tree.
type AckFunc func(window tree.WindowID, serial uint32)

// ClientOptions describe a simulated client.
type ClientOptions struct {
	PID   int
	AppID string
	Title string
	// AckDelay is how long the client takes to acknowledge a configure.
	AckDelay time.Duration
	// Frozen clients never acknowledge and ignore close requests.
	Frozen bool
}

// Client is a simulated application window. It implements tree.Surface.
type Client struct {
	mu      sync.Mutex
	opts    ClientOptions
	window  tree.WindowID
	serial  uint32
	acked   uint32
	last    tree.ConfigureRequest
	count   int
	closed  bool
	ack     AckFunc
	onClose func(*Client)
}

// NewClient creates a client. ack receives every acknowledgement and
// onClose is called when the client agrees to close; either may be nil.
func NewClient(opts ClientOptions, ack AckFunc, onClose func(*Client)) *Client {
	return &Client{opts: opts, ack: ack, onClose: onClose}
}

// Bind records the window the tree created for the client.
func (c *Client) Bind(id tree.WindowID) {
	c.mu.Lock()
	c.window = id
	c.mu.Unlock()
}

// Window returns the bound window id.
func (c *Client) Window() tree.WindowID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.window
}

// Configure records req and schedules its acknowledgement.
func (c *Client) Configure(req tree.ConfigureRequest) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.serial++
	c.last = req
	c.count++
	if !c.opts.Frozen {
		c.scheduleAck(c.serial)
	}
	return c.serial
}

// scheduleAck must be called with mu held.
func (c *Client) scheduleAck(serial uint32) {
	if c.ack == nil {
		return
	}
	window, ack := c.window, c.ack
	time.AfterFunc(c.opts.AckDelay, func() {
		c.mu.Lock()
		if serial > c.acked {
			c.acked = serial
		}
		c.mu.Unlock()
		ack(window, serial)
	})
}

// Close asks the client to close. Frozen clients ignore it.
func (c *Client) Close() {
	c.mu.Lock()
	if c.opts.Frozen || c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	onClose := c.onClose
	c.mu.Unlock()
	if onClose != nil {
		onClose(c)
	}
}

// SetFrozen freezes or thaws the client. Thawing acknowledges the latest
// configure at once.
func (c *Client) SetFrozen(frozen bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.opts.Frozen == frozen {
		return
	}
	c.opts.Frozen = frozen
	if !frozen && c.serial > c.acked {
		delay := c.opts.AckDelay
		c.opts.AckDelay = 0
		c.scheduleAck(c.serial)
		c.opts.AckDelay = delay
	}
}

// SetTitle changes the client's title.
func (c *Client) SetTitle(title string) {
	c.mu.Lock()
	c.opts.Title = title
	c.mu.Unlock()
}

// Last returns the latest configure request and how many were received.
func (c *Client) Last() (tree.ConfigureRequest, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.count
}

// Closed reports whether the client agreed to close.
func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Client) PID() int { return c.opts.PID }

func (c *Client) AppID() string { return c.opts.AppID }

func (c *Client) Title() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opts.Title
}

// Layer is a layer-shell style surface, such as a panel or launcher, that
// can take keyboard focus without being a window.
type Layer struct {
	Name string
}

// OverlayName implements tree.Overlay.
func (l *Layer) OverlayName() string { return l.Name }
