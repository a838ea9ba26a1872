package tree

import "tessera/internal/layout"

// Surface is the client side of a window. The display runtime implements it;
// the tree only ever sends configure requests and close requests through it.
type Surface interface {
	// Configure asks the client to adopt the given state and returns the
	// serial the client will acknowledge.
	Configure(req ConfigureRequest) uint32
	// Close politely asks the client to close.
	Close()
	PID() int
	AppID() string
	Title() string
}

// ConfigureRequest is the client-visible subset of a window's committed
// state.
type ConfigureRequest struct {
	Width, Height float64
	Fullscreen    bool
	Activated     bool
	Resizing      bool
	Tiled         bool
}

// Overlay is a non-window surface that can hold keyboard focus, such as a
// layer-shell panel or a surface pinned by a lock screen.
type Overlay interface {
	OverlayName() string
}

func configureFor(s WindowState) ConfigureRequest {
	return ConfigureRequest{
		Width:      s.Content.Width,
		Height:     s.Content.Height,
		Fullscreen: s.Fullscreen != FullscreenNone,
		Activated:  s.Focused,
		Resizing:   s.Resizing,
		Tiled:      s.Column != 0,
	}
}

// centered places a w by h box in the middle of box.
func centered(box layout.Box, w, h float64) layout.Box {
	return layout.Box{
		X:      box.X + (box.Width-w)/2,
		Y:      box.Y + (box.Height-h)/2,
		Width:  w,
		Height: h,
	}
}
