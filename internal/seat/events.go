package seat

// Linux input button codes.
const (
	BtnLeft   uint32 = 0x110
	BtnRight  uint32 = 0x111
	BtnMiddle uint32 = 0x112
)

// Modifier bits, as reported by xkb.
const (
	ModShift uint32 = 1 << 0
	ModCtrl  uint32 = 1 << 2
	ModAlt   uint32 = 1 << 3
	ModLogo  uint32 = 1 << 6
)

// ButtonState is pressed or released.
type ButtonState int

const (
	Released ButtonState = iota
	Pressed
)

// ButtonEvent is a pointer button press or release. Times are in
// milliseconds from a monotonic clock.
type ButtonEvent struct {
	TimeMsec uint32
	Button   uint32
	State    ButtonState
}

// MotionEvent carries the new cursor position in layout coordinates.
type MotionEvent struct {
	TimeMsec uint32
	X, Y     float64
}

// Orientation of a scroll axis.
type Orientation int

const (
	AxisVertical Orientation = iota
	AxisHorizontal
)

// AxisEvent is a scroll.
type AxisEvent struct {
	TimeMsec    uint32
	Orientation Orientation
	Delta       float64
}

// TabletTipEvent reports the tablet tool touching or leaving the surface.
type TabletTipEvent struct {
	TimeMsec uint32
	Down     bool
}

// TabletMotionEvent is tablet tool movement in layout coordinates.
type TabletMotionEvent struct {
	TimeMsec uint32
	X, Y     float64
}

// KeyEvent is a key press or release with the modifiers in effect after it.
type KeyEvent struct {
	TimeMsec  uint32
	Keycode   uint32
	Pressed   bool
	Modifiers uint32
}
