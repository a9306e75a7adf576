package hotkey

// evdev key codes
const (
	keyLCtrl  = 29
	keyRCtrl  = 97
	keyLShift = 42
	keyRShift = 54
	keySpace  = 57
)

const (
	keyRelease = 0
	keyPress   = 1
)

type edge int

const (
	edgeNone edge = iota
	edgeDown
	edgeUp
)

// chord tracks Ctrl+Shift+Space across raw key events. Autorepeat events
// (value 2) keep the held state and never produce an edge.
type chord struct {
	ctrl, shift, space bool
}

func (c *chord) feed(code uint16, value int32) edge {
	pressed := value == keyPress
	released := value == keyRelease

	switch code {
	case keyLCtrl, keyRCtrl:
		c.ctrl = pressed || (!released && c.ctrl)
	case keyLShift, keyRShift:
		c.shift = pressed || (!released && c.shift)
	case keySpace:
		if pressed && !c.space && c.ctrl && c.shift {
			c.space = true
			return edgeDown
		}
		if released && c.space {
			c.space = false
			return edgeUp
		}
	}
	return edgeNone
}
