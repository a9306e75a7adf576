// Package hotkey delivers the global Ctrl+Shift+Space chord that toggles
// conching while another window has focus.
package hotkey

type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}

// Label is how the chord is shown to the user.
const Label = "Ctrl+Shift+Space"
