package doctor

import (
	"os"

	"golang.org/x/term"
)

// terminal is the stdin mode doctor started with.
var terminal struct {
	fd    int
	state *term.State
}

func saveTerminal() {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return
	}
	if st, err := term.GetState(fd); err == nil {
		terminal.fd, terminal.state = fd, st
	}
}

// resetTerminal undoes raw mode left behind by the hotkey backends or the
// device picker.
func resetTerminal() {
	if terminal.state != nil {
		term.Restore(terminal.fd, terminal.state)
	}
}
