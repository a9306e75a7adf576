//go:build windows

package shutdown

import "os"

// Windows only delivers Ctrl+C and Ctrl+Break as os.Interrupt.
var signals = []os.Signal{os.Interrupt}
