package conch

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"iconch/audio"
	"iconch/sounds"
)

// Category groups failures by where they originate.
type Category int

const (
	SessionCreation Category = iota
	PlaybackRuntime
	RecorderRuntime
	RecorderInfo
)

func (c Category) String() string {
	switch c {
	case SessionCreation:
		return "session_creation"
	case PlaybackRuntime:
		return "playback_runtime"
	case RecorderRuntime:
		return "recorder_runtime"
	case RecorderInfo:
		return "recorder_info"
	}
	return "unknown"
}

type Kind string

const (
	KindMalformed   Kind = "malformed"
	KindUnsupported Kind = "unsupported"
	KindIO          Kind = "io"
	KindServerDied  Kind = "server_died"
	KindTimedOut    Kind = "timed_out"
	KindUnknown     Kind = "unknown"

	// informational capture events
	KindStalled Kind = "stalled"
	KindResumed Kind = "resumed"
)

// Error is every failure the monitor and player resolve internally. None of
// them reach callers of Start or Stop; they are logged and the component
// returns to a safe state.
type Error struct {
	Category Category
	Kind     Kind
	Op       string
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Category.String())
	if e.Kind != "" {
		b.WriteString(" (")
		b.WriteString(string(e.Kind))
		b.WriteString(")")
	}
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// clipKind sorts a clip loading failure into malformed or unsupported.
func clipKind(err error) Kind {
	switch {
	case errors.Is(err, sounds.ErrMalformed):
		return KindMalformed
	case errors.Is(err, sounds.ErrUnsupported):
		return KindUnsupported
	}
	return KindIO
}

// deviceKind sorts an asynchronous device failure.
func deviceKind(err error) Kind {
	if errors.Is(err, audio.ErrDeviceStopped) {
		return KindServerDied
	}
	return KindUnknown
}

func errTimedOut(op string, after time.Duration) *Error {
	return &Error{
		Category: PlaybackRuntime,
		Kind:     KindTimedOut,
		Op:       op,
		Err:      fmt.Errorf("not ready after %v", after),
	}
}
