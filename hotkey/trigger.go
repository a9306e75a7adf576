package hotkey

import "time"

// Event is one step of a chord press as seen by a Trigger.
type Event int

const (
	// Press fires as soon as the chord goes down.
	Press Event = iota
	// Tap follows Press when the chord is released before the hold threshold.
	Tap
	// HoldRelease follows Press when the chord was held past the threshold.
	HoldRelease
)

func (e Event) String() string {
	switch e {
	case Press:
		return "press"
	case Tap:
		return "tap"
	case HoldRelease:
		return "hold_release"
	}
	return "unknown"
}

// Trigger sorts chord presses into taps and holds. It keeps no on/off
// state of its own; callers decide what a tap means from what is running.
type Trigger struct {
	events chan Event
	quit   chan struct{}
}

func NewTrigger(hk Hotkey, longPress time.Duration) *Trigger {
	t := &Trigger{
		events: make(chan Event, 2),
		quit:   make(chan struct{}),
	}
	go t.run(hk, longPress)
	return t
}

func (t *Trigger) Events() <-chan Event { return t.events }

// Close ends the trigger goroutine.
func (t *Trigger) Close() {
	select {
	case <-t.quit:
	default:
		close(t.quit)
	}
}

func (t *Trigger) run(hk Hotkey, longPress time.Duration) {
	for {
		if !t.wait(hk.Keydown()) {
			return
		}
		t.emit(Press)

		timer := time.NewTimer(longPress)
		select {
		case <-t.quit:
			timer.Stop()
			return
		case <-hk.Keyup():
			timer.Stop()
			t.emit(Tap)
		case <-timer.C:
			if !t.wait(hk.Keyup()) {
				return
			}
			t.emit(HoldRelease)
		}
	}
}

func (t *Trigger) wait(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	case <-t.quit:
		return false
	}
}

func (t *Trigger) emit(ev Event) {
	select {
	case t.events <- ev:
	case <-t.quit:
	}
}
