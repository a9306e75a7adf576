package main

import (
	"fmt"
	"io"

	"iconch/audio"
	"iconch/conch"
)

// EventSink abstracts the display layer so the Bubble Tea TUI, the fyne GUI
// and headless mode receive the same monitor events.
type EventSink interface {
	Running(on bool)
	Level(db float64)
	Classified(c conch.Classification)
	DeviceLine(text string)
}

// monitorOptions routes monitor notifications to sink through post.
func monitorOptions(sink EventSink, post func(func())) []conch.MonitorOption {
	return []conch.MonitorOption{
		conch.WithPost(post),
		conch.WithLevelObserver(sink.Level),
		conch.WithClassObserver(sink.Classified),
		conch.WithRunningObserver(sink.Running),
	}
}

// lineSink prints state changes, one per line. Levels are too chatty to print.
type lineSink struct {
	w io.Writer
}

func (s lineSink) Running(on bool) {
	if on {
		fmt.Fprintln(s.w, "conching: on")
	} else {
		fmt.Fprintln(s.w, "conching: off")
	}
}

func (s lineSink) Level(float64) {}

func (s lineSink) Classified(c conch.Classification) {
	fmt.Fprintf(s.w, "blow: %s\n", c)
}

func (s lineSink) DeviceLine(text string) {
	fmt.Fprintln(s.w, text)
}

func deviceLineText(dev *audio.DeviceInfo) string {
	name := "system default"
	suffix := ""
	if dev != nil {
		name = dev.Name
		if audio.IsBluetooth(dev.Name) {
			suffix = " (BT!)"
		}
	}
	return "mic: " + name + suffix
}
