// Package conch turns microphone peak levels into conch-shell playback.
package conch

import (
	"math"
	"time"

	"iconch/audio"
)

const (
	// SampleInterval is the monitor's polling period.
	SampleInterval = 250 * time.Millisecond

	BadThreshold  = -50.0
	GoodThreshold = -15.0

	// a peak at 90% of full scale reads as 0 dB
	referenceAmplitude = 0.9 * audio.MaxAmplitude
)

type Classification int

const (
	Stopped Classification = iota
	Bad
	Good
)

func (c Classification) String() string {
	switch c {
	case Stopped:
		return "stopped"
	case Bad:
		return "bad"
	case Good:
		return "good"
	}
	return "unknown"
}

// Level converts a peak amplitude into decibels relative to 90% of full
// scale. Zero amplitude yields -Inf.
func Level(amp int) float64 {
	return 20 * math.Log10(float64(amp)/referenceAmplitude)
}

// classify maps level against the thresholds and reports whether the result
// differs from prev. A level of exactly 0 is the no-data sentinel and never
// classifies.
func classify(prev Classification, level float64) (Classification, bool) {
	if level == 0 {
		return prev, false
	}
	switch {
	case level < BadThreshold:
		return Stopped, prev != Stopped
	case level < GoodThreshold:
		return Bad, prev != Bad
	default:
		return Good, prev != Good
	}
}

// Classify places a single level into its class, with no prior state.
func Classify(level float64) Classification {
	c, _ := classify(Stopped, level)
	return c
}
