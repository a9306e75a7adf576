// Package sounds holds the four bundled conch clips.
package sounds

import (
	"embed"
	"fmt"
	"time"
)

//go:embed clips/*.flac
var clipFS embed.FS

type Asset int

const (
	Good1 Asset = iota
	Good2
	Bad1
	Bad2
)

var names = [...]string{
	Good1: "goodconch1",
	Good2: "goodconch2",
	Bad1:  "badconch1",
	Bad2:  "badconch2",
}

func (a Asset) String() string {
	if a < 0 || int(a) >= len(names) {
		return fmt.Sprintf("asset(%d)", int(a))
	}
	return names[a]
}

func (a Asset) valid() bool { return a >= Good1 && a <= Bad2 }

// All lists every bundled asset.
var All = []Asset{Good1, Good2, Bad1, Bad2}

// GoodPair and BadPair are the candidates played on a transition into the
// matching classification.
var (
	GoodPair = [2]Asset{Good1, Good2}
	BadPair  = [2]Asset{Bad1, Bad2}
)

// Clip is decoded interleaved 16-bit PCM.
type Clip struct {
	Samples    []int16
	SampleRate uint32
	Channels   uint32
}

func (c *Clip) Frames() int {
	if c.Channels == 0 {
		return 0
	}
	return len(c.Samples) / int(c.Channels)
}

func (c *Clip) Duration() time.Duration {
	if c.SampleRate == 0 {
		return 0
	}
	return time.Duration(c.Frames()) * time.Second / time.Duration(c.SampleRate)
}

// Scaled returns the samples multiplied by gain. A gain of 1 returns the
// clip's own slice.
func (c *Clip) Scaled(gain float64) []int16 {
	if gain == 1 {
		return c.Samples
	}
	out := make([]int16, len(c.Samples))
	for i, s := range c.Samples {
		v := float64(s) * gain
		out[i] = int16(max(-32768, min(32767, v)))
	}
	return out
}

// Open decodes a bundled asset.
func Open(a Asset) (*Clip, error) {
	if !a.valid() {
		return nil, fmt.Errorf("%w: unknown asset %d", ErrUnsupported, int(a))
	}
	f, err := clipFS.Open("clips/" + a.String() + ".flac")
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", a, err)
	}
	defer f.Close()
	clip, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", a, err)
	}
	return clip, nil
}
