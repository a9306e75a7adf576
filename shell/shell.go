// Package shell draws the conch: a logarithmic spiral on a small pixel grid
// that swells with the microphone level. The terminal and GUI front ends
// share the geometry and differ only in how a pixel reaches the screen.
package shell

import (
	"math"

	"iconch/conch"
)

const (
	Width  = 44
	Height = 15 // character rows; every row holds two pixels

	PixelHeight = Height * 2
)

// Pixel indices. 0 is background, Band1..Band8 shade each whorl from its
// outer lip inwards.
const (
	Empty = iota
	Band1
	Band2
	Band3
	Band4
	Band5
	Band6
	Band7
	Band8
	Groove
	Highlight

	NumPixels
)

const (
	apex   = 1.0 // radius where the spiral starts
	growth = 2.0 // radius multiplier per whorl

	restTurns  = 2.4
	swellTurns = 0.4

	// whorl fraction drawn as the suture between turns
	grooveWidth = 0.12
)

var spiralB = math.Log(growth) / (2 * math.Pi)

// Swell maps a level in dB onto [0, 1]. Silence and the no-data sentinel
// read as 0; a level at the Good threshold reads as 1.
func Swell(level float64) float64 {
	if level == 0 || math.IsInf(level, -1) || math.IsNaN(level) {
		return 0
	}
	s := (level - (conch.BadThreshold - 10)) / (conch.GoodThreshold - (conch.BadThreshold - 10))
	return math.Max(0, math.Min(1, s))
}

// Pixels returns the grid for an animation frame. swell in [0, 1] adds
// almost half a whorl to the body.
func Pixels(frame int, swell float64) [][]int {
	swell = math.Max(0, math.Min(1, swell))

	cx := float64(Width)/2 - 2
	cy := float64(PixelHeight) / 2

	turns := restTurns + swellTurns*swell + 0.04*math.Sin(float64(frame)*0.12)
	spin := float64(frame) * 0.05

	pixels := make([][]int, PixelHeight)
	for y := range pixels {
		pixels[y] = make([]int, Width)
		for x := range pixels[y] {
			dx := float64(x) - cx + 0.5
			dy := float64(y) - cy + 0.5
			pixels[y][x] = pixelAt(dx, dy, turns, spin)
		}
	}
	return pixels
}

func pixelAt(dx, dy, turns, spin float64) int {
	r := math.Hypot(dx, dy)
	if r < apex {
		return Band1
	}

	phase := math.Mod(math.Atan2(dy, dx)+spin, 2*math.Pi)
	if phase < 0 {
		phase += 2 * math.Pi
	}
	// whorl coordinate: integer part counts turns out from the apex
	t := (math.Log(r/apex)/spiralB - phase) / (2 * math.Pi)
	if t >= turns {
		return Empty
	}

	frac := t - math.Floor(t)
	if frac < grooveWidth {
		return Groove
	}
	if t >= 1 && dx < 0 && dy < 0 && frac > 0.5 && frac < 0.58 {
		return Highlight
	}
	shade := Band1 + int((1-frac)/(1-grooveWidth)*8)
	return min(max(shade, Band1), Band8)
}

// Palette holds xterm-256 colour codes indexed by pixel.
type Palette [NumPixels]string

var (
	idle = Palette{"", "230", "229", "223", "180", "137", "95", "59", "238", "236", "255"}
	good = Palette{"", "195", "159", "123", "87", "51", "38", "30", "23", "17", "255"}
	bad  = Palette{"", "224", "217", "210", "209", "203", "167", "131", "88", "52", "255"}
)

// PaletteFor tints the shell by what the microphone is hearing. A stopped
// classification, or a monitor that is not running, uses the sand palette.
func PaletteFor(c conch.Classification, running bool) Palette {
	if !running {
		return idle
	}
	switch c {
	case conch.Good:
		return good
	case conch.Bad:
		return bad
	}
	return idle
}
