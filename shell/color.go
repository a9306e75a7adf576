package shell

import (
	"image/color"
	"strconv"
)

var ansi16 = [16]color.RGBA{
	{0, 0, 0, 255}, {128, 0, 0, 255}, {0, 128, 0, 255}, {128, 128, 0, 255},
	{0, 0, 128, 255}, {128, 0, 128, 255}, {0, 128, 128, 255}, {192, 192, 192, 255},
	{128, 128, 128, 255}, {255, 0, 0, 255}, {0, 255, 0, 255}, {255, 255, 0, 255},
	{0, 0, 255, 255}, {255, 0, 255, 255}, {0, 255, 255, 255}, {255, 255, 255, 255},
}

var cubeLevels = [6]uint8{0, 95, 135, 175, 215, 255}

// RGB converts an xterm-256 colour code to its standard RGB value. Empty or
// invalid codes are transparent black.
func RGB(code string) color.RGBA {
	n, err := strconv.Atoi(code)
	if err != nil || n < 0 || n > 255 {
		return color.RGBA{}
	}
	switch {
	case n < 16:
		return ansi16[n]
	case n < 232:
		n -= 16
		return color.RGBA{cubeLevels[n/36], cubeLevels[(n/6)%6], cubeLevels[n%6], 255}
	default:
		g := uint8(8 + 10*(n-232))
		return color.RGBA{g, g, g, 255}
	}
}
