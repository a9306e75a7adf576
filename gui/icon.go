//go:build gui

package gui

import (
	"bytes"
	"image"
	"image/png"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"

	"iconch/conch"
	"iconch/shell"
)

// shellIcon renders a resting shell as the tray and window icon.
func shellIcon() fyne.Resource {
	pixels := shell.Pixels(0, 0.5)
	palette := shell.PaletteFor(conch.Stopped, false)

	img := image.NewRGBA(image.Rect(0, 0, shell.Width, shell.PixelHeight))
	for y, row := range pixels {
		for x, p := range row {
			if p != shell.Empty {
				img.Set(x, y, shell.RGB(palette[p]))
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return theme.MediaRecordIcon()
	}
	return fyne.NewStaticResource("conch.png", buf.Bytes())
}
