//go:build gui

package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// sandTheme is the dark theme with the shell's sand and sea accents.
type sandTheme struct{}

func (d *sandTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNameBackground:
		return color.RGBA{18, 18, 18, 255}
	case theme.ColorNameForeground:
		return color.RGBA{255, 255, 215, 255}
	case theme.ColorNamePrimary:
		return color.RGBA{0, 175, 175, 255}
	case theme.ColorNameButton:
		return color.RGBA{135, 95, 95, 255}
	}
	return theme.DefaultTheme().Color(name, theme.VariantDark)
}

func (d *sandTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (d *sandTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (d *sandTheme) Size(name fyne.ThemeSizeName) float32 {
	return theme.DefaultTheme().Size(name)
}
