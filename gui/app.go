//go:build gui

package gui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"iconch/conch"
)

type App struct {
	fyneApp fyne.App
	window  fyne.Window
	shell   *ShellWidget
	power   *widget.Label
	device  *widget.Label
	button  *widget.Button
	tray    *fyne.MenuItem
	menu    *fyne.Menu

	onToggle func()
	onClose  func()
}

// NewApp builds the window controller. onToggle runs for the Blow/Stop
// button and tray item; onClose runs once when the window is closed.
func NewApp(onToggle, onClose func()) *App {
	return &App{onToggle: onToggle, onClose: onClose}
}

// Run creates the window and blocks in the fyne event loop. onReady starts
// on its own goroutine once the window exists.
func Run(a *App, onReady func()) error {
	a.fyneApp = app.NewWithID("io.iconch.gui")
	a.fyneApp.Settings().SetTheme(&sandTheme{})
	icon := shellIcon()
	a.fyneApp.SetIcon(icon)

	a.window = a.fyneApp.NewWindow("iconch")
	a.shell = NewShellWidget()
	a.power = widget.NewLabel(powerLabel(0))
	a.power.Alignment = fyne.TextAlignCenter
	a.device = widget.NewLabel("")
	a.device.Alignment = fyne.TextAlignCenter
	a.button = widget.NewButton("blow", func() {
		// the monitor posts its state back through fyne.Do
		go a.onToggle()
	})
	a.button.Importance = widget.HighImportance

	a.window.SetContent(container.NewVBox(
		a.shell,
		a.power,
		container.NewCenter(a.button),
		a.device,
	))
	a.window.SetFixedSize(true)
	a.window.SetCloseIntercept(func() {
		a.onClose()
		a.fyneApp.Quit()
	})

	// Set up system tray using Fyne's built-in support
	if desk, ok := a.fyneApp.(desktop.App); ok {
		a.tray = fyne.NewMenuItem("Blow", func() { go a.onToggle() })
		a.menu = fyne.NewMenu("iconch",
			a.tray,
			fyne.NewMenuItemSeparator(),
			fyne.NewMenuItem("Quit", func() {
				a.onClose()
				a.fyneApp.Quit()
			}),
		)
		desk.SetSystemTrayMenu(a.menu)
		desk.SetSystemTrayIcon(icon)
	}

	go onReady()

	a.window.ShowAndRun()
	return nil
}

func (a *App) Quit() {
	if a.fyneApp != nil {
		fyne.Do(func() {
			a.onClose()
			a.fyneApp.Quit()
		})
	}
}

// Post runs fn on the fyne main goroutine.
func (a *App) Post(fn func()) {
	fyne.Do(fn)
}

func powerLabel(level float64) string {
	if level == 0 {
		return "power: --"
	}
	return fmt.Sprintf("power: %3.2f dB", level)
}

// EventSink implementation; called through Post.
func (a *App) Running(on bool) {
	a.shell.SetRunning(on)
	label, item := "blow", "Blow"
	if on {
		label, item = "stop", "Stop"
	} else {
		a.power.SetText(powerLabel(0))
	}
	a.button.SetText(label)
	if a.tray != nil {
		a.tray.Label = item
		a.menu.Refresh()
	}
}

func (a *App) Level(db float64) {
	a.shell.SetLevel(db)
	a.power.SetText(powerLabel(db))
}

func (a *App) Classified(c conch.Classification) {
	a.shell.SetClass(c)
}

func (a *App) DeviceLine(text string) {
	a.device.SetText(text)
}
