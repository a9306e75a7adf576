//go:build gui

package main

import (
	"fmt"
	"os"
	"runtime"

	"iconch/audio"
	"iconch/gui"
	"iconch/hotkey"
	"iconch/log"
	"iconch/shutdown"
)

func runGUI(s *startup) {
	// Initialize audio context on main thread BEFORE Fyne starts.
	// macOS Core Audio requires main thread access for proper capture.
	ctx, err := audio.NewContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing audio context: %v\n", err)
		os.Exit(1)
	}
	defer ctx.Close()

	device := resolveDevice(ctx, s.cfg, s.flags.setup)
	clips := loadClips()

	// Lock this goroutine to OS thread for Fyne
	runtime.LockOSThread()

	var app *conchApp
	guiApp := gui.NewApp(
		func() { app.monitor.Toggle() },
		func() { app.stop() },
	)
	app = newConchApp(ctx, clips, s.cfg, device, guiApp, guiApp.Post)

	unbind := func() {}
	hk := hotkey.New()
	if err := hk.Register(); err != nil {
		log.Warnf("hotkey register error: %v", err)
	} else {
		defer hk.Unregister()
		unbind = bindHotkey(hk, s.cfg.HoldThreshold, app.monitor)
	}

	err = gui.Run(guiApp, func() {
		guiApp.Post(func() { guiApp.DeviceLine(deviceLineText(device)) })
		shutdown.OnSignal(guiApp.Quit)
	})
	unbind()
	app.stop()
	log.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "GUI error: %v\n", err)
		os.Exit(1)
	}
}
