//go:build !linux

package main

import (
	"runtime"

	"golang.design/x/hotkey/mainthread"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	s := boot()
	if s.cfg.UI == "gui" {
		runGUI(s) // takes main thread, runs the app from a goroutine
		return
	}
	mainthread.Init(func() { run(s) })
}
