package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"iconch/audio"
	"iconch/config"
	"iconch/hotkey"
	"iconch/log"
)

func runTestMode(wavPath string, cfg config.Config) {
	defer log.Close()

	fakeCtx, err := audio.NewFakeContext(wavPath, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading WAV: %v\n", err)
		os.Exit(1)
	}

	app := newConchApp(fakeCtx, loadClips(), cfg, nil, lineSink{w: os.Stdout}, func(fn func()) { fn() })
	hk := hotkey.NewFake()
	unbind := bindHotkey(hk, cfg.HoldThreshold, app.monitor)

	driveTestMode(os.Stdin, os.Stdout, fakeCtx, hk, app)

	unbind()
	app.stop()
}

// driveTestMode executes stdin commands until QUIT or end of input.
func driveTestMode(in io.Reader, out io.Writer, fakeCtx *audio.FakeContext, hk *hotkey.FakeHotkey, app *conchApp) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		cmd := strings.TrimSpace(scanner.Text())
		switch cmd {
		case "TOGGLE":
			want := !app.monitor.Running()
			hk.SimTap()
			if !waitRunning(app, want, 2*time.Second) {
				fmt.Fprintf(out, "toggle: monitor did not reach running=%t\n", want)
			}
		case "WAIT_AUDIO_DONE":
			if c := fakeCtx.Capture(); c != nil {
				<-c.AudioDone()
			}
		case "STATE":
			fmt.Fprintf(out, "state running=%t class=%s player=%s plays=%d\n",
				app.monitor.Running(), app.monitor.Classification(), app.player.State(), fakeCtx.Playbacks())
		case "QUIT":
			return
		default:
			if strings.HasPrefix(cmd, "SLEEP ") {
				if ms, err := strconv.Atoi(cmd[6:]); err == nil {
					time.Sleep(time.Duration(ms) * time.Millisecond)
				}
			}
		}
	}
}

func waitRunning(app *conchApp, want bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for app.monitor.Running() != want {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(5 * time.Millisecond)
	}
	return true
}
