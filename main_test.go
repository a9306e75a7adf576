package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"iconch/audio"
	"iconch/config"
	"iconch/hotkey"
)

func TestParseFlagsRecordsExplicitFlags(t *testing.T) {
	f, err := parseFlags([]string{"-ui", "none", "-volume", "0.5", "-test", "clip.wav"}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if !f.set["ui"] || !f.set["volume"] || !f.set["test"] {
		t.Errorf("set = %v", f.set)
	}
	if f.set["device"] {
		t.Error("device reported as set")
	}
	if len(f.args) != 1 || f.args[0] != "clip.wav" {
		t.Errorf("args = %v", f.args)
	}
}

func TestParseFlagsRejectsUnknown(t *testing.T) {
	if _, err := parseFlags([]string{"-nope"}, io.Discard); err == nil {
		t.Error("unknown flag accepted")
	}
}

func TestLoadConfigPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := "device = \"File Mic\"\nui = \"none\"\nvolume = 0.3\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ICONCH_DEVICE", "Env Mic")

	f, err := parseFlags([]string{"-config", path, "-volume", "0.8"}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(context.Background(), f)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Device != "Env Mic" {
		t.Errorf("Device = %q, environment should beat the file", cfg.Device)
	}
	if cfg.UI != "none" {
		t.Errorf("UI = %q, file value lost", cfg.UI)
	}
	if cfg.Volume != 0.8 {
		t.Errorf("Volume = %v, flag should beat the file", cfg.Volume)
	}
	if cfg.HoldThreshold != config.Default().HoldThreshold {
		t.Errorf("HoldThreshold = %v, default lost", cfg.HoldThreshold)
	}
}

func TestLoadConfigRejectsBadFlag(t *testing.T) {
	f, err := parseFlags([]string{"-config", filepath.Join(t.TempDir(), "none.toml"), "-ui", "web"}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(context.Background(), f); err == nil {
		t.Error("explicit missing config file accepted")
	}

	f, err = parseFlags([]string{"-ui", "web"}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	if _, err := loadConfig(context.Background(), f); err == nil {
		t.Error("-ui web accepted")
	}
}

func TestDeviceLineText(t *testing.T) {
	if got := deviceLineText(nil); got != "mic: system default" {
		t.Errorf("got %q", got)
	}
	if got := deviceLineText(&audio.DeviceInfo{Name: "AirPods Pro"}); got != "mic: AirPods Pro (BT!)" {
		t.Errorf("got %q", got)
	}
}

// lockedBuffer is written by the monitor goroutines and read by the test.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// writeWAV writes a 44-byte header followed by n samples of amp.
func writeWAV(t *testing.T, amp int16, n int) string {
	t.Helper()
	buf := make([]byte, audio.WAVHeaderSize+2*n)
	copy(buf, "RIFF")
	for i := 0; i < n; i++ {
		s := amp
		if i%2 == 1 {
			s = -amp
		}
		binary.LittleEndian.PutUint16(buf[audio.WAVHeaderSize+2*i:], uint16(s))
	}
	path := filepath.Join(t.TempDir(), "blow.wav")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDriveTestMode(t *testing.T) {
	fakeCtx, err := audio.NewFakeContext(writeWAV(t, 20000, 8000), true)
	if err != nil {
		t.Fatal(err)
	}
	var out lockedBuffer
	cfg := config.Default()
	app := newConchApp(fakeCtx, loadClips(), cfg, nil, lineSink{w: &out}, func(fn func()) { fn() })
	hk := hotkey.NewFake()
	unbind := bindHotkey(hk, cfg.HoldThreshold, app.monitor)
	defer unbind()
	defer app.stop()

	script := strings.Join([]string{"TOGGLE", "SLEEP 700", "STATE", "TOGGLE", "STATE", "QUIT", "STATE"}, "\n")
	driveTestMode(strings.NewReader(script), &out, fakeCtx, hk, app)

	got := out.String()
	for _, want := range []string{
		"conching: on",
		"blow: good",
		"state running=true class=good",
		"conching: off",
		"state running=false class=stopped player=idle",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Count(got, "state ") != 2 {
		t.Errorf("commands after QUIT ran:\n%s", got)
	}
}

func TestBindHotkeyHold(t *testing.T) {
	fakeCtx, err := audio.NewFakeContext(writeWAV(t, 100, 800), false)
	if err != nil {
		t.Fatal(err)
	}
	app := newConchApp(fakeCtx, loadClips(), config.Default(), nil, lineSink{w: io.Discard}, func(fn func()) { fn() })
	hk := hotkey.NewFake()
	unbind := bindHotkey(hk, 20*time.Millisecond, app.monitor)
	defer unbind()
	defer app.stop()

	hk.SimKeydown()
	if !waitRunning(app, true, time.Second) {
		t.Fatal("press did not start conching")
	}
	time.Sleep(50 * time.Millisecond)
	hk.SimKeyup()
	if !waitRunning(app, false, time.Second) {
		t.Fatal("release after a hold did not stop conching")
	}
}

func TestHotkeyTapFollowsUIToggle(t *testing.T) {
	fakeCtx, err := audio.NewFakeContext(writeWAV(t, 100, 800), false)
	if err != nil {
		t.Fatal(err)
	}
	app := newConchApp(fakeCtx, loadClips(), config.Default(), nil, lineSink{w: io.Discard}, func(fn func()) { fn() })
	hk := hotkey.NewFake()
	unbind := bindHotkey(hk, time.Second, app.monitor)
	defer unbind()
	defer app.stop()

	hk.SimTap()
	if !waitRunning(app, true, time.Second) {
		t.Fatal("tap did not start conching")
	}

	// stopped from the screen, not the chord
	app.monitor.Toggle()
	if app.monitor.Running() {
		t.Fatal("toggle did not stop conching")
	}

	hk.SimTap()
	if !waitRunning(app, true, time.Second) {
		t.Fatal("tap after an on-screen stop did not start conching")
	}

	hk.SimTap()
	if !waitRunning(app, false, time.Second) {
		t.Fatal("second tap did not stop conching")
	}
}

func TestHotkeyHoldWhileRunningStopsOnRelease(t *testing.T) {
	fakeCtx, err := audio.NewFakeContext(writeWAV(t, 100, 800), false)
	if err != nil {
		t.Fatal(err)
	}
	app := newConchApp(fakeCtx, loadClips(), config.Default(), nil, lineSink{w: io.Discard}, func(fn func()) { fn() })
	hk := hotkey.NewFake()
	unbind := bindHotkey(hk, 20*time.Millisecond, app.monitor)
	defer unbind()
	defer app.stop()

	app.monitor.Start()
	hk.SimKeydown()
	time.Sleep(50 * time.Millisecond)
	if !app.monitor.Running() {
		t.Fatal("press while running stopped conching")
	}
	hk.SimKeyup()
	if !waitRunning(app, false, time.Second) {
		t.Fatal("release after a hold did not stop conching")
	}
}
