package doctor

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"iconch/audio"
	"iconch/conch"
	"iconch/hotkey"
	"iconch/shutdown"
	"iconch/sounds"
)

// Options carries the configured device and volume into the checks.
type Options struct {
	Device string
	Volume float64
}

const blowDuration = 3 * time.Second

// Run executes interactive diagnostic checks and returns an exit code (0=all pass, 1=any fail).
func Run(opts Options) int {
	saveTerminal()
	setupInterruptHandler()

	fmt.Println("iconch doctor - interactive system diagnostics")
	fmt.Println("==============================================")

	allPass := true

	if !checkHotkey() {
		allPass = false
	}

	ctx, err := audio.NewContext()
	if err != nil {
		fmt.Printf("  FAIL: cannot connect to audio: %v\n", err)
		return 1
	}
	defer ctx.Close()

	reader := bufio.NewReader(os.Stdin)
	if !checkMicrophone(ctx, reader, opts.Device) {
		allPass = false
	}
	if !checkPlayback(ctx, reader, opts.Volume) {
		allPass = false
	}

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
		return 0
	}
	fmt.Println("Some checks failed. See details above.")
	return 1
}

func setupInterruptHandler() {
	shutdown.OnSignal(func() {
		resetTerminal()
		println("\nInterrupted")
		os.Exit(1)
	})
}

func checkHotkey() bool {
	fmt.Println()
	fmt.Println("[1/3] Hotkey detection")

	info, err := hotkey.Diagnose()
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	fmt.Printf("  %s\n", info)
	fmt.Printf("Press %s...\n", hotkey.Label)

	hk := hotkey.New()
	if err := hk.Register(); err != nil {
		fmt.Printf("  FAIL: could not register hotkey: %v\n", err)
		return false
	}
	defer hk.Unregister()

	select {
	case <-hk.Keydown():
		fmt.Println("  PASS: hotkey detected")
		// Wait for keyup to avoid triggering next step
		select {
		case <-hk.Keyup():
		case <-time.After(5 * time.Second):
		}
		// Reset terminal after hotkey - it may leave terminal in raw mode
		resetTerminal()
		return true
	case <-time.After(10 * time.Second):
		fmt.Println("  FAIL: timeout waiting for hotkey")
		return false
	}
}

func chooseDevice(ctx audio.Context, reader *bufio.Reader, name string) (*audio.DeviceInfo, error) {
	if name != "" {
		return audio.FindDevice(ctx, name)
	}
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("cannot list devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("no capture devices found")
	}
	if len(devices) == 1 {
		return &devices[0], nil
	}

	fmt.Println()
	fmt.Println("Select input device:")
	for i, d := range devices {
		fmt.Printf("  %d. %s\n", i+1, d.Name)
	}
	fmt.Printf("Choice [1-%d]: ", len(devices))

	choice, _ := reader.ReadString('\n')
	choice = strings.TrimSpace(choice)
	idx := 0
	if choice != "" {
		fmt.Sscanf(choice, "%d", &idx)
		idx--
	}
	if idx < 0 || idx >= len(devices) {
		return nil, fmt.Errorf("invalid choice %q", choice)
	}
	return &devices[idx], nil
}

func checkMicrophone(ctx audio.Context, reader *bufio.Reader, name string) bool {
	fmt.Println()
	fmt.Println("[2/3] Microphone level")

	device, err := chooseDevice(ctx, reader, name)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	if device != nil {
		fmt.Printf("Using device: %s\n", device.Name)
		if audio.IsBluetooth(device.Name) {
			fmt.Println("  Warning: headset microphones often read too quiet for a good blow")
		}
	}

	fmt.Println()
	fmt.Printf("Press Enter and blow into the microphone for %v...", blowDuration)
	reader.ReadString('\n')

	levels, err := measureLevels(ctx, device, blowDuration)
	if err != nil {
		fmt.Printf("  FAIL: recording error: %v\n", err)
		return false
	}

	pass, msg := micVerdict(levels)
	if pass {
		fmt.Printf("  PASS: %s\n", msg)
	} else {
		fmt.Printf("  FAIL: %s\n", msg)
	}
	return pass
}

// measureLevels samples the peak level once per monitor interval, the same
// way a conching session does.
func measureLevels(ctx audio.Context, device *audio.DeviceInfo, d time.Duration) ([]float64, error) {
	capture, err := ctx.NewCapture(device, audio.CaptureConfig{
		SampleRate: conch.CaptureSampleRate,
		Channels:   1,
	})
	if err != nil {
		return nil, err
	}
	defer capture.Close()

	meter := &audio.PeakMeter{}
	capture.SetCallback(func(data []byte, _ uint32) { meter.Observe(data) })
	if err := capture.Start(); err != nil {
		return nil, err
	}
	defer capture.Stop()

	fmt.Println()
	ticker := time.NewTicker(conch.SampleInterval)
	defer ticker.Stop()
	deadline := time.After(d)

	var levels []float64
	for {
		select {
		case <-deadline:
			capture.ClearCallback()
			return levels, nil
		case <-ticker.C:
		}
		amp, buffers := meter.Take()
		if buffers == 0 || amp <= 0 {
			fmt.Println("  (no signal)")
			continue
		}
		level := conch.Level(amp)
		levels = append(levels, level)
		fmt.Printf("  %7.2f dB  %-5s %s\n", level, conch.Classify(level), meterBar(level))
	}
}

func meterBar(level float64) string {
	n := int((level + 60) / 3)
	return strings.Repeat("#", min(max(n, 0), 20))
}

// micVerdict judges a blow from the levels it produced. Any Good tick
// passes; a best of Bad passes with a hint; nothing above the Bad threshold
// fails.
func micVerdict(levels []float64) (bool, string) {
	if len(levels) == 0 {
		return false, "no audio captured (check microphone permissions)"
	}
	best := levels[0]
	for _, l := range levels[1:] {
		if l > best {
			best = l
		}
	}
	switch conch.Classify(best) {
	case conch.Good:
		return true, fmt.Sprintf("strong blow detected (peak %.2f dB)", best)
	case conch.Bad:
		return true, fmt.Sprintf("weak blow only (peak %.2f dB); blow harder or move closer for the good conch", best)
	}
	return false, fmt.Sprintf("nothing above %.0f dB (peak %.2f dB); is the right microphone selected?", conch.BadThreshold, best)
}

func checkPlayback(ctx audio.Context, reader *bufio.Reader, volume float64) bool {
	fmt.Println()
	fmt.Println("[3/3] Conch playback")

	bank := sounds.NewBank()
	for _, a := range sounds.All {
		clip, err := bank.Load(a)
		if err != nil {
			fmt.Printf("  FAIL: %s: %v\n", a, err)
			return false
		}
		fmt.Printf("  playing %s (%.1fs)\n", a, clip.Duration().Seconds())
		if err := playClip(ctx, clip, volume); err != nil {
			fmt.Printf("  FAIL: %s: %v\n", a, err)
			return false
		}
	}

	resetTerminal()
	fmt.Println()
	fmt.Print("Did you hear four seashell sounds? [y/n]: ")
	confirm, _ := reader.ReadString('\n')
	confirm = strings.TrimSpace(strings.ToLower(confirm))

	if confirm == "y" || confirm == "yes" {
		fmt.Println("  PASS: playback verified by user")
		return true
	}
	fmt.Println("  FAIL: playback not confirmed")
	return false
}

func playClip(ctx audio.Context, clip *sounds.Clip, volume float64) error {
	dev, err := ctx.NewPlayback(audio.PlaybackConfig{
		SampleRate: clip.SampleRate,
		Channels:   clip.Channels,
	}, clip.Scaled(volume))
	if err != nil {
		return err
	}
	defer dev.Close()

	done := make(chan error, 1)
	dev.SetCompletion(func(err error) { done <- err })
	if err := dev.Start(); err != nil {
		return err
	}

	select {
	case err := <-done:
		return err
	case <-time.After(clip.Duration() + 2*time.Second):
		dev.Stop()
		return fmt.Errorf("playback did not finish")
	}
}
