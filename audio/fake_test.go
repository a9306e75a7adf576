package audio

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func fakeWAV(t *testing.T, samples int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.wav")
	data := make([]byte, WAVHeaderSize+samples*2)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFakeCaptureAudioDone(t *testing.T) {
	ctx, err := NewFakeContext(fakeWAV(t, 3000), false)
	if err != nil {
		t.Fatal(err)
	}
	dev, err := ctx.NewCapture(nil, CaptureConfig{SampleRate: 8000, Channels: 1})
	if err != nil {
		t.Fatal(err)
	}
	dev.SetCallback(func([]byte, uint32) {})
	if err := dev.Start(); err != nil {
		t.Fatal(err)
	}
	defer dev.Close()

	select {
	case <-ctx.Capture().AudioDone():
	case <-time.After(2 * time.Second):
		t.Fatal("file was never fully fed")
	}
}

func TestFakeCaptureConcurrentRestart(t *testing.T) {
	ctx, err := NewFakeContext(fakeWAV(t, 100), false)
	if err != nil {
		t.Fatal(err)
	}
	dev, err := ctx.NewCapture(nil, CaptureConfig{SampleRate: 8000, Channels: 1})
	if err != nil {
		t.Fatal(err)
	}
	fc := ctx.Capture()
	dev.SetCallback(func([]byte, uint32) {})

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				_ = fc.AudioDone()
			}
		}
	}()

	for range 20 {
		if err := dev.Start(); err != nil {
			t.Fatal(err)
		}
		dev.Stop()
	}
	dev.Stop()
	close(stop)
	wg.Wait()
}
