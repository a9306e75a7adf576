package audio

import (
	"errors"
	"strings"
)

const (
	WAVHeaderSize = 44

	// MaxAmplitude is the largest peak a 16-bit capture reports.
	MaxAmplitude = 32767
)

// ErrDeviceStopped is reported when the backend stops a device we did not stop.
var ErrDeviceStopped = errors.New("audio: device stopped by backend")

var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"sony wh-", "sony wf-",
	"jabra", "galaxy buds", "pixel buds", "powerbeats",
	"jbl ", "sennheiser momentum", "plantronics",
	"tozo", "anker soundcore", "skullcandy",
	"bluetooth", " bt ", " bt)", " bt]",
}

// IsBluetooth guesses from the device name whether the microphone is a
// headset; those run the mic at a narrowband profile and read quieter.
func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

type DataCallback func(data []byte, frameCount uint32)

// StopCallback fires when the backend stops a capture device on its own.
type StopCallback func()

// CompletionCallback fires once per playback: nil after the last sample was
// played, non-nil if the device failed. It never fires after Stop or Close.
type CompletionCallback func(err error)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

type PlaybackConfig struct {
	SampleRate uint32
	Channels   uint32
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	NewPlayback(config PlaybackConfig, samples []int16) (PlaybackDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	SetStopCallback(cb StopCallback)
	DeviceName() string
}

// PlaybackDevice plays one interleaved S16 buffer from start to end.
type PlaybackDevice interface {
	Start() error
	Stop()
	Close()
	SetCompletion(cb CompletionCallback)
}

func toStereo(samples []int16) []int16 {
	out := make([]int16, len(samples)*2)
	for i, s := range samples {
		out[i*2] = s
		out[i*2+1] = s
	}
	return out
}
