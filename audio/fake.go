package audio

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const (
	fakeFrameSize     = 1024
	fakeBytesPerFrame = 2 // 16-bit mono
)

// FakeContext feeds capture from a WAV file and plays clips into the void,
// completing each after the clip's real duration.
type FakeContext struct {
	pcm       []byte
	realtime  bool
	playbacks atomic.Int64
	capture   atomic.Pointer[FakeCapture]
}

func NewFakeContext(wavPath string, realtime bool) (*FakeContext, error) {
	data, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, err
	}
	if len(data) > WAVHeaderSize {
		data = data[WAVHeaderSize:]
	}
	return &FakeContext{pcm: data, realtime: realtime}, nil
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) { return nil, nil }
func (f *FakeContext) Close()                         {}

// Capture returns the most recently opened capture device, or nil.
func (f *FakeContext) Capture() *FakeCapture { return f.capture.Load() }

// Playbacks reports how many playback devices were started.
func (f *FakeContext) Playbacks() int { return int(f.playbacks.Load()) }

func (f *FakeContext) NewCapture(_ *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	rate := config.SampleRate
	if rate == 0 {
		return nil, fmt.Errorf("fake capture: sample rate required")
	}
	c := &FakeCapture{
		pcm:       f.pcm,
		realtime:  f.realtime,
		rate:      rate,
		audioDone: make(chan struct{}),
	}
	f.capture.Store(c)
	return c, nil
}

func (f *FakeContext) NewPlayback(config PlaybackConfig, samples []int16) (PlaybackDevice, error) {
	if config.SampleRate == 0 || config.Channels == 0 {
		return nil, fmt.Errorf("fake playback: invalid config %+v", config)
	}
	frames := len(samples) / int(config.Channels)
	d := time.Duration(frames) * time.Second / time.Duration(config.SampleRate)
	return &FakePlayback{ctx: f, duration: d}, nil
}

type FakeCapture struct {
	pcm      []byte
	realtime bool
	rate     uint32

	mu        sync.Mutex
	cb        DataCallback
	audioDone chan struct{}
	stopCh    chan struct{}
	feedDone  chan struct{}
}

// AudioDone is closed once the whole file has been fed to the callback.
func (f *FakeCapture) AudioDone() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.audioDone
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

// SetStopCallback is a no-op: the file never goes away underneath us.
func (f *FakeCapture) SetStopCallback(StopCallback) {}

func (f *FakeCapture) DeviceName() string { return "fake" }

func (f *FakeCapture) callback() DataCallback {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cb
}

func (f *FakeCapture) feedChunk(cb DataCallback, pos, chunkBytes int) int {
	end := min(pos+chunkBytes, len(f.pcm))
	chunk := make([]byte, end-pos)
	copy(chunk, f.pcm[pos:end])
	cb(chunk, uint32(len(chunk)/fakeBytesPerFrame))
	return end
}

func (f *FakeCapture) Start() error {
	f.mu.Lock()
	if f.stopCh != nil {
		f.mu.Unlock()
		return nil
	}
	stop := make(chan struct{})
	feedDone := make(chan struct{})
	// audioDone is kept: callers may already wait on it. Stop replaces it.
	audioDone := f.audioDone
	f.stopCh, f.feedDone = stop, feedDone
	f.mu.Unlock()

	chunkBytes := fakeFrameSize * fakeBytesPerFrame
	interval := time.Millisecond
	if f.realtime {
		interval = time.Duration(fakeFrameSize) * time.Second / time.Duration(f.rate)
	}

	go func() {
		defer close(feedDone)
		pos := 0
		silence := make([]byte, chunkBytes)
		audioFinished := false

		for {
			select {
			case <-stop:
				return
			default:
			}

			if cb := f.callback(); cb != nil {
				if pos < len(f.pcm) {
					pos = f.feedChunk(cb, pos, chunkBytes)
				} else {
					if !audioFinished {
						audioFinished = true
						close(audioDone)
					}
					cb(silence, fakeFrameSize)
				}
			}

			select {
			case <-stop:
				return
			case <-time.After(interval):
			}
		}
	}()

	return nil
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	stop, feedDone := f.stopCh, f.feedDone
	f.stopCh, f.feedDone = nil, nil
	f.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-feedDone

	f.mu.Lock()
	f.audioDone = make(chan struct{})
	f.mu.Unlock()
}

func (f *FakeCapture) Close() { f.Stop() }

type FakePlayback struct {
	ctx      *FakeContext
	duration time.Duration

	completion atomic.Pointer[CompletionCallback]
	mu         sync.Mutex
	timer      *time.Timer
	stopped    bool
}

func (p *FakePlayback) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil || p.stopped {
		return nil
	}
	p.ctx.playbacks.Add(1)
	p.timer = time.AfterFunc(p.duration, func() {
		p.mu.Lock()
		stopped := p.stopped
		p.mu.Unlock()
		if stopped {
			return
		}
		if cb := p.completion.Load(); cb != nil {
			(*cb)(nil)
		}
	})
	return nil
}

func (p *FakePlayback) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	if p.timer != nil {
		p.timer.Stop()
	}
}

func (p *FakePlayback) Close() { p.Stop() }

func (p *FakePlayback) SetCompletion(cb CompletionCallback) {
	p.completion.Store(&cb)
}
