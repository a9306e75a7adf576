package conch

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"iconch/audio"
	"iconch/sounds"
)

func pcm(samples ...int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// stubContext records device lifecycles in order.
type stubContext struct {
	mu         sync.Mutex
	events     []string
	captures   []*stubCapture
	playbacks  []*stubPlayback
	captureErr error
}

func (c *stubContext) record(ev string) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func (c *stubContext) Events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.events...)
}

func (c *stubContext) Devices() ([]audio.DeviceInfo, error) { return nil, nil }
func (c *stubContext) Close()                               {}

func (c *stubContext) NewCapture(device *audio.DeviceInfo, cfg audio.CaptureConfig) (audio.CaptureDevice, error) {
	if c.captureErr != nil {
		return nil, c.captureErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := &stubCapture{ctx: c, device: device, config: cfg}
	c.captures = append(c.captures, cp)
	return cp, nil
}

func (c *stubContext) NewPlayback(cfg audio.PlaybackConfig, samples []int16) (audio.PlaybackDevice, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := &stubPlayback{ctx: c, id: len(c.playbacks) + 1, samples: samples}
	c.playbacks = append(c.playbacks, p)
	return p, nil
}

func (c *stubContext) Captures() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.captures)
}

func (c *stubContext) Capture(i int) *stubCapture {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.captures[i]
}

func (c *stubContext) Playbacks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.playbacks)
}

func (c *stubContext) Playback(i int) *stubPlayback {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playbacks[i]
}

type stubCapture struct {
	ctx    *stubContext
	device *audio.DeviceInfo
	config audio.CaptureConfig

	mu     sync.Mutex
	cb     audio.DataCallback
	onStop audio.StopCallback
	closed int
}

func (s *stubCapture) Start() error { return nil }
func (s *stubCapture) Stop()        {}

func (s *stubCapture) Close() {
	s.mu.Lock()
	s.closed++
	s.mu.Unlock()
}

func (s *stubCapture) SetCallback(cb audio.DataCallback) {
	s.mu.Lock()
	s.cb = cb
	s.mu.Unlock()
}

func (s *stubCapture) ClearCallback() {
	s.mu.Lock()
	s.cb = nil
	s.mu.Unlock()
}

func (s *stubCapture) SetStopCallback(cb audio.StopCallback) {
	s.mu.Lock()
	s.onStop = cb
	s.mu.Unlock()
}

func (s *stubCapture) DeviceName() string { return "stub" }

func (s *stubCapture) feed(data []byte) {
	s.mu.Lock()
	cb := s.cb
	s.mu.Unlock()
	if cb != nil {
		cb(data, uint32(len(data)/2))
	}
}

func (s *stubCapture) die() {
	s.mu.Lock()
	cb := s.onStop
	s.mu.Unlock()
	if cb != nil {
		cb()
	}
}

func (s *stubCapture) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type stubPlayback struct {
	ctx     *stubContext
	id      int
	samples []int16

	mu         sync.Mutex
	completion audio.CompletionCallback
	started    bool
	closed     bool
}

func (p *stubPlayback) Start() error {
	p.mu.Lock()
	p.started = true
	p.mu.Unlock()
	p.ctx.record(fmt.Sprintf("start#%d", p.id))
	return nil
}

func (p *stubPlayback) Stop() {}

func (p *stubPlayback) Close() {
	p.mu.Lock()
	already := p.closed
	p.closed = true
	p.mu.Unlock()
	if !already {
		p.ctx.record(fmt.Sprintf("close#%d", p.id))
	}
}

func (p *stubPlayback) SetCompletion(cb audio.CompletionCallback) {
	p.mu.Lock()
	p.completion = cb
	p.mu.Unlock()
}

func (p *stubPlayback) finish(err error) {
	p.mu.Lock()
	cb := p.completion
	p.mu.Unlock()
	cb(err)
}

func (p *stubPlayback) State() (started, closed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started, p.closed
}

// stubClips hands out a tiny clip per asset and records what was loaded.
// Assets listed in gate block until the gate channel is closed.
type stubClips struct {
	mu     sync.Mutex
	loaded []sounds.Asset
	gate   map[sounds.Asset]chan struct{}
	fail   map[sounds.Asset]error
}

func (c *stubClips) Load(a sounds.Asset) (*sounds.Clip, error) {
	c.mu.Lock()
	c.loaded = append(c.loaded, a)
	gate := c.gate[a]
	err := c.fail[a]
	c.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return &sounds.Clip{Samples: []int16{1, 2, 3, 4}, SampleRate: 22050, Channels: 1}, nil
}

func (c *stubClips) Loaded() []sounds.Asset {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sounds.Asset(nil), c.loaded...)
}

// errorLog collects errors passed to a player's error handler.
type errorLog struct {
	mu   sync.Mutex
	errs []error
}

func (l *errorLog) add(err error) {
	l.mu.Lock()
	l.errs = append(l.errs, err)
	l.mu.Unlock()
}

func (l *errorLog) Kinds() []Kind {
	l.mu.Lock()
	defer l.mu.Unlock()
	var kinds []Kind
	for _, err := range l.errs {
		var ce *Error
		if errors.As(err, &ce) {
			kinds = append(kinds, ce.Kind)
		}
	}
	return kinds
}

func first(int) int { return 0 }
