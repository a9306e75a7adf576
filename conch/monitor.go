package conch

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"iconch/audio"
	"iconch/log"
)

const (
	// CaptureSampleRate is voice quality; only the peak is ever looked at.
	CaptureSampleRate = 8000

	// stallTicks ticks without a capture buffer raise a stalled event.
	stallTicks = 4
)

type MonitorOption func(*Monitor)

// WithDevice selects the capture device. nil means the system default.
func WithDevice(d *audio.DeviceInfo) MonitorOption {
	return func(m *Monitor) { m.device = d }
}

// WithPost sets how observer notifications reach the UI loop. The default
// runs them inline on the sampling goroutine.
func WithPost(post func(func())) MonitorOption {
	return func(m *Monitor) { m.post = post }
}

// WithLevelObserver receives the level of every tick that produced one.
func WithLevelObserver(fn func(level float64)) MonitorOption {
	return func(m *Monitor) { m.onLevel = fn }
}

// WithClassObserver receives every classification change, including the
// reset to Stopped when monitoring ends.
func WithClassObserver(fn func(Classification)) MonitorOption {
	return func(m *Monitor) { m.onClass = fn }
}

// WithRunningObserver is told when monitoring starts or stops, including
// when it stops itself because the capture device went away.
func WithRunningObserver(fn func(running bool)) MonitorOption {
	return func(m *Monitor) { m.onRunning = fn }
}

func WithInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) { m.interval = d }
}

// Monitor samples the microphone peak on a fixed interval and drives the
// player on classification changes.
type Monitor struct {
	ctx       audio.Context
	player    *Player
	device    *audio.DeviceInfo
	interval  time.Duration
	post      func(func())
	onLevel   func(float64)
	onClass   func(Classification)
	onRunning func(bool)

	// lifecycle serializes Start and Stop
	lifecycle sync.Mutex

	mu          sync.Mutex
	capture     audio.CaptureDevice
	class       Classification
	session     string
	transitions int
	quit        chan struct{}
	done        chan struct{}
}

func NewMonitor(ctx audio.Context, player *Player, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		ctx:      ctx,
		player:   player,
		interval: SampleInterval,
		post:     func(f func()) { f() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start opens the capture session and begins sampling. It is a no-op while
// running. Failures are logged and leave the monitor stopped.
func (m *Monitor) Start() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	m.startLocked()
}

// Stop ends sampling, silences the player, and releases the capture session.
// No tick runs after Stop returns. Safe to call when not running.
func (m *Monitor) Stop() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	m.stopLocked()
}

// Toggle starts when idle and stops when running. It reports whether the
// monitor is running afterwards.
func (m *Monitor) Toggle() bool {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	if m.Running() {
		m.stopLocked()
		return false
	}
	m.startLocked()
	return m.Running()
}

// SetDevice switches the capture device. A running session is restarted on
// the new device; a stopped monitor only remembers it.
func (m *Monitor) SetDevice(d *audio.DeviceInfo) {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	running := m.Running()
	m.stopLocked()
	m.device = d
	if running {
		m.startLocked()
	}
}

func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quit != nil
}

func (m *Monitor) Classification() Classification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.class
}

// Session returns the id of the running conching session, or "".
func (m *Monitor) Session() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

func (m *Monitor) startLocked() {
	if m.Running() {
		return
	}

	dev, err := m.ctx.NewCapture(m.device, audio.CaptureConfig{
		SampleRate: CaptureSampleRate,
		Channels:   1,
	})
	if err != nil {
		log.Error((&Error{Category: SessionCreation, Op: "open capture", Err: err}).Error())
		return
	}

	meter := &audio.PeakMeter{}
	quit := make(chan struct{})
	done := make(chan struct{})

	// PCM goes nowhere; only its peak is kept
	dev.SetCallback(func(data []byte, _ uint32) { meter.Observe(data) })
	dev.SetStopCallback(func() {
		// backend thread; stopping from here would deadlock the device
		go m.captureDied(quit)
	})
	if err := dev.Start(); err != nil {
		dev.Close()
		log.Error((&Error{Category: SessionCreation, Op: "start capture", Err: err}).Error())
		return
	}

	session := uuid.NewString()
	m.mu.Lock()
	m.capture = dev
	m.class = Stopped
	m.session = session
	m.transitions = 0
	m.quit = quit
	m.done = done
	m.mu.Unlock()

	go m.loop(meter, quit, done)

	log.SessionStart(session, dev.DeviceName())
	m.notifyRunning(true)
}

func (m *Monitor) stopLocked() {
	m.mu.Lock()
	quit, done, dev := m.quit, m.done, m.capture
	session, transitions := m.session, m.transitions
	m.mu.Unlock()
	if quit == nil {
		return
	}

	close(quit)
	<-done

	m.player.Stop()
	dev.ClearCallback()
	dev.Stop()
	dev.Close()

	m.mu.Lock()
	prev := m.class
	m.capture = nil
	m.class = Stopped
	m.session = ""
	m.quit = nil
	m.done = nil
	m.mu.Unlock()

	log.SessionEnd(session, transitions)
	if prev != Stopped {
		m.notifyClass(Stopped)
	}
	m.notifyRunning(false)
}

// captureDied handles a capture device that stopped without being asked.
// quit identifies the session the device belonged to.
func (m *Monitor) captureDied(quit chan struct{}) {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	m.mu.Lock()
	current := m.quit == quit
	m.mu.Unlock()
	if !current {
		return
	}
	err := &Error{Category: RecorderRuntime, Kind: KindServerDied, Op: "capture", Err: audio.ErrDeviceStopped}
	log.Error(err.Error())
	m.stopLocked()
}

func (m *Monitor) loop(meter *audio.PeakMeter, quit, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	idle := 0
	stalled := false
	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
		}

		amp, buffers := meter.Take()
		if buffers == 0 {
			idle++
			if idle == stallTicks && !stalled {
				stalled = true
				log.RecorderEvent(string(KindStalled),
					fmt.Sprintf("no capture data for %v", time.Duration(idle)*m.interval))
			}
		} else {
			if stalled {
				stalled = false
				log.RecorderEvent(string(KindResumed), "capture data arriving again")
			}
			idle = 0
		}

		m.sample(amp)
	}
}

// sample runs one tick's worth of classification for a peak amplitude.
func (m *Monitor) sample(amp int) {
	if amp <= 0 {
		return
	}
	level := Level(amp)
	if level == 0 {
		return
	}

	m.mu.Lock()
	prev := m.class
	next, changed := classify(prev, level)
	if changed {
		m.class = next
		m.transitions++
	}
	session := m.session
	m.mu.Unlock()

	if changed {
		asset, played := m.player.Transition(next)
		name := ""
		if played {
			name = asset.String()
		}
		log.Transition(session, prev.String(), next.String(), name, level)
		m.notifyClass(next)
	}
	m.notifyLevel(level)
}

func (m *Monitor) notifyLevel(level float64) {
	if m.onLevel != nil {
		m.post(func() { m.onLevel(level) })
	}
}

func (m *Monitor) notifyClass(c Classification) {
	if m.onClass != nil {
		m.post(func() { m.onClass(c) })
	}
}

func (m *Monitor) notifyRunning(running bool) {
	if m.onRunning != nil {
		m.post(func() { m.onRunning(running) })
	}
}
