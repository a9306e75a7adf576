package conch

import (
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"iconch/audio"
	"iconch/log"
	"iconch/sounds"
)

// PrepareTimeout bounds how long a clip may take to decode and open.
const PrepareTimeout = 5 * time.Second

type PlayState int

const (
	Idle PlayState = iota
	Preparing
	Playing
)

func (s PlayState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Preparing:
		return "preparing"
	case Playing:
		return "playing"
	}
	return "unknown"
}

// ClipSource supplies decoded clips. *sounds.Bank satisfies it.
type ClipSource interface {
	Load(a sounds.Asset) (*sounds.Clip, error)
}

type PlayerOption func(*Player)

// WithVolume scales clip samples before playback.
func WithVolume(gain float64) PlayerOption {
	return func(p *Player) { p.volume = gain }
}

// WithPicker replaces the uniform random choice between the two clips of a
// pair. pick(n) must return a value in [0, n).
func WithPicker(pick func(n int) int) PlayerOption {
	return func(p *Player) { p.pick = pick }
}

func WithPrepareTimeout(d time.Duration) PlayerOption {
	return func(p *Player) { p.prepareTimeout = d }
}

// WithErrorHandler observes every error the player resolves internally, after
// it was logged.
func WithErrorHandler(fn func(error)) PlayerOption {
	return func(p *Player) { p.onError = fn }
}

// Player plays at most one clip at a time. Every Play starts a new session;
// asynchronous callbacks belonging to an older session are dropped.
type Player struct {
	ctx            audio.Context
	clips          ClipSource
	volume         float64
	pick           func(n int) int
	prepareTimeout time.Duration
	onError        func(error)

	mu    sync.Mutex
	gen   uint64
	cur   *playSession
	state PlayState
}

type playSession struct {
	id    uint64
	asset sounds.Asset
	dev   audio.PlaybackDevice
}

func NewPlayer(ctx audio.Context, clips ClipSource, opts ...PlayerOption) *Player {
	p := &Player{
		ctx:            ctx,
		clips:          clips,
		volume:         1,
		pick:           rand.IntN,
		prepareTimeout: PrepareTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Transition reacts to a classification change. Good and Bad play one clip
// of their pair; Stopped silences the player. It reports the asset chosen.
func (p *Player) Transition(c Classification) (sounds.Asset, bool) {
	var pair [2]sounds.Asset
	switch c {
	case Good:
		pair = sounds.GoodPair
	case Bad:
		pair = sounds.BadPair
	default:
		p.Stop()
		return 0, false
	}
	a := pair[p.pick(len(pair))]
	p.Play(a)
	return a, true
}

// Play tears down the current session and prepares a for playback in the
// background. Playback starts once the clip is ready.
func (p *Player) Play(a sounds.Asset) {
	p.mu.Lock()
	old := p.detachLocked()
	p.gen++
	s := &playSession{id: p.gen, asset: a}
	p.cur = s
	p.state = Preparing
	p.mu.Unlock()

	release(old)
	go p.prepare(s)
}

// Stop releases the current session regardless of playback position.
func (p *Player) Stop() {
	p.mu.Lock()
	old := p.detachLocked()
	p.state = Idle
	p.mu.Unlock()
	release(old)
}

func (p *Player) State() PlayState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Current returns the asset of the active session, if any.
func (p *Player) Current() (sounds.Asset, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cur == nil {
		return 0, false
	}
	return p.cur.asset, true
}

func (p *Player) detachLocked() *playSession {
	old := p.cur
	p.cur = nil
	return old
}

func release(s *playSession) {
	if s != nil && s.dev != nil {
		s.dev.Stop()
		s.dev.Close()
	}
}

type prepared struct {
	dev audio.PlaybackDevice
	err error
}

func (p *Player) prepare(s *playSession) {
	done := make(chan prepared, 1)
	go func() {
		dev, err := p.open(s.asset)
		done <- prepared{dev, err}
	}()

	timer := time.NewTimer(p.prepareTimeout)
	defer timer.Stop()

	select {
	case r := <-done:
		p.onPrepared(s, r.dev, r.err)
	case <-timer.C:
		p.fail(s, errTimedOut("prepare "+s.asset.String(), p.prepareTimeout))
		// the session is no longer current, so a late device is closed
		go func() {
			r := <-done
			p.onPrepared(s, r.dev, r.err)
		}()
	}
}

func (p *Player) open(a sounds.Asset) (audio.PlaybackDevice, error) {
	clip, err := p.clips.Load(a)
	if err != nil {
		return nil, &Error{Category: PlaybackRuntime, Kind: clipKind(err), Op: "load " + a.String(), Err: err}
	}
	cfg := audio.PlaybackConfig{SampleRate: clip.SampleRate, Channels: clip.Channels}
	dev, err := p.ctx.NewPlayback(cfg, clip.Scaled(p.volume))
	if err != nil {
		return nil, &Error{Category: SessionCreation, Op: "open playback " + a.String(), Err: err}
	}
	return dev, nil
}

func (p *Player) onPrepared(s *playSession, dev audio.PlaybackDevice, err error) {
	p.mu.Lock()
	if p.cur != s {
		p.mu.Unlock()
		if dev != nil {
			dev.Close()
		}
		return
	}
	if err != nil {
		p.cur = nil
		p.state = Idle
		p.mu.Unlock()
		p.report(s, err)
		return
	}

	s.dev = dev
	dev.SetCompletion(func(err error) { p.onComplete(s, err) })
	if err := dev.Start(); err != nil {
		p.cur = nil
		p.state = Idle
		p.mu.Unlock()
		dev.Close()
		p.report(s, &Error{Category: PlaybackRuntime, Kind: KindIO, Op: "start " + s.asset.String(), Err: err})
		return
	}
	p.state = Playing
	p.mu.Unlock()
}

func (p *Player) onComplete(s *playSession, err error) {
	p.mu.Lock()
	if p.cur != s {
		p.mu.Unlock()
		return
	}
	p.cur = nil
	p.state = Idle
	p.mu.Unlock()

	s.dev.Close()
	if err != nil {
		p.report(s, &Error{Category: PlaybackRuntime, Kind: deviceKind(err), Op: "play " + s.asset.String(), Err: err})
	}
}

// fail resolves a session to Idle if it is still current.
func (p *Player) fail(s *playSession, err error) {
	p.mu.Lock()
	if p.cur != s {
		p.mu.Unlock()
		return
	}
	p.cur = nil
	p.state = Idle
	p.mu.Unlock()
	p.report(s, err)
}

func (p *Player) report(s *playSession, err error) {
	kind := string(KindUnknown)
	var ce *Error
	if errors.As(err, &ce) {
		kind = string(ce.Kind)
		if ce.Category == SessionCreation {
			kind = ce.Category.String()
		}
	}
	log.PlaybackError(kind, s.asset.String(), err)
	if p.onError != nil {
		p.onError(err)
	}
}
