package conch

import (
	"errors"
	"slices"
	"testing"
	"time"

	"iconch/audio"
	"iconch/sounds"
)

func newTestPlayer(ctx *stubContext, clips *stubClips, opts ...PlayerOption) *Player {
	opts = append([]PlayerOption{WithPicker(first)}, opts...)
	return NewPlayer(ctx, clips, opts...)
}

func TestPlayReachesPlaying(t *testing.T) {
	ctx := &stubContext{}
	p := newTestPlayer(ctx, &stubClips{})

	p.Play(sounds.Good2)
	if a, ok := p.Current(); !ok || a != sounds.Good2 {
		t.Fatalf("Current = %v, %v; want goodconch2", a, ok)
	}
	waitFor(t, "playing", func() bool { return p.State() == Playing })

	if started, _ := ctx.Playback(0).State(); !started {
		t.Error("device not started")
	}
}

func TestPlayTearsDownPrevious(t *testing.T) {
	ctx := &stubContext{}
	p := newTestPlayer(ctx, &stubClips{})

	p.Play(sounds.Good1)
	waitFor(t, "first playing", func() bool { return p.State() == Playing })
	p.Play(sounds.Bad1)
	waitFor(t, "second playing", func() bool { return ctx.Playbacks() == 2 && p.State() == Playing })

	want := []string{"start#1", "close#1", "start#2"}
	if got := ctx.Events(); !slices.Equal(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestCompletionReturnsIdle(t *testing.T) {
	ctx := &stubContext{}
	p := newTestPlayer(ctx, &stubClips{})

	p.Play(sounds.Good1)
	waitFor(t, "playing", func() bool { return p.State() == Playing })

	ctx.Playback(0).finish(nil)
	if p.State() != Idle {
		t.Errorf("State = %s, want idle", p.State())
	}
	if _, ok := p.Current(); ok {
		t.Error("session still current after completion")
	}
	if _, closed := ctx.Playback(0).State(); !closed {
		t.Error("device not released on completion")
	}
}

func TestStopIdempotent(t *testing.T) {
	ctx := &stubContext{}
	p := newTestPlayer(ctx, &stubClips{})

	p.Stop()
	p.Play(sounds.Bad2)
	waitFor(t, "playing", func() bool { return p.State() == Playing })
	p.Stop()
	p.Stop()

	if p.State() != Idle {
		t.Errorf("State = %s, want idle", p.State())
	}
	if got := ctx.Events(); !slices.Equal(got, []string{"start#1", "close#1"}) {
		t.Errorf("events = %v", got)
	}
}

func TestStalePrepareIgnored(t *testing.T) {
	ctx := &stubContext{}
	gate := make(chan struct{})
	clips := &stubClips{gate: map[sounds.Asset]chan struct{}{sounds.Good1: gate}}
	p := newTestPlayer(ctx, clips)

	p.Play(sounds.Good1) // blocks in prepare
	waitFor(t, "first load", func() bool { return len(clips.Loaded()) == 1 })
	p.Play(sounds.Bad1)
	waitFor(t, "second playing", func() bool { return p.State() == Playing })

	close(gate)
	waitFor(t, "stale device", func() bool { return ctx.Playbacks() == 2 })
	stale := ctx.Playback(1)
	waitFor(t, "stale device closed", func() bool { _, closed := stale.State(); return closed })

	if started, _ := stale.State(); started {
		t.Error("stale session was started")
	}
	if a, _ := p.Current(); a != sounds.Bad1 {
		t.Errorf("Current = %s, want badconch1", a)
	}
	if p.State() != Playing {
		t.Errorf("State = %s, want playing", p.State())
	}
}

func TestStaleCompletionIgnored(t *testing.T) {
	ctx := &stubContext{}
	p := newTestPlayer(ctx, &stubClips{})

	p.Play(sounds.Good1)
	waitFor(t, "first playing", func() bool { return p.State() == Playing })
	old := ctx.Playback(0)
	p.Play(sounds.Good2)
	waitFor(t, "second playing", func() bool { return ctx.Playbacks() == 2 && p.State() == Playing })

	old.finish(nil)
	if p.State() != Playing {
		t.Errorf("State = %s after stale completion, want playing", p.State())
	}
}

func TestPrepareTimeout(t *testing.T) {
	ctx := &stubContext{}
	gate := make(chan struct{})
	defer close(gate)
	clips := &stubClips{gate: map[sounds.Asset]chan struct{}{sounds.Good1: gate}}
	var errs errorLog
	p := newTestPlayer(ctx, clips, WithPrepareTimeout(20*time.Millisecond), WithErrorHandler(errs.add))

	p.Play(sounds.Good1)
	waitFor(t, "timeout", func() bool { return len(errs.Kinds()) == 1 })

	if got := errs.Kinds(); got[0] != KindTimedOut {
		t.Errorf("kind = %s, want timed_out", got[0])
	}
	if p.State() != Idle {
		t.Errorf("State = %s, want idle", p.State())
	}
}

func TestMalformedClip(t *testing.T) {
	ctx := &stubContext{}
	clips := &stubClips{fail: map[sounds.Asset]error{sounds.Bad2: sounds.ErrMalformed}}
	var errs errorLog
	p := newTestPlayer(ctx, clips, WithErrorHandler(errs.add))

	p.Play(sounds.Bad2)
	waitFor(t, "error", func() bool { return len(errs.Kinds()) == 1 })

	if got := errs.Kinds(); got[0] != KindMalformed {
		t.Errorf("kind = %s, want malformed", got[0])
	}
	if p.State() != Idle {
		t.Errorf("State = %s, want idle", p.State())
	}
	if ctx.Playbacks() != 0 {
		t.Error("device opened for a clip that failed to load")
	}
}

func TestDeviceDiesDuringPlayback(t *testing.T) {
	ctx := &stubContext{}
	var errs errorLog
	p := newTestPlayer(ctx, &stubClips{}, WithErrorHandler(errs.add))

	p.Play(sounds.Good1)
	waitFor(t, "playing", func() bool { return p.State() == Playing })
	ctx.Playback(0).finish(audio.ErrDeviceStopped)

	if got := errs.Kinds(); len(got) != 1 || got[0] != KindServerDied {
		t.Errorf("kinds = %v, want [server_died]", got)
	}
	if p.State() != Idle {
		t.Errorf("State = %s, want idle", p.State())
	}
}

func TestTransitionPicksFromPair(t *testing.T) {
	ctx := &stubContext{}
	p := NewPlayer(ctx, &stubClips{}, WithPicker(func(n int) int { return n - 1 }))

	if a, ok := p.Transition(Good); !ok || a != sounds.Good2 {
		t.Errorf("Transition(Good) = %s, %v", a, ok)
	}
	if a, ok := p.Transition(Bad); !ok || a != sounds.Bad2 {
		t.Errorf("Transition(Bad) = %s, %v", a, ok)
	}
	if _, ok := p.Transition(Stopped); ok {
		t.Error("Transition(Stopped) played something")
	}
	if p.State() != Idle {
		t.Errorf("State = %s after Stopped, want idle", p.State())
	}
}

func TestTransitionDefaultPickerStaysInPair(t *testing.T) {
	p := NewPlayer(&stubContext{}, &stubClips{})
	for range 50 {
		a, _ := p.Transition(Bad)
		if a != sounds.Bad1 && a != sounds.Bad2 {
			t.Fatalf("picked %s for bad", a)
		}
	}
	p.Stop()
}

func TestVolumeScalesSamples(t *testing.T) {
	ctx := &stubContext{}
	p := newTestPlayer(ctx, &stubClips{}, WithVolume(0.5))

	p.Play(sounds.Good1)
	waitFor(t, "playing", func() bool { return p.State() == Playing })

	if got := ctx.Playback(0).samples; !slices.Equal(got, []int16{0, 1, 1, 2}) {
		t.Errorf("samples = %v", got)
	}
}

func TestPlaybackOpenFailure(t *testing.T) {
	var errs errorLog
	p := NewPlayer(&failingPlayback{}, &stubClips{}, WithErrorHandler(errs.add))

	p.Play(sounds.Good1)
	waitFor(t, "error", func() bool { return p.State() == Idle && len(errs.Kinds()) == 1 })

	var ce *Error
	errs.mu.Lock()
	ok := errors.As(errs.errs[0], &ce)
	errs.mu.Unlock()
	if !ok || ce.Category != SessionCreation {
		t.Errorf("error = %v, want session creation", ce)
	}
}

type failingPlayback struct{ stubContext }

func (*failingPlayback) NewPlayback(audio.PlaybackConfig, []int16) (audio.PlaybackDevice, error) {
	return nil, errors.New("no sink")
}
