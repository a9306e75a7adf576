package doctor

import (
	"strings"
	"testing"
	"time"

	"iconch/audio"
	"iconch/sounds"
)

func TestMicVerdict(t *testing.T) {
	tests := []struct {
		name   string
		levels []float64
		pass   bool
		want   string
	}{
		{"nothing", nil, false, "no audio captured"},
		{"quiet", []float64{-70, -55.5}, false, "nothing above -50 dB"},
		{"weak", []float64{-60, -30, -45}, true, "weak blow"},
		{"strong", []float64{-60, -30, -3.37}, true, "strong blow"},
		{"threshold", []float64{-15}, true, "strong blow"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pass, msg := micVerdict(tt.levels)
			if pass != tt.pass {
				t.Errorf("pass = %v, want %v (%s)", pass, tt.pass, msg)
			}
			if !strings.Contains(msg, tt.want) {
				t.Errorf("msg = %q, want mention of %q", msg, tt.want)
			}
		})
	}
}

func TestMeterBar(t *testing.T) {
	if got := meterBar(-90); got != "" {
		t.Errorf("meterBar(-90) = %q", got)
	}
	if got := meterBar(0); len(got) != 20 {
		t.Errorf("meterBar(0) = %q, want 20 marks", got)
	}
	if a, b := meterBar(-40), meterBar(-20); len(a) >= len(b) {
		t.Errorf("louder level drew a shorter bar: %q vs %q", a, b)
	}
}

func TestPlayClipCompletes(t *testing.T) {
	ctx := &audio.FakeContext{}
	clip := &sounds.Clip{Samples: make([]int16, 2205), SampleRate: 22050, Channels: 1}

	start := time.Now()
	if err := playClip(ctx, clip, 1); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("returned after %v, before the clip finished", elapsed)
	}
	if ctx.Playbacks() != 1 {
		t.Errorf("playbacks = %d, want 1", ctx.Playbacks())
	}
}
