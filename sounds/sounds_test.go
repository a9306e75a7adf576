package sounds

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"iconch/encoder"
)

func TestOpenBundledClips(t *testing.T) {
	for _, a := range All {
		clip, err := Open(a)
		if err != nil {
			t.Fatalf("Open(%s): %v", a, err)
		}
		if clip.SampleRate != 22050 {
			t.Errorf("%s: SampleRate = %d, want 22050", a, clip.SampleRate)
		}
		if clip.Channels != 1 {
			t.Errorf("%s: Channels = %d, want 1", a, clip.Channels)
		}
		if d := clip.Duration(); d < time.Second || d > 3*time.Second {
			t.Errorf("%s: Duration = %v, want 1s..3s", a, d)
		}
	}
}

func TestGoodClipsOutlastBadClips(t *testing.T) {
	shortestGood := time.Hour
	for _, a := range GoodPair {
		clip, err := Open(a)
		if err != nil {
			t.Fatal(err)
		}
		shortestGood = min(shortestGood, clip.Duration())
	}
	for _, a := range BadPair {
		clip, err := Open(a)
		if err != nil {
			t.Fatal(err)
		}
		if clip.Duration() >= shortestGood {
			t.Errorf("%s lasts %v, not shorter than the good clips (%v)", a, clip.Duration(), shortestGood)
		}
	}
}

func TestOpenUnknownAsset(t *testing.T) {
	_, err := Open(Asset(42))
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("definitely not flac")))
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	samples := make([]int16, encoder.BlockSize+517)
	for i := range samples {
		samples[i] = int16((i*131)%4000 - 2000)
	}
	data, err := encoder.EncodeClip(samples, 22050)
	if err != nil {
		t.Fatalf("EncodeClip: %v", err)
	}

	clip, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(clip.Samples) != len(samples) {
		t.Fatalf("decoded %d samples, want %d", len(clip.Samples), len(samples))
	}
	for i := range samples {
		if clip.Samples[i] != samples[i] {
			t.Fatalf("sample %d = %d, want %d", i, clip.Samples[i], samples[i])
		}
	}
}

func TestScaled(t *testing.T) {
	clip := &Clip{Samples: []int16{100, -100, 30000}, SampleRate: 8000, Channels: 1}
	if got := clip.Scaled(1); &got[0] != &clip.Samples[0] {
		t.Error("gain 1 should not copy")
	}
	got := clip.Scaled(0.5)
	want := []int16{50, -50, 15000}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Scaled(0.5)[%d] = %d, want %d", i, got[i], want[i])
		}
	}
	if clip.Samples[0] != 100 {
		t.Error("Scaled modified the clip")
	}
}

func TestBankCaches(t *testing.T) {
	calls := 0
	b := NewBank()
	b.open = func(a Asset) (*Clip, error) {
		calls++
		return &Clip{Samples: []int16{1}, SampleRate: 8000, Channels: 1}, nil
	}
	first, _ := b.Load(Good1)
	second, _ := b.Load(Good1)
	if first != second {
		t.Error("Load returned different clips for the same asset")
	}
	if calls != 1 {
		t.Errorf("open called %d times, want 1", calls)
	}
}

func TestBankDoesNotCacheErrors(t *testing.T) {
	calls := 0
	b := NewBank()
	b.open = func(a Asset) (*Clip, error) {
		calls++
		return nil, ErrMalformed
	}
	b.Load(Bad1)
	b.Load(Bad1)
	if calls != 2 {
		t.Errorf("open called %d times, want 2", calls)
	}
}

func TestAssetString(t *testing.T) {
	if Good2.String() != "goodconch2" {
		t.Errorf("Good2 = %q", Good2.String())
	}
	if Asset(9).String() != "asset(9)" {
		t.Errorf("Asset(9) = %q", Asset(9).String())
	}
}
