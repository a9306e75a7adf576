//go:build ignore

// gen_clips synthesizes the bundled conch clips: lowpassed noise under a
// swell envelope. Good clips are long, dark and steady; bad clips are short,
// bright and fluttering.
//
//	go run gen_clips.go
package main

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"iconch/encoder"
)

const sampleRate = 22050

type params struct {
	name    string
	seconds float64
	cutoff  float64
	level   float64
	wobble  float64
	depth   float64
	seed    uint32
}

var clips = []params{
	{"goodconch1", 2.4, 900, 0.55, 0.7, 0.15, 1},
	{"goodconch2", 2.8, 700, 0.6, 0.5, 0.2, 2},
	{"badconch1", 1.6, 2500, 0.25, 6, 0.45, 3},
	{"badconch2", 1.8, 3200, 0.22, 9, 0.5, 4},
}

func synth(p params) []int16 {
	n := int(sampleRate * p.seconds)
	x := p.seed
	alpha := 1 - math.Exp(-2*math.Pi*p.cutoff/sampleRate)
	var lp, lp2 float64
	raw := make([]float64, n)
	peak := 0.0
	for i := range raw {
		x = x*1664525 + 1013904223
		white := float64(x>>8)/float64(1<<24)*2 - 1
		lp += alpha * (white - lp)
		lp2 += alpha * (lp - lp2)
		t := float64(i) / sampleRate
		env := math.Pow(math.Sin(math.Pi*t/p.seconds), 1.5)
		mod := 1 + p.depth*math.Sin(2*math.Pi*p.wobble*t)
		raw[i] = lp2 * env * mod
		peak = max(peak, math.Abs(raw[i]))
	}
	if peak == 0 {
		peak = 1
	}
	scale := p.level * 32767 / peak
	out := make([]int16, n)
	for i, v := range raw {
		out[i] = int16(max(-32768, min(32767, math.Round(v*scale))))
	}
	return out
}

func main() {
	for _, p := range clips {
		data, err := encoder.EncodeClip(synth(p), sampleRate)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", p.name, err)
			os.Exit(1)
		}
		path := filepath.Join("clips", p.name+".flac")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", p.name, err)
			os.Exit(1)
		}
		fmt.Printf("%s: %d bytes\n", path, len(data))
	}
}
