package sounds

import (
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
)

var (
	ErrMalformed   = errors.New("malformed clip")
	ErrUnsupported = errors.New("unsupported clip format")
)

// Decode reads a 16-bit mono or stereo FLAC stream into memory.
func Decode(r io.Reader) (*Clip, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	defer stream.Close()

	info := stream.Info
	if info.BitsPerSample != 16 {
		return nil, fmt.Errorf("%w: %d bits per sample", ErrUnsupported, info.BitsPerSample)
	}
	if info.NChannels != 1 && info.NChannels != 2 {
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupported, info.NChannels)
	}

	channels := int(info.NChannels)
	clip := &Clip{
		SampleRate: info.SampleRate,
		Channels:   uint32(channels),
		Samples:    make([]int16, 0, int(info.NSamples)*channels),
	}
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if len(frame.Subframes) != channels {
			return nil, fmt.Errorf("%w: frame has %d subframes, stream has %d channels",
				ErrMalformed, len(frame.Subframes), channels)
		}
		for i := 0; i < int(frame.BlockSize); i++ {
			for ch := 0; ch < channels; ch++ {
				clip.Samples = append(clip.Samples, int16(frame.Subframes[ch].Samples[i]))
			}
		}
	}
	if len(clip.Samples) == 0 {
		return nil, fmt.Errorf("%w: no samples", ErrMalformed)
	}
	return clip, nil
}
