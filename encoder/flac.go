package encoder

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

var ErrBlockSize = errors.New("block size out of range")

// ClipWriter streams 16-bit mono audio to an io.Writer as verbatim FLAC
// frames. It is not safe for concurrent use.
type ClipWriter struct {
	enc        *flac.Encoder
	sampleRate uint32
	written    uint64
	short      bool
}

// NewClipWriter writes the stream header to w. nSamples is recorded in the
// header when known up front; pass 0 when it is not.
func NewClipWriter(w io.Writer, sampleRate uint32, nSamples uint64) (*ClipWriter, error) {
	if sampleRate == 0 {
		return nil, fmt.Errorf("creating flac encoder: sample rate required")
	}
	info := &meta.StreamInfo{
		BlockSizeMin:  BlockSize,
		BlockSizeMax:  BlockSize,
		SampleRate:    sampleRate,
		NChannels:     Channels,
		BitsPerSample: BitsPerSample,
		NSamples:      nSamples,
	}
	enc, err := flac.NewEncoder(w, info)
	if err != nil {
		return nil, fmt.Errorf("creating flac encoder: %w", err)
	}
	return &ClipWriter{enc: enc, sampleRate: sampleRate}, nil
}

// WriteBlock appends one frame. Every block but the last must hold exactly
// BlockSize samples.
func (c *ClipWriter) WriteBlock(block []int16) error {
	if len(block) == 0 || len(block) > BlockSize {
		return fmt.Errorf("%w: %d samples", ErrBlockSize, len(block))
	}
	if c.short {
		return fmt.Errorf("%w: block after a short final block", ErrBlockSize)
	}
	c.short = len(block) < BlockSize

	samples := make([]int32, len(block))
	for i, s := range block {
		samples[i] = int32(s)
	}
	f := &frame.Frame{
		Header: frame.Header{
			BlockSize:     uint16(len(block)),
			SampleRate:    c.sampleRate,
			Channels:      frame.ChannelsMono,
			BitsPerSample: BitsPerSample,
		},
		Subframes: []*frame.Subframe{{
			SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
			Samples:   samples,
			NSamples:  len(block),
		}},
	}
	if err := c.enc.WriteFrame(f); err != nil {
		return fmt.Errorf("writing flac frame: %w", err)
	}
	c.written += uint64(len(block))
	return nil
}

// Written reports how many samples have been encoded.
func (c *ClipWriter) Written() uint64 { return c.written }

func (c *ClipWriter) Close() error {
	if err := c.enc.Close(); err != nil {
		return fmt.Errorf("closing flac encoder: %w", err)
	}
	return nil
}

// EncodeClip encodes a whole mono clip and returns the finished stream.
func EncodeClip(samples []int16, sampleRate uint32) ([]byte, error) {
	var buf bytes.Buffer
	cw, err := NewClipWriter(&buf, sampleRate, uint64(len(samples)))
	if err != nil {
		return nil, err
	}
	for i := 0; i < len(samples); i += BlockSize {
		if err := cw.WriteBlock(samples[i:min(i+BlockSize, len(samples))]); err != nil {
			return nil, err
		}
	}
	if err := cw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
