// Package encoder writes the bundled conch clips as FLAC.
package encoder

// Clips are stored as 16-bit mono, in fixed-size blocks except for the last.
const (
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)
