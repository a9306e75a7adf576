package audio

import (
	"encoding/binary"
	"sync"
)

// PeakMeter tracks the largest absolute S16LE sample seen since the last Take.
// It is safe for concurrent use.
type PeakMeter struct {
	mu      sync.Mutex
	peak    int
	buffers int
}

// Observe folds a capture buffer into the running peak.
func (m *PeakMeter) Observe(data []byte) {
	peak := 0
	for i := 0; i+1 < len(data); i += 2 {
		s := int(int16(binary.LittleEndian.Uint16(data[i:])))
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	// -32768 would read one past the positive range
	peak = min(peak, MaxAmplitude)

	m.mu.Lock()
	if peak > m.peak {
		m.peak = peak
	}
	m.buffers++
	m.mu.Unlock()
}

// Take returns the peak and the number of buffers observed since the
// previous call, then resets both.
func (m *PeakMeter) Take() (peak, buffers int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	peak, buffers = m.peak, m.buffers
	m.peak, m.buffers = 0, 0
	return peak, buffers
}
