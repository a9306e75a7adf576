package sounds

import "sync"

// Bank decodes each asset once and keeps it for the life of the process.
type Bank struct {
	mu    sync.Mutex
	clips map[Asset]*Clip
	open  func(Asset) (*Clip, error)
}

func NewBank() *Bank {
	return &Bank{clips: make(map[Asset]*Clip), open: Open}
}

func (b *Bank) Load(a Asset) (*Clip, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.clips[a]; ok {
		return c, nil
	}
	c, err := b.open(a)
	if err != nil {
		return nil, err
	}
	b.clips[a] = c
	return c, nil
}

// Preload decodes every asset up front so the first transition does not pay
// for decoding.
func (b *Bank) Preload() error {
	for _, a := range All {
		if _, err := b.Load(a); err != nil {
			return err
		}
	}
	return nil
}
