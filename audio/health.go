package audio

import (
	"fmt"
	"time"
)

// healthInterval is how often a running stream is checked for failure.
const healthInterval = 100 * time.Millisecond

// streamStatus is the failure state a backend stream reports about itself.
type streamStatus interface {
	Closed() bool
	Error() error
}

// streamFailure reports why s ended without being asked to, or nil while it
// is healthy. Every failure wraps ErrDeviceStopped.
func streamFailure(s streamStatus) error {
	if err := s.Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceStopped, err)
	}
	if s.Closed() {
		return ErrDeviceStopped
	}
	return nil
}

// watchStream polls s until stop is closed, returning nil, or until s fails,
// returning the failure.
func watchStream(s streamStatus, stop <-chan struct{}, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return nil
		case <-ticker.C:
			if err := streamFailure(s); err != nil {
				return err
			}
		}
	}
}
