// Package shutdown reports requests to terminate the process.
package shutdown

import (
	"os"
	"os/signal"
	"sync"
)

// OnSignal runs fn on its own goroutine the first time the process is asked
// to terminate. The returned cancel stops watching without calling fn.
func OnSignal(fn func()) (cancel func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, signals...)
	done := make(chan struct{})
	go func() {
		select {
		case <-ch:
			fn()
		case <-done:
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(done)
		})
	}
}

// Wait blocks until a termination signal arrives.
func Wait() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, signals...)
	defer signal.Stop(ch)
	<-ch
}
