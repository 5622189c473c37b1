// Package notify provides a broadcast wake-up primitive.
package notify

import "sync"

// Signal wakes every waiter at once. Each Notify closes the current channel
// and installs a fresh one, so a waiter must call C again after waking.
type Signal struct {
	mu sync.Mutex
	ch chan struct{}
}

// NewSignal creates a Signal with no pending notification.
func NewSignal() *Signal { return &Signal{ch: make(chan struct{})} }

// Notify wakes all current waiters.
func (s *Signal) Notify() {
	s.mu.Lock()
	close(s.ch)
	s.ch = make(chan struct{})
	s.mu.Unlock()
}

// C returns a channel closed by the next Notify.
func (s *Signal) C() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch
}

