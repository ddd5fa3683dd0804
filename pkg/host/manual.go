package host

import "sync"

// ManualScheduler runs ticks only when Tick is called. It suits hosts that
// own their own loop and tests that need deterministic ticking.
type ManualScheduler struct {
	mu        sync.Mutex
	fn        func()
	cancelled bool
	ticks     int
}

// NewManualScheduler creates an empty manual scheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) SetMainLoop(fn func()) error {
	if fn == nil {
		return ErrNilCallback
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fn != nil {
		return ErrAlreadyRegistered
	}
	s.fn = fn
	return nil
}

func (s *ManualScheduler) CancelMainLoop() {
	s.mu.Lock()
	s.cancelled = true
	s.mu.Unlock()
}

// Registered reports whether a callback is registered and not cancelled.
func (s *ManualScheduler) Registered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fn != nil && !s.cancelled
}

// Tick runs one tick. It returns false, without calling anything, when no
// callback is registered or the registration was cancelled.
func (s *ManualScheduler) Tick() bool {
	s.mu.Lock()
	fn := s.fn
	live := fn != nil && !s.cancelled
	if live {
		s.ticks++
	}
	s.mu.Unlock()

	if !live {
		return false
	}
	fn()
	return true
}

// RunUntilCancelled ticks until the callback cancels itself or max ticks
// have run, and returns the number of ticks performed.
func (s *ManualScheduler) RunUntilCancelled(max int) int {
	n := 0
	for n < max && s.Tick() {
		n++
	}
	return n
}

// Ticks returns the number of ticks run so far.
func (s *ManualScheduler) Ticks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}
