package host

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultFPS is the tick rate used when none is configured.
const DefaultFPS = 60

var (
	ErrAlreadyRegistered = errors.New("host: main loop already registered")
	ErrNilCallback       = errors.New("host: nil main loop callback")
)

// Scheduler registers and deregisters a main-loop callback.
type Scheduler interface {
	SetMainLoop(fn func()) error
	CancelMainLoop()
}

// TickerScheduler calls the registered callback at a fixed rate from a
// single goroutine.
type TickerScheduler struct {
	interval time.Duration

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	once    sync.Once
	done    chan struct{}
}

// NewTickerScheduler creates a scheduler ticking fps times per second.
// Non-positive fps uses DefaultFPS.
func NewTickerScheduler(fps int) *TickerScheduler {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &TickerScheduler{
		interval: time.Second / time.Duration(fps),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Interval returns the time between ticks.
func (s *TickerScheduler) Interval() time.Duration { return s.interval }

// SetMainLoop registers fn and starts ticking. A scheduler accepts a single
// registration for its lifetime.
func (s *TickerScheduler) SetMainLoop(fn func()) error {
	if fn == nil {
		return ErrNilCallback
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRegistered
	}
	s.running = true

	go s.loop(fn)
	return nil
}

// CancelMainLoop stops ticking after the tick in progress, if any. Safe to
// call from inside the callback and more than once.
func (s *TickerScheduler) CancelMainLoop() {
	s.once.Do(func() { close(s.stop) })
}

// Done is closed once the loop goroutine has exited.
func (s *TickerScheduler) Done() <-chan struct{} { return s.done }

// Wait blocks until the loop exits or ctx is done.
func (s *TickerScheduler) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *TickerScheduler) loop(fn func()) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}

		// A cancel that raced with the tick wins.
		select {
		case <-s.stop:
			return
		default:
		}
		fn()
	}
}
