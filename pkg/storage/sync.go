package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/framebridge/pkg/log"
)

// Storage errors.
var (
	ErrInFlight  = errors.New("storage: operation already in flight")
	ErrNoMount   = errors.New("storage: mount point is empty")
	ErrMountKind = errors.New("storage: mount point is not a directory")
)

// DefaultOpTimeout bounds a single backend call.
const DefaultOpTimeout = 30 * time.Second

// Direction is the direction of a sync operation.
type Direction int

const (
	// Import copies durable data into the mount (sync in).
	Import Direction = iota
	// Export copies the mount out to durable storage (sync out).
	Export
)

func (d Direction) String() string {
	switch d {
	case Import:
		return "import"
	case Export:
		return "export"
	default:
		return "unknown"
	}
}

// Backend is the opaque durable store behind a mount point.
type Backend interface {
	SyncIn(ctx context.Context, mount string) error
	SyncOut(ctx context.Context, mount string) error
}

// Request identifies a sync operation.
type Request struct {
	Direction  Direction
	MountPoint string
}

// Result is the completion outcome of a Request. A nil Err is Success.
type Result struct {
	Request
	Err      error
	Duration time.Duration
}

// Success reports whether the operation succeeded.
func (r Result) Success() bool { return r.Err == nil }

// Reason returns the failure reason, or "" on success.
func (r Result) Reason() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Callback receives the outcome of an asynchronous operation. It runs on the
// goroutine that performed the backend call and must not block.
type Callback func(Result)

// Synchronizer issues fire-and-forget sync operations against a Backend.
type Synchronizer struct {
	backend Backend
	logger  log.Logger
	timeout time.Duration

	inFlight [2]atomic.Bool
	issued   [2]atomic.Uint64
	wg       sync.WaitGroup

	mu   sync.Mutex
	last map[Direction]Result
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithLogger sets the synchronizer logger.
func WithLogger(l log.Logger) Option {
	return func(s *Synchronizer) { s.logger = log.OrNoop(l) }
}

// WithOpTimeout bounds each backend call. Non-positive values keep the default.
func WithOpTimeout(d time.Duration) Option {
	return func(s *Synchronizer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewSynchronizer creates a synchronizer over backend. A nil backend
// behaves like NopBackend.
func NewSynchronizer(backend Backend, opts ...Option) *Synchronizer {
	if backend == nil {
		backend = NopBackend{}
	}
	s := &Synchronizer{
		backend: backend,
		logger:  log.NoopLogger{},
		timeout: DefaultOpTimeout,
		last:    make(map[Direction]Result),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Import starts a sync-in of mount and returns immediately.
func (s *Synchronizer) Import(mount string, cb Callback) error {
	return s.start(Request{Direction: Import, MountPoint: mount}, cb)
}

// Export starts a sync-out of mount and returns immediately.
func (s *Synchronizer) Export(mount string, cb Callback) error {
	return s.start(Request{Direction: Export, MountPoint: mount}, cb)
}

// InFlight reports whether an operation in direction d is outstanding.
func (s *Synchronizer) InFlight(d Direction) bool {
	return s.inFlight[d].Load()
}

// Issued returns how many operations in direction d were started.
func (s *Synchronizer) Issued(d Direction) uint64 {
	return s.issued[d].Load()
}

// Last returns the most recent completed result in direction d.
func (s *Synchronizer) Last(d Direction) (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.last[d]
	return r, ok
}

// Wait blocks until all outstanding operations complete or ctx is done.
// It is meant for process exit and tests; the tick path never calls it.
func (s *Synchronizer) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Synchronizer) start(req Request, cb Callback) error {
	if req.MountPoint == "" {
		return ErrNoMount
	}
	if !s.inFlight[req.Direction].CompareAndSwap(false, true) {
		return fmt.Errorf("%w: %s %s", ErrInFlight, req.Direction, req.MountPoint)
	}
	s.issued[req.Direction].Add(1)

	s.logger.Debug("sync issued",
		log.Op(req.Direction.String()),
		log.Mount(req.MountPoint),
	)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		res := s.run(req)

		s.mu.Lock()
		s.last[req.Direction] = res
		s.mu.Unlock()
		s.inFlight[req.Direction].Store(false)

		s.logger.Debug("sync finished",
			log.Op(req.Direction.String()),
			log.Mount(req.MountPoint),
			log.Bool("ok", res.Success()),
			log.Duration("took", res.Duration),
		)

		if cb != nil {
			cb(res)
		}
	}()

	return nil
}

func (s *Synchronizer) run(req Request) (res Result) {
	res.Request = req
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("storage: backend panic: %v", r)
		}
		res.Duration = time.Since(start)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	switch req.Direction {
	case Import:
		res.Err = s.backend.SyncIn(ctx, req.MountPoint)
	case Export:
		res.Err = s.backend.SyncOut(ctx, req.MountPoint)
	}
	return res
}

// NopBackend accepts every operation without doing anything.
type NopBackend struct{}

func (NopBackend) SyncIn(context.Context, string) error  { return nil }
func (NopBackend) SyncOut(context.Context, string) error { return nil }
