package bridge

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/framebridge/pkg/embedded"
	"github.com/bft-labs/framebridge/pkg/host"
	"github.com/bft-labs/framebridge/pkg/lifecycle"
	"github.com/bft-labs/framebridge/pkg/log"
	"github.com/bft-labs/framebridge/pkg/storage"
)

// Bridge adapts an embedded application to a host scheduler.
// Create one with New; it owns the application for its whole life.
type Bridge struct {
	config  Config
	opts    options
	logger  log.Logger
	events  EventHandler
	machine *lifecycle.Machine
	adapter *embedded.Adapter
	sync    *storage.Synchronizer

	// Written by Initialize before any tick or sync goroutine exists.
	// Other goroutines read the published copy.
	mount          string
	publishedMount atomic.Pointer[string]

	// Set by Start; read by the tick goroutine.
	schedMu   sync.Mutex
	scheduler host.Scheduler

	flags  controlFlags
	inTick atomic.Bool
	frames atomic.Uint64

	importIssued atomic.Bool
	importDone   chan struct{}
	finalPending atomic.Bool

	// Tick-goroutine only.
	lastCheckpoint time.Time

	shutdownOnce sync.Once
}

// New creates a Bridge for app in StateUninitialized.
func New(app embedded.Application, cfg Config, opts ...Option) (*Bridge, error) {
	if app == nil {
		return nil, ErrNoApp
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.sync == nil {
		o.sync = storage.NewSynchronizer(storage.NopBackend{}, storage.WithLogger(o.logger))
	}

	slow := cfg.SlowStepThreshold
	if slow < 0 {
		slow = 0
	}

	return &Bridge{
		config:  cfg,
		opts:    o,
		logger:  o.logger,
		events:  o.eventHandler,
		machine: lifecycle.NewMachine(o.logger, eventEmitterWrapper{handler: o.eventHandler}),
		adapter: embedded.NewAdapter(app,
			embedded.WithLogger(o.logger),
			embedded.WithSlowStepThreshold(slow),
		),
		sync:       o.sync,
		importDone: make(chan struct{}),
	}, nil
}

// Initialize parses argv, imports persisted data into the mount, and loads
// the application. It returns true when the bridge is Ready.
//
// A false return with a nil error means usage was printed for --help and
// nothing was initialized. Any other false return carries ErrArgument,
// ErrAlreadyInitialized or ErrLoad; after ErrLoad the bridge is Failed.
func (b *Bridge) Initialize(argv []string) (bool, error) {
	if st := b.machine.State(); st != lifecycle.StateUninitialized {
		b.logger.Warn("initialize rejected", log.State(st.String()), log.Op("initialize"))
		return false, fmt.Errorf("%w (state %s)", ErrAlreadyInitialized, st)
	}

	args, err := ParseArgs(argv)
	if err != nil {
		b.logger.Error("invalid arguments",
			log.State(lifecycle.StateUninitialized.String()),
			log.Op("initialize"),
			log.Err(err),
		)
		return false, fmt.Errorf("%w: %v", ErrArgument, err)
	}
	if args.Help {
		Usage(b.opts.usage, args.Program)
		return false, nil
	}

	if err := b.machine.Begin(); err != nil {
		return false, err
	}

	b.mount = b.config.MountPoint
	if args.MountPoint != "" {
		b.mount = args.MountPoint
	}
	mount := b.mount
	b.publishedMount.Store(&mount)
	b.startImport()

	res := b.adapter.Load(argv)
	if !res.OK() {
		_ = b.machine.TransitionTo(lifecycle.StateFailed, "load failed: "+res.Message)
		b.failureShutdown()
		return false, fmt.Errorf("%w: %s", ErrLoad, res.Message)
	}

	if err := b.machine.TransitionTo(lifecycle.StateReady, "application loaded"); err != nil {
		return false, err
	}
	return true, nil
}

// Start registers the tick with s and moves Ready -> Running.
func (b *Bridge) Start(s host.Scheduler) error {
	if s == nil {
		return ErrNoScheduler
	}
	if st := b.machine.State(); st != lifecycle.StateReady {
		return fmt.Errorf("%w (state %s)", ErrNotReady, st)
	}

	b.schedMu.Lock()
	b.scheduler = s
	b.schedMu.Unlock()
	b.lastCheckpoint = b.opts.now()

	if err := s.SetMainLoop(b.tick); err != nil {
		b.logger.Error("register with host failed",
			log.State(lifecycle.StateReady.String()),
			log.Op("start"),
			log.Err(err),
		)
		return err
	}
	return b.machine.TransitionTo(lifecycle.StateRunning, "registered with host scheduler")
}

// State returns the lifecycle state.
func (b *Bridge) State() lifecycle.State { return b.machine.State() }

// MountPoint returns the effective mount point, known after Initialize.
func (b *Bridge) MountPoint() string {
	if m := b.publishedMount.Load(); m != nil {
		return *m
	}
	return ""
}

// Synchronizer returns the storage synchronizer in use.
func (b *Bridge) Synchronizer() *storage.Synchronizer { return b.sync }
