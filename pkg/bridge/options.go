package bridge

import (
	"io"
	"os"
	"time"

	"github.com/bft-labs/framebridge/pkg/embedded"
	"github.com/bft-labs/framebridge/pkg/log"
	"github.com/bft-labs/framebridge/pkg/storage"
)

// Config holds bridge settings.
type Config struct {
	// MountPoint is the directory the application reads and writes its
	// persistent data under. Empty disables persistence. A --mount flag
	// in argv overrides it.
	MountPoint string

	// CheckpointInterval is how often a Running bridge exports the mount.
	// Zero disables periodic checkpoints.
	CheckpointInterval time.Duration

	// ImportWait bounds how long Initialize waits for the import before
	// loading the application. Zero means load without waiting.
	ImportWait time.Duration

	// SlowStepThreshold is the step duration above which a warning is
	// logged. Zero uses embedded.DefaultSlowStepThreshold; negative
	// disables the warning.
	SlowStepThreshold time.Duration
}

// SetDefaults fills zero fields.
func (c *Config) SetDefaults() {
	if c.SlowStepThreshold == 0 {
		c.SlowStepThreshold = embedded.DefaultSlowStepThreshold
	}
}

// Validate rejects negative durations that have no meaning.
func (c Config) Validate() error {
	if c.CheckpointInterval < 0 {
		return configError("CheckpointInterval must not be negative")
	}
	if c.ImportWait < 0 {
		return configError("ImportWait must not be negative")
	}
	return nil
}

type configError string

func (e configError) Error() string { return "bridge: invalid config: " + string(e) }

// DirtyTracker reports whether the mount changed since the last check.
// *storage.MountWatcher satisfies it.
type DirtyTracker interface {
	TakeDirty() bool
	MarkDirty()
}

// Option configures optional behavior of a Bridge.
type Option func(*options)

type options struct {
	logger       log.Logger
	eventHandler EventHandler
	sync         *storage.Synchronizer
	dirty        DirtyTracker
	usage        io.Writer
	now          func() time.Time
}

func defaultOptions() options {
	return options{
		logger:       log.NoopLogger{},
		eventHandler: BaseEventHandler{},
		usage:        os.Stderr,
		now:          time.Now,
	}
}

// WithLogger sets the logger. If not provided, nothing is logged.
func WithLogger(logger log.Logger) Option {
	return func(o *options) { o.logger = log.OrNoop(logger) }
}

// WithEventHandler sets a handler for bridge events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		if handler != nil {
			o.eventHandler = handler
		}
	}
}

// WithSynchronizer sets the storage synchronizer used for import, export
// and checkpoints. Without one, persistence is a no-op.
func WithSynchronizer(s *storage.Synchronizer) Option {
	return func(o *options) { o.sync = s }
}

// WithDirtyTracker limits periodic checkpoints to intervals in which the
// mount changed.
func WithDirtyTracker(t DirtyTracker) Option {
	return func(o *options) { o.dirty = t }
}

// WithUsageOutput sets where --help output goes. Defaults to stderr.
func WithUsageOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.usage = w
		}
	}
}
