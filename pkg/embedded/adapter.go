package embedded

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/bft-labs/framebridge/pkg/log"
)

// DefaultSlowStepThreshold is the step duration above which a warning is logged.
const DefaultSlowStepThreshold = 50 * time.Millisecond

// Slow-step warnings are throttled so a stalled frame loop at 60 FPS does not
// flood the log. Suppressed warnings are counted into the next one emitted.
const (
	slowWarnEvery = time.Second
	slowWarnBurst = 5
)

// Adapter wraps an Application and normalizes every call into a Result.
type Adapter struct {
	app           Application
	logger        log.Logger
	slowThreshold time.Duration
	slowWarn      *rate.Limiter
	suppressed    atomic.Uint64

	loaded   atomic.Bool
	unloaded atomic.Bool
	steps    atomic.Uint64
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithLogger sets the adapter logger.
func WithLogger(l log.Logger) AdapterOption {
	return func(a *Adapter) { a.logger = log.OrNoop(l) }
}

// WithSlowStepThreshold sets the slow-step warning threshold. Zero disables
// the warning.
func WithSlowStepThreshold(d time.Duration) AdapterOption {
	return func(a *Adapter) { a.slowThreshold = d }
}

// NewAdapter wraps app.
func NewAdapter(app Application, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		app:           app,
		logger:        log.NoopLogger{},
		slowThreshold: DefaultSlowStepThreshold,
		slowWarn:      rate.NewLimiter(rate.Every(slowWarnEvery), slowWarnBurst),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Load calls Application.Load. A successful Load marks the adapter loaded.
func (a *Adapter) Load(args []string) Result {
	res := a.call("load", func() error { return a.app.Load(args) })
	if res.Quit() {
		// Quitting during load means the application never came up.
		res = Failure(ErrQuit.Error())
	}
	if res.OK() {
		a.loaded.Store(true)
	}
	return res
}

// Step calls Application.Step once.
func (a *Adapter) Step() Result {
	res := a.call("step", a.app.Step)
	n := a.steps.Add(1)

	if a.slowThreshold > 0 && res.Duration > a.slowThreshold {
		if !a.slowWarn.Allow() {
			a.suppressed.Add(1)
			return res
		}
		a.logger.Warn("slow step",
			log.Op("step"),
			log.Uint64("step", n),
			log.Duration("took", res.Duration),
			log.Duration("threshold", a.slowThreshold),
			log.Uint64("suppressed", a.suppressed.Swap(0)),
		)
	}
	return res
}

// Unload calls Application.Unload at most once, and only after a successful
// Load. Skipped calls return Ok.
func (a *Adapter) Unload() Result {
	if !a.loaded.Load() {
		a.logger.Debug("unload skipped, application never loaded", log.Op("unload"))
		return Ok()
	}
	if !a.unloaded.CompareAndSwap(false, true) {
		return Ok()
	}
	return a.call("unload", a.app.Unload)
}

// Loaded reports whether Load completed successfully.
func (a *Adapter) Loaded() bool { return a.loaded.Load() }

// Steps returns the number of Step calls made.
func (a *Adapter) Steps() uint64 { return a.steps.Load() }

func (a *Adapter) call(op string, fn func() error) (res Result) {
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		if r := recover(); r != nil {
			res = Result{
				Status:   StatusFailed,
				Message:  fmt.Sprintf("panic in %s: %v", op, r),
				Panicked: true,
				Duration: time.Since(start),
			}
		}
		if res.Failed() {
			a.logger.Error("application call failed",
				log.Op(op),
				log.String("message", res.Message),
				log.Bool("panic", res.Panicked),
			)
		}
	}()

	err := fn()
	switch {
	case err == nil:
		return Ok()
	case errors.Is(err, ErrQuit):
		return Result{Status: StatusQuit, Message: err.Error()}
	default:
		return Failure(err.Error())
	}
}
