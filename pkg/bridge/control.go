package bridge

import (
	"sync/atomic"

	"github.com/bft-labs/framebridge/pkg/lifecycle"
	"github.com/bft-labs/framebridge/pkg/storage"
)

// controlFlags are level-triggered requests written by any goroutine and
// read by the tick. Repeated writes are idempotent.
type controlFlags struct {
	stop  atomic.Bool
	pause atomic.Bool
	flush atomic.Bool

	stopReason atomic.Pointer[string]
}

func (f *controlFlags) requestStop(reason string) {
	f.stopReason.CompareAndSwap(nil, &reason)
	f.stop.Store(true)
}

func (f *controlFlags) reason() string {
	if r := f.stopReason.Load(); r != nil {
		return *r
	}
	return "stop requested"
}

// RequestPause asks the next tick to pause the application.
func (b *Bridge) RequestPause() { b.flags.pause.Store(true) }

// RequestResume clears a pause request.
func (b *Bridge) RequestResume() { b.flags.pause.Store(false) }

// RequestStop asks the next tick to begin shutdown. Stop wins over pause.
func (b *Bridge) RequestStop() { b.flags.requestStop("stop requested") }

// RequestFlush asks the next tick to export the mount if no export is in
// flight.
func (b *Bridge) RequestFlush() { b.flags.flush.Store(true) }

// Pause is RequestPause.
func (b *Bridge) Pause() { b.RequestPause() }

// Resume is RequestResume.
func (b *Bridge) Resume() { b.RequestResume() }

// Stop is RequestStop.
func (b *Bridge) Stop() { b.RequestStop() }

// QueryIsRunning reports whether the bridge is Running or Paused.
func (b *Bridge) QueryIsRunning() bool { return b.machine.IsLooping() }

// IsRunning is QueryIsRunning as 1 or 0, for hosts without booleans.
func (b *Bridge) IsRunning() int {
	if b.QueryIsRunning() {
		return 1
	}
	return 0
}

// FrameCount returns the number of steps run so far.
func (b *Bridge) FrameCount() uint64 { return b.frames.Load() }

// Status is a point-in-time snapshot for status endpoints.
type Status struct {
	State          lifecycle.State
	Running        bool
	Frames         uint64
	PauseRequested bool
	StopRequested  bool
	MountPoint     string
	Imports        uint64
	Exports        uint64
	LastImport     *storage.Result
	LastExport     *storage.Result
}

// Status returns a snapshot. Fields are read independently, so they may
// straddle a tick.
func (b *Bridge) Status() Status {
	st := b.machine.State()
	s := Status{
		State:          st,
		Running:        st.Looping(),
		Frames:         b.frames.Load(),
		PauseRequested: b.flags.pause.Load(),
		StopRequested:  b.flags.stop.Load(),
		MountPoint:     b.MountPoint(),
		Imports:        b.sync.Issued(storage.Import),
		Exports:        b.sync.Issued(storage.Export),
	}
	if r, ok := b.sync.Last(storage.Import); ok {
		s.LastImport = &r
	}
	if r, ok := b.sync.Last(storage.Export); ok {
		s.LastExport = &r
	}
	return s
}
