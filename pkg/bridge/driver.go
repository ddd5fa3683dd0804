package bridge

import (
	"errors"
	"fmt"

	"github.com/bft-labs/framebridge/pkg/lifecycle"
	"github.com/bft-labs/framebridge/pkg/log"
)

// OnFrame runs one tick. The host scheduler calls it; it never blocks on
// persistence and performs at most one lifecycle transition.
//
// It returns ErrNotRunning outside Running, Paused and ShuttingDown, and
// ErrReentrant when called while another tick is in progress. Neither has
// side effects.
func (b *Bridge) OnFrame() error {
	if !b.inTick.CompareAndSwap(false, true) {
		return ErrReentrant
	}
	defer b.inTick.Store(false)

	st := b.machine.State()
	switch st {
	case lifecycle.StateRunning, lifecycle.StatePaused:
	case lifecycle.StateShuttingDown:
		b.finishShutdown()
		return nil
	default:
		return fmt.Errorf("%w (state %s)", ErrNotRunning, st)
	}

	if b.flags.stop.Load() {
		b.beginShutdown(b.flags.reason())
		return nil
	}

	b.maybeFlush()

	if b.flags.pause.Load() {
		if st == lifecycle.StateRunning {
			_ = b.machine.TransitionTo(lifecycle.StatePaused, "pause requested")
		}
		return nil
	}

	transitioned := false
	if st == lifecycle.StatePaused {
		_ = b.machine.TransitionTo(lifecycle.StateRunning, "resume requested")
		transitioned = true
	}

	res := b.adapter.Step()
	frame := b.frames.Add(1)
	b.events.OnStep(StepEvent{
		Frame:    frame,
		Status:   res.Status,
		Message:  res.Message,
		Duration: res.Duration,
	})

	var reason string
	switch {
	case res.Failed():
		reason = "step failed: " + res.Message
	case res.Quit():
		reason = "application quit"
	default:
		b.maybeCheckpoint()
		return nil
	}

	if transitioned {
		// This tick already moved Paused -> Running; shut down on the next.
		b.flags.requestStop(reason)
		return nil
	}
	b.beginShutdown(reason)
	return nil
}

// tick is the callback registered with the host scheduler.
func (b *Bridge) tick() {
	err := b.OnFrame()
	if err == nil {
		return
	}
	st := b.machine.State()
	if st.Terminal() {
		b.deregister()
		return
	}
	if !errors.Is(err, ErrNotRunning) || st != lifecycle.StateReady {
		b.logger.Warn("tick rejected", log.State(st.String()), log.Op("tick"), log.Err(err))
	}
}

// Shutdown runs shutdown sequencing from the calling goroutine, for hosts
// that quit outside a tick. It is idempotent and a no-op before Initialize
// or after a terminal state. If a tick is in progress it only requests a
// stop and returns ErrReentrant; the following ticks finish the job.
func (b *Bridge) Shutdown() error {
	if !b.inTick.CompareAndSwap(false, true) {
		b.flags.requestStop("host quit")
		return ErrReentrant
	}
	defer b.inTick.Store(false)

	switch st := b.machine.State(); st {
	case lifecycle.StateUninitialized, lifecycle.StateTerminated, lifecycle.StateFailed:
		b.deregister()
		return nil
	case lifecycle.StateInitializing:
		return fmt.Errorf("%w (state %s)", ErrNotReady, st)
	case lifecycle.StateReady, lifecycle.StateRunning, lifecycle.StatePaused:
		b.beginShutdown("host quit")
	}
	b.finishShutdown()
	return nil
}

func (b *Bridge) beginShutdown(reason string) {
	if err := b.machine.TransitionTo(lifecycle.StateShuttingDown, reason); err != nil {
		b.logger.Error("cannot begin shutdown",
			log.State(b.machine.State().String()),
			log.Op("shutdown"),
			log.Err(err),
		)
	}
}

// finishShutdown unloads, exports and terminates. It runs once.
func (b *Bridge) finishShutdown() {
	b.shutdownOnce.Do(func() {
		st := lifecycle.StateShuttingDown.String()
		if res := b.adapter.Unload(); !res.OK() {
			b.logger.Error("unload failed, continuing shutdown",
				log.State(st),
				log.Op("unload"),
				log.String("message", res.Message),
			)
		}
		b.finalExport()

		reason := "shutdown complete"
		if err := b.machine.TransitionTo(lifecycle.StateTerminated, reason); err != nil {
			b.logger.Error("cannot terminate", log.State(st), log.Op("shutdown"), log.Err(err))
		}
		b.deregister()
	})
}

// failureShutdown runs after a failed Load. The application never came up,
// so unload is skipped; the mount is exported only if the import had
// finished and filled it.
func (b *Bridge) failureShutdown() {
	b.shutdownOnce.Do(func() {
		st := lifecycle.StateFailed.String()
		if !b.importIssued.Load() {
			b.logger.Debug("no mount established, nothing to export", log.State(st), log.Op("export"))
			return
		}
		if b.importPending() {
			b.logger.Warn("import still in flight, export skipped",
				log.State(st),
				log.Op("export"),
				log.Mount(b.mount),
			)
			return
		}
		b.export(triggerShutdown)
	})
}

func (b *Bridge) deregister() {
	b.schedMu.Lock()
	s := b.scheduler
	b.scheduler = nil
	b.schedMu.Unlock()
	if s != nil {
		s.CancelMainLoop()
	}
}
