package bridge

import (
	"time"

	"github.com/bft-labs/framebridge/pkg/embedded"
	"github.com/bft-labs/framebridge/pkg/lifecycle"
	"github.com/bft-labs/framebridge/pkg/storage"
)

// StateChangeEvent reports a lifecycle transition.
type StateChangeEvent struct {
	Previous lifecycle.State
	Current  lifecycle.State
	Reason   string
}

// StepEvent reports one application step.
type StepEvent struct {
	Frame    uint64
	Status   embedded.Status
	Message  string
	Duration time.Duration
}

// SyncEvent reports a finished storage operation.
type SyncEvent struct {
	Direction  storage.Direction
	MountPoint string
	Err        error
	Duration   time.Duration
	// Trigger is what issued the operation: initialize, checkpoint, flush
	// or shutdown.
	Trigger string
}

// EventHandler receives bridge events.
type EventHandler interface {
	OnStateChange(StateChangeEvent)
	OnStep(StepEvent)
	OnSync(SyncEvent)
}

// BaseEventHandler implements EventHandler with no-ops.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent) {}
func (BaseEventHandler) OnStep(StepEvent)               {}
func (BaseEventHandler) OnSync(SyncEvent)               {}

// eventEmitterWrapper adapts EventHandler to lifecycle.EventEmitter.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e eventEmitterWrapper) OnStateChange(previous, current lifecycle.State, reason string) {
	e.handler.OnStateChange(StateChangeEvent{
		Previous: previous,
		Current:  current,
		Reason:   reason,
	})
}
