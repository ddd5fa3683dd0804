// Package lifecycle provides the authoritative lifecycle state machine of a
// bridged application.
//
// The state lives in a single atomic value so that the frame driver and any
// external caller can read it without locks. Transitions are validated
// against a fixed table and applied with compare-and-swap; once a terminal
// state (Terminated or Failed) is reached no further transition is accepted.
//
// # State Machine
//
// Valid state transitions:
//   - Uninitialized -> Initializing
//   - Initializing -> Ready, Failed
//   - Ready -> Running, ShuttingDown
//   - Running -> Paused, ShuttingDown
//   - Paused -> Running, ShuttingDown
//   - ShuttingDown -> Terminated
//
// # Usage
//
//	m := lifecycle.NewMachine(logger, emitter)
//	if err := m.Begin(); err != nil {
//	    return err // already initialized
//	}
//	...
//	_ = m.TransitionTo(lifecycle.StateReady, "load ok")
package lifecycle
