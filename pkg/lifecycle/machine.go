package lifecycle

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/bft-labs/framebridge/pkg/log"
)

// Lifecycle errors.
var (
	ErrAlreadyInitialized = errors.New("lifecycle: already initialized")
	ErrInvalidTransition  = errors.New("lifecycle: invalid transition")
	ErrTerminal           = errors.New("lifecycle: state is terminal")
)

// Machine owns the canonical lifecycle state.
type Machine struct {
	state        atomic.Int32
	logger       log.Logger
	eventEmitter EventEmitter
}

// NewMachine creates a machine in StateUninitialized.
func NewMachine(logger log.Logger, emitter EventEmitter) *Machine {
	return &Machine{
		logger:       log.OrNoop(logger),
		eventEmitter: emitter,
	}
}

// State returns the current lifecycle state.
func (m *Machine) State() State {
	return State(m.state.Load())
}

// IsTerminal reports whether the machine has reached Terminated or Failed.
func (m *Machine) IsTerminal() bool {
	return m.State().Terminal()
}

// IsLooping reports whether the machine is Running or Paused.
func (m *Machine) IsLooping() bool {
	return m.State().Looping()
}

// Begin moves Uninitialized -> Initializing. It fails with
// ErrAlreadyInitialized, leaving the state untouched, when called in any
// other state.
func (m *Machine) Begin() error {
	if !m.state.CompareAndSwap(int32(StateUninitialized), int32(StateInitializing)) {
		return fmt.Errorf("%w (state %s)", ErrAlreadyInitialized, m.State())
	}
	m.announce(StateUninitialized, StateInitializing, "initialize called")
	return nil
}

// TransitionTo attempts to transition to a new state.
// Returns an error if the transition is not valid; the state is unchanged.
func (m *Machine) TransitionTo(newState State, reason string) error {
	for {
		oldState := m.State()

		if oldState.Terminal() {
			return fmt.Errorf("%w: %s -> %s", ErrTerminal, oldState, newState)
		}
		if !CanTransition(oldState, newState) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, oldState, newState)
		}

		// External callers never write the state; a lost CAS means another
		// transition won the race, so re-validate against the new value.
		if m.state.CompareAndSwap(int32(oldState), int32(newState)) {
			m.announce(oldState, newState, reason)
			return nil
		}
	}
}

func (m *Machine) announce(oldState, newState State, reason string) {
	if m.eventEmitter != nil {
		m.eventEmitter.OnStateChange(oldState, newState, reason)
	}

	m.logger.Info("state transition",
		log.String("from", oldState.String()),
		log.String("to", newState.String()),
		log.Reason(reason),
	)
}
