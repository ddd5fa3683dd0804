package lifecycle

// State represents the lifecycle state of a bridged application.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateRunning
	StatePaused
	StateShuttingDown
	StateTerminated
	StateFailed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateInitializing:
		return "Initializing"
	case StateReady:
		return "Ready"
	case StateRunning:
		return "Running"
	case StatePaused:
		return "Paused"
	case StateShuttingDown:
		return "ShuttingDown"
	case StateTerminated:
		return "Terminated"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Terminal reports whether s is Terminated or Failed.
func (s State) Terminal() bool {
	return s == StateTerminated || s == StateFailed
}

// Looping reports whether s is a state in which the frame driver is
// registered with the host scheduler and has not yet stopped.
func (s State) Looping() bool {
	return s == StateRunning || s == StatePaused
}

// EventEmitter is called when lifecycle state changes.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// allowed lists the successors of every non-terminal state.
var allowed = map[State][]State{
	StateUninitialized: {StateInitializing},
	StateInitializing:  {StateReady, StateFailed},
	StateReady:         {StateRunning, StateShuttingDown},
	StateRunning:       {StatePaused, StateShuttingDown},
	StatePaused:        {StateRunning, StateShuttingDown},
	StateShuttingDown:  {StateTerminated},
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to State) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}
