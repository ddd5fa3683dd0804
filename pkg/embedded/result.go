package embedded

import "time"

// Status is the outcome class of an adapter call.
type Status int

const (
	StatusOK Status = iota
	StatusFailed
	StatusQuit
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusFailed:
		return "failed"
	case StatusQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Result is the normalized outcome of Load, Step or Unload.
type Result struct {
	Status  Status
	Message string
	// Panicked is set when the failure came from a recovered panic.
	Panicked bool
	Duration time.Duration
}

// OK reports whether the call succeeded.
func (r Result) OK() bool { return r.Status == StatusOK }

// Failed reports whether the call failed.
func (r Result) Failed() bool { return r.Status == StatusFailed }

// Quit reports whether the application asked to quit.
func (r Result) Quit() bool { return r.Status == StatusQuit }

func (r Result) String() string {
	if r.Message == "" {
		return r.Status.String()
	}
	return r.Status.String() + ": " + r.Message
}

// Ok builds a successful result.
func Ok() Result { return Result{Status: StatusOK} }

// Failure builds a failed result with the given message.
func Failure(message string) Result {
	return Result{Status: StatusFailed, Message: message}
}
