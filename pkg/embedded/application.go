package embedded

import "errors"

// ErrQuit is returned by Application.Step when the application (or the user
// driving it) asks to quit. It ends the run without being treated as a
// failure.
var ErrQuit = errors.New("embedded: quit requested")

// Application is the three-call contract of a wrapped application.
//
// Step must be cheap and must not block; it is called once per host tick.
type Application interface {
	Load(args []string) error
	Step() error
	Unload() error
}

// Func adapts plain functions to Application. Nil members are no-ops.
type Func struct {
	LoadFunc   func(args []string) error
	StepFunc   func() error
	UnloadFunc func() error
}

func (f Func) Load(args []string) error {
	if f.LoadFunc == nil {
		return nil
	}
	return f.LoadFunc(args)
}

func (f Func) Step() error {
	if f.StepFunc == nil {
		return nil
	}
	return f.StepFunc()
}

func (f Func) Unload() error {
	if f.UnloadFunc == nil {
		return nil
	}
	return f.UnloadFunc()
}
