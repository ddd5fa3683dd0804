package bridge

import (
	"errors"

	"github.com/bft-labs/framebridge/pkg/lifecycle"
)

// Bridge errors.
var (
	// ErrAlreadyInitialized is returned by a second Initialize call.
	ErrAlreadyInitialized = lifecycle.ErrAlreadyInitialized

	ErrArgument    = errors.New("bridge: invalid arguments")
	ErrLoad        = errors.New("bridge: application load failed")
	ErrNotReady    = errors.New("bridge: not ready")
	ErrNotRunning  = errors.New("bridge: not running")
	ErrReentrant   = errors.New("bridge: tick already in progress")
	ErrNoScheduler = errors.New("bridge: nil scheduler")
	ErrNoApp       = errors.New("bridge: nil application")
)
