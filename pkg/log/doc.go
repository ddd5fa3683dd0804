// Package log provides the structured logging abstraction used by framebridge
// components.
//
// Components depend only on the Logger interface. The zerolog adapter is the
// production implementation; NoopLogger discards everything and is the
// default for library use and tests.
//
// # Usage
//
//	logger := log.NewZerologAdapter(log.LevelInfo)
//	logger.Info("state transition",
//	    log.State("Running"),
//	    log.Op("step"),
//	)
//
// Failure logs should always carry the lifecycle state and the operation
// that failed so that a run can be diagnosed from the log alone.
package log
