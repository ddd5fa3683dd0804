// Package host provides host schedulers that repeatedly invoke a registered
// main-loop callback, one tick at a time.
//
// A callback is never re-entered: ticks are strictly sequential. A callback
// may cancel its own registration from inside a tick; the current tick
// finishes and no further tick is started.
package host
