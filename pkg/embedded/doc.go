// Package embedded adapts a blocking-style application (load, step, unload)
// to the non-throwing Result values consumed by the frame driver.
//
// The Adapter is the translation boundary: errors and panics raised by the
// wrapped Application are converted into Failed results and never propagate
// past it.
package embedded
