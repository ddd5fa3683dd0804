// Package storage provides the persistent storage synchronizer of a bridged
// application.
//
// A single mount point (a working directory the embedded application reads
// and writes) is synchronized in from a durable Backend before the
// application loads, and synchronized out after it unloads. Both directions
// are asynchronous: Import and Export start the backend call and return
// immediately, and completion is reported through a callback that only logs
// and records. Each direction has a single in-flight slot; a second request
// while one is outstanding is refused with ErrInFlight.
//
// # Backends
//
//   - [DirBackend]: mirrors the mount to a durable directory with atomic file writes
//   - [RedisBackend]: stores the mount as a Redis hash
//   - [NopBackend]: persistence disabled
//
// [MountWatcher] tracks whether the mount changed since the last export so
// periodic checkpoints can skip clean mounts.
package storage
