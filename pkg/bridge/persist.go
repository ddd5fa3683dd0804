package bridge

import (
	"errors"
	"time"

	"github.com/bft-labs/framebridge/pkg/log"
	"github.com/bft-labs/framebridge/pkg/storage"
)

const (
	triggerInitialize = "initialize"
	triggerCheckpoint = "checkpoint"
	triggerFlush      = "flush"
	triggerShutdown   = "shutdown"
)

// startImport issues the import for the mount and, when ImportWait is set,
// waits a bounded time for it. Import failure never fails initialization.
func (b *Bridge) startImport() {
	if b.mount == "" {
		b.logger.Info("no mount point, persistence disabled", log.State(b.stateName()))
		return
	}

	b.importIssued.Store(true)
	err := b.sync.Import(b.mount, func(res storage.Result) {
		close(b.importDone)
		b.syncDone(res, triggerInitialize)
	})
	if err != nil {
		b.importIssued.Store(false)
		b.logger.Warn("import not issued, continuing without it",
			log.State(b.stateName()),
			log.Op("import"),
			log.Mount(b.mount),
			log.Err(err),
		)
		return
	}

	if b.config.ImportWait <= 0 {
		return
	}
	timer := time.NewTimer(b.config.ImportWait)
	defer timer.Stop()
	select {
	case <-b.importDone:
	case <-timer.C:
		b.logger.Warn("import still running, loading anyway",
			log.State(b.stateName()),
			log.Op("import"),
			log.Mount(b.mount),
			log.Duration("waited", b.config.ImportWait),
		)
	}
}

// importPending reports whether an issued import has not completed yet.
func (b *Bridge) importPending() bool {
	if !b.importIssued.Load() {
		return false
	}
	select {
	case <-b.importDone:
		return false
	default:
		return true
	}
}

// export issues a fire-and-forget export of the mount. It returns false
// when nothing was issued.
func (b *Bridge) export(trigger string) bool {
	if b.mount == "" {
		return false
	}
	if b.importPending() {
		b.logger.Warn("import still in flight, export skipped",
			log.State(b.stateName()),
			log.Op("export"),
			log.Mount(b.mount),
			log.String("trigger", trigger),
		)
		return false
	}
	err := b.sync.Export(b.mount, func(res storage.Result) {
		b.syncDone(res, trigger)
	})
	if err != nil {
		lvl := b.logger.Warn
		if errors.Is(err, storage.ErrInFlight) {
			lvl = b.logger.Debug
		}
		lvl("export not issued",
			log.State(b.stateName()),
			log.Op("export"),
			log.Mount(b.mount),
			log.String("trigger", trigger),
			log.Err(err),
		)
		return false
	}
	return true
}

// finalExport issues the single shutdown export. If the import or a
// checkpoint export is still in flight, the final export is chained behind
// it and issued from its completion.
func (b *Bridge) finalExport() {
	if b.mount == "" {
		return
	}
	if !b.importPending() && b.export(triggerShutdown) {
		return
	}
	if !b.finalBlocked() {
		return
	}
	b.finalPending.Store(true)
	b.logger.Info("final export deferred until in-flight sync completes",
		log.State(b.stateName()),
		log.Op("export"),
		log.Mount(b.mount),
	)
	// The blocking operation may have finished before the flag was set.
	if !b.finalBlocked() && b.finalPending.CompareAndSwap(true, false) {
		b.export(triggerShutdown)
	}
}

func (b *Bridge) finalBlocked() bool {
	return b.importPending() || b.sync.InFlight(storage.Export)
}

func (b *Bridge) maybeFlush() {
	if !b.flags.flush.Swap(false) {
		return
	}
	b.export(triggerFlush)
}

// maybeCheckpoint exports the mount when CheckpointInterval has elapsed
// since the last checkpoint and the mount changed, if that is tracked.
func (b *Bridge) maybeCheckpoint() {
	if b.config.CheckpointInterval <= 0 || b.mount == "" {
		return
	}
	now := b.opts.now()
	if now.Sub(b.lastCheckpoint) < b.config.CheckpointInterval {
		return
	}
	b.lastCheckpoint = now

	if b.opts.dirty != nil && !b.opts.dirty.TakeDirty() {
		return
	}
	if !b.export(triggerCheckpoint) && b.opts.dirty != nil {
		b.opts.dirty.MarkDirty()
	}
}

// syncDone runs on the storage goroutine. It only logs and reports.
func (b *Bridge) syncDone(res storage.Result, trigger string) {
	fields := []log.Field{
		log.State(b.stateName()),
		log.Op(res.Direction.String()),
		log.Mount(res.MountPoint),
		log.String("trigger", trigger),
		log.Duration("took", res.Duration),
	}
	if res.Success() {
		b.logger.Info("sync complete", fields...)
	} else {
		b.logger.Warn("sync failed, continuing without it", append(fields, log.Err(res.Err))...)
		if trigger == triggerCheckpoint && b.opts.dirty != nil {
			b.opts.dirty.MarkDirty()
		}
	}

	b.events.OnSync(SyncEvent{
		Direction:  res.Direction,
		MountPoint: res.MountPoint,
		Err:        res.Err,
		Duration:   res.Duration,
		Trigger:    trigger,
	})

	if trigger != triggerShutdown && b.finalPending.CompareAndSwap(true, false) {
		b.export(triggerShutdown)
	}
}

func (b *Bridge) stateName() string { return b.machine.State().String() }
