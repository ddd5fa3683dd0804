// Package bridge drives a blocking-style embedded application from a host
// that only calls back one non-blocking tick at a time.
//
// # Basic Usage
//
//	b, err := bridge.New(app, bridge.Config{MountPoint: "/xmoto"},
//	    bridge.WithSynchronizer(storage.NewSynchronizer(backend)),
//	    bridge.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//
//	ok, err := b.Initialize(os.Args)
//	if !ok {
//	    b.Shutdown()
//	    return err
//	}
//	if err := b.Start(host.NewTickerScheduler(60)); err != nil {
//	    return err
//	}
//
// # Ticks
//
// The scheduler calls [Bridge.OnFrame] repeatedly. Each tick reads the
// lifecycle state and the control flags once, then does exactly one of:
// step the application, idle while paused, enter ShuttingDown, or finish
// shutdown (unload, export, Terminated) and deregister from the scheduler.
// OnFrame never blocks on persistence.
//
// # Control
//
// [Bridge.Pause], [Bridge.Resume], [Bridge.Stop] and [Bridge.RequestFlush]
// only set flags and may be called from any goroutine at any time. The
// next tick observes them.
//
// # Event Handling
//
// Implement [EventHandler] (embedding [BaseEventHandler] to pick only some
// callbacks) and pass it via [WithEventHandler]. State and step events run
// on the tick goroutine; sync events run on the storage goroutine that
// finished the operation. Handlers must return quickly.
package bridge
