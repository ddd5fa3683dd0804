// Package framebridge runs a blocking-style embedded application under a
// host that calls back one non-blocking tick at a time.
//
// Example usage:
//
//	sync := storage.NewSynchronizer(storage.NewDirBackend("/var/lib/game"))
//	err := framebridge.Run(ctx, app, framebridge.Config{MountPoint: "/xmoto"},
//	    os.Args, 60, bridge.WithSynchronizer(sync))
//
// Packages under pkg/ expose the pieces individually: pkg/bridge for the
// frame driver and control surface, pkg/lifecycle for the state machine,
// pkg/embedded for the application adapter, pkg/storage for persistence
// and pkg/host for schedulers.
package framebridge

import (
	"context"

	"github.com/bft-labs/framebridge/pkg/bridge"
	"github.com/bft-labs/framebridge/pkg/embedded"
	"github.com/bft-labs/framebridge/pkg/host"
	"github.com/bft-labs/framebridge/pkg/lifecycle"
)

// Config holds bridge settings.
type Config = bridge.Config

// Bridge drives one embedded application.
type Bridge = bridge.Bridge

// Application is the load / step / unload contract of an embedded program.
type Application = embedded.Application

// State is a lifecycle state.
type State = lifecycle.State

// ErrQuit is returned by Application.Step to end the session normally.
var ErrQuit = embedded.ErrQuit

// New creates a Bridge for app.
func New(app Application, cfg Config, opts ...bridge.Option) (*Bridge, error) {
	return bridge.New(app, cfg, opts...)
}

// Drive starts b on s and blocks until the bridge deregisters itself. When
// ctx is done first, it requests a stop and waits for shutdown to finish.
func Drive(ctx context.Context, b *Bridge, s *host.TickerScheduler) error {
	if err := b.Start(s); err != nil {
		return err
	}
	select {
	case <-s.Done():
		return nil
	case <-ctx.Done():
	}
	b.Stop()
	<-s.Done()
	return nil
}

// Run initializes app from argv and drives it at fps ticks per second until
// it terminates or ctx is done. It returns nil after --help.
func Run(ctx context.Context, app Application, cfg Config, argv []string, fps int, opts ...bridge.Option) error {
	b, err := New(app, cfg, opts...)
	if err != nil {
		return err
	}
	ok, err := b.Initialize(argv)
	if !ok {
		_ = b.Shutdown()
		return err
	}
	return Drive(ctx, b, host.NewTickerScheduler(fps))
}
