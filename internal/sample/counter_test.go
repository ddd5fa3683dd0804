package sample

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/framebridge/pkg/bridge"
	"github.com/bft-labs/framebridge/pkg/embedded"
	"github.com/bft-labs/framebridge/pkg/host"
	"github.com/bft-labs/framebridge/pkg/lifecycle"
	"github.com/bft-labs/framebridge/pkg/storage"
)

func TestCounter_FreshLoadStepUnload(t *testing.T) {
	mount := filepath.Join(t.TempDir(), "xmoto")
	c := NewCounter(mount, nil)
	c.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	require.NoError(t, c.Load([]string{"counter"}))
	for i := 0; i < 3; i++ {
		require.NoError(t, c.Step())
	}
	require.NoError(t, c.Unload())

	p, err := ReadProgress(mount)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), p.Ticks)
	assert.Equal(t, 1, p.Sessions)
	assert.True(t, p.LastSaved.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)))
}

func TestCounter_RestoresProgress(t *testing.T) {
	mount := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(mount, ProgressFile), []byte("ticks = 40\nsessions = 2\n"), 0o644))

	c := NewCounter(mount, nil)
	require.NoError(t, c.Load([]string{"counter"}))
	require.NoError(t, c.Step())

	assert.Equal(t, uint64(41), c.Progress().Ticks)
	assert.Equal(t, 3, c.Progress().Sessions)
	assert.Equal(t, uint64(1), c.Steps())
}

func TestCounter_CorruptProgressFailsLoad(t *testing.T) {
	mount := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(mount, ProgressFile), []byte("ticks = ="), 0o644))

	err := NewCounter(mount, nil).Load([]string{"counter"})
	assert.ErrorContains(t, err, "parse progress")
}

func TestCounter_Args(t *testing.T) {
	t.Run("fail load", func(t *testing.T) {
		err := NewCounter("", nil).Load([]string{"counter", "--fail-load"})
		assert.Error(t, err)
	})

	t.Run("unknown flag", func(t *testing.T) {
		err := NewCounter("", nil).Load([]string{"counter", "--turbo"})
		assert.ErrorContains(t, err, "counter args")
	})

	t.Run("bridge flags accepted", func(t *testing.T) {
		err := NewCounter("", nil).Load([]string{"counter", "--mount", "/xmoto"})
		assert.NoError(t, err)
	})

	t.Run("fail at", func(t *testing.T) {
		c := NewCounter("", nil)
		require.NoError(t, c.Load([]string{"counter", "--fail-at", "2"}))
		assert.NoError(t, c.Step())
		assert.Error(t, c.Step())
	})

	t.Run("quit at", func(t *testing.T) {
		c := NewCounter("", nil)
		require.NoError(t, c.Load([]string{"counter", "--quit-at=2"}))
		assert.NoError(t, c.Step())
		assert.True(t, errors.Is(c.Step(), embedded.ErrQuit))
	})
}

func TestCounter_SaveEvery(t *testing.T) {
	mount := t.TempDir()
	c := NewCounter(mount, nil)
	require.NoError(t, c.Load([]string{"counter", "--save-every", "2"}))

	require.NoError(t, c.Step())
	_, err := os.Stat(filepath.Join(mount, ProgressFile))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	require.NoError(t, c.Step())
	p, err := ReadProgress(mount)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), p.Ticks)
}

func TestCounter_NoMountKeepsMemoryOnly(t *testing.T) {
	c := NewCounter("", nil)
	require.NoError(t, c.Load(nil))
	require.NoError(t, c.Step())
	assert.NoError(t, c.Unload())
	assert.Equal(t, uint64(1), c.Progress().Ticks)
}

// runSession drives one full bridge session over a directory backend and
// returns the counter it ran.
func runSession(t *testing.T, mount, durable string, quitAt string) *Counter {
	t.Helper()
	sync := storage.NewSynchronizer(storage.NewDirBackend(durable))
	counter := NewCounter(mount, nil)

	b, err := bridge.New(counter, bridge.Config{MountPoint: mount, ImportWait: 5 * time.Second},
		bridge.WithSynchronizer(sync))
	require.NoError(t, err)

	ok, err := b.Initialize([]string{"counter", "--quit-at", quitAt})
	require.NoError(t, err)
	require.True(t, ok)

	sched := host.NewManualScheduler()
	require.NoError(t, b.Start(sched))
	sched.RunUntilCancelled(1000)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, sync.Wait(ctx))
	require.Equal(t, lifecycle.StateTerminated, b.State())

	last, ok := sync.Last(storage.Export)
	require.True(t, ok)
	require.NoError(t, last.Err)
	return counter
}

func TestCounter_SessionsPersistThroughBridge(t *testing.T) {
	root := t.TempDir()
	mount := filepath.Join(root, "xmoto")
	durable := filepath.Join(root, "durable")

	first := runSession(t, mount, durable, "5")
	assert.Equal(t, uint64(5), first.Steps())

	// The working mount is scratch space; only the durable copy survives.
	require.NoError(t, os.RemoveAll(mount))

	second := runSession(t, mount, durable, "3")
	assert.Equal(t, uint64(8), second.Progress().Ticks)
	assert.Equal(t, 2, second.Progress().Sessions)

	p, err := ReadProgress(storage.NewDirBackend(durable).Path(mount))
	require.NoError(t, err)
	assert.Equal(t, uint64(8), p.Ticks)
}
