package main

import (
	"bytes"
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/framebridge/internal/cliconfig"
	"github.com/bft-labs/framebridge/internal/sample"
	"github.com/bft-labs/framebridge/pkg/bridge"
	"github.com/bft-labs/framebridge/pkg/storage"
)

// lockedBuffer is written by the logger from several goroutines.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	stderr := &lockedBuffer{}
	cmd := newRootCommand(stderr)
	cmd.SetArgs(args)
	cmd.SetOut(stderr)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := cmd.ExecuteContext(ctx)
	return stderr.String(), err
}

func TestRunPersistsThroughDirBackend(t *testing.T) {
	dir := t.TempDir()
	mount := filepath.Join(dir, "mount")
	persist := filepath.Join(dir, "persist")

	out, err := execute(t,
		"--mount", mount,
		"--persist-dir", persist,
		"--fps", "500",
		"--import-wait", "5s",
		"--control-addr", "",
		"--", "--quit-at", "5",
	)
	require.NoError(t, err, out)

	p, err := sample.ReadProgress(storage.NewDirBackend(persist).Path(mount))
	require.NoError(t, err)
	assert.Equal(t, uint64(5), p.Ticks)
	assert.Equal(t, 1, p.Sessions)
	assert.Contains(t, out, "framebridge exiting")
	assert.Regexp(t, `"run":"[0-9a-f-]{36}"`, out)
}

func TestRunLoadFailureExitsWithError(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t,
		"--data-dir", dir,
		"--storage", "none",
		"--control-addr", "",
		"--", "--fail-load",
	)
	assert.ErrorIs(t, err, bridge.ErrLoad)
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	_, err := execute(t, "--data-dir", t.TempDir(), "--storage", "tape")
	assert.ErrorContains(t, err, "unknown storage")
}

func TestRunReadsEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FRAMEBRIDGE_STORAGE", "bogus")
	_, err := execute(t, "--data-dir", dir)
	assert.ErrorContains(t, err, "bogus")

	_, err = execute(t, "--data-dir", dir, "--storage", "none", "--control-addr", "", "--fps", "500", "--", "--quit-at", "1")
	assert.NoError(t, err, "flags win over environment")
}

func TestNewBackend(t *testing.T) {
	b, closeFn, err := newBackend(cfgWith("dir"))
	require.NoError(t, err)
	assert.IsType(t, &storage.DirBackend{}, b)
	closeFn()

	b, closeFn, err = newBackend(cfgWith("none"))
	require.NoError(t, err)
	assert.IsType(t, storage.NopBackend{}, b)
	closeFn()

	b, closeFn, err = newBackend(cfgWith("redis"))
	require.NoError(t, err)
	assert.IsType(t, &storage.RedisBackend{}, b)
	closeFn()

	_, _, err = newBackend(cfgWith("tape"))
	assert.Error(t, err)
}

func cfgWith(backend string) cliconfig.Config {
	cfg := cliconfig.DefaultConfig()
	cfg.Storage = backend
	cfg.PersistDir = "/tmp/persist"
	cfg.RedisAddr = "127.0.0.1:1"
	return cfg
}
