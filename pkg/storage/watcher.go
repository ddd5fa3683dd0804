package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/framebridge/pkg/log"
)

// MountWatcher marks a mount dirty whenever something below it is written,
// created, removed or renamed.
type MountWatcher struct {
	mount  string
	logger log.Logger

	dirty   atomic.Bool
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewMountWatcher creates a watcher for mount. Call Start to begin watching.
func NewMountWatcher(mount string, logger log.Logger) *MountWatcher {
	return &MountWatcher{mount: mount, logger: log.OrNoop(logger)}
}

// Start begins watching mount and all its current subdirectories.
func (w *MountWatcher) Start(ctx context.Context) error {
	if err := ensureMount(w.mount); err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.addTree(watcher, w.mount); err != nil {
		_ = watcher.Close()
		return err
	}
	w.watcher = watcher

	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go w.watchLoop(watchCtx)
	return nil
}

// Close stops the watcher and waits for its goroutine.
func (w *MountWatcher) Close() error {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

// Dirty reports whether the mount changed since the last TakeDirty.
func (w *MountWatcher) Dirty() bool { return w.dirty.Load() }

// TakeDirty returns the dirty flag and clears it.
func (w *MountWatcher) TakeDirty() bool { return w.dirty.Swap(false) }

// MarkDirty sets the dirty flag, e.g. to retry after a failed export.
func (w *MountWatcher) MarkDirty() { w.dirty.Store(true) }

func (w *MountWatcher) watchLoop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.dirty.Store(true)

			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(w.watcher, event.Name); err != nil {
						w.logger.Warn("mount watcher: failed to watch new directory",
							log.Mount(event.Name), log.Err(err))
					}
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("mount watcher: watcher error", log.Mount(w.mount), log.Err(err))
		}
	}
}

func (w *MountWatcher) addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return watcher.Add(path)
	})
}
