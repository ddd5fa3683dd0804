package storage

import (
	"context"
	"path/filepath"
	"strings"
)

// DirBackend mirrors a mount point to a subdirectory of a durable root.
// Every mount gets its own subdirectory derived from its path.
type DirBackend struct {
	root string
}

// NewDirBackend creates a DirBackend storing mounts below root.
func NewDirBackend(root string) *DirBackend {
	return &DirBackend{root: root}
}

// SyncIn copies the durable copy of mount into mount. A mount that was
// never exported imports as empty.
func (b *DirBackend) SyncIn(ctx context.Context, mount string) error {
	if err := ensureMount(mount); err != nil {
		return err
	}
	files, err := readTree(ctx, b.Path(mount))
	if err != nil {
		return err
	}
	return writeTree(ctx, mount, files)
}

// SyncOut replaces the durable copy of mount with its current contents.
func (b *DirBackend) SyncOut(ctx context.Context, mount string) error {
	if err := ensureMount(mount); err != nil {
		return err
	}
	files, err := readTree(ctx, mount)
	if err != nil {
		return err
	}
	dst := b.Path(mount)
	if err := writeTree(ctx, dst, files); err != nil {
		return err
	}
	return pruneTree(ctx, dst, files)
}

// Path returns the durable directory used for mount.
func (b *DirBackend) Path(mount string) string {
	return filepath.Join(b.root, mountKey(mount))
}

// mountKeyEscaper keeps mountKey one-to-one: '_' only ever stands for a
// path separator.
var mountKeyEscaper = strings.NewReplacer("%", "%25", "_", "%5F", ":", "%3A", "/", "_")

// mountKey flattens the absolute mount path into a single path element.
// Distinct directories get distinct keys.
func mountKey(mount string) string {
	p := filepath.Clean(mount)
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	key := strings.TrimPrefix(filepath.ToSlash(p), "/")
	if key == "" {
		return "_"
	}
	return mountKeyEscaper.Replace(key)
}
