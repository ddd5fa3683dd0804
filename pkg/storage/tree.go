package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// ensureMount creates mount if needed and checks that it is a directory.
func ensureMount(mount string) error {
	if mount == "" {
		return ErrNoMount
	}
	if err := os.MkdirAll(mount, 0o700); err != nil {
		return fmt.Errorf("create mount %s: %w", mount, err)
	}
	info, err := os.Stat(mount)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrMountKind, mount)
	}
	return nil
}

// readTree returns the regular files below root keyed by slash-separated
// relative path. A missing root yields an empty tree.
func readTree(ctx context.Context, root string) (map[string][]byte, error) {
	files := make(map[string][]byte)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == root {
				return fs.SkipAll
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// writeTree writes files below root atomically, one file at a time.
func writeTree(ctx context.Context, root string, files map[string][]byte) error {
	for rel, data := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		path, err := safeJoin(root, rel)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return err
		}
		if err := renameio.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("write %s: %w", rel, err)
		}
	}
	return nil
}

// pruneTree removes regular files below root that are not in keep.
func pruneTree(ctx context.Context, root string, keep map[string][]byte) error {
	existing, err := readTree(ctx, root)
	if err != nil {
		return err
	}
	for rel := range existing {
		if _, ok := keep[rel]; ok {
			continue
		}
		path, err := safeJoin(root, rel)
		if err != nil {
			return err
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// safeJoin joins a stored relative path onto root, refusing paths that
// would escape it.
func safeJoin(root, rel string) (string, error) {
	if !filepath.IsLocal(filepath.FromSlash(rel)) {
		return "", fmt.Errorf("storage: refusing non-local path %q", rel)
	}
	return filepath.Join(root, filepath.FromSlash(rel)), nil
}
