package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestDirBackend_RoundTrip(t *testing.T) {
	ctx := context.Background()
	durable := t.TempDir()
	mount := filepath.Join(t.TempDir(), "xmoto")
	b := NewDirBackend(durable)

	writeFile(t, filepath.Join(mount, "profile.toml"), "name = \"rider\"\n")
	writeFile(t, filepath.Join(mount, "replays", "level1.rpl"), "replay-bytes")
	require.NoError(t, b.SyncOut(ctx, mount))

	// A new backend over the same durable root restores the wiped mount.
	b2 := NewDirBackend(durable)
	require.NoError(t, os.RemoveAll(mount))
	require.NoError(t, b2.SyncIn(ctx, mount))

	assert.Equal(t, "name = \"rider\"\n", readFile(t, filepath.Join(mount, "profile.toml")))
	assert.Equal(t, "replay-bytes", readFile(t, filepath.Join(mount, "replays", "level1.rpl")))

	// A mount that was never exported imports as empty.
	fresh := filepath.Join(t.TempDir(), "other")
	require.NoError(t, b2.SyncIn(ctx, fresh))
	entries, err := os.ReadDir(fresh)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDirBackend_ExportPrunesDeletedFiles(t *testing.T) {
	ctx := context.Background()
	mount := filepath.Join(t.TempDir(), "save")
	b := NewDirBackend(t.TempDir())

	writeFile(t, filepath.Join(mount, "a.txt"), "a")
	writeFile(t, filepath.Join(mount, "b.txt"), "b")
	require.NoError(t, b.SyncOut(ctx, mount))

	require.NoError(t, os.Remove(filepath.Join(mount, "b.txt")))
	require.NoError(t, b.SyncOut(ctx, mount))

	_, err := os.Stat(filepath.Join(b.Path(mount), "b.txt"))
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, "a", readFile(t, filepath.Join(b.Path(mount), "a.txt")))
}

func TestDirBackend_MountIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	writeFile(t, file, "x")

	err := NewDirBackend(t.TempDir()).SyncIn(context.Background(), file)
	assert.Error(t, err)
}

func TestMountKey(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	tests := []struct {
		in, want string
	}{
		{"/xmoto", "xmoto"},
		{"/home/user/save/", "home_user_save"},
		{"/a/b_c", "a_b%5Fc"},
		{"/a_b/c", "a%5Fb_c"},
		{"/50%/x", "50%25_x"},
		{"/.hidden", ".hidden"},
		{"/", "_"},
		{"/root", "root"},
		{"relative/dir", mountKey(filepath.Join(wd, "relative", "dir"))},
	}
	for _, tt := range tests {
		if got := mountKey(tt.in); got != tt.want {
			t.Errorf("mountKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMountKeyDistinctMounts(t *testing.T) {
	mounts := []string{"/a/b_c", "/a_b/c", "/a/b/c", "/a_/b", "/a/_b", "/", "/root", "/hidden", "/.hidden"}
	seen := make(map[string]string, len(mounts))
	for _, m := range mounts {
		key := mountKey(m)
		if prev, ok := seen[key]; ok {
			t.Fatalf("mounts %q and %q share key %q", prev, m, key)
		}
		seen[key] = m
	}
}

func TestDirBackend_MountsWithSimilarNamesStayApart(t *testing.T) {
	root := t.TempDir()
	b := NewDirBackend(filepath.Join(root, "durable"))
	first := filepath.Join(root, "a", "b_c")
	second := filepath.Join(root, "a_b", "c")
	require.NoError(t, os.MkdirAll(first, 0o755))
	require.NoError(t, os.MkdirAll(second, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(first, "one.txt"), []byte("1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(second, "two.txt"), []byte("2"), 0o644))

	ctx := context.Background()
	require.NoError(t, b.SyncOut(ctx, first))
	require.NoError(t, b.SyncOut(ctx, second))
	assert.NotEqual(t, b.Path(first), b.Path(second))

	assert.FileExists(t, filepath.Join(b.Path(first), "one.txt"))
	assert.NoFileExists(t, filepath.Join(b.Path(first), "two.txt"))
	assert.FileExists(t, filepath.Join(b.Path(second), "two.txt"))
}

func TestSafeJoinRejectsEscapes(t *testing.T) {
	_, err := safeJoin("/mount", "../etc/passwd")
	assert.Error(t, err)

	p, err := safeJoin("/mount", "replays/a.rpl")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/mount", "replays", "a.rpl"), p)
}
