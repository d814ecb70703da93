package fuse

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/desertwitch/govfs"
	"github.com/desertwitch/govfs/locator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// fuseAvailable skips the test when the FUSE device is not accessible.
func fuseAvailable(t *testing.T) {
	t.Helper()

	if _, err := os.Stat("/dev/fuse"); err != nil {
		t.Skip("skipping: /dev/fuse not available")
	}
}

// newTestMount builds a two-root adapter over temporary directories, seeds
// a top-level "data" directory on the first root and mounts the scheme. It
// returns the mountpoint and the native paths of both roots. The mount is
// unmounted when the test ends.
func newTestMount(t *testing.T) (mountpoint string, rootA string, rootB string) {
	t.Helper()
	fuseAvailable(t)

	base := t.TempDir()
	rootA = filepath.Join(base, "rootA")
	rootB = filepath.Join(base, "rootB")

	require.NoError(t, os.MkdirAll(filepath.Join(rootA, "data"), 0o755))
	require.NoError(t, os.MkdirAll(rootB, 0o755))

	table := locator.NewTable()
	table.AddRoot("res", rootA)
	table.AddRoot("res", rootB)

	mountpoint = filepath.Join(base, "mnt")

	server, err := Mount(Options{
		Mountpoint: mountpoint,
		VFS:        govfs.New(table),
		Scheme:     "res",
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := server.Unmount(); err != nil {
			t.Errorf("unmount: %v", err)
		}
	})

	return mountpoint, rootA, rootB
}

// TestMount_Fail_MissingOptions tests that mounting without the required
// options fails before any kernel interaction.
func TestMount_Fail_MissingOptions(t *testing.T) {
	t.Parallel()

	table := locator.NewTable()
	table.AddRoot("res", t.TempDir())

	_, err := Mount(Options{VFS: govfs.New(table), Scheme: "res"})
	require.ErrorContains(t, err, "mountpoint")

	_, err = Mount(Options{Mountpoint: t.TempDir(), Scheme: "res"})
	require.ErrorContains(t, err, "filesystem")

	_, err = Mount(Options{Mountpoint: t.TempDir(), VFS: govfs.New(table)})
	require.ErrorContains(t, err, "scheme")
}

// TestErrnoOf_Success tests the mapping of adapter errors onto kernel
// errno values, including errno passthrough from wrapped native errors.
func TestErrnoOf_Success(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want syscall.Errno
	}{
		{"native errno", fmt.Errorf("failed to write: %w", syscall.ENOSPC), syscall.ENOSPC},
		{"path error", &os.PathError{Op: "open", Path: "/x", Err: syscall.EACCES}, syscall.EACCES},
		{"unresolved", fmt.Errorf("(pathing) %w: res://x", govfs.ErrUnresolved), syscall.ENOENT},
		{"not exist", fs.ErrNotExist, syscall.ENOENT},
		{"exist", fs.ErrExist, syscall.EEXIST},
		{"permission", fs.ErrPermission, syscall.EACCES},
		{"not a directory", govfs.ErrNotDir, syscall.ENOTDIR},
		{"invalid handle", govfs.ErrInvalidHandle, syscall.EBADF},
		{"unknown", errors.New("weird failure"), syscall.EIO},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, errnoOf(tt.err))
		})
	}
}

// TestMountReaddir_Success tests that listing the mount root projects the
// entries of the root the scheme root resolved to.
func TestMountReaddir_Success(t *testing.T) {
	t.Parallel()

	mountpoint, rootA, _ := newTestMount(t)
	require.NoError(t, os.WriteFile(filepath.Join(rootA, "notes.txt"), []byte("n"), 0o644))

	entries, err := os.ReadDir(mountpoint)
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, entry := range entries {
		names[entry.Name()] = entry.IsDir()
	}

	require.Len(t, names, 2)
	assert.True(t, names["data"])
	assert.False(t, names["notes.txt"])
}

// TestMountStat_Success tests that file attributes of a natively seeded
// resource are visible through the mount.
func TestMountStat_Success(t *testing.T) {
	t.Parallel()

	mountpoint, rootA, _ := newTestMount(t)

	native := filepath.Join(rootA, "data", "report.bin")
	require.NoError(t, os.WriteFile(native, make([]byte, 4096), 0o600))
	require.NoError(t, os.Chmod(native, 0o640))

	mtime := time.Date(2024, 5, 12, 9, 30, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(native, mtime, mtime))

	info, err := os.Stat(filepath.Join(mountpoint, "data", "report.bin"))
	require.NoError(t, err)

	assert.Equal(t, int64(4096), info.Size())
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
	assert.False(t, info.IsDir())
	assert.Equal(t, mtime.Unix(), info.ModTime().Unix())

	dirInfo, err := os.Stat(filepath.Join(mountpoint, "data"))
	require.NoError(t, err)
	assert.True(t, dirInfo.IsDir())
}

// TestMountReadFile_Success tests reading a natively seeded file through
// the mount, in full and from an offset.
func TestMountReadFile_Success(t *testing.T) {
	t.Parallel()

	mountpoint, rootA, _ := newTestMount(t)

	content := []byte("0123456789abcdef")
	require.NoError(t, os.WriteFile(filepath.Join(rootA, "data", "seq.txt"), content, 0o644))

	got, err := os.ReadFile(filepath.Join(mountpoint, "data", "seq.txt"))
	require.NoError(t, err)
	assert.Equal(t, content, got)

	file, err := os.Open(filepath.Join(mountpoint, "data", "seq.txt"))
	require.NoError(t, err)
	defer file.Close()

	buffer := make([]byte, 4)
	_, err = file.ReadAt(buffer, 5)
	require.NoError(t, err)
	assert.Equal(t, "5678", string(buffer))
}

// TestMountWriteFile_Success tests that a file written through the mount
// lands on the backing root, with content intact.
func TestMountWriteFile_Success(t *testing.T) {
	t.Parallel()

	mountpoint, rootA, _ := newTestMount(t)

	content := []byte("written through the kernel")
	require.NoError(t, os.WriteFile(filepath.Join(mountpoint, "data", "out.txt"), content, 0o644))

	got, err := os.ReadFile(filepath.Join(rootA, "data", "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

// TestMountWriteFile_Success_Overwrite tests truncating overwrite of an
// existing file through the mount.
func TestMountWriteFile_Success_Overwrite(t *testing.T) {
	t.Parallel()

	mountpoint, rootA, _ := newTestMount(t)

	native := filepath.Join(rootA, "data", "over.txt")
	require.NoError(t, os.WriteFile(native, []byte("old content, much longer"), 0o644))

	require.NoError(t, os.WriteFile(filepath.Join(mountpoint, "data", "over.txt"), []byte("new"), 0o644))

	got, err := os.ReadFile(native)
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), got)
}

// TestMountWriteFile_Fail_AtSchemeRoot tests that creating a new top-level
// entry fails, since a missing single-segment identifier has no resolvable
// ancestor.
func TestMountWriteFile_Fail_AtSchemeRoot(t *testing.T) {
	t.Parallel()

	mountpoint, _, _ := newTestMount(t)

	err := os.WriteFile(filepath.Join(mountpoint, "top.txt"), []byte("x"), 0o644)
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

// TestMountMkdir_Success tests directory creation and removal through the
// mount.
func TestMountMkdir_Success(t *testing.T) {
	t.Parallel()

	mountpoint, rootA, _ := newTestMount(t)

	require.NoError(t, os.Mkdir(filepath.Join(mountpoint, "data", "sub"), 0o755))

	info, err := os.Stat(filepath.Join(rootA, "data", "sub"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	require.NoError(t, os.Remove(filepath.Join(mountpoint, "data", "sub")))

	_, err = os.Stat(filepath.Join(rootA, "data", "sub"))
	assert.True(t, os.IsNotExist(err))
}

// TestMountMkdir_Fail_AtSchemeRoot tests that creating a new top-level
// directory fails like any other single-segment synthesis.
func TestMountMkdir_Fail_AtSchemeRoot(t *testing.T) {
	t.Parallel()

	mountpoint, _, _ := newTestMount(t)

	err := os.Mkdir(filepath.Join(mountpoint, "newtop"), 0o755)
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

// TestMountRename_Success tests renaming a file through the mount.
func TestMountRename_Success(t *testing.T) {
	t.Parallel()

	mountpoint, rootA, _ := newTestMount(t)

	require.NoError(t, os.WriteFile(filepath.Join(rootA, "data", "a.txt"), []byte("payload"), 0o644))

	err := os.Rename(
		filepath.Join(mountpoint, "data", "a.txt"),
		filepath.Join(mountpoint, "data", "b.txt"),
	)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(rootA, "data", "a.txt"))
	assert.True(t, os.IsNotExist(err))

	got, err := os.ReadFile(filepath.Join(rootA, "data", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)
}

// TestMountRemove_Success tests unlinking a file through the mount.
func TestMountRemove_Success(t *testing.T) {
	t.Parallel()

	mountpoint, rootA, _ := newTestMount(t)

	native := filepath.Join(rootA, "data", "gone.txt")
	require.NoError(t, os.WriteFile(native, []byte("x"), 0o644))

	require.NoError(t, os.Remove(filepath.Join(mountpoint, "data", "gone.txt")))

	_, err := os.Stat(native)
	assert.True(t, os.IsNotExist(err))
}

// TestMountSymlink_Success tests that symlinks report their type and
// target through the mount without being followed.
func TestMountSymlink_Success(t *testing.T) {
	t.Parallel()

	mountpoint, rootA, _ := newTestMount(t)

	require.NoError(t, os.WriteFile(filepath.Join(rootA, "data", "target.txt"), []byte("t"), 0o644))
	require.NoError(t, os.Symlink("target.txt", filepath.Join(rootA, "data", "link.txt")))

	info, err := os.Lstat(filepath.Join(mountpoint, "data", "link.txt"))
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&os.ModeSymlink)

	target, err := os.Readlink(filepath.Join(mountpoint, "data", "link.txt"))
	require.NoError(t, err)
	assert.Equal(t, "target.txt", target)
}

// TestMountTruncate_Success tests truncating a file through the mount.
func TestMountTruncate_Success(t *testing.T) {
	t.Parallel()

	mountpoint, rootA, _ := newTestMount(t)

	native := filepath.Join(rootA, "data", "trunc.bin")
	require.NoError(t, os.WriteFile(native, make([]byte, 1024), 0o644))

	require.NoError(t, os.Truncate(filepath.Join(mountpoint, "data", "trunc.bin"), 100))

	info, err := os.Stat(native)
	require.NoError(t, err)
	assert.Equal(t, int64(100), info.Size())
}

// TestMountChmod_Success tests permission changes through the mount.
func TestMountChmod_Success(t *testing.T) {
	t.Parallel()

	mountpoint, rootA, _ := newTestMount(t)

	native := filepath.Join(rootA, "data", "perms.txt")
	require.NoError(t, os.WriteFile(native, []byte("x"), 0o644))

	require.NoError(t, os.Chmod(filepath.Join(mountpoint, "data", "perms.txt"), 0o600))

	info, err := os.Stat(native)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

// TestMountChtimes_Success tests timestamp changes through the mount.
func TestMountChtimes_Success(t *testing.T) {
	t.Parallel()

	mountpoint, rootA, _ := newTestMount(t)

	native := filepath.Join(rootA, "data", "times.txt")
	require.NoError(t, os.WriteFile(native, []byte("x"), 0o644))

	mtime := time.Date(2023, 11, 2, 15, 4, 5, 0, time.UTC)
	require.NoError(t, os.Chtimes(filepath.Join(mountpoint, "data", "times.txt"), mtime, mtime))

	info, err := os.Stat(native)
	require.NoError(t, err)
	assert.Equal(t, mtime.Unix(), info.ModTime().Unix())
}

// TestMountStatfs_Success tests that capacity figures of the backing
// filesystem surface through the mount.
func TestMountStatfs_Success(t *testing.T) {
	t.Parallel()

	mountpoint, _, _ := newTestMount(t)

	var stat unix.Statfs_t
	require.NoError(t, unix.Statfs(mountpoint, &stat))

	assert.Positive(t, stat.Blocks)
	assert.Equal(t, int64(4096), int64(stat.Bsize))
}

// TestMountMultiRoot_Success tests that resources housed only on a later
// root resolve through the mount, even though the root listing projects
// the first root alone.
func TestMountMultiRoot_Success(t *testing.T) {
	t.Parallel()

	mountpoint, _, rootB := newTestMount(t)

	require.NoError(t, os.MkdirAll(filepath.Join(rootB, "archive"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(rootB, "archive", "x.txt"), []byte("from rootB"), 0o644))

	entries, err := os.ReadDir(mountpoint)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.NotEqual(t, "archive", entry.Name())
	}

	got, err := os.ReadFile(filepath.Join(mountpoint, "archive", "x.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("from rootB"), got)
}
