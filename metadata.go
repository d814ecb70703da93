package govfs

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

const (
	// unixPermBits masks the permission bits of a raw mode, including the
	// setuid, setgid and sticky bits.
	unixPermBits = 0o7777
)

// Metadata describes a resource as observed on the native filesystem.
type Metadata struct {
	Inode      uint64
	Perms      uint32
	UID        uint32
	GID        uint32
	AccessedAt unix.Timespec
	ModifiedAt unix.Timespec
	Size       uint64
	IsDir      bool
	IsSymlink  bool
	SymlinkTo  string
}

// Usage holds capacity information for the filesystem backing a resource.
// It is meant to be passed by value.
type Usage struct {
	TotalBytes uint64
	FreeBytes  uint64
}

// Stat resolves the identifier for reading and returns the resource's
// [Metadata]. Symlinks are not followed; for a symlink the target path is
// reported in [Metadata.SymlinkTo].
func (f *Filesystem) Stat(id Identifier, opts ...OpOption) (*Metadata, error) {
	var metadata *Metadata

	err := f.dispatch(OpStat, []Identifier{id}, newOpSettings(opts), func(paths []string) error {
		m, err := f.metadataFromPath(paths[0])
		if err != nil {
			return err
		}
		metadata = m

		return nil
	})
	if err != nil {
		return nil, err
	}

	return metadata, nil
}

// Touch sets the access and modification timestamps of an existing resource.
// A zero time selects the current time for that timestamp.
func (f *Filesystem) Touch(id Identifier, accessedAt, modifiedAt time.Time, opts ...OpOption) error {
	now := time.Now()
	if accessedAt.IsZero() {
		accessedAt = now
	}
	if modifiedAt.IsZero() {
		modifiedAt = now
	}

	return f.dispatch(OpTouch, []Identifier{id}, newOpSettings(opts), func(paths []string) error {
		ts := []unix.Timespec{
			unix.NsecToTimespec(accessedAt.UnixNano()),
			unix.NsecToTimespec(modifiedAt.UnixNano()),
		}
		if err := f.UnixOps.UtimesNano(paths[0], ts); err != nil {
			return fmt.Errorf("(fs-metadata) failed to set timestamps: %w", err)
		}

		return nil
	})
}

// Chmod sets the permission bits of an existing resource. Bits outside
// [unixPermBits] are ignored.
func (f *Filesystem) Chmod(id Identifier, perms uint32, opts ...OpOption) error {
	return f.dispatch(OpChmod, []Identifier{id}, newOpSettings(opts), func(paths []string) error {
		if err := f.UnixOps.Chmod(paths[0], perms&unixPermBits); err != nil {
			return fmt.Errorf("(fs-metadata) failed to set permissions: %w", err)
		}

		return nil
	})
}

// Chown sets the ownership of an existing resource. Either value can be -1
// to leave that attribute unchanged.
func (f *Filesystem) Chown(id Identifier, uid, gid int, opts ...OpOption) error {
	return f.dispatch(OpChown, []Identifier{id}, newOpSettings(opts), func(paths []string) error {
		if err := f.UnixOps.Chown(paths[0], uid, gid); err != nil {
			return fmt.Errorf("(fs-metadata) failed to set ownership: %w", err)
		}

		return nil
	})
}

// Usage resolves the identifier for reading and returns capacity information
// for the filesystem housing the resource.
func (f *Filesystem) Usage(id Identifier, opts ...OpOption) (Usage, error) {
	var usage Usage

	err := f.dispatch(OpUsage, []Identifier{id}, newOpSettings(opts), func(paths []string) error {
		var stat unix.Statfs_t
		if err := f.UnixOps.Statfs(paths[0], &stat); err != nil {
			return fmt.Errorf("(fs-usage) failed to statfs: %w", err)
		}

		usage = Usage{
			TotalBytes: stat.Blocks * handleSize(stat.Bsize),
			FreeBytes:  stat.Bavail * handleSize(stat.Bsize),
		}

		return nil
	})
	if err != nil {
		return Usage{}, err
	}

	return usage, nil
}

func (f *Filesystem) metadataFromPath(path string) (*Metadata, error) {
	var stat unix.Stat_t

	if err := f.UnixOps.Lstat(path, &stat); err != nil {
		return nil, fmt.Errorf("(fs-metadata) failed to lstat: %w", err)
	}

	metadata := &Metadata{
		Inode:      stat.Ino,
		Perms:      stat.Mode & unixPermBits,
		UID:        stat.Uid,
		GID:        stat.Gid,
		AccessedAt: stat.Atim,
		ModifiedAt: stat.Mtim,
		Size:       handleSize(stat.Size),
		IsDir:      (stat.Mode & unix.S_IFMT) == unix.S_IFDIR,
		IsSymlink:  (stat.Mode & unix.S_IFMT) == unix.S_IFLNK,
	}

	if metadata.IsSymlink {
		symlinkTarget, err := f.OSOps.Readlink(path)
		if err != nil {
			return nil, fmt.Errorf("(fs-metadata) failed to readlink: %w", err)
		}
		metadata.SymlinkTo = symlinkTarget
	}

	return metadata, nil
}

func handleSize(size int64) uint64 {
	if size < 0 {
		return 0
	}

	return uint64(size)
}
