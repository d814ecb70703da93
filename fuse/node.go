package fuse

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"syscall"
	"time"

	"github.com/desertwitch/govfs"
	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// node is a directory or file of the mounted scheme. It holds no native
// state of its own: every kernel request re-dispatches against the bound
// identifier, so changes behind the locator are picked up on the next
// resolution.
type node struct {
	gofuse.Inode
	options *Options
	id      govfs.Identifier
}

var _ gofuse.InodeEmbedder = (*node)(nil)
var _ gofuse.NodeGetattrer = (*node)(nil)
var _ gofuse.NodeSetattrer = (*node)(nil)
var _ gofuse.NodeLookuper = (*node)(nil)
var _ gofuse.NodeReaddirer = (*node)(nil)
var _ gofuse.NodeMkdirer = (*node)(nil)
var _ gofuse.NodeRmdirer = (*node)(nil)
var _ gofuse.NodeUnlinker = (*node)(nil)
var _ gofuse.NodeRenamer = (*node)(nil)
var _ gofuse.NodeCreater = (*node)(nil)
var _ gofuse.NodeOpener = (*node)(nil)
var _ gofuse.NodeStatfser = (*node)(nil)
var _ gofuse.NodeReadlinker = (*node)(nil)

func (n *node) Getattr(_ context.Context, _ gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	md, err := n.options.VFS.Stat(n.id)
	if err != nil {
		return errnoOf(err)
	}
	fillAttr(md, &out.Attr)

	return 0
}

func (n *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	childID := n.id.Child(name)

	md, err := n.options.VFS.Stat(childID)
	if err != nil {
		return nil, errnoOf(err)
	}

	child := n.NewInode(ctx, &node{options: n.options, id: childID}, gofuse.StableAttr{
		Mode: typeBits(md),
		Ino:  md.Inode,
	})
	fillAttr(md, &out.Attr)

	return child, 0
}

func (n *node) Readdir(_ context.Context) (gofuse.DirStream, syscall.Errno) {
	dir, err := n.options.VFS.OpenDir(n.id)
	if err != nil {
		return nil, errnoOf(err)
	}
	defer dir.Close()

	var entries []fuse.DirEntry

	for {
		entry, err := dir.ReadEntry()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errnoOf(err)
		}

		mode := uint32(syscall.S_IFREG)
		switch {
		case entry.IsDir():
			mode = syscall.S_IFDIR
		case entry.Type()&fs.ModeSymlink != 0:
			mode = syscall.S_IFLNK
		}

		entries = append(entries, fuse.DirEntry{Name: entry.Name(), Mode: mode})
	}

	return &sliceDirStream{entries: entries}, 0
}

func (n *node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	if err := n.options.VFS.Mkdir(n.id.Child(name), os.FileMode(mode)); err != nil {
		return nil, errnoOf(err)
	}

	return n.Lookup(ctx, name, out)
}

func (n *node) Rmdir(_ context.Context, name string) syscall.Errno {
	if err := n.options.VFS.Rmdir(n.id.Child(name)); err != nil {
		return errnoOf(err)
	}

	return 0
}

func (n *node) Unlink(_ context.Context, name string) syscall.Errno {
	if err := n.options.VFS.Remove(n.id.Child(name)); err != nil {
		return errnoOf(err)
	}

	return 0
}

func (n *node) Rename(_ context.Context, name string, newParent gofuse.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	// Exchange and no-replace semantics are not supported by the
	// underlying rename primitive.
	if flags != 0 {
		return syscall.EINVAL
	}

	target, ok := newParent.(*node)
	if !ok {
		return syscall.EXDEV
	}

	if err := n.options.VFS.Rename(n.id.Child(name), target.id.Child(newName)); err != nil {
		return errnoOf(err)
	}

	return 0
}

func (n *node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, gofuse.FileHandle, uint32, syscall.Errno) {
	childID := n.id.Child(name)

	file, err := n.options.VFS.OpenFile(childID, int(flags)|os.O_CREATE, os.FileMode(mode).Perm())
	if err != nil {
		return nil, nil, 0, errnoOf(err)
	}

	md, err := n.options.VFS.Stat(childID)
	if err != nil {
		file.Close() //nolint:errcheck

		return nil, nil, 0, errnoOf(err)
	}

	child := n.NewInode(ctx, &node{options: n.options, id: childID}, gofuse.StableAttr{
		Mode: typeBits(md),
		Ino:  md.Inode,
	})
	fillAttr(md, &out.Attr)

	return child, &fileHandle{file: file}, 0, 0
}

// Open opens the resource behind the node. The kernel page cache is not
// kept across opens since content can change behind the locator between
// them.
func (n *node) Open(_ context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	file, err := n.options.VFS.OpenFile(n.id, int(flags), 0)
	if err != nil {
		return nil, 0, errnoOf(err)
	}

	return &fileHandle{file: file}, 0, 0
}

func (n *node) Setattr(ctx context.Context, f gofuse.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	if mode, ok := in.GetMode(); ok {
		if err := n.options.VFS.Chmod(n.id, mode); err != nil {
			return errnoOf(err)
		}
	}

	uid, uidSet := in.GetUID()
	gid, gidSet := in.GetGID()
	if uidSet || gidSet {
		chownUID, chownGID := -1, -1
		if uidSet {
			chownUID = int(uid)
		}
		if gidSet {
			chownGID = int(gid)
		}

		if err := n.options.VFS.Chown(n.id, chownUID, chownGID); err != nil {
			return errnoOf(err)
		}
	}

	atime, atimeSet := in.GetATime()
	mtime, mtimeSet := in.GetMTime()
	if atimeSet || mtimeSet {
		// An omitted timestamp keeps its current value.
		md, err := n.options.VFS.Stat(n.id)
		if err != nil {
			return errnoOf(err)
		}
		if !atimeSet {
			atime = time.Unix(md.AccessedAt.Unix())
		}
		if !mtimeSet {
			mtime = time.Unix(md.ModifiedAt.Unix())
		}

		if err := n.options.VFS.Touch(n.id, atime, mtime); err != nil {
			return errnoOf(err)
		}
	}

	if size, ok := in.GetSize(); ok {
		if errno := n.truncate(f, int64(size)); errno != 0 {
			return errno
		}
	}

	return n.Getattr(ctx, nil, out)
}

// truncate changes the size of the resource behind the node, through the
// kernel-supplied handle when one accompanies the request.
func (n *node) truncate(f gofuse.FileHandle, size int64) syscall.Errno {
	if handle, ok := f.(*fileHandle); ok {
		if err := handle.file.Truncate(size); err != nil {
			return errnoOf(err)
		}

		return 0
	}

	file, err := n.options.VFS.OpenFile(n.id, os.O_WRONLY, 0)
	if err != nil {
		return errnoOf(err)
	}
	defer file.Close()

	if err := file.Truncate(size); err != nil {
		return errnoOf(err)
	}

	return 0
}

func (n *node) Statfs(_ context.Context, out *fuse.StatfsOut) syscall.Errno {
	usage, err := n.options.VFS.Usage(n.id)
	if err != nil {
		return errnoOf(err)
	}

	const blockSize = 4096

	out.Bsize = blockSize
	out.Blocks = usage.TotalBytes / blockSize
	out.Bfree = usage.FreeBytes / blockSize
	out.Bavail = usage.FreeBytes / blockSize
	out.NameLen = 255 //nolint:mnd

	return 0
}

func (n *node) Readlink(_ context.Context) ([]byte, syscall.Errno) {
	md, err := n.options.VFS.Stat(n.id)
	if err != nil {
		return nil, errnoOf(err)
	}
	if !md.IsSymlink {
		return nil, syscall.EINVAL
	}

	return []byte(md.SymlinkTo), 0
}

// typeBits returns the file-type bits of the resource for the kernel's
// stable attributes.
func typeBits(md *govfs.Metadata) uint32 {
	switch {
	case md.IsDir:
		return syscall.S_IFDIR
	case md.IsSymlink:
		return syscall.S_IFLNK
	default:
		return syscall.S_IFREG
	}
}

// fillAttr copies resource metadata into a kernel attribute structure.
func fillAttr(md *govfs.Metadata, out *fuse.Attr) {
	out.Mode = typeBits(md) | md.Perms
	out.Size = md.Size
	out.Blocks = (md.Size + 511) / 512 //nolint:mnd
	out.Ino = md.Inode
	out.Uid = md.UID
	out.Gid = md.GID
	out.Atime = uint64(md.AccessedAt.Sec)
	out.Atimensec = uint32(md.AccessedAt.Nsec)
	out.Mtime = uint64(md.ModifiedAt.Sec)
	out.Mtimensec = uint32(md.ModifiedAt.Nsec)
}

// errnoOf maps adapter errors onto kernel errno values. Native errors
// carry their original errno through the wrap chain; adapter-level
// failures map onto their closest equivalent.
func errnoOf(err error) syscall.Errno {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}

	switch {
	case errors.Is(err, govfs.ErrUnresolved), errors.Is(err, fs.ErrNotExist):
		return syscall.ENOENT
	case errors.Is(err, fs.ErrExist):
		return syscall.EEXIST
	case errors.Is(err, fs.ErrPermission):
		return syscall.EACCES
	case errors.Is(err, govfs.ErrNotDir):
		return syscall.ENOTDIR
	case errors.Is(err, govfs.ErrInvalidHandle):
		return syscall.EBADF
	default:
		return syscall.EIO
	}
}

// sliceDirStream implements fs.DirStream from a slice of entries.
type sliceDirStream struct {
	entries []fuse.DirEntry
	index   int
}

func (s *sliceDirStream) HasNext() bool {
	return s.index < len(s.entries)
}

func (s *sliceDirStream) Next() (fuse.DirEntry, syscall.Errno) {
	if s.index >= len(s.entries) {
		return fuse.DirEntry{}, syscall.EINVAL
	}

	entry := s.entries[s.index]
	s.index++

	return entry, 0
}

func (s *sliceDirStream) Close() {}
