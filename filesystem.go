package govfs

import (
	"log/slog"
	"os"

	"golang.org/x/sys/unix"
)

type osProvider interface {
	MkdirAll(name string, perm os.FileMode) error
	Open(name string) (*os.File, error)
	OpenFile(name string, flag int, perm os.FileMode) (*os.File, error)
	Readlink(name string) (string, error)
	Remove(name string) error
	Rename(oldpath, newpath string) error
	Stat(name string) (os.FileInfo, error)
}

type unixProvider interface {
	Chmod(path string, mode uint32) error
	Chown(path string, uid, gid int) error
	Flock(fd int, how int) error
	Lstat(path string, stat *unix.Stat_t) error
	Mkdir(path string, mode uint32) error
	Rmdir(path string) error
	Statfs(path string, buf *unix.Statfs_t) error
	UtimesNano(path string, times []unix.Timespec) error
}

// Locator is the resource locator contract the adapter consumes. A locator
// answers whether it governs a scheme, maps identifiers to concrete native
// paths of existing resources (search order and caching are its policy) and
// drops cached resolutions on request.
//
// Resolution queries may be issued concurrently; [Locator.Invalidate]
// mutates the locator's shared state and must be serialized by the locator
// itself.
type Locator interface {
	// IsKnownScheme reports whether the identifier's scheme is governed by
	// this locator.
	IsKnownScheme(id Identifier) bool

	// Resolve maps the identifier to the concrete path of an existing
	// resource. The second return is false when no mapping exists.
	Resolve(id Identifier) (string, bool)

	// Invalidate drops any cached resolution for the identifier, so the
	// next query recomputes it.
	Invalidate(id Identifier)
}

// Filesystem is the principal implementation of the virtual filesystem
// adapter. It dispatches filesystem primitives against abstract identifiers:
// each operation resolves its identifiers through the bound [Locator],
// forwards to the native operating system calls and applies the operation's
// cache-invalidation rule before returning.
//
// A Filesystem holds no per-call state and is safe for concurrent use, to
// the extent the bound [Locator] serializes its own mutations. Handles it
// returns are exclusively owned by their opener.
type Filesystem struct {
	Locator Locator

	OSOps   osProvider
	UnixOps unixProvider

	logger *slog.Logger
}

// Option configures a [Filesystem] during construction.
type Option func(*Filesystem)

// WithLogger sets the logger receiving loud per-operation diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Filesystem) {
		f.logger = logger
	}
}

// New returns a pointer to a new [Filesystem] bound to the given locator.
// A nil locator is permitted and fails every resolution closed, degrading
// all primitives to no-op failures.
func New(locator Locator, opts ...Option) *Filesystem {
	fsys := &Filesystem{
		Locator: locator,
		OSOps:   &OS{},
		UnixOps: &Unix{},
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(fsys)
	}

	return fsys
}

func (f *Filesystem) log() *slog.Logger {
	if f.logger == nil {
		return slog.Default()
	}

	return f.logger
}
