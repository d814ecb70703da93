// Package fuse exposes a single scheme of a [govfs.Filesystem] as a
// kernel-visible filesystem. Every kernel request is served through the
// adapter's dispatched primitives, so resolution policy and cache
// invalidation apply to external processes exactly as they apply to
// in-process callers.
package fuse

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/desertwitch/govfs"
	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// mountDirPerms are the permission bits for a mountpoint directory that
// does not exist yet.
const mountDirPerms = os.FileMode(0o755)

// Options configures the FUSE mount.
type Options struct {
	// Mountpoint is the directory where the scheme is mounted. It is
	// created if it does not exist.
	Mountpoint string

	// VFS is the adapter serving the mount.
	VFS *govfs.Filesystem

	// Scheme selects which scheme of the adapter is exposed. The bare
	// scheme root becomes the root of the mount.
	Scheme string

	// AllowOther permits other users (including root) to access the
	// mount. Requires user_allow_other in /etc/fuse.conf.
	AllowOther bool

	// Logger receives diagnostic messages. If nil, errors go to a
	// stderr text handler.
	Logger *slog.Logger
}

// Mount mounts the configured scheme at the mountpoint. The caller must
// call Unmount on the returned server when done.
func Mount(options Options) (*fuse.Server, error) {
	if options.Mountpoint == "" {
		return nil, fmt.Errorf("mountpoint is required")
	}
	if options.VFS == nil {
		return nil, fmt.Errorf("filesystem is required")
	}
	if options.Scheme == "" {
		return nil, fmt.Errorf("scheme is required")
	}

	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	}

	if err := os.MkdirAll(options.Mountpoint, mountDirPerms); err != nil {
		return nil, fmt.Errorf("creating mountpoint %s: %w", options.Mountpoint, err)
	}

	root := &node{
		options: &options,
		id:      govfs.NewIdentifier(options.Scheme, ""),
	}

	entryTimeout := 1 * time.Second
	attrTimeout := 1 * time.Second
	negativeTimeout := 100 * time.Millisecond

	server, err := gofuse.Mount(options.Mountpoint, root, &gofuse.Options{
		EntryTimeout:    &entryTimeout,
		AttrTimeout:     &attrTimeout,
		NegativeTimeout: &negativeTimeout,
		MountOptions: fuse.MountOptions{
			FsName:     options.Scheme + "://",
			Name:       "govfs",
			AllowOther: options.AllowOther,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mounting FUSE filesystem at %s: %w", options.Mountpoint, err)
	}

	options.Logger.Info("FUSE filesystem mounted",
		"scheme", options.Scheme,
		"mountpoint", options.Mountpoint,
	)

	return server, nil
}
