// Package transfer implements a verified transfer engine on top of the
// virtual filesystem adapter. Files are copied between identifiers through
// dispatcher primitives only, with both sides hashed during the copy and the
// result renamed into place only after the checksums agree. Batches run
// through a progress-reporting queue with bounded concurrency.
package transfer

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/desertwitch/govfs"
	"github.com/desertwitch/govfs/internal/queue"
)

// defaultDirPerms is used for destination structure the source provides no
// permissions for.
const defaultDirPerms = os.FileMode(0o755)

type vfsProvider interface {
	Chmod(id govfs.Identifier, perms uint32, opts ...govfs.OpOption) error
	Chown(id govfs.Identifier, uid, gid int, opts ...govfs.OpOption) error
	FS(scheme string) fs.FS
	MkdirAll(id govfs.Identifier, perm os.FileMode, opts ...govfs.OpOption) error
	Open(id govfs.Identifier, opts ...govfs.OpOption) (*govfs.File, error)
	OpenFile(id govfs.Identifier, flag int, perm os.FileMode, opts ...govfs.OpOption) (*govfs.File, error)
	Remove(id govfs.Identifier, opts ...govfs.OpOption) error
	Rename(from, to govfs.Identifier, opts ...govfs.OpOption) error
	Rmdir(id govfs.Identifier, opts ...govfs.OpOption) error
	Stat(id govfs.Identifier, opts ...govfs.OpOption) (*govfs.Metadata, error)
	Touch(id govfs.Identifier, accessedAt, modifiedAt time.Time, opts ...govfs.OpOption) error
	Usage(id govfs.Identifier, opts ...govfs.OpOption) (govfs.Usage, error)
}

// Request describes the transfer of one regular file between two
// identifiers. With Move set, the source is removed after the copy was
// verified and renamed into place.
type Request struct {
	Source govfs.Identifier
	Dest   govfs.Identifier
	Move   bool
}

// Handler is the principal implementation of the transfer engine. Item-level
// progress is exposed through Queue, byte-level progress through Stats.
type Handler struct {
	VFS vfsProvider

	Queue *queue.ProgressQueue[*Request]
	Stats *Stats

	SpaceFloor uint64
}

// Option configures a [Handler] during construction.
type Option func(*Handler)

// WithSpaceFloor sets a minimum of free bytes any destination must retain
// after taking a transferred file.
func WithSpaceFloor(bytes uint64) Option {
	return func(h *Handler) {
		h.SpaceFloor = bytes
	}
}

// NewHandler returns a pointer to a new [Handler] transferring through the
// given adapter.
func NewHandler(vfs vfsProvider, opts ...Option) *Handler {
	h := &Handler{
		VFS:   vfs,
		Queue: queue.NewProgressQueue[*Request](),
		Stats: &Stats{},
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Process transfers a single request. The source must be a regular file; the
// destination structure is created as needed and checked for enough free
// space before any bytes move. Metadata of the source survives the transfer.
func (h *Handler) Process(ctx context.Context, req *Request) error {
	md, err := h.VFS.Stat(req.Source)
	if err != nil {
		return fmt.Errorf("(transfer) failed to stat source: %w", err)
	}

	if md.IsDir || md.IsSymlink {
		return fmt.Errorf("(transfer) %w: %q", ErrNotRegular, req.Source.String())
	}

	if parent, ok := req.Dest.Parent(); ok && !parent.IsRoot() {
		if err := h.VFS.MkdirAll(parent, defaultDirPerms); err != nil {
			return fmt.Errorf("(transfer) failed to ensure destination structure: %w", err)
		}
	}

	if enough, err := h.hasEnoughFreeSpace(req.Dest, md.Size); err != nil {
		return fmt.Errorf("(transfer) failed to check for enough space: %w", err)
	} else if !enough {
		return fmt.Errorf("(transfer) %w", ErrNotEnoughSpace)
	}

	if err := h.copyFile(ctx, req, md); err != nil {
		return fmt.Errorf("(transfer) failed to transfer file: %w", err)
	}

	if err := h.ensureAttributes(req.Dest, md); err != nil {
		return fmt.Errorf("(transfer) failed to ensure attributes: %w", err)
	}

	if req.Move {
		if err := h.VFS.Remove(req.Source); err != nil {
			return fmt.Errorf("(transfer) failed to remove source after move: %w", err)
		}
	}

	return nil
}

// ProcessAll runs the given requests through the handler's queue, with at
// most maxWorkers transfers in flight at once. Requests failing to process
// are logged and recorded as skipped, an error is only returned in case of a
// context cancellation.
func (h *Handler) ProcessAll(ctx context.Context, maxWorkers int, requests ...*Request) error {
	var bytesTotal uint64

	for _, req := range requests {
		if md, err := h.VFS.Stat(req.Source); err == nil && !md.IsDir {
			bytesTotal += md.Size
		}
	}

	if h.Stats != nil {
		h.Stats.Start(bytesTotal)
	}

	h.Queue.Enqueue(requests...)

	processFunc := func(req *Request) int {
		if err := h.Process(ctx, req); err != nil {
			slog.Warn("Skipped transfer: failure during processing",
				"source", req.Source.String(),
				"dest", req.Dest.String(),
				"err", err,
			)

			return queue.DecisionSkipped
		}

		slog.Info("Transferred:",
			"source", req.Source.String(),
			"dest", req.Dest.String(),
		)

		return queue.DecisionSuccess
	}

	var err error
	if maxWorkers > 1 {
		err = h.Queue.DequeueAndProcessConc(ctx, maxWorkers, processFunc)
	} else {
		err = h.Queue.DequeueAndProcess(ctx, processFunc)
	}

	if err != nil {
		if h.Stats != nil {
			h.Stats.SetError(err)
		}

		return fmt.Errorf("(transfer) failed to process queue: %w", err)
	}

	if h.Stats != nil {
		h.Stats.End()
	}

	return nil
}

// Enumerate walks the source identifier and derives the transfer requests
// for every regular file beneath it, mirroring the directory structure onto
// the destination as it goes. Resources that are neither regular files nor
// directories are logged and left behind. The returned directory identifiers
// are in walk order, parents before children, for a later [Handler.CleanupDirs]
// after a completed move.
func (h *Handler) Enumerate(ctx context.Context, src, dest govfs.Identifier, move bool) ([]*Request, []govfs.Identifier, error) {
	var requests []*Request
	var dirs []govfs.Identifier

	root := src.Rel()
	if src.IsRoot() {
		root = "."
	}

	fsys := h.VFS.FS(src.Scheme())

	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if ctx.Err() != nil {
			return fs.SkipAll
		}

		srcID := src
		target := dest

		if p != root {
			rem := p
			if root != "." {
				rem = strings.TrimPrefix(p, root+"/")
			}

			srcID = govfs.NewIdentifier(src.Scheme(), p)
			target = govfs.NewIdentifier(dest.Scheme(), path.Join(dest.Rel(), rem))
		}

		if d.IsDir() {
			info, err := d.Info()
			if err != nil {
				return fmt.Errorf("failed to stat dir %q: %w", srcID.String(), err)
			}

			if err := h.VFS.MkdirAll(target, info.Mode().Perm()); err != nil {
				return fmt.Errorf("failed to mirror dir %q: %w", target.String(), err)
			}

			dirs = append(dirs, srcID)

			return nil
		}

		if !d.Type().IsRegular() {
			slog.Warn("Skipping resource of unsupported type", "id", srcID.String())

			return nil
		}

		requests = append(requests, &Request{Source: srcID, Dest: target, Move: move})

		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("(transfer) failed to enumerate source: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("(transfer) %w", err)
	}

	return requests, dirs, nil
}

// CleanupDirs removes the given source directories, children before parents.
// Directories still holding resources fail their removal, which is logged and
// otherwise left alone.
func (h *Handler) CleanupDirs(ctx context.Context, dirs ...govfs.Identifier) error {
	for i := len(dirs) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("(transfer) %w", err)
		}

		if err := h.VFS.Rmdir(dirs[i]); err != nil {
			slog.Warn("Warning (cleanup): failure removing source dir", "id", dirs[i].String(), "err", err)

			continue
		}
	}

	return nil
}

func (h *Handler) hasEnoughFreeSpace(dest govfs.Identifier, fileSize uint64) (bool, error) {
	parent, _ := dest.Parent()

	usage, err := h.VFS.Usage(parent)
	if err != nil {
		return false, fmt.Errorf("failed to get usage: %w", err)
	}

	requiredFree := h.SpaceFloor
	if requiredFree <= fileSize {
		requiredFree = fileSize
	}

	if usage.FreeBytes > requiredFree {
		return true, nil
	}

	return false, nil
}

func (h *Handler) ensureAttributes(id govfs.Identifier, md *govfs.Metadata) error {
	if err := h.VFS.Chown(id, int(md.UID), int(md.GID)); err != nil {
		return fmt.Errorf("failed to set ownership: %w", err)
	}

	if err := h.VFS.Chmod(id, md.Perms); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := h.VFS.Touch(id, time.Unix(md.AccessedAt.Unix()), time.Unix(md.ModifiedAt.Unix())); err != nil {
		return fmt.Errorf("failed to set timestamps: %w", err)
	}

	return nil
}
