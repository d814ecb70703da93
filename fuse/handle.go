package fuse

import (
	"context"
	"errors"
	"io"
	"sync"
	"syscall"

	"github.com/desertwitch/govfs"
	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// fileHandle adapts an open [govfs.File] to the kernel's file operations.
// The kernel issues positioned reads and writes concurrently; the stream
// underneath holds a single offset, so every operation seeks under the
// handle mutex.
type fileHandle struct {
	mu   sync.Mutex
	file *govfs.File
}

var _ gofuse.FileReader = (*fileHandle)(nil)
var _ gofuse.FileWriter = (*fileHandle)(nil)
var _ gofuse.FileFlusher = (*fileHandle)(nil)
var _ gofuse.FileFsyncer = (*fileHandle)(nil)
var _ gofuse.FileReleaser = (*fileHandle)(nil)

func (h *fileHandle) Read(_ context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, err := h.file.Seek(off, io.SeekStart); err != nil {
		return nil, errnoOf(err)
	}

	n, err := io.ReadFull(h.file, dest)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, errnoOf(err)
	}

	return fuse.ReadResultData(dest[:n]), 0
}

func (h *fileHandle) Write(_ context.Context, data []byte, off int64) (uint32, syscall.Errno) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, err := h.file.Seek(off, io.SeekStart); err != nil {
		return 0, errnoOf(err)
	}

	n, err := h.file.Write(data)
	if err != nil {
		return uint32(n), errnoOf(err)
	}

	return uint32(n), 0
}

// Flush is called on every close of a descriptor referring to the handle.
// Writes go straight to the stream, so there is nothing left to push here.
func (h *fileHandle) Flush(_ context.Context) syscall.Errno {
	return 0
}

func (h *fileHandle) Fsync(_ context.Context, _ uint32) syscall.Errno {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.file.Flush(); err != nil {
		return errnoOf(err)
	}

	return 0
}

func (h *fileHandle) Release(_ context.Context) syscall.Errno {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.file.Close(); err != nil {
		return errnoOf(err)
	}

	return 0
}
