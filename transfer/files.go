package transfer

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/desertwitch/govfs"
	"github.com/zeebo/blake3"
)

// transferSuffix marks the intermediate sibling a file is written to before
// it is verified and renamed into place.
const transferSuffix = ".govfs"

//nolint:containedctx
type contextReader struct {
	ctx    context.Context
	reader io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	select {
	case <-cr.ctx.Done():
		return 0, context.Canceled
	default:
		return cr.reader.Read(p)
	}
}

type progressWriter struct {
	stats *Stats
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	pw.stats.Add(uint64(len(p)))

	return len(p), nil
}

func (h *Handler) copyFile(ctx context.Context, req *Request, md *govfs.Metadata) error {
	var transferComplete bool

	srcFile, err := h.VFS.Open(req.Source)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer srcFile.Close()

	parent, _ := req.Dest.Parent()
	tmpID := parent.Child(req.Dest.Base() + transferSuffix)
	defer func() {
		if !transferComplete {
			h.VFS.Remove(tmpID) //nolint:errcheck
		}
	}()

	dstFile, err := h.VFS.OpenFile(tmpID, os.O_CREATE|os.O_WRONLY|os.O_EXCL, os.FileMode(md.Perms).Perm())
	if err != nil {
		return fmt.Errorf("failed to open transfer file %q: %w", tmpID.String(), err)
	}
	defer dstFile.Close()

	srcHasher := blake3.New()
	dstHasher := blake3.New()

	ctxReader := &contextReader{
		ctx:    ctx,
		reader: io.TeeReader(srcFile, srcHasher),
	}

	writers := []io.Writer{dstFile, dstHasher}
	if h.Stats != nil {
		writers = append(writers, &progressWriter{stats: h.Stats})
	}

	if _, err := io.Copy(io.MultiWriter(writers...), ctxReader); err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("transfer canceled: %w", err)
		}

		return fmt.Errorf("failed to copy file: %w", err)
	}

	if err := dstFile.Flush(); err != nil {
		return fmt.Errorf("failed to sync transfer file: %w", err)
	}

	srcChecksum := hex.EncodeToString(srcHasher.Sum(nil))
	dstChecksum := hex.EncodeToString(dstHasher.Sum(nil))

	if srcChecksum != dstChecksum {
		return fmt.Errorf("%w: %s (src) != %s (dst)", ErrHashMismatch, srcChecksum, dstChecksum)
	}

	if _, err := h.VFS.Stat(req.Dest); err == nil {
		return fmt.Errorf("%w: %q", ErrRenameExists, req.Dest.String())
	} else if !errors.Is(err, govfs.ErrUnresolved) && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to check destination existence: %w", err)
	}

	if err := h.VFS.Rename(tmpID, req.Dest); err != nil {
		return fmt.Errorf("failed to rename transfer file to destination: %w", err)
	}

	transferComplete = true

	return nil
}
