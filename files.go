package govfs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"
)

// writeBits are the open flags that turn an open request into a write
// request, resolved with [ModeWrite] and invalidating on success.
const writeBits = os.O_WRONLY | os.O_RDWR | os.O_APPEND | os.O_CREATE | os.O_TRUNC

// File is an open stream bound to exactly one [Identifier] for its lifetime.
// A File belongs to a single owner and performs no locking of its own;
// methods on a nil or closed handle fail with [ErrInvalidHandle].
type File struct {
	id      Identifier
	file    *os.File
	eof     bool
	unixOps unixProvider
}

// OpenFile resolves the identifier and opens it with the given flags and
// permission bits. Requests carrying any of [writeBits] resolve for writing
// and invalidate the locator's cached resolution on success; plain reads
// resolve for reading and leave the cache untouched.
func (f *Filesystem) OpenFile(id Identifier, flag int, perm os.FileMode, opts ...OpOption) (*File, error) {
	op := OpOpenRead
	if flag&writeBits != 0 {
		op = OpOpenWrite
	}

	var file *os.File

	err := f.dispatch(op, []Identifier{id}, newOpSettings(opts), func(paths []string) error {
		opened, err := f.OSOps.OpenFile(paths[0], flag, perm)
		if err != nil {
			return fmt.Errorf("(fs-file) failed to open: %w", err)
		}
		file = opened

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &File{
		id:      id,
		file:    file,
		unixOps: f.UnixOps,
	}, nil
}

// Open opens the identified resource for reading.
func (f *Filesystem) Open(id Identifier, opts ...OpOption) (*File, error) {
	return f.OpenFile(id, os.O_RDONLY, 0, opts...)
}

// Create opens the identified resource for reading and writing, creating it
// with the given permission bits if absent and truncating it otherwise.
func (f *Filesystem) Create(id Identifier, perm os.FileMode, opts ...OpOption) (*File, error) {
	return f.OpenFile(id, os.O_RDWR|os.O_CREATE|os.O_TRUNC, perm, opts...)
}

func (h *File) valid() error {
	if h == nil || h.file == nil {
		return fmt.Errorf("(fs-file) %w", ErrInvalidHandle)
	}

	return nil
}

// Read reads up to len(p) bytes into p. It implements [io.Reader]; [io.EOF]
// is returned untranslated and recorded for [File.EOF].
func (h *File) Read(p []byte) (int, error) {
	if err := h.valid(); err != nil {
		return 0, err
	}

	n, err := h.file.Read(p)
	if errors.Is(err, io.EOF) {
		h.eof = true
	}

	return n, err
}

// Write writes len(p) bytes from p to the stream. It implements [io.Writer].
func (h *File) Write(p []byte) (int, error) {
	if err := h.valid(); err != nil {
		return 0, err
	}

	return h.file.Write(p)
}

// WriteString writes a string to the stream.
func (h *File) WriteString(s string) (int, error) {
	if err := h.valid(); err != nil {
		return 0, err
	}

	return h.file.WriteString(s)
}

// Seek sets the offset for the next read or write, interpreted per
// [io.Seeker]. A successful seek clears the end-of-stream flag.
func (h *File) Seek(offset int64, whence int) (int64, error) {
	if err := h.valid(); err != nil {
		return 0, err
	}

	pos, err := h.file.Seek(offset, whence)
	if err != nil {
		return pos, err
	}
	h.eof = false

	return pos, nil
}

// Tell reports the current offset. The end-of-stream flag is not disturbed.
func (h *File) Tell() (int64, error) {
	if err := h.valid(); err != nil {
		return 0, err
	}

	return h.file.Seek(0, io.SeekCurrent)
}

// EOF reports whether a read has reached the end of the stream since the
// last successful seek. A nil or closed handle reports true.
func (h *File) EOF() bool {
	if h == nil || h.file == nil {
		return true
	}

	return h.eof
}

// Flush forces buffered writes of the stream to stable storage.
func (h *File) Flush() error {
	if err := h.valid(); err != nil {
		return err
	}

	if err := h.file.Sync(); err != nil {
		return fmt.Errorf("(fs-file) failed to sync: %w", err)
	}

	return nil
}

// Truncate changes the size of the open stream. The offset for the next
// read or write is not disturbed.
func (h *File) Truncate(size int64) error {
	if err := h.valid(); err != nil {
		return err
	}

	if err := h.file.Truncate(size); err != nil {
		return fmt.Errorf("(fs-file) failed to truncate: %w", err)
	}

	return nil
}

// SetReadDeadline forwards a read deadline to the underlying stream.
// Regular files do not support deadlines and report [os.ErrNoDeadline].
func (h *File) SetReadDeadline(t time.Time) error {
	if err := h.valid(); err != nil {
		return err
	}

	return h.file.SetReadDeadline(t)
}

// Stat returns the [fs.FileInfo] of the open stream.
func (h *File) Stat() (fs.FileInfo, error) {
	if err := h.valid(); err != nil {
		return nil, err
	}

	info, err := h.file.Stat()
	if err != nil {
		return nil, fmt.Errorf("(fs-file) failed to stat: %w", err)
	}

	return info, nil
}

// Name returns the final segment of the bound identifier.
func (h *File) Name() string {
	if h == nil {
		return ""
	}

	return h.id.Base()
}

// Identifier returns the identifier the handle was opened under.
func (h *File) Identifier() Identifier {
	if h == nil {
		return Identifier{}
	}

	return h.id
}

// Close closes the stream and invalidates the handle for further use.
func (h *File) Close() error {
	if err := h.valid(); err != nil {
		return err
	}

	err := h.file.Close()
	h.file = nil

	if err != nil {
		return fmt.Errorf("(fs-file) failed to close: %w", err)
	}

	return nil
}
