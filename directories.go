package govfs

import (
	"fmt"
	"io/fs"
	"os"
)

// Mkdir creates a single directory level. The identifier resolves for
// writing, so a missing directory synthesizes a target path under its
// nearest known ancestor; the native call still requires the parent to
// exist. The locator's cached resolution is invalidated whether or not the
// native call succeeds.
func (f *Filesystem) Mkdir(id Identifier, perm os.FileMode, opts ...OpOption) error {
	return f.dispatch(OpMkdir, []Identifier{id}, newOpSettings(opts), func(paths []string) error {
		if err := f.UnixOps.Mkdir(paths[0], uint32(perm.Perm())); err != nil {
			return fmt.Errorf("(fs-dir) failed to mkdir: %w", err)
		}

		return nil
	})
}

// MkdirAll creates a directory along with any missing parents. The
// identifier resolves in directory-creation mode and invalidates like
// [Filesystem.Mkdir].
func (f *Filesystem) MkdirAll(id Identifier, perm os.FileMode, opts ...OpOption) error {
	return f.dispatch(OpMkdirAll, []Identifier{id}, newOpSettings(opts), func(paths []string) error {
		if err := f.OSOps.MkdirAll(paths[0], perm); err != nil {
			return fmt.Errorf("(fs-dir) failed to mkdir-all: %w", err)
		}

		return nil
	})
}

// Rmdir removes an empty directory. The cached resolution is invalidated
// whether or not the native call succeeds, so a repeated Rmdir against a
// stale mapping converges instead of hitting the stale path again.
func (f *Filesystem) Rmdir(id Identifier, opts ...OpOption) error {
	return f.dispatch(OpRmdir, []Identifier{id}, newOpSettings(opts), func(paths []string) error {
		if err := f.UnixOps.Rmdir(paths[0]); err != nil {
			return fmt.Errorf("(fs-dir) failed to rmdir: %w", err)
		}

		return nil
	})
}

// Dir is an open directory iterator bound to exactly one [Identifier] for
// its lifetime. Like [File], a Dir belongs to a single owner; methods on a
// nil or closed handle fail with [ErrInvalidHandle].
type Dir struct {
	id   Identifier
	file *os.File
}

// OpenDir resolves the identifier for reading and opens it for iteration.
// A resolvable identifier naming a non-directory fails with [ErrNotDir].
func (f *Filesystem) OpenDir(id Identifier, opts ...OpOption) (*Dir, error) {
	var file *os.File

	err := f.dispatch(OpOpenDir, []Identifier{id}, newOpSettings(opts), func(paths []string) error {
		opened, err := f.OSOps.Open(paths[0])
		if err != nil {
			return fmt.Errorf("(fs-dir) failed to open: %w", err)
		}

		info, err := opened.Stat()
		if err != nil {
			opened.Close()

			return fmt.Errorf("(fs-dir) failed to stat: %w", err)
		}
		if !info.IsDir() {
			opened.Close()

			return fmt.Errorf("(fs-dir) %w: %q", ErrNotDir, id.String())
		}
		file = opened

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Dir{id: id, file: file}, nil
}

func (d *Dir) valid() error {
	if d == nil || d.file == nil {
		return fmt.Errorf("(fs-dir) %w", ErrInvalidHandle)
	}

	return nil
}

// ReadEntry returns the next directory entry. The end of the directory is
// reported as [io.EOF], untranslated.
func (d *Dir) ReadEntry() (fs.DirEntry, error) {
	if err := d.valid(); err != nil {
		return nil, err
	}

	entries, err := d.file.ReadDir(1)
	if err != nil {
		return nil, err
	}

	return entries[0], nil
}

// Rewind resets the iterator to the beginning of the directory.
func (d *Dir) Rewind() error {
	if err := d.valid(); err != nil {
		return err
	}

	if _, err := d.file.Seek(0, 0); err != nil {
		return fmt.Errorf("(fs-dir) failed to rewind: %w", err)
	}

	return nil
}

// Identifier returns the identifier the handle was opened under.
func (d *Dir) Identifier() Identifier {
	if d == nil {
		return Identifier{}
	}

	return d.id
}

// Close closes the iterator and invalidates the handle for further use.
func (d *Dir) Close() error {
	if err := d.valid(); err != nil {
		return err
	}

	err := d.file.Close()
	d.file = nil

	if err != nil {
		return fmt.Errorf("(fs-dir) failed to close: %w", err)
	}

	return nil
}
