package govfs

import (
	"errors"
	"io"
	"io/fs"
	"slices"
	"strings"
)

// schemeFS projects a single scheme of a [Filesystem] as a standard
// read-only [fs.FS].
type schemeFS struct {
	fsys   *Filesystem
	scheme string
}

var (
	_ fs.FS        = (*schemeFS)(nil)
	_ fs.StatFS    = (*schemeFS)(nil)
	_ fs.ReadDirFS = (*schemeFS)(nil)
)

// FS returns a read-only [fs.FS] view over one scheme of the adapter. The
// path "." addresses the bare scheme root; all other paths must satisfy
// [fs.ValidPath]. Unresolvable names surface as [fs.ErrNotExist] inside a
// [*fs.PathError].
func (f *Filesystem) FS(scheme string) fs.FS {
	return &schemeFS{fsys: f, scheme: scheme}
}

func (s *schemeFS) identifier(op, name string) (Identifier, error) {
	if !fs.ValidPath(name) {
		return Identifier{}, &fs.PathError{Op: op, Path: name, Err: fs.ErrInvalid}
	}
	if name == "." {
		name = ""
	}

	return NewIdentifier(s.scheme, name), nil
}

func pathErr(op, name string, err error) error {
	if errors.Is(err, ErrUnresolved) {
		err = fs.ErrNotExist
	}

	return &fs.PathError{Op: op, Path: name, Err: err}
}

// Open opens the named resource for reading.
func (s *schemeFS) Open(name string) (fs.File, error) {
	id, err := s.identifier("open", name)
	if err != nil {
		return nil, err
	}

	file, err := s.fsys.Open(id)
	if err != nil {
		return nil, pathErr("open", name, err)
	}

	return file, nil
}

// Stat returns the [fs.FileInfo] of the named resource, following symlinks
// per [fs.StatFS] convention.
func (s *schemeFS) Stat(name string) (fs.FileInfo, error) {
	id, err := s.identifier("stat", name)
	if err != nil {
		return nil, err
	}

	var info fs.FileInfo

	err = s.fsys.dispatch(OpStat, []Identifier{id}, opSettings{}, func(paths []string) error {
		fi, err := s.fsys.OSOps.Stat(paths[0])
		if err != nil {
			return err
		}
		info = fi

		return nil
	})
	if err != nil {
		return nil, pathErr("stat", name, err)
	}

	return info, nil
}

// ReadDir returns the entries of the named directory, sorted by name.
func (s *schemeFS) ReadDir(name string) ([]fs.DirEntry, error) {
	id, err := s.identifier("readdir", name)
	if err != nil {
		return nil, err
	}

	dir, err := s.fsys.OpenDir(id)
	if err != nil {
		return nil, pathErr("readdir", name, err)
	}
	defer dir.Close()

	var entries []fs.DirEntry
	for {
		entry, err := dir.ReadEntry()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, pathErr("readdir", name, err)
		}
		entries = append(entries, entry)
	}

	slices.SortFunc(entries, func(a, b fs.DirEntry) int {
		return strings.Compare(a.Name(), b.Name())
	})

	return entries, nil
}
