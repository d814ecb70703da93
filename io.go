package govfs

import (
	"fmt"
)

// Rename renames a resource within the native filesystem. The source
// resolves for reading, the destination for writing; on success the cached
// resolutions of both identifiers are invalidated. Renames across native
// filesystem boundaries fail like [os.Rename] does.
func (f *Filesystem) Rename(from, to Identifier, opts ...OpOption) error {
	return f.dispatch(OpRename, []Identifier{from, to}, newOpSettings(opts), func(paths []string) error {
		if err := f.OSOps.Rename(paths[0], paths[1]); err != nil {
			return fmt.Errorf("(fs-io) failed to rename: %w", err)
		}

		return nil
	})
}

// Remove removes a file or an empty directory, invalidating the cached
// resolution on success.
func (f *Filesystem) Remove(id Identifier, opts ...OpOption) error {
	return f.dispatch(OpRemove, []Identifier{id}, newOpSettings(opts), func(paths []string) error {
		if err := f.OSOps.Remove(paths[0]); err != nil {
			return fmt.Errorf("(fs-io) failed to remove: %w", err)
		}

		return nil
	})
}
