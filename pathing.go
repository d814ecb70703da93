package govfs

import (
	"fmt"
	"path/filepath"
	"strings"
)

// AccessMode governs whether path resolution may synthesize a concrete path
// for a resource that does not exist yet.
type AccessMode int

const (
	// ModeRead addresses existing resources only; resolution never
	// synthesizes a path.
	ModeRead AccessMode = iota

	// ModeWrite permits synthesizing the path of a single missing file
	// beneath the nearest existing ancestor directory.
	ModeWrite

	// ModeCreateDir permits synthesizing the path of a whole missing
	// directory chain beneath the nearest existing ancestor directory.
	ModeCreateDir
)

// String returns a short name for the access mode.
func (m AccessMode) String() string {
	switch m {
	case ModeRead:
		return "read"
	case ModeWrite:
		return "write"
	case ModeCreateDir:
		return "create-dir"
	default:
		return "unknown"
	}
}

// Resolve maps an abstract identifier to a concrete native path for the
// given access mode.
//
// An identifier the [Locator] already maps resolves to that path regardless
// of mode: existing resources are always addressable. Otherwise [ModeRead]
// fails with [ErrUnresolved], while [ModeWrite] and [ModeCreateDir] walk the
// identifier's ancestors (stripping trailing segments one at a time) until
// the locator maps one, and reassemble the stripped segments beneath it.
// Identifiers with an empty relative part, and identifiers where no ancestor
// down to (but excluding) the bare scheme root maps, fail with
// [ErrUnresolved].
//
// Resolution never touches the native filesystem; existence knowledge is
// entirely the locator's.
func (f *Filesystem) Resolve(id Identifier, mode AccessMode) (string, error) {
	if f.Locator == nil {
		return "", fmt.Errorf("(pathing) %w: no locator bound", ErrUnresolved)
	}

	if !f.Locator.IsKnownScheme(id) {
		return "", fmt.Errorf("(pathing) %w: unknown scheme: %q", ErrUnresolved, id.Scheme())
	}

	if path, found := f.Locator.Resolve(id); found {
		return path, nil
	}

	if mode == ModeRead {
		return "", fmt.Errorf("(pathing) %w: %s", ErrUnresolved, id)
	}

	return f.synthesize(id)
}

// synthesize locates the nearest existing ancestor of the identifier through
// the locator and rebuilds the full path beneath it. The bare scheme root is
// never queried as an ancestor.
func (f *Filesystem) synthesize(id Identifier) (string, error) {
	segments := id.Segments()
	if len(segments) == 0 {
		return "", fmt.Errorf("(pathing) %w: empty relative part: %s", ErrUnresolved, id)
	}

	for i := len(segments) - 1; i > 0; i-- {
		ancestor := NewIdentifier(id.Scheme(), strings.Join(segments[:i], "/"))

		if path, found := f.Locator.Resolve(ancestor); found {
			return filepath.Join(append([]string{path}, segments[i:]...)...), nil
		}
	}

	return "", fmt.Errorf("(pathing) %w: no resolvable ancestor: %s", ErrUnresolved, id)
}
