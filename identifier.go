package govfs

import (
	"fmt"
	"path"
	"strings"
)

// schemeSeparator divides the scheme from the relative part of an identifier.
const schemeSeparator = "://"

// Identifier is an abstract scheme://relative/path address. The scheme
// selects which [Locator] policy governs it; the relative part is a
// slash-separated sequence of segments, possibly empty (the bare scheme
// root). Identifiers are immutable values; two identifiers are equal exactly
// when their string forms are equal.
type Identifier struct {
	scheme string
	rel    string
}

// NewIdentifier constructs an [Identifier] from a scheme and a relative
// part. The relative part is normalized: separator runs collapse, dot
// segments resolve and cannot escape upward past the scheme root.
func NewIdentifier(scheme string, rel string) Identifier {
	rel = strings.TrimPrefix(path.Clean("/"+rel), "/")

	return Identifier{scheme: scheme, rel: rel}
}

// ParseIdentifier parses a raw scheme://relative/path string into an
// [Identifier]. Input without a scheme prefix fails with
// [ErrMalformedIdentifier].
func ParseIdentifier(raw string) (Identifier, error) {
	scheme, rel, found := strings.Cut(raw, schemeSeparator)
	if !found || scheme == "" {
		return Identifier{}, fmt.Errorf("(identifier) %w: %q", ErrMalformedIdentifier, raw)
	}

	return NewIdentifier(scheme, rel), nil
}

// Scheme returns the scheme part of the identifier.
func (id Identifier) Scheme() string {
	return id.scheme
}

// Rel returns the normalized relative part of the identifier, without a
// leading slash. It is empty for the bare scheme root.
func (id Identifier) Rel() string {
	return id.rel
}

// String returns the canonical scheme://relative/path form.
func (id Identifier) String() string {
	return id.scheme + schemeSeparator + id.rel
}

// IsRoot reports whether the identifier is the bare scheme root, with an
// empty relative part.
func (id Identifier) IsRoot() bool {
	return id.rel == ""
}

// Segments returns the ordered segments of the relative part, nil for the
// bare scheme root.
func (id Identifier) Segments() []string {
	if id.rel == "" {
		return nil
	}

	return strings.Split(id.rel, "/")
}

// Base returns the last segment of the relative part, empty for the bare
// scheme root.
func (id Identifier) Base() string {
	if id.rel == "" {
		return ""
	}
	if i := strings.LastIndexByte(id.rel, '/'); i >= 0 {
		return id.rel[i+1:]
	}

	return id.rel
}

// Parent returns the identifier with the last segment removed. The second
// return is false when the identifier already is the bare scheme root.
func (id Identifier) Parent() (Identifier, bool) {
	if id.rel == "" {
		return id, false
	}
	if i := strings.LastIndexByte(id.rel, '/'); i >= 0 {
		return Identifier{scheme: id.scheme, rel: id.rel[:i]}, true
	}

	return Identifier{scheme: id.scheme}, true
}

// Child returns the identifier extended by one relative path, normalized
// like [NewIdentifier].
func (id Identifier) Child(rel string) Identifier {
	if id.rel == "" {
		return NewIdentifier(id.scheme, rel)
	}

	return NewIdentifier(id.scheme, id.rel+"/"+rel)
}
