// Package locator provides a reference resource locator for the virtual
// filesystem adapter: a mount table mapping schemes to ordered native root
// directories, with cached resolutions and mount-table configuration
// loading.
package locator

import (
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/desertwitch/govfs"
	"golang.org/x/sys/unix"
)

// unixProvider defines the existence-check method needed for resolution.
type unixProvider interface {
	Lstat(path string, stat *unix.Stat_t) error
}

// Table maps schemes to ordered lists of native root directories. An
// identifier resolves to its relative part joined onto the first root where
// the resource exists; hits are cached until invalidated.
//
// A Table serializes its own state and is safe for concurrent use.
type Table struct {
	sync.RWMutex

	UnixOps unixProvider

	roots map[string][]string
	cache map[govfs.Identifier]string
}

var _ govfs.Locator = (*Table)(nil)

// NewTable returns a pointer to a new empty [Table].
func NewTable() *Table {
	return &Table{
		UnixOps: &govfs.Unix{},
		roots:   make(map[string][]string),
		cache:   make(map[govfs.Identifier]string),
	}
}

// FromConfig returns a [Table] populated from a validated mount table
// configuration.
func FromConfig(cfg *Config) (*Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	table := NewTable()
	for scheme, roots := range cfg.Mounts {
		for _, root := range roots {
			table.AddRoot(scheme, root)
		}
	}

	return table, nil
}

// AddRoot appends a native root directory for a scheme. Order matters:
// earlier roots win resolution.
func (t *Table) AddRoot(scheme string, root string) {
	t.Lock()
	defer t.Unlock()

	t.roots[scheme] = append(t.roots[scheme], filepath.Clean(root))
}

// Schemes returns the sorted schemes the table governs.
func (t *Table) Schemes() []string {
	t.RLock()
	defer t.RUnlock()

	schemes := make([]string, 0, len(t.roots))
	for scheme := range t.roots {
		schemes = append(schemes, scheme)
	}
	slices.Sort(schemes)

	return schemes
}

// Roots returns the ordered native root directories of a scheme.
func (t *Table) Roots(scheme string) []string {
	t.RLock()
	defer t.RUnlock()

	return slices.Clone(t.roots[scheme])
}

// IsKnownScheme reports whether the identifier's scheme has any configured
// roots.
func (t *Table) IsKnownScheme(id govfs.Identifier) bool {
	t.RLock()
	defer t.RUnlock()

	return len(t.roots[id.Scheme()]) > 0
}

// Resolve maps the identifier onto the first configured root housing an
// existing resource. Cached resolutions return without touching the native
// filesystem.
func (t *Table) Resolve(id govfs.Identifier) (string, bool) {
	t.RLock()
	if path, ok := t.cache[id]; ok {
		t.RUnlock()

		return path, true
	}
	roots := slices.Clone(t.roots[id.Scheme()])
	t.RUnlock()

	for _, root := range roots {
		path := filepath.Join(root, filepath.FromSlash(id.Rel()))

		var stat unix.Stat_t
		if err := t.UnixOps.Lstat(path, &stat); err != nil {
			continue
		}

		t.Lock()
		t.cache[id] = path
		t.Unlock()

		return path, true
	}

	return "", false
}

// Invalidate drops the cached resolution of the identifier and of any
// cached descendants beneath it, so the next query recomputes them.
func (t *Table) Invalidate(id govfs.Identifier) {
	t.Lock()
	defer t.Unlock()

	delete(t.cache, id)

	prefix := id.String()
	if !id.IsRoot() {
		prefix += "/"
	}

	for cached := range t.cache {
		if strings.HasPrefix(cached.String(), prefix) {
			delete(t.cache, cached)
		}
	}
}

// FlushCache drops every cached resolution.
func (t *Table) FlushCache() {
	t.Lock()
	defer t.Unlock()

	clear(t.cache)
}
