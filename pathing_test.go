package govfs_test

import (
	"testing"

	"github.com/desertwitch/govfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockLocator struct {
	mock.Mock
}

func (m *mockLocator) IsKnownScheme(id govfs.Identifier) bool {
	args := m.Called(id)

	return args.Bool(0)
}

func (m *mockLocator) Resolve(id govfs.Identifier) (string, bool) {
	args := m.Called(id)

	return args.String(0), args.Bool(1)
}

func (m *mockLocator) Invalidate(id govfs.Identifier) {
	m.Called(id)
}

// TestResolve_Success_DirectHit tests resolution of an already-mapped
// identifier. The native providers stay nil, as resolution must never
// consult the native filesystem.
func TestResolve_Success_DirectHit(t *testing.T) {
	t.Parallel()

	mockLoc := new(mockLocator)
	fsys := &govfs.Filesystem{Locator: mockLoc}

	id := govfs.NewIdentifier("res", "movies")
	mockLoc.On("IsKnownScheme", id).Return(true)
	mockLoc.On("Resolve", id).Return("/mnt/disk1/movies", true)

	path, err := fsys.Resolve(id, govfs.ModeRead)

	require.NoError(t, err)
	assert.Equal(t, "/mnt/disk1/movies", path)

	mockLoc.AssertExpectations(t)
}

// TestResolve_Success_DirectHitIgnoresMode tests that a mapped identifier
// resolves in write mode without any ancestor queries.
func TestResolve_Success_DirectHitIgnoresMode(t *testing.T) {
	t.Parallel()

	mockLoc := new(mockLocator)
	fsys := &govfs.Filesystem{Locator: mockLoc}

	id := govfs.NewIdentifier("res", "movies/file.mkv")
	mockLoc.On("IsKnownScheme", id).Return(true)
	mockLoc.On("Resolve", id).Return("/mnt/disk1/movies/file.mkv", true)

	path, err := fsys.Resolve(id, govfs.ModeWrite)

	require.NoError(t, err)
	assert.Equal(t, "/mnt/disk1/movies/file.mkv", path)

	mockLoc.AssertExpectations(t)
}

// TestResolve_Fail_NilLocator tests that resolution fails closed without a
// bound locator.
func TestResolve_Fail_NilLocator(t *testing.T) {
	t.Parallel()

	fsys := &govfs.Filesystem{}

	_, err := fsys.Resolve(govfs.NewIdentifier("res", "movies"), govfs.ModeRead)

	require.ErrorIs(t, err, govfs.ErrUnresolved)
}

// TestResolve_Fail_UnknownScheme tests rejection of schemes the locator
// does not govern.
func TestResolve_Fail_UnknownScheme(t *testing.T) {
	t.Parallel()

	mockLoc := new(mockLocator)
	fsys := &govfs.Filesystem{Locator: mockLoc}

	id := govfs.NewIdentifier("bogus", "movies")
	mockLoc.On("IsKnownScheme", id).Return(false)

	_, err := fsys.Resolve(id, govfs.ModeRead)

	require.ErrorIs(t, err, govfs.ErrUnresolved)
	assert.ErrorContains(t, err, "unknown scheme")

	mockLoc.AssertExpectations(t)
}

// TestResolve_Fail_ReadMiss tests that read-mode resolution never
// synthesizes a path for a missing resource.
func TestResolve_Fail_ReadMiss(t *testing.T) {
	t.Parallel()

	mockLoc := new(mockLocator)
	fsys := &govfs.Filesystem{Locator: mockLoc}

	id := govfs.NewIdentifier("res", "movies/missing.mkv")
	mockLoc.On("IsKnownScheme", id).Return(true)
	mockLoc.On("Resolve", id).Return("", false)

	_, err := fsys.Resolve(id, govfs.ModeRead)

	require.ErrorIs(t, err, govfs.ErrUnresolved)

	mockLoc.AssertExpectations(t)
}

// TestResolve_Success_WriteSynthesis tests the ancestor walk: trailing
// segments strip one at a time until a mapped ancestor is found, then
// reassemble beneath it.
func TestResolve_Success_WriteSynthesis(t *testing.T) {
	t.Parallel()

	mockLoc := new(mockLocator)
	fsys := &govfs.Filesystem{Locator: mockLoc}

	id := govfs.NewIdentifier("res", "movies/sub/file.mkv")
	mockLoc.On("IsKnownScheme", id).Return(true)
	mockLoc.On("Resolve", id).Return("", false)
	mockLoc.On("Resolve", govfs.NewIdentifier("res", "movies/sub")).Return("", false)
	mockLoc.On("Resolve", govfs.NewIdentifier("res", "movies")).Return("/mnt/disk1/movies", true)

	path, err := fsys.Resolve(id, govfs.ModeWrite)

	require.NoError(t, err)
	assert.Equal(t, "/mnt/disk1/movies/sub/file.mkv", path)

	mockLoc.AssertExpectations(t)
}

// TestResolve_Success_WriteSynthesisNearestWins tests that the walk stops at
// the nearest mapped ancestor; farther ancestors are never queried.
func TestResolve_Success_WriteSynthesisNearestWins(t *testing.T) {
	t.Parallel()

	mockLoc := new(mockLocator)
	fsys := &govfs.Filesystem{Locator: mockLoc}

	id := govfs.NewIdentifier("res", "movies/sub/file.mkv")
	mockLoc.On("IsKnownScheme", id).Return(true)
	mockLoc.On("Resolve", id).Return("", false)
	mockLoc.On("Resolve", govfs.NewIdentifier("res", "movies/sub")).Return("/mnt/disk2/movies/sub", true)

	path, err := fsys.Resolve(id, govfs.ModeWrite)

	require.NoError(t, err)
	assert.Equal(t, "/mnt/disk2/movies/sub/file.mkv", path)

	mockLoc.AssertExpectations(t)
}

// TestResolve_Fail_WriteSingleSegment tests that a single-segment identifier
// has no ancestors to walk; the bare scheme root is never queried.
func TestResolve_Fail_WriteSingleSegment(t *testing.T) {
	t.Parallel()

	mockLoc := new(mockLocator)
	fsys := &govfs.Filesystem{Locator: mockLoc}

	id := govfs.NewIdentifier("res", "orphan.mkv")
	mockLoc.On("IsKnownScheme", id).Return(true)
	mockLoc.On("Resolve", id).Return("", false)

	_, err := fsys.Resolve(id, govfs.ModeWrite)

	require.ErrorIs(t, err, govfs.ErrUnresolved)
	assert.ErrorContains(t, err, "no resolvable ancestor")

	mockLoc.AssertExpectations(t)
	mockLoc.AssertNotCalled(t, "Resolve", govfs.NewIdentifier("res", ""))
}

// TestResolve_Fail_WriteNoAncestor tests exhaustion of the ancestor walk
// above the deepest segment, stopping short of the bare scheme root.
func TestResolve_Fail_WriteNoAncestor(t *testing.T) {
	t.Parallel()

	mockLoc := new(mockLocator)
	fsys := &govfs.Filesystem{Locator: mockLoc}

	id := govfs.NewIdentifier("res", "movies/sub/file.mkv")
	mockLoc.On("IsKnownScheme", id).Return(true)
	mockLoc.On("Resolve", id).Return("", false)
	mockLoc.On("Resolve", govfs.NewIdentifier("res", "movies/sub")).Return("", false)
	mockLoc.On("Resolve", govfs.NewIdentifier("res", "movies")).Return("", false)

	_, err := fsys.Resolve(id, govfs.ModeWrite)

	require.ErrorIs(t, err, govfs.ErrUnresolved)

	mockLoc.AssertExpectations(t)
	mockLoc.AssertNotCalled(t, "Resolve", govfs.NewIdentifier("res", ""))
}

// TestResolve_Fail_CreateDirEmptyRel tests that an unmapped bare scheme root
// cannot be synthesized in any mode.
func TestResolve_Fail_CreateDirEmptyRel(t *testing.T) {
	t.Parallel()

	mockLoc := new(mockLocator)
	fsys := &govfs.Filesystem{Locator: mockLoc}

	id := govfs.NewIdentifier("res", "")
	mockLoc.On("IsKnownScheme", id).Return(true)
	mockLoc.On("Resolve", id).Return("", false)

	_, err := fsys.Resolve(id, govfs.ModeCreateDir)

	require.ErrorIs(t, err, govfs.ErrUnresolved)
	assert.ErrorContains(t, err, "empty relative part")

	mockLoc.AssertExpectations(t)
}

// TestResolve_Success_CreateDirDeepChain tests synthesis of a whole missing
// directory chain beneath a distant ancestor.
func TestResolve_Success_CreateDirDeepChain(t *testing.T) {
	t.Parallel()

	mockLoc := new(mockLocator)
	fsys := &govfs.Filesystem{Locator: mockLoc}

	id := govfs.NewIdentifier("res", "a/b/c/d")
	mockLoc.On("IsKnownScheme", id).Return(true)
	mockLoc.On("Resolve", id).Return("", false)
	mockLoc.On("Resolve", govfs.NewIdentifier("res", "a/b/c")).Return("", false)
	mockLoc.On("Resolve", govfs.NewIdentifier("res", "a/b")).Return("", false)
	mockLoc.On("Resolve", govfs.NewIdentifier("res", "a")).Return("/mnt/pool/a", true)

	path, err := fsys.Resolve(id, govfs.ModeCreateDir)

	require.NoError(t, err)
	assert.Equal(t, "/mnt/pool/a/b/c/d", path)

	mockLoc.AssertExpectations(t)
}
