package govfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseIdentifier_Success tests parsing of well-formed identifiers.
func TestParseIdentifier_Success(t *testing.T) {
	t.Parallel()

	id, err := ParseIdentifier("res://movies/file.mkv")

	require.NoError(t, err)
	assert.Equal(t, "res", id.Scheme())
	assert.Equal(t, "movies/file.mkv", id.Rel())
	assert.Equal(t, "res://movies/file.mkv", id.String())
	assert.False(t, id.IsRoot())
}

// TestParseIdentifier_Success_Root tests parsing of a bare scheme root.
func TestParseIdentifier_Success_Root(t *testing.T) {
	t.Parallel()

	id, err := ParseIdentifier("res://")

	require.NoError(t, err)
	assert.Equal(t, "res", id.Scheme())
	assert.Empty(t, id.Rel())
	assert.True(t, id.IsRoot())
	assert.Nil(t, id.Segments())
}

// TestParseIdentifier_Fail_NoSeparator tests rejection of input without a
// scheme separator.
func TestParseIdentifier_Fail_NoSeparator(t *testing.T) {
	t.Parallel()

	_, err := ParseIdentifier("movies/file.mkv")

	require.ErrorIs(t, err, ErrMalformedIdentifier)
}

// TestParseIdentifier_Fail_EmptyScheme tests rejection of input with an
// empty scheme part.
func TestParseIdentifier_Fail_EmptyScheme(t *testing.T) {
	t.Parallel()

	_, err := ParseIdentifier("://movies/file.mkv")

	require.ErrorIs(t, err, ErrMalformedIdentifier)
}

// TestNewIdentifier_Success_Normalization tests relative part normalization.
func TestNewIdentifier_Success_Normalization(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rel  string
		want string
	}{
		{"plain", "movies/file.mkv", "movies/file.mkv"},
		{"separator runs", "movies//sub///file.mkv", "movies/sub/file.mkv"},
		{"leading slash", "/movies/file.mkv", "movies/file.mkv"},
		{"trailing slash", "movies/sub/", "movies/sub"},
		{"dot segments", "movies/./sub/../file.mkv", "movies/file.mkv"},
		{"upward escape clamped", "../../etc/passwd", "etc/passwd"},
		{"only dots", "./.", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			id := NewIdentifier("res", tt.rel)
			assert.Equal(t, tt.want, id.Rel())
		})
	}
}

// TestIdentifierSegments_Success tests segment splitting.
func TestIdentifierSegments_Success(t *testing.T) {
	t.Parallel()

	id := NewIdentifier("res", "a/b/c")

	assert.Equal(t, []string{"a", "b", "c"}, id.Segments())
	assert.Equal(t, "c", id.Base())
}

// TestIdentifierParent_Success tests stripping of trailing segments.
func TestIdentifierParent_Success(t *testing.T) {
	t.Parallel()

	id := NewIdentifier("res", "a/b/c")

	parent, ok := id.Parent()
	require.True(t, ok)
	assert.Equal(t, "a/b", parent.Rel())

	parent, ok = parent.Parent()
	require.True(t, ok)
	assert.Equal(t, "a", parent.Rel())

	root, ok := parent.Parent()
	require.True(t, ok)
	assert.True(t, root.IsRoot())

	_, ok = root.Parent()
	assert.False(t, ok)
}

// TestIdentifierChild_Success tests extending identifiers downward.
func TestIdentifierChild_Success(t *testing.T) {
	t.Parallel()

	root := NewIdentifier("res", "")

	child := root.Child("movies")
	assert.Equal(t, "res://movies", child.String())

	grandchild := child.Child("sub/file.mkv")
	assert.Equal(t, "res://movies/sub/file.mkv", grandchild.String())

	clamped := child.Child("../../escape")
	assert.Equal(t, "res://escape", clamped.String())
}

// TestIdentifierEquality_Success tests that identifiers are comparable
// values.
func TestIdentifierEquality_Success(t *testing.T) {
	t.Parallel()

	a := NewIdentifier("res", "movies//file.mkv")
	b, err := ParseIdentifier("res://movies/file.mkv")

	require.NoError(t, err)
	assert.Equal(t, a, b)
}
