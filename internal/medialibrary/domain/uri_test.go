package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileURI_RoundTrip(t *testing.T) {
	uri := FileURI("/music/Some Band/01 #1.mp3")
	assert.Equal(t, "file:///music/Some%20Band/01%20%231.mp3", uri)

	path, err := PathFromURI(uri)
	require.NoError(t, err)
	assert.Equal(t, "/music/Some Band/01 #1.mp3", path)
}

func TestPathFromURI_RejectsOtherSchemes(t *testing.T) {
	_, err := PathFromURI("http://example.com/a.mp3")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestCleanPath(t *testing.T) {
	p, err := CleanPath("/music/../music/./X/")
	require.NoError(t, err)
	assert.Equal(t, "/music/X", p)

	p, err = CleanPath("file:///music/X")
	require.NoError(t, err)
	assert.Equal(t, "/music/X", p)

	_, err = CleanPath("  ")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestIsUnder(t *testing.T) {
	assert.True(t, IsUnder("/music/X/a.mp3", "/music"))
	assert.True(t, IsUnder("/music", "/music"))
	assert.True(t, IsUnder("/music/a.mp3", "/music/"))
	assert.False(t, IsUnder("/music2/a.mp3", "/music"))
	assert.Equal(t, "/music/", FolderPrefix("/music"))
}
