package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchFileParts(t *testing.T) {
	parts := []FilePart{
		{Name: "primary", Filename: "mod.jar"},
		{Name: "sources", Filename: "mod-sources.jar"},
	}

	matched, err := matchFileParts([]string{"primary", "sources"}, parts)
	require.NoError(t, err)
	require.Len(t, matched, 2)
	assert.Equal(t, "mod.jar", matched[0].Filename)
	assert.Equal(t, "mod-sources.jar", matched[1].Filename)
}

func TestMatchFilePartsMissingUpload(t *testing.T) {
	parts := []FilePart{{Name: "primary"}}

	_, err := matchFileParts([]string{"primary", "sources"}, parts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sources")
}

func TestMatchFilePartsDuplicatePartName(t *testing.T) {
	parts := []FilePart{{Name: "primary"}, {Name: "primary"}}

	_, err := matchFileParts([]string{"primary"}, parts)
	assert.Error(t, err)
}

func TestMatchFilePartsDeclaredTwice(t *testing.T) {
	parts := []FilePart{{Name: "primary"}}

	_, err := matchFileParts([]string{"primary", "primary"}, parts)
	assert.Error(t, err)
}

func TestHashFile(t *testing.T) {
	hashes := hashFile([]byte("hello"))

	// Known digests of "hello".
	assert.Equal(t, "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d", hashes["sha1"])
	assert.Equal(t,
		"9b71d224bd62f3785d96d46ad3ea3d73319bfbc2890caadae2dff72519673ca72323c3d99ba5c11d7c7acc6e14b8c5da0c4663475c2e5c3adef46f73bcdec043",
		hashes["sha512"])
}

func TestVersionFileKey(t *testing.T) {
	key := versionFileKey(12345, "1.0.0", "mod.jar")
	assert.Equal(t, "data/3D7/versions/1.0.0/mod.jar", key)
}

func TestIconExtension(t *testing.T) {
	ext, err := iconExtension("image/png")
	require.NoError(t, err)
	assert.Equal(t, "png", ext)

	ext, err = iconExtension("image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "jpg", ext)

	_, err = iconExtension("application/zip")
	assert.Error(t, err)
}
