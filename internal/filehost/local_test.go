package filehost

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalHostUploadAndDelete(t *testing.T) {
	dir := t.TempDir()
	host, err := NewLocalHost(dir)
	require.NoError(t, err)
	ctx := context.Background()

	up, err := host.Upload(ctx, "application/java-archive", "data/abc/versions/1.0.0/mod.jar", []byte("jar bytes"))
	require.NoError(t, err)
	assert.Equal(t, "data/abc/versions/1.0.0/mod.jar", up.FileName)

	stored, err := os.ReadFile(filepath.Join(dir, "data", "abc", "versions", "1.0.0", "mod.jar"))
	require.NoError(t, err)
	assert.Equal(t, []byte("jar bytes"), stored)

	// The staging file used for the atomic rename must not survive.
	entries, err := os.ReadDir(filepath.Join(dir, "data", "abc", "versions", "1.0.0"))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.Contains(e.Name(), ".tmp-"), "leftover temp file %s", e.Name())
	}

	// Overwriting the same key replaces the content.
	_, err = host.Upload(ctx, "application/java-archive", "data/abc/versions/1.0.0/mod.jar", []byte("newer"))
	require.NoError(t, err)
	stored, err = os.ReadFile(filepath.Join(dir, "data", "abc", "versions", "1.0.0", "mod.jar"))
	require.NoError(t, err)
	assert.Equal(t, []byte("newer"), stored)

	require.NoError(t, host.Delete(ctx, up.FileID, up.FileName))
	_, err = os.Stat(filepath.Join(dir, "data", "abc", "versions", "1.0.0", "mod.jar"))
	assert.True(t, os.IsNotExist(err))

	// Deleting a missing blob is not an error.
	require.NoError(t, host.Delete(ctx, up.FileID, up.FileName))
}

func TestLocalHostRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	host, err := NewLocalHost(dir)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = host.Upload(ctx, "text/plain", "../escape.txt", []byte("nope"))
	require.Error(t, err)

	err = host.Delete(ctx, "", "../../etc/passwd")
	require.Error(t, err)
}
