package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	store, err := NewFileStore(root)
	require.NoError(t, err)

	name := "job-description-inputs/input_0a1b2c3d.txt"

	exists, err := store.Exists(ctx, name)
	require.NoError(t, err)
	assert.False(t, exists)

	err = store.Upload(ctx, name, "text/plain", strings.NewReader("backend developer"))
	require.NoError(t, err)

	exists, err = store.Exists(ctx, name)
	require.NoError(t, err)
	assert.True(t, exists)

	data, err := store.Download(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, "backend developer", string(data))

	// No temporary upload files are left next to the object
	entries, err := os.ReadDir(filepath.Join(root, "job-description-inputs"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStore_URI(t *testing.T) {
	root := t.TempDir()
	store, err := NewFileStore(root)
	require.NoError(t, err)

	uri := store.URI("job-results/output_0a1b2c3d.json")
	assert.True(t, strings.HasPrefix(uri, "file://"))
	assert.True(t, strings.HasSuffix(uri, "/job-results/output_0a1b2c3d.json"))
}

func TestFileStore_DownloadMissing(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Download(context.Background(), "job-results/output_ffffffff.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}

func TestFileStore_CanceledContext(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Exists(ctx, "anything")
	assert.ErrorIs(t, err, context.Canceled)
}
