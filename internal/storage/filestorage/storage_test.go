package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *LocalFileStorage {
	t.Helper()

	fs, err := NewLocalFileStorage(t.TempDir(), "http://localhost:8080/uploads")
	require.NoError(t, err)
	return fs
}

func TestLocalFileStorage_PutOpenRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs := newTestStorage(t)

	payload := []byte("binary image data")

	url, err := fs.Put(ctx, "galleries/g1/photo.jpg", payload)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/uploads/galleries/g1/photo.jpg", url)

	rc, err := fs.Open(ctx, "galleries/g1/photo.jpg")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestLocalFileStorage_PutCreatesNestedDirs(t *testing.T) {
	ctx := context.Background()
	fs := newTestStorage(t)

	_, err := fs.Put(ctx, "galleries/g1/thumbs/t1.jpg", []byte("thumb"))
	require.NoError(t, err)

	_, err = os.Stat(fs.GetFullPath(filepath.Join("galleries", "g1", "thumbs", "t1.jpg")))
	assert.NoError(t, err)
}

func TestLocalFileStorage_Delete(t *testing.T) {
	ctx := context.Background()
	fs := newTestStorage(t)

	t.Run("existing file is removed", func(t *testing.T) {
		_, err := fs.Put(ctx, "galleries/g1/photo.jpg", []byte("data"))
		require.NoError(t, err)

		require.NoError(t, fs.Delete(ctx, "galleries/g1/photo.jpg"))

		_, err = os.Stat(fs.GetFullPath("galleries/g1/photo.jpg"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("absent file is not an error", func(t *testing.T) {
		assert.NoError(t, fs.Delete(ctx, "galleries/g1/never-existed.jpg"))
	})

	t.Run("repeated delete stays successful", func(t *testing.T) {
		_, err := fs.Put(ctx, "galleries/g1/twice.jpg", []byte("data"))
		require.NoError(t, err)

		require.NoError(t, fs.Delete(ctx, "galleries/g1/twice.jpg"))
		assert.NoError(t, fs.Delete(ctx, "galleries/g1/twice.jpg"))
	})
}

func TestLocalFileStorage_CanceledContext(t *testing.T) {
	fs := newTestStorage(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fs.Put(ctx, "galleries/g1/photo.jpg", []byte("data"))
	assert.ErrorIs(t, err, context.Canceled)

	assert.ErrorIs(t, fs.Delete(ctx, "galleries/g1/photo.jpg"), context.Canceled)
}
