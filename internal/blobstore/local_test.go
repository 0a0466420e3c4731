package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalPutGet(t *testing.T) {
	ctx := context.Background()
	store := NewLocal(t.TempDir())

	err := store.Put(ctx, "mid/abc123.jpg", []byte("payload"), "image/jpeg")
	require.NoError(t, err)

	data, err := store.Get(ctx, "mid/abc123.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
}

func TestLocalOverwrite(t *testing.T) {
	ctx := context.Background()
	store := NewLocal(t.TempDir())

	require.NoError(t, store.Put(ctx, "low/x.jpg", []byte("one"), "image/jpeg"))
	require.NoError(t, store.Put(ctx, "low/x.jpg", []byte("two"), "image/jpeg"))

	data, err := store.Get(ctx, "low/x.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), data)
}

func TestLocalGetNotFound(t *testing.T) {
	store := NewLocal(t.TempDir())

	_, err := store.Get(context.Background(), "high/missing.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalRemove(t *testing.T) {
	ctx := context.Background()
	store := NewLocal(t.TempDir())

	require.NoError(t, store.Put(ctx, "low/y.jpg", []byte("data"), "image/jpeg"))
	require.NoError(t, store.Remove(ctx, "low/y.jpg"))

	_, err := store.Get(ctx, "low/y.jpg")
	assert.ErrorIs(t, err, ErrNotFound)

	// Removing an absent object is a no-op.
	assert.NoError(t, store.Remove(ctx, "low/y.jpg"))
}

func TestLocalPutLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store := NewLocal(root)

	require.NoError(t, store.Put(ctx, "mid/z.jpg", []byte("data"), "image/jpeg"))

	entries, err := os.ReadDir(filepath.Join(root, "mid"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "z.jpg", entries[0].Name())
}
