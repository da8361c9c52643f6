package storage

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	batchID := uuid.New()

	t.Run("save and open round trip", func(t *testing.T) {
		info, err := store.Save(ctx, batchID, "invoice.pdf", "application/pdf",
			strings.NewReader("%PDF-1.4 fake"))
		require.NoError(t, err)
		assert.Equal(t, "invoice.pdf", info.Name)
		assert.Equal(t, int64(13), info.Size)

		rc, got, err := store.Open(ctx, batchID, info.ID)
		require.NoError(t, err)
		defer rc.Close()

		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.4 fake", string(data))
		assert.Equal(t, info.ID, got.ID)
	})

	t.Run("same filename stored twice", func(t *testing.T) {
		first, err := store.Save(ctx, batchID, "dup.pdf", "application/pdf",
			strings.NewReader("one"))
		require.NoError(t, err)
		second, err := store.Save(ctx, batchID, "dup.pdf", "application/pdf",
			strings.NewReader("two"))
		require.NoError(t, err)

		assert.NotEqual(t, first.Path, second.Path)

		rc, _, err := store.Open(ctx, batchID, second.ID)
		require.NoError(t, err)
		defer rc.Close()
		data, _ := io.ReadAll(rc)
		assert.Equal(t, "two", string(data))
	})

	t.Run("list returns batch files only", func(t *testing.T) {
		other := uuid.New()
		_, err := store.Save(ctx, other, "other.pdf", "application/pdf",
			strings.NewReader("x"))
		require.NoError(t, err)

		files, err := store.List(ctx, other)
		require.NoError(t, err)
		assert.Len(t, files, 1)
	})

	t.Run("delete removes file and metadata", func(t *testing.T) {
		info, err := store.Save(ctx, batchID, "gone.pdf", "application/pdf",
			strings.NewReader("x"))
		require.NoError(t, err)

		require.NoError(t, store.Delete(ctx, batchID, info.ID))

		_, err = store.Info(ctx, batchID, info.ID)
		assert.Error(t, err)
	})

	t.Run("filename is sanitized", func(t *testing.T) {
		info, err := store.Save(ctx, batchID, "../../etc/passwd", "application/pdf",
			strings.NewReader("x"))
		require.NoError(t, err)
		assert.NotContains(t, info.Path, "..")
		assert.NotContains(t, info.Path, "/")
	})

	t.Run("unknown file errors", func(t *testing.T) {
		_, _, err := store.Open(ctx, batchID, uuid.New())
		assert.Error(t, err)
	})
}

func TestLocalStore_DeleteBatch(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	batchID := uuid.New()
	_, err = store.Save(ctx, batchID, "a.pdf", "application/pdf", strings.NewReader("a"))
	require.NoError(t, err)

	require.NoError(t, store.DeleteBatch(ctx, batchID))

	files, err := store.List(ctx, batchID)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestLocalStore_PurgeOlderThan(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	oldBatch := uuid.New()
	_, err = store.Save(ctx, oldBatch, "old.pdf", "application/pdf", strings.NewReader("a"))
	require.NoError(t, err)

	newBatch := uuid.New()
	_, err = store.Save(ctx, newBatch, "new.pdf", "application/pdf", strings.NewReader("b"))
	require.NoError(t, err)

	t.Run("nothing purged before cutoff", func(t *testing.T) {
		removed, err := store.PurgeOlderThan(ctx, time.Now().Add(-time.Hour))
		require.NoError(t, err)
		assert.Zero(t, removed)
	})

	t.Run("everything older than a future cutoff is purged", func(t *testing.T) {
		removed, err := store.PurgeOlderThan(ctx, time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 2, removed)

		files, err := store.List(ctx, oldBatch)
		require.NoError(t, err)
		assert.Empty(t, files)
	})
}
