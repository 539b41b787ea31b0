package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediavault/internal/config"
	"mediavault/internal/domain/media"
)

func newTestLocalStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(&config.Config{
		LocalStoragePath:    t.TempDir(),
		LocalStorageBaseURL: "http://localhost:8290",
	}, zerolog.Nop())
	require.NoError(t, err)
	return store
}

func TestLocalStoreMultipartRoundTrip(t *testing.T) {
	store := newTestLocalStore(t)
	ctx := context.Background()
	key := "uploads/alice/visual/2026/03/07/group/vacation.mp4"
	metadata := map[string]string{"user-id": "alice"}

	sessionID, err := store.OpenMultipart(ctx, key, "video/mp4", metadata)
	require.NoError(t, err)

	url, err := store.PresignPartUpload(ctx, key, sessionID, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("http://localhost:8290/v1/local/uploads/%s/parts/1", sessionID), url)

	tag1, err := store.WritePart(sessionID, 1, strings.NewReader("hello "))
	require.NoError(t, err)
	tag2, err := store.WritePart(sessionID, 2, strings.NewReader("world"))
	require.NoError(t, err)
	assert.Len(t, tag1, 32)
	assert.Len(t, tag2, 32)

	parts := []media.CompletedPart{
		{PartNumber: 1, IntegrityTag: tag1},
		{PartNumber: 2, IntegrityTag: tag2},
	}
	location, err := store.AssembleMultipart(ctx, key, sessionID, parts)
	require.NoError(t, err)

	data, err := os.ReadFile(location)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))

	meta, err := store.HeadObject(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(len("hello world")), meta.SizeBytes)
	assert.Equal(t, "video/mp4", meta.ContentType)
	assert.Equal(t, "alice", meta.UserMetadata["user-id"])

	// Session directory is cleaned up after assembly.
	_, err = os.Stat(store.sessionPath(sessionID))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStoreAssembleGuards(t *testing.T) {
	store := newTestLocalStore(t)
	ctx := context.Background()

	sessionID, err := store.OpenMultipart(ctx, "uploads/a/key.mp4", "video/mp4", nil)
	require.NoError(t, err)

	_, err = store.AssembleMultipart(ctx, "uploads/a/other.mp4", sessionID, nil)
	assert.Error(t, err, "assembling under a different key should fail")

	parts := []media.CompletedPart{{PartNumber: 1, IntegrityTag: "x"}}
	_, err = store.AssembleMultipart(ctx, "uploads/a/key.mp4", sessionID, parts)
	assert.Error(t, err, "assembling a part that was never uploaded should fail")

	_, err = store.AssembleMultipart(ctx, "uploads/a/key.mp4", "no-such-session", nil)
	assert.Error(t, err, "unknown session should fail")
}

func TestLocalStoreAbortMultipart(t *testing.T) {
	store := newTestLocalStore(t)
	ctx := context.Background()

	sessionID, err := store.OpenMultipart(ctx, "uploads/a/key.mp4", "video/mp4", nil)
	require.NoError(t, err)
	_, err = store.WritePart(sessionID, 1, strings.NewReader("data"))
	require.NoError(t, err)

	require.NoError(t, store.AbortMultipart(ctx, "uploads/a/key.mp4", sessionID))

	_, err = store.WritePart(sessionID, 2, strings.NewReader("more"))
	assert.Error(t, err, "writing to an aborted session should fail")
}

func TestLocalStoreListObjects(t *testing.T) {
	store := newTestLocalStore(t)
	ctx := context.Background()

	keys := []string{
		"uploads/alice/visual/2026/03/07/g1/a.mp4",
		"uploads/alice/visual/2026/03/07/g1/thumbnail/a.jpg",
		"uploads/alice/audio/2026/03/07/g2/b.mp3",
		"uploads/bob/visual/2026/03/07/g3/c.mp4",
	}
	for _, key := range keys {
		writeTestObject(t, store, key, "data")
	}

	page, err := store.ListObjects(ctx, "uploads/alice/", 10, "")
	require.NoError(t, err)
	require.Len(t, page.Entries, 3)
	assert.False(t, page.Truncated)
	for _, entry := range page.Entries {
		assert.True(t, strings.HasPrefix(entry.Key, "uploads/alice/"), "leaked key %q", entry.Key)
	}

	// Pagination walks all keys across pages without duplicates.
	var collected []string
	token := ""
	for {
		page, err := store.ListObjects(ctx, "uploads/", 2, token)
		require.NoError(t, err)
		for _, entry := range page.Entries {
			collected = append(collected, entry.Key)
		}
		if !page.Truncated {
			break
		}
		token = page.NextToken
	}
	assert.Len(t, collected, len(keys))
}

func TestLocalStoreCopyAndDelete(t *testing.T) {
	store := newTestLocalStore(t)
	ctx := context.Background()
	srcKey := "uploads/alice/visual/2026/03/07/g1/a.mp4"
	dstKey := "uploads/alice/visual/2026/03/07/g1/renamed.mp4"

	writeTestObject(t, store, srcKey, "payload")
	require.NoError(t, store.writeMeta(srcKey, "video/mp4", map[string]string{"original-filename": "a.mp4"}))

	require.NoError(t, store.CopyObject(ctx, srcKey, dstKey, map[string]string{"original-filename": "renamed.mp4"}))

	meta, err := store.HeadObject(ctx, dstKey)
	require.NoError(t, err)
	assert.Equal(t, "video/mp4", meta.ContentType, "content type carries over on copy")
	assert.Equal(t, "renamed.mp4", meta.UserMetadata["original-filename"], "metadata replaced on copy")

	err = store.CopyObject(ctx, "uploads/missing.mp4", dstKey, nil)
	assert.ErrorIs(t, err, media.ErrObjectNotFound)

	require.NoError(t, store.DeleteObject(ctx, srcKey))
	_, err = store.HeadObject(ctx, srcKey)
	assert.ErrorIs(t, err, media.ErrObjectNotFound)

	// Deleting an absent key is idempotent.
	assert.NoError(t, store.DeleteObject(ctx, srcKey))
}

func writeTestObject(t *testing.T, store *LocalStore, key, content string) {
	t.Helper()
	path := store.objectPath(key)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}
