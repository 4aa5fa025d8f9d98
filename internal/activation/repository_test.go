package activation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileRepository_MissingRecord(t *testing.T) {
	repo := NewFileRepository(t.TempDir())

	doc, err := repo.FindRecord(context.Background(), "extensions.active")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestFileRepository_PersistIsStagedUntilFlush(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	repo := NewFileRepository(dir)

	require.NoError(t, repo.Persist(ctx, &Document{Identifier: "addons.active", Properties: []byte("{}\n")}))
	doc, err := repo.FindRecord(ctx, "addons.active")
	require.NoError(t, err)
	assert.Nil(t, doc, "nothing is visible before Flush")

	require.NoError(t, repo.Flush(ctx))
	doc, err = repo.FindRecord(ctx, "addons.active")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "{}\n", string(doc.Properties))
	assert.False(t, doc.UpdatedAt.IsZero())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")
	assert.Equal(t, "addons.active.yaml", entries[0].Name())
}

func TestFileRepository_FlushCreatesDirectory(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir() + "/state/nested"
	repo := NewFileRepository(dir)

	require.NoError(t, repo.Persist(ctx, &Document{Identifier: "extensions.active", Properties: []byte("a: b\n")}))
	require.NoError(t, repo.Flush(ctx))

	data, err := os.ReadFile(repo.Path("extensions.active"))
	require.NoError(t, err)
	assert.Equal(t, "a: b\n", string(data))
}

func TestFileRepository_RejectsBadIdentifiers(t *testing.T) {
	ctx := context.Background()
	repo := NewFileRepository(t.TempDir())

	for _, id := range []string{"", "../escape", "a/b", "UPPER"} {
		_, err := repo.FindRecord(ctx, id)
		assert.Error(t, err, id)
		assert.Error(t, repo.Persist(ctx, &Document{Identifier: id}), id)
	}
}

func TestFileRepository_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	repo := NewFileRepository(t.TempDir())

	_, err := repo.FindRecord(ctx, "extensions.active")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryRepository_CountsWrites(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	repo.Now = func() time.Time { return fixed }

	require.NoError(t, repo.Persist(ctx, &Document{Identifier: "x", Properties: []byte("{}\n")}))
	assert.Equal(t, 0, repo.Writes())
	require.NoError(t, repo.Flush(ctx))
	assert.Equal(t, 1, repo.Writes())

	doc, err := repo.FindRecord(ctx, "x")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, fixed, doc.UpdatedAt)
}

func TestMemoryRepository_SeedIsNotAWrite(t *testing.T) {
	repo := NewMemoryRepository()
	repo.Seed("x", []byte("[]"))

	raw, ok := repo.Raw("x")
	require.True(t, ok)
	assert.Equal(t, "[]", string(raw))
	assert.Equal(t, 0, repo.Writes())
}

func TestMemoryRepository_InjectedFailures(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	repo := NewMemoryRepository()
	repo.Seed("x", []byte("{}"))

	repo.ReadErr = boom
	_, err := repo.FindRecord(ctx, "x")
	assert.ErrorIs(t, err, boom)

	repo.ReadErr = nil
	repo.WriteErr = boom
	require.NoError(t, repo.Persist(ctx, &Document{Identifier: "x", Properties: []byte("a: b")}))
	assert.ErrorIs(t, repo.Flush(ctx), boom)
	assert.Equal(t, 0, repo.Writes())

	raw, _ := repo.Raw("x")
	assert.Equal(t, "{}", string(raw), "failed flush leaves the record untouched")
}

func TestFileRepository_FailedFlushDiscardsStagedDocuments(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	repo := NewFileRepository(dir)

	// A directory where the record file belongs makes the rename fail.
	blocker := repo.Path("addons.active")
	require.NoError(t, os.MkdirAll(filepath.Join(blocker, "keep"), 0o755))

	require.NoError(t, repo.Persist(ctx, &Document{Identifier: "addons.active", Properties: []byte("a: b\n")}))
	require.Error(t, repo.Flush(ctx))

	require.NoError(t, os.RemoveAll(blocker))
	require.NoError(t, repo.Persist(ctx, &Document{Identifier: "extensions.active", Properties: []byte("x: y\n")}))
	require.NoError(t, repo.Flush(ctx))

	_, err := os.Stat(repo.Path("addons.active"))
	assert.True(t, errors.Is(err, os.ErrNotExist), "failed document was written by a later flush")
	data, err := os.ReadFile(repo.Path("extensions.active"))
	require.NoError(t, err)
	assert.Equal(t, "x: y\n", string(data))
}
