package activation

import (
	"context"
	"errors"
	"testing"

	"github.com/agentx-labs/unithost/internal/unit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_ReadMissing(t *testing.T) {
	store := NewStore(NewMemoryRepository())

	snap := store.Read(context.Background(), unit.Extension)
	assert.Equal(t, "extensions.active", snap.Identifier)
	assert.False(t, snap.Found)
	assert.True(t, snap.Decoded.ShapeValid)
	assert.Empty(t, snap.Entries())
	assert.NoError(t, snap.Err)
}

func TestStore_ReadFailureDegradesToEmpty(t *testing.T) {
	repo := NewMemoryRepository()
	repo.Seed("addons.active", []byte("a: \"2024-01-02 03:04:05\""))
	repo.ReadErr = errors.New("disk on fire")
	store := NewStore(repo)

	snap := store.Read(context.Background(), unit.AddOn)
	assert.False(t, snap.Found)
	assert.True(t, snap.Decoded.ShapeValid)
	assert.Empty(t, snap.Decoded.Pairs)
	assert.EqualError(t, snap.Err, "disk on fire")
}

func TestStore_ReadCorruptShape(t *testing.T) {
	repo := NewMemoryRepository()
	repo.Seed("extensions.active", []byte("- not\n- a\n- mapping\n"))
	store := NewStore(repo)

	snap := store.Read(context.Background(), unit.Extension)
	assert.True(t, snap.Found)
	assert.False(t, snap.Decoded.ShapeValid)
	assert.Equal(t, 0, repo.Writes(), "reading never writes")
}

func TestStore_WriteThenRead(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	store := NewStore(repo)
	in := Entries{{"beta", "2024-01-02 03:04:05"}, {"alpha", "2024-01-01 00:00:00"}}

	require.NoError(t, store.Write(ctx, unit.Extension, in))
	assert.Equal(t, 1, repo.Writes())

	snap := store.Read(ctx, unit.Extension)
	require.True(t, snap.Found)
	assert.True(t, in.Equal(snap.Entries()))

	other := store.Read(ctx, unit.AddOn)
	assert.False(t, other.Found, "categories use separate records")
}

func TestStore_WriteReplacesWholeRecord(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewFileRepository(t.TempDir()))

	require.NoError(t, store.Write(ctx, unit.AddOn, Entries{{"a", "2024-01-01 00:00:00"}, {"b", "2024-01-01 00:00:00"}}))
	require.NoError(t, store.Write(ctx, unit.AddOn, Entries{{"b", "2024-01-02 00:00:00"}}))

	snap := store.Read(ctx, unit.AddOn)
	assert.Equal(t, []string{"b"}, snap.Entries().Keys())
}

func TestStore_WriteFailureWrapsSentinel(t *testing.T) {
	boom := errors.New("read-only")
	repo := NewMemoryRepository()
	repo.WriteErr = boom
	store := NewStore(repo)

	err := store.Write(context.Background(), unit.Extension, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWriteFailed)
	assert.ErrorIs(t, err, boom)
}

func TestSnapshot_EntriesSkipsBadPairs(t *testing.T) {
	snap := Snapshot{Decoded: Decode([]byte("1: x\nok: \"2024-01-01 00:00:00\"\nbad: [1]\n"))}
	assert.Equal(t, []string{"ok"}, snap.Entries().Keys())
}
