package gormstorage

import (
	"context"
	"fmt"
	"testing"

	"github.com/artycalc/artycalc/internal/database"
	"github.com/artycalc/artycalc/internal/storage"
	"github.com/artycalc/artycalc/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

// newTestBackend creates a Backend on a private in-memory SQLite database.
func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	m := database.NewManager(zerolog.Nop(), dsn)
	require.NoError(t, m.ConnectSQLite())

	b := New(Dependencies{DB: m.DB, OnClose: m.Close})
	require.NoError(t, b.Init())
	t.Cleanup(func() { b.Close() })
	return b
}

func preset(name string, guns int) core.Snapshot {
	s := core.NewSnapshot()
	s.Name = name
	s.Targets[0] = core.Target{Dist: core.Num(300), Angle: core.Num(270)}
	for len(s.Guns) < guns {
		s.AddGun()
	}
	return *s
}

func TestInit_NoDB(t *testing.T) {
	b := New(Dependencies{})
	assert.Error(t, b.Init())
}

func TestSaveLoad(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Save(ctx, preset("ridge", 2)))

	got, err := b.Load(ctx, "ridge")
	require.NoError(t, err)
	assert.Equal(t, preset("ridge", 2), got)
}

func TestSave_Overwrites(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Save(ctx, preset("ridge", 1)))
	require.NoError(t, b.Save(ctx, preset("ridge", 3)))

	got, err := b.Load(ctx, "ridge")
	require.NoError(t, err)
	assert.Len(t, got.Guns, 3)

	list, err := b.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 3, list[0].Guns)
}

func TestSave_InvalidName(t *testing.T) {
	b := newTestBackend(t)
	assert.ErrorIs(t, b.Save(context.Background(), preset(" ", 1)), storage.ErrInvalidName)
}

func TestLoad_NotFound(t *testing.T) {
	b := newTestBackend(t)

	_, err := b.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrPresetNotFound)
}

func TestList_Sorted(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	for _, name := range []string{"valley", "bridge", "hill"} {
		require.NoError(t, b.Save(ctx, preset(name, 1)))
	}

	list, err := b.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "bridge", list[0].Name)
	assert.Equal(t, "hill", list[1].Name)
	assert.Equal(t, "valley", list[2].Name)
	assert.Equal(t, 1, list[0].Targets)
	assert.False(t, list[0].UpdatedAt.IsZero())
}

func TestDelete(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Save(ctx, preset("ridge", 1)))
	require.NoError(t, b.Delete(ctx, "ridge"))

	_, err := b.Load(ctx, "ridge")
	assert.ErrorIs(t, err, storage.ErrPresetNotFound)
	assert.ErrorIs(t, b.Delete(ctx, "ridge"), storage.ErrPresetNotFound)
}
