package engine

import (
	"path/filepath"
	"testing"

	"github.com/cuemby/datavol/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreEngine(t *testing.T) {
	store, err := storage.NewBoltStore(filepath.Join(t.TempDir(), "datavol.db"))
	require.NoError(t, err)
	defer store.Close()

	eng, err := NewStoreEngine(store, []string{".mwm", " ", ".ttf"})
	require.NoError(t, err)

	assert.Equal(t, []string{".mwm", ".ttf"}, eng.MovableExtensions())

	exts := eng.MovableExtensions()
	exts[0] = ".changed"
	assert.Equal(t, ".mwm", eng.MovableExtensions()[0], "callers get a copy")

	path, err := eng.ConfiguredPath()
	require.NoError(t, err)
	assert.Empty(t, path)

	require.NoError(t, eng.SetConfiguredPath("/media/sd/datavol/"))
	path, err = eng.ConfiguredPath()
	require.NoError(t, err)
	assert.Equal(t, "/media/sd/datavol/", path)
}

func TestNewStoreEngine_Validation(t *testing.T) {
	_, err := NewStoreEngine(nil, []string{".mwm"})
	assert.Error(t, err)

	store, err := storage.NewBoltStore(filepath.Join(t.TempDir(), "datavol.db"))
	require.NoError(t, err)
	defer store.Close()

	_, err = NewStoreEngine(store, []string{"", "  "})
	assert.Error(t, err)
}
