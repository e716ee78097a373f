package volume

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cuemby/datavol/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsVersionStamp(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"120001", true},
		{"240315", true},
		{"999999", true},
		{"120000", false},
		{"100000", false},
		{"012345", false},
		{"abc123", false},
		{"12345", false},
		{"0000000", false},
		{"1234567", false},
		{"-12345", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsVersionStamp(tt.name))
		})
	}
}

// withData creates <root>/<stamp>/ and, when files is true, a file inside it
func withData(t *testing.T, root, stamp string, files bool) {
	t.Helper()
	dir := filepath.Join(root, stamp)
	require.NoError(t, os.MkdirAll(dir, 0755))
	if files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "World.mwm"), []byte("map"), 0644))
	}
}

func TestContainsData(t *testing.T) {
	t.Run("non-empty stamp directory", func(t *testing.T) {
		root := t.TempDir()
		withData(t, root, "240315", true)
		assert.True(t, ContainsData(root))
	})

	t.Run("empty stamp directory", func(t *testing.T) {
		root := t.TempDir()
		withData(t, root, "240315", false)
		assert.False(t, ContainsData(root))
	})

	t.Run("malformed names", func(t *testing.T) {
		root := t.TempDir()
		for _, name := range []string{"abc123", "12345", "0000000", "110000"} {
			withData(t, root, name, true)
		}
		assert.False(t, ContainsData(root))
	})

	t.Run("stamp file is not a directory", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(root, "240315"), []byte("x"), 0644))
		assert.False(t, ContainsData(root))
	})

	t.Run("any matching directory counts", func(t *testing.T) {
		root := t.TempDir()
		withData(t, root, "200101", false)
		withData(t, root, "240315", true)
		assert.True(t, ContainsData(root))
	})

	t.Run("missing directory", func(t *testing.T) {
		assert.False(t, ContainsData(filepath.Join(t.TempDir(), "missing")))
	})
}

func TestFindDataVolume(t *testing.T) {
	_, err := FindDataVolume(types.Snapshot{CurrentIndex: types.NoCurrent})
	assert.ErrorIs(t, err, types.ErrNoStorage)

	a, b, c := t.TempDir(), t.TempDir(), t.TempDir()
	snapshot := func(current int) types.Snapshot {
		return types.Snapshot{
			Volumes: []types.Volume{
				{Path: a, FreeBytes: 10},
				{Path: b, FreeBytes: 30},
				{Path: c, FreeBytes: 20},
			},
			CurrentIndex: current,
		}
	}

	got, err := FindDataVolume(snapshot(types.NoCurrent))
	require.NoError(t, err)
	assert.Equal(t, b, got, "no data anywhere falls back to the biggest volume")

	withData(t, c, "240315", true)
	got, err = FindDataVolume(snapshot(0))
	require.NoError(t, err)
	assert.Equal(t, c, got, "first volume with data when the current one is empty")

	withData(t, a, "240315", true)
	got, err = FindDataVolume(snapshot(2))
	require.NoError(t, err)
	assert.Equal(t, c, got, "current volume wins when it holds data")

	got, err = FindDataVolume(snapshot(1))
	require.NoError(t, err)
	assert.Equal(t, a, got, "snapshot order among other volumes")
}
