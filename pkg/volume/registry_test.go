package volume

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cuemby/datavol/pkg/platform"
	"github.com/cuemby/datavol/pkg/platform/platformtest"
	"github.com/cuemby/datavol/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paths(s types.Snapshot) []string {
	out := make([]string, 0, len(s.Volumes))
	for _, v := range s.Volumes {
		out = append(out, v.Path)
	}
	return out
}

func TestRegistry_ExternalsBeforeInternal(t *testing.T) {
	internal, usb, sd := t.TempDir(), t.TempDir(), t.TempDir()

	f := platformtest.NewFake()
	f.SetInternal(internal, platform.Usage{TotalBytes: 64 * gib, FreeBytes: 10 * gib})
	f.AddExternal(usb, platform.DeviceInfo{Removable: true}, platform.Usage{TotalBytes: 16 * gib, FreeBytes: 4 * gib})
	f.AddExternal(sd, platform.DeviceInfo{}, platform.Usage{TotalBytes: 8 * gib, FreeBytes: 2 * gib})

	snap, err := NewRegistry(f).Rebuild("")
	require.NoError(t, err)

	assert.Equal(t, []string{canon(t, usb), canon(t, sd), canon(t, internal)}, paths(snap))
	assert.Equal(t, types.NoCurrent, snap.CurrentIndex)
	assert.False(t, snap.BuiltAt.IsZero())
}

func TestRegistry_CurrentIndex(t *testing.T) {
	internal, usb := t.TempDir(), t.TempDir()

	f := platformtest.NewFake()
	f.SetInternal(internal, platform.Usage{TotalBytes: 64 * gib, FreeBytes: 10 * gib})
	f.AddExternal(usb, platform.DeviceInfo{}, platform.Usage{TotalBytes: 16 * gib, FreeBytes: 4 * gib})

	snap, err := NewRegistry(f).Rebuild(internal)
	require.NoError(t, err)

	require.Equal(t, 1, snap.CurrentIndex)
	cur, ok := snap.Current()
	require.True(t, ok)
	assert.Equal(t, canon(t, internal), cur.Path)

	current := 0
	for _, v := range snap.Volumes {
		if v.Current {
			current++
		}
	}
	assert.Equal(t, 1, current, "at most one volume is current")
}

func TestRegistry_StaleConfiguration(t *testing.T) {
	internal := t.TempDir()

	f := platformtest.NewFake()
	f.SetInternal(internal, platform.Usage{TotalBytes: gib, FreeBytes: gib})

	snap, err := NewRegistry(f).Rebuild(filepath.Join(t.TempDir(), "ejected"))
	require.NoError(t, err)
	assert.Len(t, snap.Volumes, 1)
	assert.Equal(t, types.NoCurrent, snap.CurrentIndex)
	assert.False(t, snap.HasCurrent())
}

func TestRegistry_DuplicatePaths(t *testing.T) {
	internal, usb := t.TempDir(), t.TempDir()
	link := filepath.Join(t.TempDir(), "usb-link")
	require.NoError(t, os.Symlink(usb, link))

	f := platformtest.NewFake()
	f.SetInternal(internal, platform.Usage{TotalBytes: 64 * gib, FreeBytes: 10 * gib})
	f.AddExternal(usb, platform.DeviceInfo{}, platform.Usage{TotalBytes: 16 * gib, FreeBytes: 4 * gib})
	f.AddExternal(link, platform.DeviceInfo{}, platform.Usage{TotalBytes: 16 * gib, FreeBytes: 4 * gib})
	f.AddRawExternal(usb + "/")

	snap, err := NewRegistry(f).Rebuild("")
	require.NoError(t, err)

	assert.Equal(t, []string{canon(t, usb), canon(t, internal)}, paths(snap))
}

func TestRegistry_InternalBackingEmulated(t *testing.T) {
	usage := platform.Usage{TotalBytes: 64 * gib, FreeBytes: 10 * gib}

	tests := []struct {
		name         string
		emulatedFree uint64
		configured   string // "internal", "emulated" or ""
		wantInternal bool
		wantBacks    bool
	}{
		{name: "same device collapses", emulatedFree: usage.FreeBytes, wantInternal: false},
		{name: "free space within tolerance", emulatedFree: usage.FreeBytes + mib - 1, wantInternal: false},
		{name: "free space exactly one MiB apart", emulatedFree: usage.FreeBytes + mib, wantInternal: true},
		{name: "free space beyond tolerance", emulatedFree: usage.FreeBytes - mib - 1, wantInternal: true},
		{name: "configured emulated", emulatedFree: usage.FreeBytes, configured: "emulated", wantInternal: false},
		{name: "configured internal is kept", emulatedFree: usage.FreeBytes, configured: "internal", wantInternal: true, wantBacks: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			internal, emulated := t.TempDir(), t.TempDir()

			f := platformtest.NewFake()
			f.SetInternal(internal, usage)
			f.AddExternal(emulated, platform.DeviceInfo{Emulated: true},
				platform.Usage{TotalBytes: usage.TotalBytes, FreeBytes: tt.emulatedFree})

			configured := ""
			switch tt.configured {
			case "internal":
				configured = internal
			case "emulated":
				configured = emulated
			}

			snap, err := NewRegistry(f).Rebuild(configured)
			require.NoError(t, err)

			require.NotEmpty(t, snap.Volumes)
			assert.Equal(t, canon(t, emulated), snap.Volumes[0].Path, "the emulated volume is always kept")

			if !tt.wantInternal {
				assert.Len(t, snap.Volumes, 1)
				return
			}
			require.Len(t, snap.Volumes, 2)
			in := snap.Volumes[1]
			assert.Equal(t, types.VolumeKindInternal, in.Kind)
			assert.Equal(t, tt.wantBacks, in.BacksEmulated)
			if tt.configured == "internal" {
				assert.Equal(t, 1, snap.CurrentIndex)
			}
		})
	}
}

func TestRegistry_NoStorage(t *testing.T) {
	f := platformtest.NewFake()
	f.SetInternalError(errors.New("no home directory"))
	f.SetExternalError(errors.New("mount table unreadable"))

	snap, err := NewRegistry(f).Rebuild("")
	assert.ErrorIs(t, err, types.ErrNoStorage)
	assert.Empty(t, snap.Volumes)
	assert.Equal(t, types.NoCurrent, snap.CurrentIndex)

	dir := t.TempDir()
	f = platformtest.NewFake()
	f.SetInternal(dir, platform.Usage{TotalBytes: gib, FreeBytes: gib})
	f.SetReadOnly(dir, true)

	_, err = NewRegistry(f).Rebuild("")
	assert.ErrorIs(t, err, types.ErrNoStorage, "every candidate excluded")
}

func TestRegistry_ExternalListingFailureKeepsInternal(t *testing.T) {
	internal := t.TempDir()
	f := platformtest.NewFake()
	f.SetInternal(internal, platform.Usage{TotalBytes: gib, FreeBytes: gib})
	f.SetExternalError(errors.New("mount table unreadable"))

	snap, err := NewRegistry(f).Rebuild("")
	require.NoError(t, err)
	assert.Equal(t, []string{canon(t, internal)}, paths(snap))
}

func TestBiggestVolume(t *testing.T) {
	_, ok := BiggestVolume(types.Snapshot{})
	assert.False(t, ok)

	s := types.Snapshot{Volumes: []types.Volume{
		{Path: "/a/", FreeBytes: 5},
		{Path: "/b/", FreeBytes: 9},
		{Path: "/c/", FreeBytes: 9},
		{Path: "/d/", FreeBytes: 1},
	}}
	v, ok := BiggestVolume(s)
	require.True(t, ok)
	assert.Equal(t, "/b/", v.Path, "first volume wins ties")
}
