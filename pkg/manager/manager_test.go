package manager

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cuemby/datavol/pkg/engine"
	"github.com/cuemby/datavol/pkg/events"
	"github.com/cuemby/datavol/pkg/fsutil"
	"github.com/cuemby/datavol/pkg/platform"
	"github.com/cuemby/datavol/pkg/platform/platformtest"
	"github.com/cuemby/datavol/pkg/storage"
	"github.com/cuemby/datavol/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gib = uint64(1) << 30

type fixture struct {
	fake     *platformtest.Fake
	notifier *platformtest.Notifier
	store    *storage.BoltStore
	engine   *engine.StoreEngine
	mgr      *Manager

	internal string
	usb      string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		fake:     platformtest.NewFake(),
		notifier: platformtest.NewNotifier(),
		internal: t.TempDir(),
		usb:      t.TempDir(),
	}
	f.fake.SetInternal(f.internal, platform.Usage{TotalBytes: 64 * gib, FreeBytes: 10 * gib})
	f.fake.AddExternal(f.usb, platform.DeviceInfo{Removable: true, Label: "USB"},
		platform.Usage{TotalBytes: 32 * gib, FreeBytes: 20 * gib})

	var err error
	f.store, err = storage.NewBoltStore(filepath.Join(t.TempDir(), "datavol.db"))
	require.NoError(t, err)

	f.engine, err = engine.NewStoreEngine(f.store, []string{".mwm", ".txt"})
	require.NoError(t, err)

	f.mgr, err = NewManager(&Config{
		Platform: f.fake,
		Engine:   f.engine,
		Notifier: f.notifier,
		History:  f.store,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		f.mgr.Shutdown()
		f.store.Close()
	})
	return f
}

func (f *fixture) configure(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, f.engine.SetConfiguredPath(path))
}

func writeData(t *testing.T, root string) {
	t.Helper()
	dir := filepath.Join(root, "240315")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "World.mwm"), []byte("world map"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Countries.txt"), []byte("countries"), 0644))
}

func TestNewManager_Validation(t *testing.T) {
	_, err := NewManager(nil)
	assert.Error(t, err)
	_, err = NewManager(&Config{Platform: platformtest.NewFake()})
	assert.Error(t, err)
}

func TestManager_Scan(t *testing.T) {
	f := newFixture(t)
	f.configure(t, f.internal)

	snap, err := f.mgr.Scan()
	require.NoError(t, err)
	require.Len(t, snap.Volumes, 2)
	assert.Equal(t, types.VolumeKindExternalRemovable, snap.Volumes[0].Kind)
	assert.Equal(t, "USB", snap.Volumes[0].Label)
	assert.Equal(t, 1, snap.CurrentIndex)

	big, err := f.mgr.BiggestVolume()
	require.NoError(t, err)
	assert.Equal(t, snap.Volumes[0].Path, big.Path)
}

func TestManager_ScanNoStorage(t *testing.T) {
	f := newFixture(t)
	f.fake.RemoveExternal(f.usb)
	f.fake.SetReadOnly(f.internal, true)

	_, err := f.mgr.Scan()
	assert.ErrorIs(t, err, types.ErrNoStorage)
	_, err = f.mgr.BiggestVolume()
	assert.ErrorIs(t, err, types.ErrNoStorage)
	_, err = f.mgr.FindDataVolume()
	assert.ErrorIs(t, err, types.ErrNoStorage)
}

func TestManager_FindDataVolume(t *testing.T) {
	f := newFixture(t)

	path, err := f.mgr.FindDataVolume()
	require.NoError(t, err)
	assert.Equal(t, fsutil.AddTrailingSeparator(f.usb), path, "biggest volume without data")

	writeData(t, f.internal)
	path, err = f.mgr.FindDataVolume()
	require.NoError(t, err)
	assert.Equal(t, fsutil.AddTrailingSeparator(f.internal), path)
}

func TestManager_MovePublishesEvents(t *testing.T) {
	f := newFixture(t)
	f.configure(t, f.internal)
	writeData(t, f.internal)

	sub := f.mgr.Events().Subscribe(events.EventMigrationStarted, events.EventMigrationCompleted)

	require.NoError(t, f.mgr.Move(f.usb, f.internal))

	configured, err := f.engine.ConfiguredPath()
	require.NoError(t, err)
	assert.Equal(t, fsutil.AddTrailingSeparator(f.usb), configured)
	assert.FileExists(t, filepath.Join(f.usb, "240315", "World.mwm"))

	for _, want := range []events.EventType{events.EventMigrationStarted, events.EventMigrationCompleted} {
		select {
		case ev := <-sub:
			assert.Equal(t, want, ev.Type)
		case <-time.After(2 * time.Second):
			t.Fatalf("no %s event", want)
		}
	}

	history, err := f.mgr.History()
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Succeeded)
}

func TestManager_DataSize(t *testing.T) {
	f := newFixture(t)

	_, err := f.mgr.DataSize()
	assert.ErrorIs(t, err, ErrNoCurrentVolume)

	f.configure(t, f.internal)
	writeData(t, f.internal)

	size, err := f.mgr.DataSize()
	require.NoError(t, err)
	assert.Equal(t, int64(len("world map")+len("countries")), size)
}

func TestManager_WatchWithoutNotifier(t *testing.T) {
	f := newFixture(t)
	mgr, err := NewManager(&Config{Platform: f.fake, Engine: f.engine})
	require.NoError(t, err)
	defer mgr.Shutdown()

	assert.ErrorIs(t, mgr.Watch(func(types.Snapshot) {}), ErrNoNotifier)
	mgr.Unwatch()
}

func TestManager_RelocatePreconditions(t *testing.T) {
	f := newFixture(t)
	f.configure(t, f.internal)
	writeData(t, f.internal)

	snap, err := f.mgr.Scan()
	require.NoError(t, err)
	require.Equal(t, 1, snap.CurrentIndex)

	readOnly := snap
	readOnly.Volumes = append([]types.Volume(nil), snap.Volumes...)
	readOnly.Volumes[0].ReadOnly = true

	tooSmall := snap
	tooSmall.Volumes = append([]types.Volume(nil), snap.Volumes...)
	tooSmall.Volumes[0].FreeBytes = 4

	noCurrent := snap
	noCurrent.CurrentIndex = types.NoCurrent

	tests := []struct {
		name     string
		snapshot types.Snapshot
		index    int
		want     error
	}{
		{"negative index", snap, -1, ErrInvalidIndex},
		{"index past end", snap, 2, ErrInvalidIndex},
		{"no current volume", noCurrent, 0, ErrNoCurrentVolume},
		{"same volume", snap, 1, ErrSameVolume},
		{"read-only target", readOnly, 0, ErrReadOnlyTarget},
		{"not enough space", tooSmall, 0, ErrInsufficientSpace},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := f.mgr.Relocate(tt.snapshot, tt.index)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, results)
		})
	}

	f.mgr.relocating.Store(true)
	_, err = f.mgr.Relocate(snap, 0)
	assert.ErrorIs(t, err, ErrMigrationInProgress)
	f.mgr.relocating.Store(false)

	assert.FileExists(t, filepath.Join(f.internal, "240315", "World.mwm"), "nothing moved")
}

func TestManager_Relocate(t *testing.T) {
	f := newFixture(t)
	f.configure(t, f.internal)
	writeData(t, f.internal)

	delivered := make(chan types.Snapshot, 8)
	require.NoError(t, f.mgr.Watch(func(s types.Snapshot) { delivered <- s }))

	snap, err := f.mgr.Scan()
	require.NoError(t, err)

	results, err := f.mgr.Relocate(snap, 0)
	require.NoError(t, err)

	var res RelocateResult
	select {
	case res = <-results:
	case <-time.After(5 * time.Second):
		t.Fatal("relocation did not finish")
	}
	require.NoError(t, res.Err)
	assert.Equal(t, snap.Volumes[0].Path, res.Destination)
	assert.Equal(t, 0, res.Snapshot.CurrentIndex, "the rebuilt snapshot points at the new volume")

	_, open := <-results
	assert.False(t, open)
	assert.False(t, f.mgr.Relocating())

	select {
	case s := <-delivered:
		assert.Equal(t, 0, s.CurrentIndex, "a refresh is forced after the move")
	case <-time.After(2 * time.Second):
		t.Fatal("listener was not refreshed")
	}

	assert.FileExists(t, filepath.Join(f.usb, "240315", "Countries.txt"))
	assert.NoFileExists(t, filepath.Join(f.internal, "240315", "Countries.txt"))

	f.mgr.Unwatch()
}
