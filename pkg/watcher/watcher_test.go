package watcher

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cuemby/datavol/pkg/events"
	"github.com/cuemby/datavol/pkg/platform"
	"github.com/cuemby/datavol/pkg/platform/platformtest"
	"github.com/cuemby/datavol/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fixture struct {
	notifier *platformtest.Notifier
	watcher  *Watcher
	rebuilds atomic.Int32
	fail     atomic.Bool
	received chan types.Snapshot
}

func newFixture(t *testing.T, broker *events.Broker) *fixture {
	t.Helper()
	f := &fixture{
		notifier: platformtest.NewNotifier(),
		received: make(chan types.Snapshot, 64),
	}
	f.watcher = New(f.notifier, func() (types.Snapshot, error) {
		n := f.rebuilds.Add(1)
		if f.fail.Load() {
			return types.Snapshot{}, types.ErrNoStorage
		}
		return types.Snapshot{
			Volumes:      []types.Volume{{Path: "/media/usb/datavol/", FreeBytes: uint64(n)}},
			CurrentIndex: types.NoCurrent,
		}, nil
	}, broker)
	return f
}

func (f *fixture) listen(s types.Snapshot) {
	f.received <- s
}

func (f *fixture) next(t *testing.T) types.Snapshot {
	t.Helper()
	select {
	case s := <-f.received:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return types.Snapshot{}
	}
}

func (f *fixture) none(t *testing.T) {
	t.Helper()
	select {
	case s := <-f.received:
		t.Fatalf("unexpected delivery: %+v", s)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWatcher_DeliversOnEveryEvent(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t, nil)
	require.NoError(t, f.watcher.Watch(f.listen))
	defer f.watcher.Unwatch()
	assert.Equal(t, StateWatching, f.watcher.State())

	require.True(t, f.notifier.Emit(platform.Event{Kind: platform.EventMounted, Path: "/media/usb"}))
	require.True(t, f.notifier.Emit(platform.Event{Kind: platform.EventMounted, Path: "/media/usb"}))

	assert.Equal(t, uint64(1), f.next(t).Volumes[0].FreeBytes)
	assert.Equal(t, uint64(2), f.next(t).Volumes[0].FreeBytes, "no debouncing")
}

func TestWatcher_WatchTwice(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t, nil)
	require.NoError(t, f.watcher.Watch(f.listen))
	assert.ErrorIs(t, f.watcher.Watch(f.listen), ErrAlreadyWatching)
	assert.Equal(t, 1, f.notifier.Starts())

	f.watcher.Unwatch()
	f.watcher.Unwatch()
	assert.Equal(t, StateUnregistered, f.watcher.State())

	require.NoError(t, f.watcher.Watch(f.listen), "watching again after Unwatch")
	assert.Equal(t, 2, f.notifier.Starts())
	f.watcher.Unwatch()
}

func TestWatcher_StartFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.notifier.FailStart(errors.New("inotify limit reached"))

	assert.Error(t, f.watcher.Watch(f.listen))
	assert.Equal(t, StateUnregistered, f.watcher.State())
	assert.Error(t, f.watcher.Watch(nil))
}

func TestWatcher_NoDeliveryAfterUnwatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t, nil)

	var mu sync.Mutex
	stopped := false
	late := 0

	require.NoError(t, f.watcher.Watch(func(types.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if stopped {
			late++
		}
	}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for f.notifier.Emit(platform.Event{Kind: platform.EventChanged, Path: "/media/usb"}) {
		}
	}()

	time.Sleep(20 * time.Millisecond)
	f.watcher.Unwatch()
	mu.Lock()
	stopped = true
	mu.Unlock()

	<-done
	f.watcher.Refresh()

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, late)
	assert.False(t, f.notifier.Running())
}

func TestWatcher_SuspendAndRefresh(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t, nil)
	require.NoError(t, f.watcher.Watch(f.listen))
	defer f.watcher.Unwatch()

	f.watcher.Suspend()
	require.True(t, f.notifier.Emit(platform.Event{Kind: platform.EventRemoved, Path: "/media/usb"}))
	f.none(t)

	f.watcher.Refresh()
	f.next(t)

	f.watcher.Resume()
	require.True(t, f.notifier.Emit(platform.Event{Kind: platform.EventMounted, Path: "/media/usb"}))
	f.next(t)
}

func TestWatcher_RebuildFailureIsNotDelivered(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t, nil)
	require.NoError(t, f.watcher.Watch(f.listen))
	defer f.watcher.Unwatch()

	f.fail.Store(true)
	f.watcher.Refresh()
	f.none(t)
	assert.Equal(t, int32(1), f.rebuilds.Load())

	f.fail.Store(false)
	f.watcher.Refresh()
	f.next(t)
}

func TestWatcher_PublishesEvents(t *testing.T) {
	defer goleak.VerifyNone(t)

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	sub := broker.Subscribe()

	f := newFixture(t, broker)
	require.NoError(t, f.watcher.Watch(f.listen))
	defer f.watcher.Unwatch()

	require.True(t, f.notifier.Emit(platform.Event{Kind: platform.EventEjected, Path: "/media/sd"}))
	f.next(t)

	var got []events.EventType
	for len(got) < 2 {
		select {
		case ev := <-sub:
			got = append(got, ev.Type)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out, got %v", got)
		}
	}
	assert.Equal(t, []events.EventType{events.EventStorageRemoved, events.EventSnapshotRebuilt}, got)
}

func TestWatcher_RefreshWithoutListener(t *testing.T) {
	f := newFixture(t, nil)
	f.watcher.Refresh()
	assert.Zero(t, f.rebuilds.Load())
}

func TestWatcher_StateFromListener(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t, nil)
	states := make(chan State, 1)
	require.NoError(t, f.watcher.Watch(func(types.Snapshot) {
		states <- f.watcher.State()
	}))
	defer f.watcher.Unwatch()

	done := make(chan struct{})
	go func() {
		f.watcher.Refresh()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("State blocked inside the listener")
	}
	assert.Equal(t, StateWatching, <-states)
}
