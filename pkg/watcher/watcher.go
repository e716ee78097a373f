package watcher

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cuemby/datavol/pkg/events"
	"github.com/cuemby/datavol/pkg/log"
	"github.com/cuemby/datavol/pkg/metrics"
	"github.com/cuemby/datavol/pkg/platform"
	"github.com/cuemby/datavol/pkg/types"
	"github.com/rs/zerolog"
)

// ErrAlreadyWatching is returned by Watch when a listener is registered
var ErrAlreadyWatching = errors.New("already watching for storage changes")

// State is the registration state of a Watcher
type State string

const (
	StateUnregistered State = "unregistered"
	StateWatching     State = "watching"
)

// Listener receives a fresh snapshot after every storage change
type Listener func(types.Snapshot)

// RebuildFunc produces a snapshot of the current volumes
type RebuildFunc func() (types.Snapshot, error)

// Watcher rebuilds the volume registry whenever the platform reports a
// storage change and hands the result to a single listener.
type Watcher struct {
	notifier platform.Notifier
	rebuild  RebuildFunc
	broker   *events.Broker
	logger   zerolog.Logger

	// lifecycle serializes Watch and Unwatch
	lifecycle sync.Mutex

	// mu guards listener and is held for the whole of a delivery
	mu       sync.Mutex
	listener Listener
	stopCh   chan struct{}
	done     chan struct{}

	// watching mirrors listener != nil so State never waits on a delivery
	watching  atomic.Bool
	suspended atomic.Bool
}

// New creates a watcher. broker may be nil; when set it must be started,
// since deliveries publish to it.
func New(notifier platform.Notifier, rebuild RebuildFunc, broker *events.Broker) *Watcher {
	return &Watcher{
		notifier: notifier,
		rebuild:  rebuild,
		broker:   broker,
		logger:   log.WithComponent("watcher"),
	}
}

// Watch registers listener and starts monitoring
func (w *Watcher) Watch(listener Listener) error {
	if listener == nil {
		return fmt.Errorf("listener is required")
	}

	w.lifecycle.Lock()
	defer w.lifecycle.Unlock()

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.listener != nil {
		return ErrAlreadyWatching
	}
	if err := w.notifier.Start(); err != nil {
		return fmt.Errorf("failed to start storage notifications: %w", err)
	}

	w.listener = listener
	w.watching.Store(true)
	w.stopCh = make(chan struct{})
	w.done = make(chan struct{})
	go w.loop(w.notifier.Events(), w.stopCh, w.done)

	metrics.WatcherActive.Set(1)
	metrics.UpdateComponent(metrics.ComponentWatcher, true, "")
	w.logger.Info().Msg("Watching for storage changes")
	return nil
}

// Unwatch stops monitoring. Once it returns the listener is never called
// again. It must not be called from inside the listener.
func (w *Watcher) Unwatch() {
	w.lifecycle.Lock()
	defer w.lifecycle.Unlock()

	w.mu.Lock()
	if w.listener == nil {
		w.mu.Unlock()
		return
	}
	w.listener = nil
	w.watching.Store(false)
	close(w.stopCh)
	done := w.done
	w.mu.Unlock()

	w.notifier.Stop()
	<-done

	metrics.WatcherActive.Set(0)
	w.logger.Info().Msg("Stopped watching for storage changes")
}

// State reports whether a listener is registered. It is safe to call from
// inside the listener.
func (w *Watcher) State() State {
	if w.watching.Load() {
		return StateWatching
	}
	return StateUnregistered
}

// Suspend drops notifications until Resume is called
func (w *Watcher) Suspend() {
	w.suspended.Store(true)
}

// Resume re-enables notifications
func (w *Watcher) Resume() {
	w.suspended.Store(false)
}

// Refresh rebuilds and delivers a snapshot now, even while suspended. It is
// a no-op when nothing is watching.
func (w *Watcher) Refresh() {
	w.deliver()
}

func (w *Watcher) loop(ch <-chan platform.Event, stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			w.handle(ev)
		case <-stopCh:
			return
		}
	}
}

func (w *Watcher) handle(ev platform.Event) {
	metrics.StorageEventsTotal.WithLabelValues(string(ev.Kind)).Inc()
	w.logger.Debug().Str("kind", string(ev.Kind)).Str("path", ev.Path).Msg("Storage event")

	if w.broker != nil {
		w.broker.Publish(&events.Event{
			Type:     eventType(ev.Kind),
			Message:  ev.Path,
			Metadata: map[string]string{"path": ev.Path, "kind": string(ev.Kind)},
		})
	}

	if w.suspended.Load() {
		w.logger.Debug().Str("path", ev.Path).Msg("Refresh suspended, event dropped")
		return
	}
	w.deliver()
}

func (w *Watcher) deliver() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.listener == nil {
		return
	}

	snapshot, err := w.rebuild()
	if err != nil {
		// Listeners only ever see usable snapshots
		metrics.UpdateComponent(metrics.ComponentRegistry, false, err.Error())
		w.logger.Error().Err(err).Msg("Failed to rebuild storage registry")
		return
	}
	metrics.UpdateComponent(metrics.ComponentRegistry, true, "")

	if w.broker != nil {
		w.broker.Publish(&events.Event{
			Type:    events.EventSnapshotRebuilt,
			Message: fmt.Sprintf("%d volumes", len(snapshot.Volumes)),
			Metadata: map[string]string{
				"volumes":       fmt.Sprint(len(snapshot.Volumes)),
				"current_index": fmt.Sprint(snapshot.CurrentIndex),
			},
		})
	}

	w.listener(snapshot)
}

func eventType(kind platform.EventKind) events.EventType {
	switch kind {
	case platform.EventMounted:
		return events.EventStorageMounted
	case platform.EventRemoved, platform.EventEjected:
		return events.EventStorageRemoved
	default:
		return events.EventStorageChanged
	}
}
