package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cuemby/datavol/pkg/log"
	"github.com/fsnotify/fsnotify"
	"github.com/moby/sys/mountinfo"
	"github.com/rs/zerolog"
)

// DefaultPollInterval is how often the mount table is compared for changes
// that inotify cannot see (mounting over an existing directory).
const DefaultPollInterval = 2 * time.Second

// MountNotifier reports storage changes below a set of mount roots.
// Directory creation/removal is observed with fsnotify; mount table
// differences are found by polling.
type MountNotifier struct {
	roots        []string
	pollInterval time.Duration
	logger       zerolog.Logger

	mu      sync.Mutex
	running bool
	fsw     *fsnotify.Watcher
	events  chan Event
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewMountNotifier creates a notifier. A zero pollInterval disables polling.
func NewMountNotifier(roots []string, pollInterval time.Duration) *MountNotifier {
	return &MountNotifier{
		roots:        append([]string(nil), roots...),
		pollInterval: pollInterval,
		logger:       log.WithComponent("notifier"),
	}
}

// Start begins monitoring
func (n *MountNotifier) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.running {
		return fmt.Errorf("notifier already running")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create filesystem watcher: %w", err)
	}

	watched := 0
	for _, root := range n.roots {
		if err := fsw.Add(root); err != nil {
			n.logger.Debug().Err(err).Str("root", root).Msg("Mount root not watchable")
			continue
		}
		watched++
		// /run/media/<user>/<label> and /media/<user>/<label> layouts
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				_ = fsw.Add(filepath.Join(root, e.Name()))
			}
		}
	}
	n.logger.Debug().Int("roots", watched).Msg("Watching mount roots")

	n.fsw = fsw
	n.events = make(chan Event, 16)
	n.stopCh = make(chan struct{})
	n.running = true

	n.wg.Add(1)
	go n.watchLoop(fsw, n.events, n.stopCh)

	if n.pollInterval > 0 {
		n.wg.Add(1)
		go n.pollLoop(n.events, n.stopCh)
	}

	return nil
}

// Events returns the channel of the current run
func (n *MountNotifier) Events() <-chan Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.events
}

// Stop ends monitoring and closes the events channel
func (n *MountNotifier) Stop() {
	n.mu.Lock()
	if !n.running {
		n.mu.Unlock()
		return
	}
	n.running = false
	close(n.stopCh)
	fsw := n.fsw
	events := n.events
	n.mu.Unlock()

	_ = fsw.Close()
	n.wg.Wait()
	close(events)
}

func (n *MountNotifier) watchLoop(fsw *fsnotify.Watcher, events chan<- Event, stopCh <-chan struct{}) {
	defer n.wg.Done()

	for {
		select {
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			var kind EventKind
			switch {
			case ev.Has(fsnotify.Create):
				kind = EventMounted
				if n.isRootChild(ev.Name) {
					_ = fsw.Add(ev.Name)
				}
			case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
				kind = EventRemoved
			default:
				kind = EventChanged
			}
			n.emit(events, stopCh, Event{Kind: kind, Path: ev.Name})

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			n.logger.Warn().Err(err).Msg("Filesystem watcher error")

		case <-stopCh:
			return
		}
	}
}

func (n *MountNotifier) pollLoop(events chan<- Event, stopCh <-chan struct{}) {
	defer n.wg.Done()

	ticker := time.NewTicker(n.pollInterval)
	defer ticker.Stop()

	prev := n.mountpoints()
	for {
		select {
		case <-ticker.C:
			cur := n.mountpoints()
			for mp := range cur {
				if !prev[mp] {
					n.emit(events, stopCh, Event{Kind: EventMounted, Path: mp})
				}
			}
			for mp := range prev {
				if !cur[mp] {
					n.emit(events, stopCh, Event{Kind: EventRemoved, Path: mp})
				}
			}
			prev = cur
		case <-stopCh:
			return
		}
	}
}

func (n *MountNotifier) mountpoints() map[string]bool {
	mounts, err := mountinfo.GetMounts(func(info *mountinfo.Info) (skip, stop bool) {
		return !underRoot(info.Mountpoint, n.roots), false
	})
	if err != nil {
		n.logger.Warn().Err(err).Msg("Failed to read mount table")
		return nil
	}
	set := make(map[string]bool, len(mounts))
	for _, m := range mounts {
		set[m.Mountpoint] = true
	}
	return set
}

func (n *MountNotifier) isRootChild(path string) bool {
	parent := filepath.Dir(filepath.Clean(path))
	for _, root := range n.roots {
		if filepath.Clean(root) == parent {
			info, err := os.Stat(path)
			return err == nil && info.IsDir()
		}
	}
	return false
}

func (n *MountNotifier) emit(events chan<- Event, stopCh <-chan struct{}, ev Event) {
	select {
	case events <- ev:
	case <-stopCh:
	}
}
