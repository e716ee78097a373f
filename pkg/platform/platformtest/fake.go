// Package platformtest provides in-memory platform doubles for tests.
package platformtest

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cuemby/datavol/pkg/platform"
	"github.com/cuemby/datavol/pkg/types"
)

// Fake is a scriptable platform.Platform. Paths are matched after cleaning
// and symlink resolution, so callers may register t.TempDir() paths directly.
type Fake struct {
	mu sync.Mutex

	internal    string
	internalErr error
	externals   []string
	externalErr error

	devices    map[string]platform.DeviceInfo
	inspectErr map[string]error
	usage      map[string]platform.Usage
	usageErr   map[string]error
	readOnly   map[string]bool
}

// NewFake creates an empty fake platform
func NewFake() *Fake {
	return &Fake{
		devices:    make(map[string]platform.DeviceInfo),
		inspectErr: make(map[string]error),
		usage:      make(map[string]platform.Usage),
		usageErr:   make(map[string]error),
		readOnly:   make(map[string]bool),
	}
}

// SetInternal registers the internal candidate and its capacity
func (f *Fake) SetInternal(path string, usage platform.Usage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.internal = path
	f.internalErr = nil
	f.usage[key(path)] = usage
}

// SetInternalError makes InternalDir fail
func (f *Fake) SetInternalError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.internalErr = err
}

// AddExternal registers an external candidate with its device signals
func (f *Fake) AddExternal(path string, info platform.DeviceInfo, usage platform.Usage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if info.State == types.MountStateUnknown {
		info.State = types.MountStateMounted
	}
	f.externals = append(f.externals, path)
	f.devices[key(path)] = info
	f.usage[key(path)] = usage
}

// AddRawExternal lists a candidate without registering any signals for it
func (f *Fake) AddRawExternal(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.externals = append(f.externals, path)
}

// RemoveExternal drops a candidate, as if the device was ejected
func (f *Fake) RemoveExternal(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.externals[:0]
	for _, p := range f.externals {
		if key(p) != key(path) {
			kept = append(kept, p)
		}
	}
	f.externals = kept
}

// SetExternalError makes ExternalDirs fail
func (f *Fake) SetExternalError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.externalErr = err
}

// SetInspectError makes Inspect fail for path
func (f *Fake) SetInspectError(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inspectErr[key(path)] = err
}

// SetUsage replaces the capacity reported for path
func (f *Fake) SetUsage(path string, usage platform.Usage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.usage[key(path)] = usage
	delete(f.usageErr, key(path))
}

// SetUsageError makes Usage fail for path
func (f *Fake) SetUsageError(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.usageErr[key(path)] = err
}

// SetReadOnly controls Writable for path
func (f *Fake) SetReadOnly(path string, ro bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readOnly[key(path)] = ro
}

func (f *Fake) InternalDir() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.internalErr != nil {
		return "", f.internalErr
	}
	return f.internal, nil
}

func (f *Fake) ExternalDirs() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.externalErr != nil {
		return nil, f.externalErr
	}
	return append([]string(nil), f.externals...), nil
}

func (f *Fake) Inspect(path string) (platform.DeviceInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := key(path)
	if err := f.inspectErr[k]; err != nil {
		return platform.DeviceInfo{}, err
	}
	info, ok := f.devices[k]
	if !ok {
		return platform.DeviceInfo{}, fmt.Errorf("not a storage device: %s", path)
	}
	return info, nil
}

func (f *Fake) Usage(path string) (platform.Usage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := key(path)
	if err := f.usageErr[k]; err != nil {
		return platform.Usage{}, err
	}
	u, ok := f.usage[k]
	if !ok {
		return platform.Usage{}, errors.New("no usage registered")
	}
	return u, nil
}

func (f *Fake) Writable(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.readOnly[key(path)]
}

func key(path string) string {
	clean := filepath.Clean(strings.TrimSpace(path))
	if resolved, err := filepath.EvalSymlinks(clean); err == nil {
		return resolved
	}
	return clean
}

// Notifier is a manually driven platform.Notifier
type Notifier struct {
	mu      sync.Mutex
	events  chan platform.Event
	stop    chan struct{}
	running bool
	starts  int
	err     error

	// sending is held for reading while Emit may send on events
	sending sync.RWMutex
}

// NewNotifier creates a stopped notifier
func NewNotifier() *Notifier {
	return &Notifier{}
}

// FailStart makes the next Start calls return err
func (n *Notifier) FailStart(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = err
}

func (n *Notifier) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	if n.running {
		return errors.New("already running")
	}
	n.events = make(chan platform.Event, 64)
	n.stop = make(chan struct{})
	n.running = true
	n.starts++
	return nil
}

func (n *Notifier) Events() <-chan platform.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.events
}

func (n *Notifier) Stop() {
	n.mu.Lock()
	if !n.running {
		n.mu.Unlock()
		return
	}
	n.running = false
	close(n.stop)
	events := n.events
	n.mu.Unlock()

	n.sending.Lock()
	close(events)
	n.sending.Unlock()
}

// Emit delivers an event, blocking while the buffer is full. It reports
// false when the notifier is stopped.
func (n *Notifier) Emit(ev platform.Event) bool {
	n.sending.RLock()
	defer n.sending.RUnlock()

	n.mu.Lock()
	running, events, stop := n.running, n.events, n.stop
	n.mu.Unlock()
	if !running {
		return false
	}

	select {
	case events <- ev:
		return true
	case <-stop:
		return false
	}
}

// Running reports whether Start has been called without a matching Stop
func (n *Notifier) Running() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.running
}

// Starts returns how many times the notifier was started
func (n *Notifier) Starts() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.starts
}
