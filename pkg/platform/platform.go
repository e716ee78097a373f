package platform

import (
	"github.com/cuemby/datavol/pkg/types"
)

// DeviceInfo carries the platform's signals about the device behind a path.
// Any field may be zero when the platform cannot tell.
type DeviceInfo struct {
	State     types.MountState
	Emulated  bool // Shares its physical device with internal storage
	Removable bool
	Label     string // Human-readable volume description
	Device    string // Source device, for logging only
}

// Usage is a capacity snapshot of the filesystem holding a path.
type Usage struct {
	TotalBytes uint64
	FreeBytes  uint64 // Available to unprivileged writers
}

// Platform is the OS boundary the volume registry probes through.
type Platform interface {
	// InternalDir returns the single internal candidate directory.
	InternalDir() (string, error)

	// ExternalDirs returns one candidate directory per external mount.
	ExternalDirs() ([]string, error)

	// Inspect reports mount state and device signals for an external candidate.
	// An error means the path is not a recognizable storage device.
	Inspect(path string) (DeviceInfo, error)

	// Usage reports total and free bytes of the filesystem holding path.
	Usage(path string) (Usage, error)

	// Writable reports whether the current process may write into path.
	Writable(path string) bool
}

// EventKind is the kind of storage change the OS reported.
type EventKind string

const (
	EventMounted EventKind = "mounted"
	EventRemoved EventKind = "removed"
	EventEjected EventKind = "ejected"
	EventChanged EventKind = "changed"
)

// Event is a single storage notification.
type Event struct {
	Kind EventKind
	Path string
}

// Notifier delivers storage attach/detach notifications.
type Notifier interface {
	// Start begins monitoring. A Notifier may be restarted after Stop.
	Start() error

	// Events returns the channel of the current run. It is closed by Stop.
	Events() <-chan Event

	// Stop ends monitoring and closes the events channel.
	Stop()
}
