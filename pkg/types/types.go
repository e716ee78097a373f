package types

import (
	"errors"
	"time"
)

// NoCurrent is the CurrentIndex of a snapshot whose configured path matched no volume
const NoCurrent = -1

// ErrNoStorage is returned when no candidate volume passed validation.
// There is nowhere to read or write data, so callers must terminate.
var ErrNoStorage = errors.New("no usable storage volume found")

// VolumeKind classifies where a volume lives
type VolumeKind string

const (
	VolumeKindInternal          VolumeKind = "internal"
	VolumeKindExternalRemovable VolumeKind = "removable"
	VolumeKindExternalEmulated  VolumeKind = "emulated"
	VolumeKindExternalOther     VolumeKind = "external"
)

// Volume is an accepted, usable storage root. Volumes are produced fresh on
// every registry rebuild and are never mutated afterwards.
type Volume struct {
	Path       string // Canonical, trailing-separator-terminated
	FreeBytes  uint64 // Available to unprivileged writers at probe time
	TotalBytes uint64
	Label      string
	Kind       VolumeKind
	ReadOnly   bool

	// Current is set when Path equals the configured path
	Current bool
	// BacksEmulated is set on an internal volume that shares its device with an
	// emulated one and was kept only because it is the configured path
	BacksEmulated bool
}

// Writable reports whether the volume may be used as a migration destination
func (v Volume) Writable() bool {
	return !v.ReadOnly
}

// Snapshot is the result of a single registry rebuild
type Snapshot struct {
	Volumes      []Volume
	CurrentIndex int
	BuiltAt      time.Time
}

// Current returns the configured volume, if it was found
func (s Snapshot) Current() (Volume, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Volumes) {
		return Volume{}, false
	}
	return s.Volumes[s.CurrentIndex], true
}

// HasCurrent reports whether the configured path matched an accepted volume
func (s Snapshot) HasCurrent() bool {
	_, ok := s.Current()
	return ok
}

// ExclusionReason explains why a candidate path was not accepted as a volume
type ExclusionReason string

const (
	ExclusionNullPath      ExclusionReason = "null_path"
	ExclusionUnresolvable  ExclusionReason = "unresolvable"
	ExclusionNotMounted    ExclusionReason = "not_mounted"
	ExclusionReadOnly      ExclusionReason = "read_only"
	ExclusionNotExists     ExclusionReason = "not_exists"
	ExclusionNotDirectory  ExclusionReason = "not_directory"
	ExclusionNotWritable   ExclusionReason = "not_writable"
	ExclusionUsageFailed   ExclusionReason = "usage_failed"
	ExclusionDuplicate     ExclusionReason = "duplicate"
	ExclusionBacksEmulated ExclusionReason = "backs_emulated"
)

// MountState is the platform-reported state of the mount backing a path
type MountState string

const (
	MountStateUnknown         MountState = ""
	MountStateMounted         MountState = "mounted"
	MountStateMountedReadOnly MountState = "mounted_ro"
	MountStateUnmounted       MountState = "unmounted"
)

// MigrationRecord is a persisted account of one Move run
type MigrationRecord struct {
	ID          string
	Source      string
	Destination string
	Files       int
	Bytes       int64
	StartedAt   time.Time
	FinishedAt  time.Time
	Succeeded   bool
	Error       string
}
