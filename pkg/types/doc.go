/*
Package types defines the core data structures shared by every datavol package.

# Core Types

  - Volume: a validated storage root with capacity, kind and label
  - VolumeKind: internal, removable, emulated or other external storage
  - Snapshot: ordered volumes from one registry rebuild plus the index of the
    configured one (NoCurrent when the configured path was not found)
  - ExclusionReason: why a candidate path was rejected during probing
  - MountState: platform-reported mount state of a candidate
  - MigrationRecord: persisted outcome of one data migration

# Lifecycle

A Snapshot and its Volumes are built from scratch on every rebuild and never
mutated afterwards. Consumers must not hold a Volume across rebuilds; the
device it describes may have been ejected in the meantime.

# Errors

ErrNoStorage is the single fatal condition of the system: no candidate volume
passed validation, so there is nowhere to read or write application data.
*/
package types
