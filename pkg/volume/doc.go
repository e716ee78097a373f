/*
Package volume discovers the storage volumes datavol can keep its data on.

A Registry asks the platform for candidate directories, one per external
mount plus the internal data directory, and runs each through a Prober.
Candidates that are unmounted, missing, read-only or unmeasurable are
excluded with a logged reason. The survivors form a Snapshot:

	registry := volume.NewRegistry(host)
	snapshot, err := registry.Rebuild(configuredPath)
	if errors.Is(err, types.ErrNoStorage) {
		// nothing usable on this host
	}

Externals are listed before the internal directory. When the internal
directory is the same device as an emulated external volume (equal capacity,
free space within 1 MiB) only the emulated volume is kept, unless the
internal directory is the configured path.

FindDataVolume chooses where existing data lives. A volume holds data when it
contains a non-empty directory named with a six digit version stamp above
120000.
*/
package volume
