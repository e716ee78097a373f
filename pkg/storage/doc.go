/*
Package storage persists datavol state in a BoltDB (bbolt) file.

The Store interface covers the two things that must survive restarts: the
configured data path and the history of migrations. BoltStore keeps them in
separate buckets of a single database file:

	┌──────────────── datavol.db ────────────────┐
	│                                             │
	│  settings                                   │
	│    configured_path  → "/media/usb/datavol/" │
	│                                             │
	│  migrations                                 │
	│    <uuid>           → MigrationRecord JSON  │
	│                                             │
	└─────────────────────────────────────────────┘

	store, err := storage.NewBoltStore(cfg.StatePath())
	if err != nil {
		return err
	}
	defer store.Close()

	path, err := store.GetConfiguredPath() // "" on first run

bbolt takes an exclusive file lock, so only one datavol process may hold the
store at a time. NewBoltStore gives up after one second when another process
has it open.
*/
package storage
