/*
Package manager ties volume discovery, data location, migration and change
monitoring together behind one object.

# Architecture

	┌──────────────────────────── MANAGER ────────────────────────────┐
	│                                                                  │
	│   Scan / BiggestVolume / FindDataVolume                          │
	│        │                                                         │
	│        ▼                                                         │
	│  ┌──────────────┐   candidates   ┌──────────────────────────┐   │
	│  │   Registry   │ ◀───────────── │  Platform (mountinfo,     │   │
	│  │  + Prober    │                │  statfs, access)          │   │
	│  └──────┬───────┘                └──────────────────────────┘   │
	│         │ Snapshot                          ▲                    │
	│         ▼                                   │ mount events       │
	│  ┌──────────────┐                ┌──────────┴───────────────┐   │
	│  │   Listener   │ ◀───────────── │  Watcher (fsnotify +      │   │
	│  └──────────────┘   on change    │  mount table polling)     │   │
	│                                  └──────────────────────────┘   │
	│   Move / Relocate                                                │
	│        │                                                         │
	│        ▼                                                         │
	│  ┌──────────────┐  configured   ┌──────────────────────────┐    │
	│  │   Migrator   │ ────────────▶ │  Engine (bbolt store)     │    │
	│  └──────┬───────┘   path        └──────────────────────────┘    │
	│         │ migration.* events                                     │
	│         ▼                                                        │
	│  ┌──────────────┐                                                │
	│  │    Broker    │                                                │
	│  └──────────────┘                                                │
	└──────────────────────────────────────────────────────────────────┘

# Usage

	mgr, err := manager.NewManager(&manager.Config{
		Platform: platform.NewHost(hostCfg),
		Engine:   eng,
		Notifier: platform.NewMountNotifier(cfg.MountRoots, platform.DefaultPollInterval),
		History:  store,
	})
	if err != nil {
		return err
	}
	defer mgr.Shutdown()

	snapshot, err := mgr.Scan()
	if errors.Is(err, types.ErrNoStorage) {
		log.Fatal("no usable storage")
	}

	results, err := mgr.Relocate(snapshot, 0)
	if err != nil {
		return err // precondition failed, nothing was touched
	}
	res := <-results

# Relocation

Relocate refuses to start when the target is the current volume, when the
data is not on any listed volume, when the target is read-only, or when the
target has less free space than the data occupies. Only one relocation runs
at a time. While it runs, storage notifications are dropped; a refresh is
forced once it finishes, whether it succeeded or not.
*/
package manager
