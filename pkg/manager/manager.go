package manager

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/cuemby/datavol/pkg/engine"
	"github.com/cuemby/datavol/pkg/events"
	"github.com/cuemby/datavol/pkg/log"
	"github.com/cuemby/datavol/pkg/migrate"
	"github.com/cuemby/datavol/pkg/platform"
	"github.com/cuemby/datavol/pkg/storage"
	"github.com/cuemby/datavol/pkg/types"
	"github.com/cuemby/datavol/pkg/volume"
	"github.com/cuemby/datavol/pkg/watcher"
	"github.com/docker/go-units"
	"github.com/rs/zerolog"
)

var (
	ErrInvalidIndex        = errors.New("volume index out of range")
	ErrSameVolume          = errors.New("data is already on the selected volume")
	ErrNoCurrentVolume     = errors.New("the configured data directory is not on any available volume")
	ErrReadOnlyTarget      = errors.New("the selected volume is read-only")
	ErrInsufficientSpace   = errors.New("not enough free space on the selected volume")
	ErrMigrationInProgress = errors.New("a migration is already in progress")
	ErrNoNotifier          = errors.New("storage notifications are not available")
)

// Manager is the entry point for scanning volumes and moving data between them
type Manager struct {
	engine   engine.Engine
	registry *volume.Registry
	migrator *migrate.Migrator
	watcher  *watcher.Watcher
	broker   *events.Broker
	history  storage.Store
	logger   zerolog.Logger

	ownsBroker bool
	relocating atomic.Bool
}

// Config holds configuration for creating a Manager
type Config struct {
	Platform platform.Platform
	Engine   engine.Engine
	Notifier platform.Notifier // Optional, required by Watch
	History  storage.Store     // Optional migration history
	Broker   *events.Broker    // Optional and must be started; a private one is used when nil
}

// RelocateResult is the outcome of a background relocation
type RelocateResult struct {
	Destination string
	Err         error          // Migration error, or the rebuild error after a successful move
	Snapshot    types.Snapshot // Rebuilt after the migration, whatever its outcome
}

// NewManager creates a new Manager instance
func NewManager(cfg *Config) (*Manager, error) {
	if cfg == nil || cfg.Platform == nil {
		return nil, fmt.Errorf("platform is required")
	}
	if cfg.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}

	m := &Manager{
		engine:   cfg.Engine,
		registry: volume.NewRegistry(cfg.Platform),
		migrator: migrate.NewMigrator(cfg.Engine, cfg.History),
		broker:   cfg.Broker,
		history:  cfg.History,
		logger:   log.WithComponent("manager"),
	}

	if m.broker == nil {
		m.broker = events.NewBroker()
		m.broker.Start()
		m.ownsBroker = true
	}

	if cfg.Notifier != nil {
		m.watcher = watcher.New(cfg.Notifier, m.Scan, m.broker)
	}

	return m, nil
}

// Scan rebuilds the volume registry against the configured path
func (m *Manager) Scan() (types.Snapshot, error) {
	configured, err := m.engine.ConfiguredPath()
	if err != nil {
		return types.Snapshot{CurrentIndex: types.NoCurrent}, err
	}
	return m.registry.Rebuild(configured)
}

// BiggestVolume returns the volume with the most free space
func (m *Manager) BiggestVolume() (types.Volume, error) {
	snapshot, err := m.Scan()
	if err != nil {
		return types.Volume{}, err
	}
	vol, ok := volume.BiggestVolume(snapshot)
	if !ok {
		return types.Volume{}, types.ErrNoStorage
	}
	return vol, nil
}

// FindDataVolume returns the path the data should be read from
func (m *Manager) FindDataVolume() (string, error) {
	snapshot, err := m.Scan()
	if err != nil {
		return "", err
	}
	return volume.FindDataVolume(snapshot)
}

// Move migrates the data set from oldPath to newPath
func (m *Manager) Move(newPath, oldPath string) error {
	meta := map[string]string{"source": oldPath, "destination": newPath}

	m.publish(events.EventMigrationStarted, "migrating "+oldPath+" to "+newPath, meta)
	if err := m.migrator.Move(newPath, oldPath); err != nil {
		m.publish(events.EventMigrationFailed, err.Error(), meta)
		return err
	}
	m.publish(events.EventMigrationCompleted, "data now at "+newPath, meta)
	return nil
}

// Watch delivers a fresh snapshot to listener on every storage change
func (m *Manager) Watch(listener watcher.Listener) error {
	if m.watcher == nil {
		return ErrNoNotifier
	}
	return m.watcher.Watch(listener)
}

// Unwatch stops change delivery. No listener call happens after it returns.
func (m *Manager) Unwatch() {
	if m.watcher != nil {
		m.watcher.Unwatch()
	}
}

// DataSize returns the total size of the movable files at the configured path
func (m *Manager) DataSize() (int64, error) {
	configured, err := m.engine.ConfiguredPath()
	if err != nil {
		return 0, err
	}
	if configured == "" {
		return 0, ErrNoCurrentVolume
	}
	plan, err := m.migrator.Plan(configured)
	if err != nil {
		return 0, err
	}
	return plan.Bytes, nil
}

// Relocate moves the data from the current volume of snapshot to the volume
// at newIndex. Preconditions are checked synchronously; the migration runs in
// the background and its result is sent on the returned channel, which is
// then closed. Storage notifications are suspended while it runs and one
// refresh is forced afterwards.
func (m *Manager) Relocate(snapshot types.Snapshot, newIndex int) (<-chan RelocateResult, error) {
	if newIndex < 0 || newIndex >= len(snapshot.Volumes) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidIndex, newIndex)
	}
	current, ok := snapshot.Current()
	if !ok {
		return nil, ErrNoCurrentVolume
	}
	if newIndex == snapshot.CurrentIndex {
		return nil, ErrSameVolume
	}
	target := snapshot.Volumes[newIndex]
	if !target.Writable() {
		return nil, ErrReadOnlyTarget
	}

	plan, err := m.migrator.Plan(current.Path)
	if err != nil {
		return nil, err
	}
	if target.FreeBytes < uint64(plan.Bytes) {
		return nil, fmt.Errorf("%w: need %s, %s available", ErrInsufficientSpace,
			units.BytesSize(float64(plan.Bytes)), units.BytesSize(float64(target.FreeBytes)))
	}

	if !m.relocating.CompareAndSwap(false, true) {
		return nil, ErrMigrationInProgress
	}

	m.logger.Info().
		Str("source", current.Path).
		Str("destination", target.Path).
		Str("size", units.BytesSize(float64(plan.Bytes))).
		Msg("Relocating data")

	results := make(chan RelocateResult, 1)
	go func() {
		defer close(results)
		defer m.relocating.Store(false)

		if m.watcher != nil {
			m.watcher.Suspend()
		}
		moveErr := m.Move(target.Path, current.Path)
		if m.watcher != nil {
			m.watcher.Resume()
			m.watcher.Refresh()
		}

		rebuilt, scanErr := m.Scan()
		if scanErr != nil {
			m.logger.Error().Err(scanErr).Msg("Failed to rebuild storage registry after migration")
		}

		result := RelocateResult{Destination: target.Path, Err: moveErr, Snapshot: rebuilt}
		if result.Err == nil {
			result.Err = scanErr
		}
		results <- result
	}()

	return results, nil
}

// Relocating reports whether a background relocation is running
func (m *Manager) Relocating() bool {
	return m.relocating.Load()
}

// Events returns the broker carrying storage and migration events
func (m *Manager) Events() *events.Broker {
	return m.broker
}

// History returns recorded migrations, oldest first
func (m *Manager) History() ([]*types.MigrationRecord, error) {
	if m.history == nil {
		return nil, nil
	}
	return m.history.ListMigrations()
}

// Shutdown stops change delivery and the private broker
func (m *Manager) Shutdown() {
	m.Unwatch()
	if m.ownsBroker {
		m.broker.Stop()
	}
}

func (m *Manager) publish(t events.EventType, msg string, meta map[string]string) {
	m.broker.Publish(&events.Event{Type: t, Message: msg, Metadata: meta})
}
