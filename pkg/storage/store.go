package storage

import (
	"github.com/cuemby/datavol/pkg/types"
)

// Store defines the interface for datavol's persistent state
type Store interface {
	// Configured path
	GetConfiguredPath() (string, error)
	SetConfiguredPath(path string) error

	// Migrations
	SaveMigration(record *types.MigrationRecord) error
	GetMigration(id string) (*types.MigrationRecord, error)
	ListMigrations() ([]*types.MigrationRecord, error)

	// Utility
	Close() error
}
