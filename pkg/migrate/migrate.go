package migrate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cuemby/datavol/pkg/engine"
	"github.com/cuemby/datavol/pkg/fsutil"
	"github.com/cuemby/datavol/pkg/log"
	"github.com/cuemby/datavol/pkg/metrics"
	"github.com/cuemby/datavol/pkg/storage"
	"github.com/cuemby/datavol/pkg/types"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
)

// ErrOverlappingPaths is returned when one data directory lies inside the other
var ErrOverlappingPaths = errors.New("source and destination directories overlap")

// MoveError reports the file a migration stopped at. The configured path is
// unchanged and the move may be retried.
type MoveError struct {
	File string
	Err  error
}

func (e *MoveError) Error() string {
	return fmt.Sprintf("failed to move %s: %v", e.File, e.Err)
}

func (e *MoveError) Unwrap() error {
	return e.Err
}

// Migrator moves the engine's data set between directories
type Migrator struct {
	engine  engine.Engine
	history storage.Store
	logger  zerolog.Logger

	// moveFile moves one file and returns its size
	moveFile func(src, dest string) (int64, error)
}

// NewMigrator creates a migrator. history may be nil, in which case runs
// are not recorded.
func NewMigrator(eng engine.Engine, history storage.Store) *Migrator {
	return &Migrator{
		engine:   eng,
		history:  history,
		logger:   log.WithComponent("migrator"),
		moveFile: fsutil.MoveFile,
	}
}

// Move relocates every movable file from oldPath to newPath, keeping relative
// paths, and commits newPath as the configured path once all files arrived.
//
// On the first failure the files already placed under newPath are removed
// and a *MoveError is returned. Source files moved before the failure are
// not put back.
func (m *Migrator) Move(newPath, oldPath string) error {
	dest, err := fsutil.Canonicalize(newPath)
	if err != nil {
		return fmt.Errorf("invalid destination: %w", err)
	}
	src, err := fsutil.Canonicalize(oldPath)
	if err != nil {
		return fmt.Errorf("invalid source: %w", err)
	}

	if src == dest {
		metrics.MigrationsTotal.WithLabelValues("noop").Inc()
		m.logger.Info().Str("path", dest).Msg("Source and destination are the same, nothing to move")
		return nil
	}
	if fsutil.Contains(src, dest) || fsutil.Contains(dest, src) {
		return fmt.Errorf("%w: %s and %s", ErrOverlappingPaths, src, dest)
	}

	record := &types.MigrationRecord{
		ID:          uuid.New().String(),
		Source:      src,
		Destination: dest,
		StartedAt:   time.Now(),
	}
	logger := log.WithMigrationID(record.ID).With().Str("component", "migrator").Logger()
	timer := metrics.NewTimer()

	err = m.move(logger, record)

	record.FinishedAt = time.Now()
	record.Succeeded = err == nil
	if err != nil {
		record.Error = err.Error()
	}
	m.save(logger, record)

	timer.ObserveDuration(metrics.MigrationDuration)
	if err != nil {
		metrics.MigrationsTotal.WithLabelValues("failure").Inc()
		logger.Error().Err(err).Str("source", src).Str("destination", dest).Msg("Migration failed")
		return err
	}

	metrics.MigrationsTotal.WithLabelValues("success").Inc()
	metrics.FilesMovedTotal.Add(float64(record.Files))
	metrics.BytesMovedTotal.Add(float64(record.Bytes))
	logger.Info().
		Str("source", src).
		Str("destination", dest).
		Int("files", record.Files).
		Int64("bytes", record.Bytes).
		Dur("duration", timer.Duration()).
		Msg("Migration completed")
	return nil
}

func (m *Migrator) move(logger zerolog.Logger, record *types.MigrationRecord) error {
	plan, err := m.Plan(record.Source)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(record.Destination, 0755); err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}

	logger.Info().
		Str("source", record.Source).
		Str("destination", record.Destination).
		Int("files", len(plan.Files)).
		Int64("bytes", plan.Bytes).
		Msg("Starting migration")

	created := make([]string, 0, len(plan.Files))
	for _, rel := range plan.Files {
		from := filepath.Join(record.Source, filepath.FromSlash(rel))
		to := filepath.Join(record.Destination, filepath.FromSlash(rel))

		err := os.MkdirAll(filepath.Dir(to), 0755)
		if err == nil {
			_, statErr := os.Lstat(to)
			existed := statErr == nil

			var n int64
			n, err = m.moveFile(from, to)
			if err == nil {
				created = append(created, to)
				record.Files++
				record.Bytes += n
				logger.Debug().Str("file", rel).Int64("bytes", n).Msg("File moved")
				continue
			}
			// a failed file whose source is gone only survives at to
			if !existed && sourcePresent(from) {
				created = append(created, to)
			}
		}

		m.rollback(logger, created)
		return &MoveError{File: rel, Err: err}
	}

	if err := m.engine.SetConfiguredPath(record.Destination); err != nil {
		return fmt.Errorf("files moved but the new path was not committed: %w", err)
	}
	return nil
}

func sourcePresent(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// rollback removes the files this run placed at the destination
func (m *Migrator) rollback(logger zerolog.Logger, created []string) {
	var result *multierror.Error
	for _, err := range fsutil.RemoveFiles(created) {
		result = multierror.Append(result, err)
	}
	if err := result.ErrorOrNil(); err != nil {
		logger.Error().Err(err).Int("files", len(created)).Msg("Rollback left files at the destination")
		return
	}
	logger.Warn().Int("files", len(created)).Msg("Rolled back destination files")
}

func (m *Migrator) save(logger zerolog.Logger, record *types.MigrationRecord) {
	if m.history == nil {
		return
	}
	if err := m.history.SaveMigration(record); err != nil {
		logger.Warn().Err(err).Msg("Failed to record migration")
	}
}
