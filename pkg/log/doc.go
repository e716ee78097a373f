/*
Package log provides structured logging for datavol using zerolog.

The package wraps a single global zerolog.Logger with component-scoped child
loggers and a handful of helpers. Every subsystem obtains its logger once via
WithComponent and attaches structured fields (volume paths, byte counts,
exclusion reasons) instead of formatting them into the message.

# Configuration

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stderr,
	})

JSON output is meant for daemons (datavol watch); console output is the
default for interactive commands.

# Context Loggers

  - WithComponent: component=<name> (probe, registry, migrator, watcher, manager, notifier, health)
  - WithVolume: volume_path=<path>
  - WithMigrationID: migration_id=<uuid>

# Example

	logger := log.WithComponent("registry")
	logger.Info().
		Str("path", v.Path).
		Uint64("free_bytes", v.FreeBytes).
		Msg("Accepted volume")

Fatal is reserved for types.ErrNoStorage: the process logs and exits because
there is no storage to operate on.
*/
package log
