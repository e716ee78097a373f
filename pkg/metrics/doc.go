/*
Package metrics exposes Prometheus metrics and health endpoints for datavol.

All collectors are package variables registered with the default registry at
init. Components update them directly:

	timer := metrics.NewTimer()
	snapshot, err := registry.Rebuild(configured)
	timer.ObserveDuration(metrics.RebuildDuration)

The watch command serves NewServeMux on --metrics-addr:

	/metrics   Prometheus text exposition
	/health    200 while every registered component is healthy
	/ready     200 once the store, registry and watcher report ready
	/live      200 while the process runs

Exported series:

	datavol_volumes_total{kind}              accepted volumes after the last rebuild
	datavol_current_volume_free_bytes        free space where the data lives
	datavol_rebuilds_total{result}           registry rebuilds
	datavol_rebuild_duration_seconds         registry rebuild latency
	datavol_exclusions_total{reason}         rejected candidates
	datavol_migrations_total{result}         data directory moves
	datavol_migration_duration_seconds       data directory move latency
	datavol_files_moved_total                files relocated
	datavol_bytes_moved_total                bytes relocated
	datavol_storage_events_total{kind}       platform notifications
	datavol_watcher_active                   1 while monitoring
*/
package metrics
