/*
Package health runs periodic checks on the data directory.

A Checker inspects one component and returns a Result. A Monitor runs it on
an interval and publishes the outcome to the metrics health registry, where
the /health endpoint of 'datavol watch' reports it. A component only turns
unhealthy after Config.Retries consecutive failures; one success restores it.

	checker := health.NewVolumeChecker(eng.ConfiguredPath, host, 512*units.MiB)
	monitor := health.NewMonitor(checker, health.DefaultConfig())
	go monitor.Run(ctx)

VolumeChecker fails when no data directory is configured, when the directory
is missing or read-only, or when its volume has less free space than
MinFreeBytes.
*/
package health
