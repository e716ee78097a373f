package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry metrics
	VolumesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "datavol_volumes_total",
			Help: "Number of accepted storage volumes by kind",
		},
		[]string{"kind"},
	)

	CurrentVolumeFreeBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "datavol_current_volume_free_bytes",
			Help: "Free bytes on the volume holding the data directory (0 when none)",
		},
	)

	RebuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datavol_rebuilds_total",
			Help: "Total number of registry rebuilds by result",
		},
		[]string{"result"},
	)

	RebuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "datavol_rebuild_duration_seconds",
			Help:    "Time taken to rebuild the volume registry in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ExclusionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datavol_exclusions_total",
			Help: "Total number of candidates excluded from the registry by reason",
		},
		[]string{"reason"},
	)

	// Migration metrics
	MigrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datavol_migrations_total",
			Help: "Total number of data directory migrations by result",
		},
		[]string{"result"},
	)

	MigrationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "datavol_migration_duration_seconds",
			Help:    "Time taken to migrate the data directory in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	FilesMovedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "datavol_files_moved_total",
			Help: "Total number of files moved by migrations",
		},
	)

	BytesMovedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "datavol_bytes_moved_total",
			Help: "Total number of bytes moved by migrations",
		},
	)

	// Watcher metrics
	StorageEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datavol_storage_events_total",
			Help: "Total number of platform storage events by kind",
		},
		[]string{"kind"},
	)

	WatcherActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "datavol_watcher_active",
			Help: "Whether storage change monitoring is active (1 = watching, 0 = idle)",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(VolumesTotal)
	prometheus.MustRegister(CurrentVolumeFreeBytes)
	prometheus.MustRegister(RebuildsTotal)
	prometheus.MustRegister(RebuildDuration)
	prometheus.MustRegister(ExclusionsTotal)
	prometheus.MustRegister(MigrationsTotal)
	prometheus.MustRegister(MigrationDuration)
	prometheus.MustRegister(FilesMovedTotal)
	prometheus.MustRegister(BytesMovedTotal)
	prometheus.MustRegister(StorageEventsTotal)
	prometheus.MustRegister(WatcherActive)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
