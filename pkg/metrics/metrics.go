// Package metrics exposes the daemon's Prometheus metric families and a
// Collector that periodically samples the other packages' own stats
// accessors (pkg/orchestrator.Stats, pkg/watcher.Statistics,
// pkg/baseline.Statistics, pkg/modemgr.GetStatus) rather than threading a
// metrics interface through each of them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FilesVerifiedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "filewarden_files_verified_total",
			Help: "Total number of file verifications that found no unauthorized change",
		},
	)

	FilesModifiedAllowedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "filewarden_files_modified_allowed_total",
			Help: "Total number of file modifications accepted and re-baselined under Update mode",
		},
	)

	FilesRestoredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "filewarden_files_restored_total",
			Help: "Total number of files restored from backup after an unauthorized or critical change",
		},
	)

	EmergencyActivationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "filewarden_emergency_activations_total",
			Help: "Total number of times Emergency mode was entered due to a ransomware burst",
		},
	)

	RansomwareDetectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "filewarden_ransomware_detections_total",
			Help: "Total number of ransomware burst detections, whether or not they triggered a new activation",
		},
	)

	ModeCurrent = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "filewarden_mode_current",
			Help: "1 for the daemon's current mode, 0 for the others",
		},
		[]string{"mode"},
	)

	ModeRemainingSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "filewarden_mode_remaining_seconds",
			Help: "Seconds remaining in the current Update-mode session, 0 outside Update mode",
		},
	)

	WatcherQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "filewarden_watcher_queue_depth",
			Help: "Current number of pending events in the watcher's dispatch queue",
		},
	)

	WatcherQueueCapacity = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "filewarden_watcher_queue_capacity",
			Help: "Capacity of the watcher's dispatch queue",
		},
	)

	WatcherPathsWatched = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "filewarden_watcher_paths_watched",
			Help: "Current number of protected paths under watch",
		},
	)

	WatcherEventsEmittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "filewarden_watcher_events_emitted_total",
			Help: "Total number of watch events dispatched to the handler",
		},
	)

	WatcherEventsDedupedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "filewarden_watcher_events_deduped_total",
			Help: "Total number of watch events dropped as duplicates within the dedup window",
		},
	)

	BaselineFilesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "filewarden_baseline_files_total",
			Help: "Total number of files currently in the baseline store",
		},
	)

	BaselineTrustedTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "filewarden_baseline_trusted_total",
			Help: "Number of files in the baseline store currently marked trusted",
		},
	)

	BaselineStoreBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "filewarden_baseline_store_bytes",
			Help: "On-disk size of the baseline store",
		},
	)
)

func init() {
	prometheus.MustRegister(
		FilesVerifiedTotal,
		FilesModifiedAllowedTotal,
		FilesRestoredTotal,
		EmergencyActivationsTotal,
		RansomwareDetectionsTotal,
		ModeCurrent,
		ModeRemainingSeconds,
		WatcherQueueDepth,
		WatcherQueueCapacity,
		WatcherPathsWatched,
		WatcherEventsEmittedTotal,
		WatcherEventsDedupedTotal,
		BaselineFilesTotal,
		BaselineTrustedTotal,
		BaselineStoreBytes,
	)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
