package metrics

import (
	"context"
	"time"

	"github.com/filewarden/filewarden/pkg/baseline"
	"github.com/filewarden/filewarden/pkg/modemgr"
	"github.com/filewarden/filewarden/pkg/orchestrator"
	"github.com/filewarden/filewarden/pkg/watcher"
)

// Collector periodically samples the daemon's own stats accessors and
// republishes them as Prometheus series. The sources it polls are each
// already the single writer of their own counters (pkg/orchestrator's
// guarded stats, pkg/watcher's statsCounters, pkg/modemgr's mutex-guarded
// state) so the collector never competes with them for the mutation side;
// it only reads snapshots.
type Collector struct {
	orch    *orchestrator.Orchestrator
	mode    *modemgr.Manager
	watch   *watcher.Watcher
	store   *baseline.Store
	stopCh  chan struct{}
	running bool

	lastVerified, lastAllowed, lastRestored, lastEmergency int64
	lastEventsEmitted, lastEventsDeduped                   uint64
}

// NewCollector wires a Collector to the daemon's live components. Any
// argument may be nil; the corresponding metrics are simply left at zero.
func NewCollector(orch *orchestrator.Orchestrator, mode *modemgr.Manager, watch *watcher.Watcher, store *baseline.Store) *Collector {
	return &Collector{
		orch:   orch,
		mode:   mode,
		watch:  watch,
		store:  store,
		stopCh: make(chan struct{}),
	}
}

// Start begins sampling on a fixed interval until Stop is called.
func (c *Collector) Start(interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	c.running = true
	ticker := time.NewTicker(interval)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop halts collection. Safe to call at most once.
func (c *Collector) Stop() {
	if !c.running {
		return
	}
	c.running = false
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectOrchestrator()
	c.collectMode()
	c.collectWatcher()
	c.collectBaseline()
}

func (c *Collector) collectOrchestrator() {
	if c.orch == nil {
		return
	}
	s := c.orch.Stats()

	FilesVerifiedTotal.Add(float64(delta(&c.lastVerified, s.FilesVerified)))
	FilesModifiedAllowedTotal.Add(float64(delta(&c.lastAllowed, s.FilesModifiedAllowed)))
	FilesRestoredTotal.Add(float64(delta(&c.lastRestored, s.FilesRestored)))

	emergencyDelta := delta(&c.lastEmergency, s.EmergencyActivations)
	EmergencyActivationsTotal.Add(float64(emergencyDelta))
	RansomwareDetectionsTotal.Add(float64(emergencyDelta))
}

func (c *Collector) collectMode() {
	if c.mode == nil {
		return
	}
	status := c.mode.GetStatus()

	for _, m := range []modemgr.Mode{modemgr.Monitor, modemgr.Init, modemgr.Update, modemgr.Emergency} {
		value := 0.0
		if m == status.Current {
			value = 1.0
		}
		ModeCurrent.WithLabelValues(string(m)).Set(value)
	}

	remaining := 0.0
	if status.RemainingSeconds != nil {
		remaining = float64(*status.RemainingSeconds)
	}
	ModeRemainingSeconds.Set(remaining)
}

func (c *Collector) collectWatcher() {
	if c.watch == nil {
		return
	}
	s := c.watch.Statistics()

	WatcherQueueDepth.Set(float64(s.QueueDepth))
	WatcherQueueCapacity.Set(float64(s.QueueCapacity))
	WatcherPathsWatched.Set(float64(s.PathsWatched))
	WatcherEventsEmittedTotal.Add(float64(deltaU(&c.lastEventsEmitted, s.EventsEmitted)))
	WatcherEventsDedupedTotal.Add(float64(deltaU(&c.lastEventsDeduped, s.EventsDeduped)))
}

func (c *Collector) collectBaseline() {
	if c.store == nil {
		return
	}
	stats, err := c.store.Statistics(context.Background())
	if err != nil {
		return
	}
	BaselineFilesTotal.Set(float64(stats.Total))
	BaselineTrustedTotal.Set(float64(stats.Trusted))
	BaselineStoreBytes.Set(float64(stats.StoreBytes))
}

// delta returns newValue-*last and updates *last, clamping negative
// deltas (e.g. a counter reset) to zero rather than decrementing a
// Prometheus counter, which panics.
func delta(last *int64, newValue int64) int64 {
	d := newValue - *last
	*last = newValue
	if d < 0 {
		return 0
	}
	return d
}

func deltaU(last *uint64, newValue uint64) uint64 {
	if newValue < *last {
		*last = newValue
		return 0
	}
	d := newValue - *last
	*last = newValue
	return d
}
