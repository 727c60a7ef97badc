package integrity

import (
	"sync"
	"time"
)

// modificationRingCapacity is the fixed history size the ransomware
// detector mines over (spec.md §3 "ModificationEvent - in-memory ring,
// capacity 1000").
const modificationRingCapacity = 1000

// ModificationEvent is one sample fed to the ransomware detector. It is
// never persisted.
type ModificationEvent struct {
	FilePath      string
	Timestamp     time.Time
	BlocksChanged int
	BlocksTotal   int
	ChangePercent float64
	Entropy       float64
}

// Detection is the detector's positive-match details record.
type Detection struct {
	FilesAffected     int
	MeanChangePercent float64
	MeanEntropy       float64
	CriticalCount     int
	AffectedPaths     []string
	DetectionTime     time.Time
}

// Detector is a guarded, fixed-capacity ring of ModificationEvents plus the
// single query that mines it for a ransomware burst pattern. Single writer
// (Record, called by the Orchestrator), single reader (Detect, called
// by the Orchestrator) — lock held only for push/iterate, per spec.md §5.
type Detector struct {
	mu         sync.Mutex
	events     []ModificationEvent
	next       int
	full       bool
	thresholds Thresholds
}

// NewDetector creates a Detector gated by the given block-change and
// entropy thresholds.
func NewDetector(thresholds Thresholds) *Detector {
	return &Detector{
		events:     make([]ModificationEvent, modificationRingCapacity),
		thresholds: thresholds,
	}
}

// Record appends a modification sample, evicting the oldest once the ring
// is full.
func (d *Detector) Record(e ModificationEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.events[d.next] = e
	d.next = (d.next + 1) % modificationRingCapacity
	if d.next == 0 {
		d.full = true
	}
}

// recentLocked returns buffered events within the last window seconds of now,
// oldest first. Caller must hold d.mu.
func (d *Detector) recentLocked(window time.Duration, now time.Time) []ModificationEvent {
	count := d.next
	if d.full {
		count = modificationRingCapacity
	}

	cutoff := now.Add(-window)
	recent := make([]ModificationEvent, 0, count)
	for i := 0; i < count; i++ {
		idx := i
		if d.full {
			idx = (d.next + i) % modificationRingCapacity
		}
		e := d.events[idx]
		if !e.Timestamp.Before(cutoff) {
			recent = append(recent, e)
		}
	}
	return recent
}

// Detect reports whether the events within the last timeWindowSeconds form
// a ransomware burst: spec.md §4.2's three-part gate, preserved exactly —
// a recent-count floor, a mean-change-percent floor, AND a 70%-critical-
// ratio floor. "N critical events" alone is deliberately not the test.
func (d *Detector) Detect(filesCountThreshold int, timeWindowSeconds int) (bool, Detection) {
	d.mu.Lock()
	recent := d.recentLocked(time.Duration(timeWindowSeconds)*time.Second, time.Now())
	d.mu.Unlock()

	detection := Detection{DetectionTime: time.Now()}
	if len(recent) < filesCountThreshold {
		return false, detection
	}

	var sumChange, sumEntropy float64
	criticalCount := 0
	paths := make([]string, 0, len(recent))
	for _, e := range recent {
		sumChange += e.ChangePercent
		sumEntropy += e.Entropy
		paths = append(paths, e.FilePath)
		if e.ChangePercent >= d.thresholds.BlockChangePercent && e.Entropy >= d.thresholds.EntropyThreshold {
			criticalCount++
		}
	}

	meanChange := sumChange / float64(len(recent))
	meanEntropy := sumEntropy / float64(len(recent))
	criticalRatio := float64(criticalCount) / float64(len(recent))

	detection.FilesAffected = len(recent)
	detection.MeanChangePercent = meanChange
	detection.MeanEntropy = meanEntropy
	detection.CriticalCount = criticalCount
	detection.AffectedPaths = paths

	positive := meanChange >= d.thresholds.BlockChangePercent && criticalRatio >= 0.7
	return positive, detection
}
