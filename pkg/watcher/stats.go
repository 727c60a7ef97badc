package watcher

import "sync"

// Stats is the point-in-time snapshot returned by Watcher.Statistics().
type Stats struct {
	EventsEmitted uint64
	EventsDeduped uint64
	PathsWatched  int
	QueueDepth    int
	QueueCapacity int
}

// statsCounters is a guarded stats struct with a single-lock API, replacing
// a shared mutable dict mutated from multiple threads (spec.md §9).
type statsCounters struct {
	mu            sync.Mutex
	eventsEmitted uint64
	eventsDeduped uint64
}

func (s *statsCounters) recordEmitted() {
	s.mu.Lock()
	s.eventsEmitted++
	s.mu.Unlock()
}

func (s *statsCounters) recordDeduped() {
	s.mu.Lock()
	s.eventsDeduped++
	s.mu.Unlock()
}

func (s *statsCounters) snapshot() (emitted, deduped uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eventsEmitted, s.eventsDeduped
}
