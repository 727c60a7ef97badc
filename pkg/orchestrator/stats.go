package orchestrator

import "sync"

// Stats is a point-in-time snapshot of the Orchestrator's runtime counters,
// the "get_statistics" control-channel command's payload (spec.md §6).
type Stats struct {
	FilesVerified        int64
	FilesModifiedAllowed int64
	FilesRestored        int64
	EmergencyActivations int64
}

// stats is the guarded counter set backing Stats, following the same
// guarded-struct pattern as pkg/watcher's statsCounters in place of a
// shared mutable dict.
type stats struct {
	mu        sync.Mutex
	verified  int64
	allowed   int64
	restored  int64
	emergency int64
}

func (s *stats) recordVerified() {
	s.mu.Lock()
	s.verified++
	s.mu.Unlock()
}

func (s *stats) recordModifiedAllowed() {
	s.mu.Lock()
	s.allowed++
	s.mu.Unlock()
}

func (s *stats) recordRestored() {
	s.mu.Lock()
	s.restored++
	s.mu.Unlock()
}

func (s *stats) recordEmergency() {
	s.mu.Lock()
	s.emergency++
	s.mu.Unlock()
}

func (s *stats) snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		FilesVerified:        s.verified,
		FilesModifiedAllowed: s.allowed,
		FilesRestored:        s.restored,
		EmergencyActivations: s.emergency,
	}
}
