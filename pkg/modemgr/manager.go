package modemgr

import (
	"fmt"
	"sync"
	"syscall"
	"time"

	"github.com/filewarden/filewarden/internal/logger"
	"github.com/filewarden/filewarden/pkg/events"
)

// Manager owns the mode state machine exclusively; every other component
// reads it through GetMode/ValidateAction (spec.md §3 "the Mode Manager
// exclusively owns the mode state").
type Manager struct {
	mu    sync.Mutex
	state State

	allowedAdmins map[string]struct{}
	sessions      map[string]Session
	history       []Transition

	now        func() time.Time
	privileged func() bool
	emitter    events.Emitter
}

// Config configures a new Manager.
type Config struct {
	AllowedAdmins []string
	Emitter       events.Emitter
	// Clock overrides time.Now for deterministic tests of Update-mode
	// deadlines; defaults to time.Now.
	Clock func() time.Time
	// PrivilegedCheck overrides the process-identity check admin
	// verification gates on; defaults to "running euid 0". Tests override
	// this instead of requiring the test binary itself run as root.
	PrivilegedCheck func() bool
}

// New constructs a Manager starting in Monitor mode.
func New(cfg Config) *Manager {
	allowed := make(map[string]struct{}, len(cfg.AllowedAdmins))
	for _, u := range cfg.AllowedAdmins {
		allowed[u] = struct{}{}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	privileged := cfg.PrivilegedCheck
	if privileged == nil {
		privileged = func() bool { return syscall.Geteuid() == 0 }
	}

	return &Manager{
		state:         State{Current: Monitor},
		allowedAdmins: allowed,
		sessions:      make(map[string]Session),
		now:           clock,
		privileged:    privileged,
		emitter:       cfg.Emitter,
	}
}

// GetMode returns the current mode, first applying the lazy Update deadline
// check every read performs (spec.md §4.5 "get_mode() implicitly downgrades
// Update -> Monitor if the deadline has elapsed").
func (m *Manager) GetMode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downgradeIfExpiredLocked()
	return m.state.Current
}

// RemainingTime returns the seconds left in the current timed mode, or nil
// if the mode has no timeout.
func (m *Manager) RemainingTime() *int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downgradeIfExpiredLocked()
	return m.remainingLocked()
}

func (m *Manager) downgradeIfExpiredLocked() {
	if m.state.Current != Update || m.state.TimeoutSeconds == 0 {
		return
	}
	if m.now().Sub(m.state.StartedAt).Seconds() <= float64(m.state.TimeoutSeconds) {
		return
	}
	m.recordLocked(Monitor, "auto", 0, "")
	m.state = State{Current: Monitor}
	m.clearSessionsLocked()
}

// EnterInit transitions Monitor -> Init.
func (m *Manager) EnterInit(admin string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downgradeIfExpiredLocked()

	if m.state.Current != Monitor {
		return ErrInvalidTransition
	}
	if !m.isAdmin(admin) {
		return ErrNotAdmin
	}

	m.recordLocked(Init, admin, 0, "")
	m.state = State{Current: Init, StartedAt: m.now()}
	return nil
}

// ExitInit transitions Init -> Monitor.
func (m *Manager) ExitInit(admin string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Current != Init {
		return ErrInvalidTransition
	}
	if !m.isAdmin(admin) {
		return ErrNotAdmin
	}

	m.recordLocked(Monitor, admin, 0, "")
	m.state = State{Current: Monitor}
	return nil
}

// EnterUpdate transitions Monitor -> Update, or extends the deadline if
// already in Update, issuing a fresh session token on first entry.
func (m *Manager) EnterUpdate(admin string, timeoutSeconds int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downgradeIfExpiredLocked()

	if m.state.Current == Emergency {
		return "", fmt.Errorf("%w: %w", ErrInvalidTransition, ErrEmergencyActive)
	}
	if m.state.Current == Init {
		return "", ErrInvalidTransition
	}
	if timeoutSeconds < 60 || timeoutSeconds > 3600 {
		return "", ErrBadTimeout
	}
	if !m.isAdmin(admin) {
		return "", ErrNotAdmin
	}

	if m.state.Current == Update {
		m.state.StartedAt = m.now()
		m.state.TimeoutSeconds = timeoutSeconds
		m.recordLocked(Update, admin, timeoutSeconds, "")
		return "", nil
	}

	m.recordLocked(Update, admin, timeoutSeconds, "")
	m.state = State{Current: Update, StartedAt: m.now(), TimeoutSeconds: timeoutSeconds}
	return m.issueSessionLocked(admin, timeoutSeconds), nil
}

// ExitUpdate transitions Update -> Monitor explicitly (as opposed to the
// deadline lapsing on its own).
func (m *Manager) ExitUpdate(admin string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Current != Update {
		return ErrInvalidTransition
	}
	if !m.isAdmin(admin) {
		return ErrNotAdmin
	}

	m.recordLocked(Monitor, admin, 0, "")
	m.state = State{Current: Monitor}
	m.clearSessionsLocked()
	return nil
}

// EnterEmergency transitions unconditionally from any mode (spec.md §4.5
// "Any -> Emergency: any detector; unconditional; clears sessions").
func (m *Manager) EnterEmergency(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.recordLocked(Emergency, "system", 0, reason)
	m.state = State{Current: Emergency, StartedAt: m.now(), EmergencyReason: reason}
	m.clearSessionsLocked()

	if m.emitter != nil {
		m.emitter.Emit(events.New(events.TypeEmergencyModeActivated, events.SeverityEmergency, "", map[string]any{"reason": reason}))
	}
	logger.Error("emergency mode activated", logger.Reason(reason))
}

// ExitEmergency transitions Emergency -> Monitor; admin-only, the one
// manual way out of the terminal mode.
func (m *Manager) ExitEmergency(admin string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Current != Emergency {
		return ErrInvalidTransition
	}
	if !m.isAdmin(admin) {
		return ErrNotAdmin
	}

	m.recordLocked(Monitor, admin, 0, "")
	m.state = State{Current: Monitor}
	return nil
}

// isAdmin requires process-level privileged identity AND the supplied
// username to be in the configured allowed set (spec.md §4.5).
func (m *Manager) isAdmin(user string) bool {
	if !m.privileged() {
		return false
	}
	_, ok := m.allowedAdmins[user]
	return ok
}

func (m *Manager) recordLocked(to Mode, admin string, timeout int, reason string) {
	m.history = append(m.history, Transition{
		Timestamp: m.now(),
		FromMode:  m.state.Current,
		ToMode:    to,
		AdminUser: admin,
		Timeout:   timeout,
		Reason:    reason,
	})
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
}

// History returns up to limit of the most recent transitions, newest last.
func (m *Manager) History(limit int) []Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.history) {
		limit = len(m.history)
	}
	out := make([]Transition, limit)
	copy(out, m.history[len(m.history)-limit:])
	return out
}

// Status is the full point-in-time snapshot for the control channel's
// "get_status" command.
type Status struct {
	Current          Mode
	RemainingSeconds *int
	ActiveSessions   int
	EmergencyReason  string
}

// GetStatus returns a Status snapshot.
func (m *Manager) GetStatus() Status {
	mode := m.GetMode() // applies the lazy downgrade first

	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		Current:          mode,
		RemainingSeconds: m.remainingLocked(),
		ActiveSessions:   len(m.sessions),
		EmergencyReason:  m.state.EmergencyReason,
	}
}

func (m *Manager) remainingLocked() *int {
	if m.state.TimeoutSeconds == 0 {
		return nil
	}
	elapsed := m.now().Sub(m.state.StartedAt).Seconds()
	remaining := int(float64(m.state.TimeoutSeconds) - elapsed)
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}
