package modemgr

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Session is one issued Update-mode session token.
type Session struct {
	User    string
	Created time.Time
	Expires time.Time
}

// AuthResult is the outcome of verifying a session token.
type AuthResult string

const (
	AuthSuccess      AuthResult = "Success"
	AuthExpired      AuthResult = "Expired"
	AuthUnauthorized AuthResult = "Unauthorized"
)

// issueSessionLocked generates a 32-byte uniform random, hex-encoded
// session token bound to admin and timeoutSeconds from now. Deliberately
// crypto/rand rather than a UUID: this value authorizes mutation of trust
// policy, not just a convenience identifier (spec.md §4.5).
func (m *Manager) issueSessionLocked(admin string, timeoutSeconds int) string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand failing means the platform RNG is broken
	}
	token := hex.EncodeToString(buf)

	now := m.now()
	m.sessions[token] = Session{
		User:    admin,
		Created: now,
		Expires: now.Add(time.Duration(timeoutSeconds) * time.Second),
	}
	return token
}

// VerifySessionToken checks token against the active session set.
func (m *Manager) VerifySessionToken(token string) AuthResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[token]
	if !ok {
		return AuthUnauthorized
	}
	if m.now().After(session.Expires) {
		delete(m.sessions, token)
		return AuthExpired
	}
	return AuthSuccess
}

// RevokeSession removes token, if present. Returns whether it existed.
func (m *Manager) RevokeSession(token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[token]; !ok {
		return false
	}
	delete(m.sessions, token)
	return true
}

// CleanupExpiredSessions purges expired tokens; intended to be called by
// the session-cleanup ticker (spec.md §5).
func (m *Manager) CleanupExpiredSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	purged := 0
	for token, s := range m.sessions {
		if now.After(s.Expires) {
			delete(m.sessions, token)
			purged++
		}
	}
	return purged
}

func (m *Manager) clearSessionsLocked() {
	m.sessions = make(map[string]Session)
}
