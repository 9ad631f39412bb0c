// Package session owns the lifecycle of browser sessions: creation, lookup,
// expiry, and teardown of the tab behind each one.
package session

import (
	"sync"
	"time"

	"github.com/pagepilot/pagepilot/internal/driver"
	"github.com/pagepilot/pagepilot/pkg/models"
)

// Session is the unit of ownership: one browser tab, a status, and a lock
// serializing actions against the tab. Sessions are independent of each
// other; only the registry's map is shared.
type Session struct {
	id          string
	tab         driver.Tab
	createdAt   time.Time
	idleTimeout time.Duration

	mu           sync.Mutex
	status       models.SessionStatus
	lastActivity time.Time

	// actionMu serializes driver actions. At most one in-flight action
	// executes against the tab at any instant.
	actionMu sync.Mutex

	closeOnce sync.Once
	release   func()
}

func newSession(id string, tab driver.Tab, idleTimeout time.Duration, release func()) *Session {
	now := time.Now()
	return &Session{
		id:           id,
		tab:          tab,
		createdAt:    now,
		idleTimeout:  idleTimeout,
		status:       models.StatusActive,
		lastActivity: now,
		release:      release,
	}
}

// ID returns the session's opaque identifier.
func (s *Session) ID() string { return s.id }

// Tab returns the session's exclusive tab handle. Callers must hold the
// action lock while using it.
func (s *Session) Tab() driver.Tab { return s.tab }

// LockActions acquires the per-session action lock, blocking while another
// action on this session is in flight.
func (s *Session) LockActions() { s.actionMu.Lock() }

// UnlockActions releases the per-session action lock.
func (s *Session) UnlockActions() { s.actionMu.Unlock() }

// Touch refreshes the last-activity timestamp.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// Status returns the session's current status.
func (s *Session) Status() models.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// LastActivity returns the last-activity timestamp.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// idleExpired reports whether the session has been idle beyond its timeout.
func (s *Session) idleExpired(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status == models.StatusActive && now.Sub(s.lastActivity) >= s.idleTimeout
}

// Info returns the API view of the session.
func (s *Session) Info() models.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.SessionInfo{
		ID:             s.id,
		Status:         s.status,
		CreatedAt:      s.createdAt,
		LastActivity:   s.lastActivity,
		TimeoutSeconds: int(s.idleTimeout / time.Second),
		CurrentURL:     s.tab.URL(),
	}
}

// close transitions the session to the given terminal status and releases the
// tab exactly once. Safe to call from multiple goroutines.
func (s *Session) close(status models.SessionStatus) error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.status = status
		s.mu.Unlock()

		err = s.tab.Close()
		if s.release != nil {
			s.release()
		}
	})
	return err
}
