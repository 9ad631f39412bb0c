package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/pagepilot/pagepilot/internal/apperr"
	"github.com/pagepilot/pagepilot/internal/driver"
	"github.com/pagepilot/pagepilot/pkg/models"
)

// Config bounds the registry's resource usage.
type Config struct {
	// MaxSessions caps concurrently open sessions; Create beyond the cap
	// fails with ResourceExhausted instead of queuing.
	MaxSessions int
	// DefaultTimeout applies when Create is called with a zero timeout.
	DefaultTimeout time.Duration
	// MaxTimeout caps the idle timeout a caller may request.
	MaxTimeout time.Duration
	// ReapInterval is how often the background reaper scans for idle
	// sessions. Zero disables the reaper (tests drive expiry through Get).
	ReapInterval time.Duration
}

// DefaultConfig mirrors the service defaults.
func DefaultConfig() Config {
	return Config{
		MaxSessions:    10,
		DefaultTimeout: 30 * time.Minute,
		MaxTimeout:     6 * time.Hour,
		ReapInterval:   5 * time.Second,
	}
}

// Registry is the concurrency-safe store of live sessions. Structural
// mutations go through its RWMutex; each session's action lock is
// independent, so actions on one session never block lookups or actions on
// another.
type Registry struct {
	drv driver.Driver
	cfg Config

	mu       sync.RWMutex
	sessions map[string]*Session

	slots *semaphore.Weighted

	stop     chan struct{}
	stopOnce sync.Once
	reaperWG sync.WaitGroup
}

// NewRegistry creates a registry over the given driver and starts the reaper
// if configured.
func NewRegistry(drv driver.Driver, cfg Config) *Registry {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultConfig().MaxSessions
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = DefaultConfig().DefaultTimeout
	}
	if cfg.MaxTimeout <= 0 {
		cfg.MaxTimeout = DefaultConfig().MaxTimeout
	}

	r := &Registry{
		drv:      drv,
		cfg:      cfg,
		sessions: make(map[string]*Session),
		slots:    semaphore.NewWeighted(int64(cfg.MaxSessions)),
		stop:     make(chan struct{}),
	}

	if cfg.ReapInterval > 0 {
		r.reaperWG.Add(1)
		go r.reap()
	}

	return r
}

// Create allocates a new active session with one freshly opened tab. On any
// failure no session is registered and no slot stays held.
func (r *Registry) Create(ctx context.Context, timeout time.Duration) (*Session, error) {
	if timeout <= 0 {
		timeout = r.cfg.DefaultTimeout
	}
	if timeout > r.cfg.MaxTimeout {
		return nil, apperr.New(apperr.CodeValidation, "timeout %s exceeds maximum %s", timeout, r.cfg.MaxTimeout)
	}

	if !r.slots.TryAcquire(1) {
		return nil, apperr.New(apperr.CodeResourceExhausted, "session limit of %d reached", r.cfg.MaxSessions)
	}

	tab, err := r.drv.OpenTab(ctx)
	if err != nil {
		r.slots.Release(1)
		if apperr.CodeOf(err) == apperr.CodeDriverUnavailable {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.CodeDriverUnavailable, err, "failed to open tab")
	}

	var once sync.Once
	release := func() {
		once.Do(func() { r.slots.Release(1) })
	}

	sess := newSession(uuid.New().String(), tab, timeout, release)

	r.mu.Lock()
	r.sessions[sess.ID()] = sess
	r.mu.Unlock()

	log.Printf("session %s created (timeout %s)", shortID(sess.ID()), timeout)
	return sess, nil
}

// Get returns the session only if it is still active. A session idle beyond
// its timeout is expired on the spot, its tab released, and NotFound is
// returned, so the common path needs no sweep to stay correct.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	sess, ok := r.sessions[id]
	r.mu.RUnlock()

	if !ok {
		return nil, apperr.New(apperr.CodeNotFound, "session %s not found", id)
	}

	if sess.idleExpired(time.Now()) {
		r.remove(id)
		if err := sess.close(models.StatusExpired); err != nil {
			log.Printf("session %s: tab release on expiry: %v", shortID(id), err)
		}
		log.Printf("session %s expired", shortID(id))
		return nil, apperr.New(apperr.CodeNotFound, "session %s not found", id)
	}

	if sess.Status() != models.StatusActive {
		return nil, apperr.New(apperr.CodeNotFound, "session %s not found", id)
	}

	return sess, nil
}

// Touch refreshes a session's last-activity timestamp. Unknown ids are
// ignored.
func (r *Registry) Touch(id string) {
	r.mu.RLock()
	sess, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		sess.Touch()
	}
}

// Close releases a session explicitly. Idempotent: closing an already-closed
// or unknown id is a no-op success.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return nil
	}

	if err := sess.close(models.StatusClosed); err != nil {
		return apperr.Wrap(apperr.CodeDriverError, err, "failed to release tab for session %s", id)
	}
	log.Printf("session %s closed", shortID(id))
	return nil
}

// CleanupAll closes every registered session regardless of state and returns
// how many were closed. Sessions created concurrently are not guaranteed to
// survive.
func (r *Registry) CleanupAll() int {
	r.mu.Lock()
	doomed := make([]*Session, 0, len(r.sessions))
	for id, sess := range r.sessions {
		doomed = append(doomed, sess)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	for _, sess := range doomed {
		if err := sess.close(models.StatusClosed); err != nil {
			log.Printf("session %s: tab release on cleanup: %v", shortID(sess.ID()), err)
		}
	}

	if len(doomed) > 0 {
		log.Printf("cleanup closed %d sessions", len(doomed))
	}
	return len(doomed)
}

// List returns the API view of all registered sessions.
func (r *Registry) List() []models.SessionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]models.SessionInfo, 0, len(r.sessions))
	for _, sess := range r.sessions {
		infos = append(infos, sess.Info())
	}
	return infos
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Stop halts the reaper and closes all sessions. Called at shutdown.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	r.reaperWG.Wait()
	r.CleanupAll()
}

// reap periodically expires sessions idle beyond their timeout even when no
// Get ever observes them, bounding resource usage for abandoned sessions.
func (r *Registry) reap() {
	defer r.reaperWG.Done()

	ticker := time.NewTicker(r.cfg.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			now := time.Now()

			r.mu.Lock()
			var expired []*Session
			for id, sess := range r.sessions {
				if sess.idleExpired(now) {
					expired = append(expired, sess)
					delete(r.sessions, id)
				}
			}
			r.mu.Unlock()

			for _, sess := range expired {
				if err := sess.close(models.StatusExpired); err != nil {
					log.Printf("session %s: tab release by reaper: %v", shortID(sess.ID()), err)
				}
				log.Printf("session %s reaped after idle timeout", shortID(sess.ID()))
			}
		}
	}
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
