package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagepilot/pagepilot/internal/apperr"
	"github.com/pagepilot/pagepilot/internal/driver/drivertest"
	"github.com/pagepilot/pagepilot/pkg/models"
)

func testConfig() Config {
	return Config{
		MaxSessions:    10,
		DefaultTimeout: time.Minute,
		MaxTimeout:     time.Hour,
		// Reaper off: tests drive expiry through Get unless stated.
	}
}

func TestCreateAndGet(t *testing.T) {
	fake := &drivertest.Fake{}
	r := NewRegistry(fake, testConfig())
	defer r.Stop()

	sess, err := r.Create(context.Background(), 0)
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID())
	assert.Equal(t, models.StatusActive, sess.Status())

	got, err := r.Get(sess.ID())
	require.NoError(t, err)
	assert.Same(t, sess, got)
}

func TestGetUnknownSession(t *testing.T) {
	r := NewRegistry(&drivertest.Fake{}, testConfig())
	defer r.Stop()

	_, err := r.Get("nonexistent")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestGetExpiresIdleSession(t *testing.T) {
	fake := &drivertest.Fake{}
	r := NewRegistry(fake, testConfig())
	defer r.Stop()

	sess, err := r.Create(context.Background(), 50*time.Millisecond)
	require.NoError(t, err)

	// Within the idle timeout the session is retrievable.
	_, err = r.Get(sess.ID())
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)

	// Beyond it, Get expires the session on the spot.
	_, err = r.Get(sess.ID())
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
	assert.Equal(t, models.StatusExpired, sess.Status())
	assert.Equal(t, 1, fake.LastTab().Closes())

	// A second Get stays NotFound and never double-releases the tab.
	_, err = r.Get(sess.ID())
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
	assert.Equal(t, 1, fake.LastTab().Closes())
}

func TestTouchExtendsSession(t *testing.T) {
	fake := &drivertest.Fake{}
	r := NewRegistry(fake, testConfig())
	defer r.Stop()

	sess, err := r.Create(context.Background(), 80*time.Millisecond)
	require.NoError(t, err)

	// Keep touching past the original deadline; the session must survive.
	for i := 0; i < 4; i++ {
		time.Sleep(40 * time.Millisecond)
		r.Touch(sess.ID())
	}

	_, err = r.Get(sess.ID())
	assert.NoError(t, err)
}

func TestCloseIdempotent(t *testing.T) {
	fake := &drivertest.Fake{}
	r := NewRegistry(fake, testConfig())
	defer r.Stop()

	sess, err := r.Create(context.Background(), 0)
	require.NoError(t, err)

	require.NoError(t, r.Close(sess.ID()))
	require.NoError(t, r.Close(sess.ID()))
	require.NoError(t, r.Close("never-existed"))

	assert.Equal(t, 1, fake.LastTab().Closes())
	assert.Equal(t, models.StatusClosed, sess.Status())
}

func TestSessionLimit(t *testing.T) {
	fake := &drivertest.Fake{}
	cfg := testConfig()
	cfg.MaxSessions = 2
	r := NewRegistry(fake, cfg)
	defer r.Stop()

	first, err := r.Create(context.Background(), 0)
	require.NoError(t, err)
	_, err = r.Create(context.Background(), 0)
	require.NoError(t, err)

	_, err = r.Create(context.Background(), 0)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeResourceExhausted, apperr.CodeOf(err))

	// Closing one frees its slot.
	require.NoError(t, r.Close(first.ID()))
	_, err = r.Create(context.Background(), 0)
	assert.NoError(t, err)
}

func TestExpiryFreesSlot(t *testing.T) {
	fake := &drivertest.Fake{}
	cfg := testConfig()
	cfg.MaxSessions = 1
	r := NewRegistry(fake, cfg)
	defer r.Stop()

	sess, err := r.Create(context.Background(), 30*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)
	_, err = r.Get(sess.ID())
	require.Error(t, err)

	// The expired session's slot must be available again.
	_, err = r.Create(context.Background(), 0)
	assert.NoError(t, err)
}

func TestCreateTimeoutAboveMaximum(t *testing.T) {
	cfg := testConfig()
	cfg.MaxTimeout = time.Minute
	r := NewRegistry(&drivertest.Fake{}, cfg)
	defer r.Stop()

	_, err := r.Create(context.Background(), 2*time.Minute)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestCreateDriverFailureLeavesNoState(t *testing.T) {
	fake := &drivertest.Fake{OpenErr: errors.New("browser exploded")}
	cfg := testConfig()
	cfg.MaxSessions = 1
	r := NewRegistry(fake, cfg)
	defer r.Stop()

	_, err := r.Create(context.Background(), 0)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeDriverUnavailable, apperr.CodeOf(err))
	assert.Equal(t, 0, r.Len())

	// The slot was released, so a later create can still succeed.
	fake.OpenErr = nil
	_, err = r.Create(context.Background(), 0)
	assert.NoError(t, err)
}

func TestCleanupAll(t *testing.T) {
	fake := &drivertest.Fake{}
	r := NewRegistry(fake, testConfig())
	defer r.Stop()

	ids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		sess, err := r.Create(context.Background(), 0)
		require.NoError(t, err)
		ids = append(ids, sess.ID())
	}

	assert.Equal(t, 5, r.CleanupAll())
	assert.Equal(t, 0, r.Len())

	for _, id := range ids {
		_, err := r.Get(id)
		assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
	}
	for _, tab := range fake.Tabs() {
		assert.Equal(t, 1, tab.Closes())
	}

	assert.Equal(t, 0, r.CleanupAll())
}

func TestReaperExpiresAbandonedSessions(t *testing.T) {
	fake := &drivertest.Fake{}
	cfg := testConfig()
	cfg.ReapInterval = 10 * time.Millisecond
	r := NewRegistry(fake, cfg)
	defer r.Stop()

	_, err := r.Create(context.Background(), 30*time.Millisecond)
	require.NoError(t, err)

	// No Get ever observes the session; the reaper must still collect it.
	assert.Eventually(t, func() bool {
		return r.Len() == 0 && fake.LastTab().Closes() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestConcurrentCloseReleasesOnce(t *testing.T) {
	fake := &drivertest.Fake{}
	r := NewRegistry(fake, testConfig())
	defer r.Stop()

	sess, err := r.Create(context.Background(), 0)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, r.Close(sess.ID()))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, fake.LastTab().Closes())
}

func TestListAndLen(t *testing.T) {
	fake := &drivertest.Fake{}
	r := NewRegistry(fake, testConfig())
	defer r.Stop()

	for i := 0; i < 3; i++ {
		_, err := r.Create(context.Background(), 0)
		require.NoError(t, err)
	}

	assert.Equal(t, 3, r.Len())
	infos := r.List()
	require.Len(t, infos, 3)
	for _, info := range infos {
		assert.Equal(t, models.StatusActive, info.Status)
		assert.Equal(t, 60, info.TimeoutSeconds)
	}
}
