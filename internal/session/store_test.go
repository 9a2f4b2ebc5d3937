package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"cvforge/internal/config"
	"cvforge/internal/errors"
	"cvforge/internal/resume"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, cfg config.SessionConfig) *Store {
	t.Helper()
	s := NewStore(cfg, errors.Discard())
	t.Cleanup(s.Close)
	return s
}

// manualClock is a settable time source.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestCreateAndGet(t *testing.T) {
	s := newTestStore(t, config.SessionConfig{})

	snap := s.Create()
	require.NotEmpty(t, snap.ID)
	assert.True(t, snap.Record.IsEmpty())
	assert.NotNil(t, snap.Suggestions)

	got, err := s.Get(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, got.ID)

	other := s.Create()
	assert.NotEqual(t, snap.ID, other.ID)
	assert.Equal(t, 2, s.Len())
}

func TestGetUnknownSession(t *testing.T) {
	s := newTestStore(t, config.SessionConfig{})

	_, err := s.Get("nope")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeSessionNotFound))

	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorTypeNotFound, appErr.Type)

	assert.Error(t, s.Delete("nope"))
}

func TestUpdateIsIsolatedFromSnapshots(t *testing.T) {
	s := newTestStore(t, config.SessionConfig{})
	id := s.Create().ID

	rec, err := s.Update(id, func(r resume.Record) (resume.Record, error) {
		return r.AddSkill("Go"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Go"}, rec.Skills)

	// Mutating a returned record must not leak into the store.
	rec.Skills[0] = "Rust"
	snap, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, []string{"Go"}, snap.Record.Skills)
}

func TestFailedUpdateLeavesSessionUnchanged(t *testing.T) {
	s := newTestStore(t, config.SessionConfig{})
	id := s.Create().ID
	_, err := s.Update(id, func(r resume.Record) (resume.Record, error) {
		return r.WithSummary("kept"), nil
	})
	require.NoError(t, err)

	_, err = s.Update(id, func(r resume.Record) (resume.Record, error) {
		return r.DeleteEntry(resume.SectionExperience, 3)
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeIndexOutOfRange))

	snap, _ := s.Get(id)
	assert.Equal(t, "kept", snap.Record.Summary)
}

func TestConcurrentUpdatesSerialise(t *testing.T) {
	s := newTestStore(t, config.SessionConfig{})
	id := s.Create().ID

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Update(id, func(r resume.Record) (resume.Record, error) {
				return r.AppendAchievement(resume.Achievement{Description: fmt.Sprintf("a%d", i)}), nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snap, err := s.Get(id)
	require.NoError(t, err)
	assert.Len(t, snap.Record.Achievements, 50)
}

func TestSuggestions(t *testing.T) {
	s := newTestStore(t, config.SessionConfig{})
	id := s.Create().ID
	_, err := s.Update(id, func(r resume.Record) (resume.Record, error) {
		return r.AddSkill("Go"), nil
	})
	require.NoError(t, err)

	pool, err := s.SetSuggestions(id, []string{"Go", "SQL", "Docker", "SQL"})
	require.NoError(t, err)
	assert.Equal(t, []string{"SQL", "Docker"}, pool, "existing skills and repeats are left out")

	state, err := s.AcceptSuggestion(id, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "Docker"}, state.Record.Skills)
	assert.Equal(t, []string{"SQL"}, state.Suggestions)

	_, err = s.AcceptSuggestion(id, 5)
	assert.True(t, errors.HasCode(err, errors.ErrCodeIndexOutOfRange))
}

func TestCleanupEvictsIdleSessions(t *testing.T) {
	clock := &manualClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := newTestStore(t, config.SessionConfig{TTL: time.Hour})
	s.now = clock.Now

	idle := s.Create().ID
	clock.Advance(50 * time.Minute)
	active := s.Create().ID

	clock.Advance(20 * time.Minute)
	_, err := s.Get(active)
	require.NoError(t, err)

	s.cleanup()

	_, err = s.Get(idle)
	assert.Error(t, err, "idle session evicted")
	_, err = s.Get(active)
	assert.NoError(t, err, "recently used session kept")
}

func TestCreateEvictsLeastRecentlyUsedWhenFull(t *testing.T) {
	clock := &manualClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := newTestStore(t, config.SessionConfig{MaxSessions: 2})
	s.now = clock.Now

	first := s.Create().ID
	clock.Advance(time.Minute)
	second := s.Create().ID
	clock.Advance(time.Minute)
	_, _ = s.Get(first)
	clock.Advance(time.Minute)

	s.Create()
	assert.Equal(t, 2, s.Len())
	_, err := s.Get(second)
	assert.Error(t, err)
	_, err = s.Get(first)
	assert.NoError(t, err)
}

func TestDeleteAndStats(t *testing.T) {
	s := newTestStore(t, config.SessionConfig{TTL: time.Hour, MaxSessions: 10})
	id := s.Create().ID

	assert.Equal(t, 1, s.GetStats()["active_sessions"])
	require.NoError(t, s.Delete(id))
	assert.Equal(t, 0, s.Len())

	s.Close()
	s.Close()
}
