package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"noa-assistant-be/internal/pkg/logger"
	"noa-assistant-be/internal/repository/memory"
	redisrepo "noa-assistant-be/internal/repository/redis"
	"noa-assistant-be/pkg/store"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager() (*Manager, *memory.SessionRepository) {
	repo := memory.NewSessionRepository(time.Minute)
	return NewManager(repo, logger.NewNopLogger()), repo
}

func TestLoadOrCreate_NewSessionStartsExplanatory(t *testing.T) {
	m, _ := newManager()

	sess, created := m.LoadOrCreate(context.Background(), "u1", "")
	require.True(t, created)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "u1", sess.UserID)
	assert.Equal(t, store.ModeExplanatory, sess.Mode)
	assert.Equal(t, 0, sess.StageIndex)
	assert.Equal(t, store.StatusActive, sess.Status)
}

func TestLoadOrCreate_ReturnsSavedSession(t *testing.T) {
	m, _ := newManager()
	ctx := context.Background()

	sess, _ := m.LoadOrCreate(ctx, "u1", "s1")
	sess.Mode = store.ModeCourse
	require.NoError(t, m.Save(ctx, sess))

	again, created := m.LoadOrCreate(ctx, "u1", "s1")
	assert.False(t, created)
	assert.Equal(t, store.ModeCourse, again.Mode)
}

func TestSave_StoresACopy(t *testing.T) {
	m, _ := newManager()
	ctx := context.Background()

	sess, _ := m.LoadOrCreate(ctx, "u1", "s1")
	require.NoError(t, m.Save(ctx, sess))
	sess.StageIndex = 9

	stored, err := m.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, stored.StageIndex)
}

func TestGet_Unknown(t *testing.T) {
	m, _ := newManager()
	_, err := m.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestDelete(t *testing.T) {
	m, repo := newManager()
	ctx := context.Background()

	sess, _ := m.LoadOrCreate(ctx, "u1", "s1")
	require.NoError(t, m.Save(ctx, sess))
	require.NoError(t, m.Delete(ctx, "s1"))

	assert.Equal(t, 0, repo.Count())
	_, err := m.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestWithLock_SerializesSameSession(t *testing.T) {
	m, _ := newManager()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		overlap bool
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.WithLock("s1", func() error {
				mu.Lock()
				active++
				if active > 1 {
					overlap = true
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				active--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	assert.False(t, overlap)
	assert.Empty(t, m.locks)
}

func TestWithLock_DifferentSessionsDoNotBlock(t *testing.T) {
	m, _ := newManager()

	inside := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = m.WithLock("a", func() error {
			close(inside)
			<-release
			return nil
		})
	}()
	<-inside

	done := make(chan struct{})
	go func() {
		_ = m.WithLock("b", func() error { return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b waited for a")
	}
	close(release)
}

func TestTiered_FallsBackWhenRedisIsDown(t *testing.T) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	fast := memory.NewSessionRepository(time.Minute)
	tiered := NewTiered(fast, redisrepo.NewSessionRepository(rdb, time.Minute), logger.NewNopLogger())
	m := NewManager(tiered, logger.NewNopLogger())
	ctx := context.Background()

	sess, created := m.LoadOrCreate(ctx, "u1", "s1")
	require.True(t, created)
	require.NoError(t, m.Save(ctx, sess))

	got, err := m.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
}

func TestTiered_WarmsFastTier(t *testing.T) {
	fast := memory.NewSessionRepository(time.Minute)
	durable := memory.NewSessionRepository(time.Minute)
	tiered := NewTiered(fast, durable, logger.NewNopLogger())
	ctx := context.Background()

	require.NoError(t, durable.Save(ctx, store.NewSession("s1", "u1", time.Now())))
	assert.Equal(t, 0, fast.Count())

	got, err := tiered.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, fast.Count())
}
