package signup_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"scholarship-portal/internal/signup"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

func TestStore(t *testing.T) {
	t.Run("CreateGetDelete", func(t *testing.T) {
		store := signup.NewStore(time.Hour, nil)

		sess := store.Create()
		require.NotEmpty(t, sess.ID)
		assert.Equal(t, signup.StateIdle, sess.State())
		assert.Equal(t, signup.Draft{}, sess.Snapshot().Draft)

		got, ok := store.Get(sess.ID)
		require.True(t, ok)
		assert.Same(t, sess, got)

		store.Delete(sess.ID)
		_, ok = store.Get(sess.ID)
		assert.False(t, ok)
	})

	t.Run("SessionsAreIndependent", func(t *testing.T) {
		store := signup.NewStore(time.Hour, nil)
		a := store.Create()
		b := store.Create()
		assert.NotEqual(t, a.ID, b.ID)

		a.Update(func(d *signup.Draft) { d.SetIdentity(signup.Identity{FullName: "A"}) })
		assert.Empty(t, b.Snapshot().Draft.FullName)
	})

	t.Run("SweepDropsIdleSessions", func(t *testing.T) {
		clock := &manualClock{now: today}
		store := signup.NewStore(30*time.Minute, clock.Now)

		stale := store.Create()
		clock.Advance(20 * time.Minute)
		fresh := store.Create()
		clock.Advance(15 * time.Minute)

		assert.Equal(t, 1, store.Sweep())
		_, ok := store.Get(stale.ID)
		assert.False(t, ok)
		_, ok = store.Get(fresh.ID)
		assert.True(t, ok)
	})

	t.Run("GetKeepsSessionAlive", func(t *testing.T) {
		clock := &manualClock{now: today}
		store := signup.NewStore(30*time.Minute, clock.Now)

		sess := store.Create()
		clock.Advance(25 * time.Minute)
		_, ok := store.Get(sess.ID)
		require.True(t, ok)
		clock.Advance(25 * time.Minute)

		assert.Equal(t, 0, store.Sweep())
		assert.Equal(t, 1, store.Len())
	})

	t.Run("SweepKeepsInFlightSubmission", func(t *testing.T) {
		clock := &manualClock{now: today}
		store := signup.NewStore(time.Minute, clock.Now)
		registrar := &fakeRegistrar{started: make(chan struct{}, 1), release: make(chan struct{})}
		svc := newTestService(registrar)

		sess := newSessionWith(store, validForm())
		done := make(chan struct{})
		go func() {
			defer close(done)
			svc.Submit(context.Background(), sess)
		}()
		<-registrar.started

		clock.Advance(time.Hour)
		assert.Equal(t, 0, store.Sweep())

		close(registrar.release)
		<-done
		assert.Equal(t, 1, store.Sweep())
	})

	t.Run("RunStopsOnCancel", func(t *testing.T) {
		store := signup.NewStore(time.Minute, nil)
		ctx, cancel := context.WithCancel(context.Background())

		stopped := make(chan struct{})
		go func() {
			store.Run(ctx, 10*time.Millisecond)
			close(stopped)
		}()
		cancel()

		select {
		case <-stopped:
		case <-time.After(2 * time.Second):
			t.Fatal("Run did not return after cancel")
		}
	})
}

func TestSessionReset(t *testing.T) {
	store := signup.NewStore(time.Hour, nil)
	sess := newSessionWith(store, validForm())
	pic, err := signup.IntakeProfilePicture(upload("me.png", "image/png", pngBytes), signup.DefaultMaxPictureBytes)
	require.NoError(t, err)
	sess.Update(func(d *signup.Draft) { d.StageProfilePicture(pic) })

	sess.Reset()

	snap := sess.Snapshot()
	assert.Equal(t, signup.Draft{}, snap.Draft)
	assert.Nil(t, snap.Draft.ProfilePicture)
	assert.Equal(t, signup.StateIdle, snap.State)
}

func TestSessionEdit(t *testing.T) {
	t.Run("AppliesWhenIdle", func(t *testing.T) {
		store := signup.NewStore(time.Hour, nil)
		sess := store.Create()

		err := sess.Edit(func(d *signup.Draft) { d.SetIncome("120000") })

		require.NoError(t, err)
		assert.Equal(t, "120000", sess.Snapshot().Draft.Income)
	})

	t.Run("RefusedWhileSubmitting", func(t *testing.T) {
		store := signup.NewStore(time.Hour, nil)
		registrar := &fakeRegistrar{started: make(chan struct{}, 1), release: make(chan struct{})}
		svc := newTestService(registrar)

		sess := newSessionWith(store, validForm())
		done := make(chan struct{})
		go func() {
			defer close(done)
			svc.Submit(context.Background(), sess)
		}()
		<-registrar.started

		called := false
		err := sess.Edit(func(d *signup.Draft) {
			called = true
			d.SetIncome("1")
		})
		assert.ErrorIs(t, err, signup.ErrSubmissionInProgress)
		assert.False(t, called)
		assert.Equal(t, validForm().Income, sess.Snapshot().Draft.Income)

		close(registrar.release)
		<-done
	})
}
