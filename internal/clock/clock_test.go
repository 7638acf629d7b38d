package clock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/SoarinFerret/GetUp/internal/alarm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startClock(t *testing.T, c *Clock) {
	t.Helper()
	require.NoError(t, c.Run(context.Background()))
	t.Cleanup(func() { c.Interrupt() })
}

func receive(t *testing.T, sub alarm.TimerSubscription) alarm.Fire {
	t.Helper()
	select {
	case f, ok := <-sub.C():
		require.True(t, ok, "subscription closed")
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fire")
		return alarm.Fire{}
	}
}

func assertNoFire(t *testing.T, sub alarm.TimerSubscription, wait time.Duration) {
	t.Helper()
	select {
	case f := <-sub.C():
		t.Fatalf("unexpected fire for handle %d", f.Handle)
	case <-time.After(wait):
	}
}

func TestClockFires(t *testing.T) {
	c := New(nil)
	startClock(t, c)
	sub := c.Subscribe()

	at := time.Now().Add(20 * time.Millisecond)
	h, err := c.ScheduleAt(at)
	require.NoError(t, err)

	f := receive(t, sub)
	assert.Equal(t, h, f.Handle)
	assert.True(t, at.Equal(f.At))
	assert.Equal(t, 0, c.Pending())
}

func TestClockFiresInOrder(t *testing.T) {
	c := New(nil)
	startClock(t, c)
	sub := c.Subscribe()

	now := time.Now()
	late, err := c.ScheduleAt(now.Add(60 * time.Millisecond))
	require.NoError(t, err)
	early, err := c.ScheduleAt(now.Add(20 * time.Millisecond))
	require.NoError(t, err)

	assert.Equal(t, early, receive(t, sub).Handle)
	assert.Equal(t, late, receive(t, sub).Handle)
}

func TestClockPastRegistrationFiresImmediately(t *testing.T) {
	c := New(nil)
	startClock(t, c)
	sub := c.Subscribe()

	h, err := c.ScheduleAt(time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, h, receive(t, sub).Handle)
}

func TestClockCancel(t *testing.T) {
	c := New(nil)
	startClock(t, c)
	sub := c.Subscribe()

	h, err := c.ScheduleAt(time.Now().Add(30 * time.Millisecond))
	require.NoError(t, err)
	c.Cancel(h)
	c.Cancel(h)
	assert.Equal(t, 0, c.Pending())

	assertNoFire(t, sub, 100*time.Millisecond)
}

// fakeNow is a settable wall clock.
type fakeNow struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeNow) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeNow) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = t
}

func TestClockNoticesWallClockJump(t *testing.T) {
	base := time.Date(2024, 3, 10, 6, 0, 0, 0, time.UTC)
	wall := &fakeNow{t: base}

	c := New(nil)
	c.Now = wall.Now
	c.MaxSleep = 10 * time.Millisecond
	startClock(t, c)
	sub := c.Subscribe()

	h, err := c.ScheduleAt(base.Add(time.Hour))
	require.NoError(t, err)
	assertNoFire(t, sub, 50*time.Millisecond)

	// The machine was suspended across the fire time.
	wall.Set(base.Add(2 * time.Hour))
	assert.Equal(t, h, receive(t, sub).Handle)
}

func TestClockResync(t *testing.T) {
	base := time.Date(2024, 3, 10, 6, 0, 0, 0, time.UTC)
	wall := &fakeNow{t: base}

	c := New(nil)
	c.Now = wall.Now
	c.MaxSleep = time.Hour
	startClock(t, c)
	sub := c.Subscribe()

	h, err := c.ScheduleAt(base.Add(time.Minute))
	require.NoError(t, err)

	wall.Set(base.Add(5 * time.Minute))
	c.Resync()
	assert.Equal(t, h, receive(t, sub).Handle)
}

func TestClockInterrupt(t *testing.T) {
	c := New(nil)
	require.NoError(t, c.Run(context.Background()))
	sub := c.Subscribe()

	require.NoError(t, c.Interrupt())

	_, ok := <-sub.C()
	assert.False(t, ok)

	_, err := c.ScheduleAt(time.Now().Add(time.Minute))
	assert.ErrorIs(t, err, ErrStopped)
}

func TestClockRunAfterInterrupt(t *testing.T) {
	c := New(nil)
	require.NoError(t, c.Interrupt())
	assert.ErrorIs(t, c.Run(context.Background()), ErrStopped)

	c = New(nil)
	startClock(t, c)
	assert.ErrorIs(t, c.Run(context.Background()), ErrStopped)
}

func TestClockConcurrentRunAndInterrupt(t *testing.T) {
	for i := 0; i < 50; i++ {
		c := New(nil)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = c.Run(context.Background())
		}()
		go func() {
			defer wg.Done()
			_ = c.Interrupt()
		}()

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("Run/Interrupt deadlocked on iteration %d", i)
		}

		// Whichever won, the clock ends up stopped.
		require.NoError(t, c.Interrupt())
		_, err := c.ScheduleAt(time.Now().Add(time.Minute))
		assert.ErrorIs(t, err, ErrStopped)
	}
}

func TestClockDropsSlowSubscriber(t *testing.T) {
	c := New(nil)
	startClock(t, c)
	slow := c.Subscribe()

	now := time.Now()
	for i := 0; i <= subBufferSize; i++ {
		_, err := c.ScheduleAt(now.Add(-time.Duration(i) * time.Second))
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool { return c.Pending() == 0 }, 2*time.Second, 5*time.Millisecond)

	n := 0
	for range slow.C() {
		n++
	}
	assert.Equal(t, subBufferSize, n)
}
