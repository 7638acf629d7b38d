package alarm

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

type fakeTimer struct {
	mu      sync.Mutex
	next    TimerHandle
	armed   map[TimerHandle]time.Time
	failing bool
	stopped bool
	subs    []*fakeTimerSub
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{armed: make(map[TimerHandle]time.Time)}
}

func (t *fakeTimer) ScheduleAt(at time.Time) (TimerHandle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failing {
		return 0, errors.New("timer service unavailable")
	}
	t.next++
	t.armed[t.next] = at
	return t.next, nil
}

func (t *fakeTimer) Cancel(h TimerHandle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.armed, h)
}

func (t *fakeTimer) Subscribe() TimerSubscription {
	t.mu.Lock()
	defer t.mu.Unlock()
	sub := &fakeTimerSub{c: make(chan Fire, 4)}
	if t.stopped {
		sub.Close()
	}
	t.subs = append(t.subs, sub)
	return sub
}

// pending returns the only armed fire time.
func (t *fakeTimer) pending() (TimerHandle, time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for h, at := range t.armed {
		return h, at, true
	}
	return 0, time.Time{}, false
}

func (t *fakeTimer) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.armed)
}

type fakeTimerSub struct {
	c    chan Fire
	once sync.Once
}

func (s *fakeTimerSub) C() <-chan Fire { return s.c }

func (s *fakeTimerSub) Close() error {
	s.once.Do(func() { close(s.c) })
	return nil
}

type fakeSink struct {
	mu       sync.Mutex
	calls    []string
	playing  bool
	paused   bool
	volume   float64
	startErr error

	// inside counts callers currently in a sink method; overlaps counts
	// calls that found another caller already inside.
	inside   atomic.Int32
	overlaps atomic.Int32
}

// record must be called with s.mu held.
func (s *fakeSink) record(call string) {
	s.calls = append(s.calls, call)
}

// enter tracks concurrent callers. The controller never calls the sink from
// two goroutines at once.
func (s *fakeSink) enter() func() {
	if s.inside.Add(1) > 1 {
		s.overlaps.Add(1)
	}
	time.Sleep(100 * time.Microsecond)
	return func() { s.inside.Add(-1) }
}

func (s *fakeSink) history() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *fakeSink) Start(volumePct float64) error {
	defer s.enter()()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("start")
	s.playing = true
	s.paused = false
	s.volume = volumePct
	return s.startErr
}

func (s *fakeSink) Stop() {
	defer s.enter()()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("stop")
	s.playing = false
	s.paused = false
}

func (s *fakeSink) Pause() {
	defer s.enter()()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("pause")
	s.paused = true
}

func (s *fakeSink) Resume() {
	defer s.enter()()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("resume")
	s.paused = false
}

func (s *fakeSink) SetVolume(pct float64) {
	defer s.enter()()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("volume")
	s.volume = pct
}

func (s *fakeSink) count(call string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == call {
			n++
		}
	}
	return n
}

// memStore is a map-backed Store whose writes can be made to fail.
type memStore struct {
	mu       sync.Mutex
	values   map[string]string
	failSets int // number of upcoming Set calls that fail
}

func newMemStore() *memStore {
	return &memStore{values: make(map[string]string)}
}

func (m *memStore) Get(_ context.Context, namespace, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[namespace+"/"+key]
	return v, ok, nil
}

func (m *memStore) Set(_ context.Context, namespace, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSets > 0 {
		m.failSets--
		return errors.New("disk full")
	}
	m.values[namespace+"/"+key] = value
	return nil
}

func (m *memStore) get(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[Namespace+"/"+key]
}

func (m *memStore) put(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[Namespace+"/"+key] = value
}

func (m *memStore) failNext(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failSets = n
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Add(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}
