// Package clock provides the wall-clock timer that wakes the alarm.
package clock

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/SoarinFerret/GetUp/internal/alarm"
	"go.uber.org/zap"
)

// ErrStopped is returned by Run and ScheduleAt once the clock has been
// interrupted, and by a second Run.
var ErrStopped = errors.New("clock: stopped")

// DefaultMaxSleep bounds a single sleep so a wall-clock jump (suspend,
// NTP step) is noticed within this interval.
const DefaultMaxSleep = 30 * time.Second

type Clock struct {
	Now      func() time.Time
	MaxSleep time.Duration

	log  *zap.Logger
	wake chan struct{}

	mu      sync.Mutex
	next    alarm.TimerHandle
	q       schedQueue
	entries map[alarm.TimerHandle]time.Time
	subs    map[*Subscription]struct{}
	running bool
	stopped bool

	cancel context.CancelFunc
	done   chan struct{}
}

var _ alarm.Timer = (*Clock)(nil)

func New(log *zap.Logger) *Clock {
	if log == nil {
		log = zap.NewNop()
	}
	return &Clock{
		Now:      time.Now,
		MaxSleep: DefaultMaxSleep,
		log:      log.Named("clock"),
		wake:     make(chan struct{}, 1),
		entries:  make(map[alarm.TimerHandle]time.Time),
		subs:     make(map[*Subscription]struct{}),
		cancel:   func() {},
		done:     make(chan struct{}),
	}
}

// Run starts the timer goroutine.
func (c *Clock) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	if c.running || c.stopped {
		c.mu.Unlock()
		cancel()
		return ErrStopped
	}
	c.running = true
	c.cancel = cancel
	c.mu.Unlock()

	go c.run(ctx)
	return nil
}

// Interrupt stops the timer goroutine and waits for it to exit. Pending
// registrations are dropped and subscriptions closed.
func (c *Clock) Interrupt() error {
	c.mu.Lock()
	c.stopped = true
	running := c.running
	cancel := c.cancel
	c.mu.Unlock()

	if !running {
		c.shutdown()
		return nil
	}
	cancel()
	<-c.done
	return nil
}

// Resync makes the clock re-read the wall clock now, e.g. after resume from
// suspend.
func (c *Clock) Resync() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Clock) ScheduleAt(at time.Time) (alarm.TimerHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return 0, ErrStopped
	}
	c.next++
	h := c.next
	c.entries[h] = at
	heap.Push(&c.q, schedQueueEntry{at: at, handle: h})
	c.log.Debug("timer registered", zap.Uint64("handle", uint64(h)), zap.Time("at", at))

	c.Resync()
	return h, nil
}

// Cancel drops a registration. Unknown or already fired handles are ignored.
func (c *Clock) Cancel(h alarm.TimerHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[h]; ok {
		delete(c.entries, h)
		c.log.Debug("timer cancelled", zap.Uint64("handle", uint64(h)))
	}
}

// Pending returns the number of live registrations.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

const subBufferSize = 16

func (c *Clock) Subscribe() alarm.TimerSubscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	sub := &Subscription{
		clock: c,
		c:     make(chan alarm.Fire, subBufferSize),
	}
	if c.stopped {
		sub.close()
		return sub
	}
	c.subs[sub] = struct{}{}
	return sub
}

// now strips the monotonic reading so comparisons follow the wall clock,
// which keeps counting across suspend.
func (c *Clock) now() time.Time {
	return c.Now().Round(0)
}

func (c *Clock) run(ctx context.Context) {
	defer close(c.done)

	timer := time.NewTimer(c.sleepFor())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done(): // Operation was canceled.
			c.shutdown()
			return

		case <-c.wake:

		case <-timer.C:
			c.fireDue()
		}

		timer.Stop()
		timer.Reset(c.sleepFor())
	}
}

// sleepFor returns how long to wait until the earliest registration, capped
// at MaxSleep.
func (c *Clock) sleepFor() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	limit := c.MaxSleep
	if limit <= 0 {
		limit = DefaultMaxSleep
	}
	c.dropCancelled()
	if len(c.q) == 0 {
		return limit
	}
	d := c.q[0].at.Sub(c.now())
	if d < 0 {
		return 0
	}
	if d > limit {
		return limit
	}
	return d
}

func (c *Clock) fireDue() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for {
		c.dropCancelled()
		if len(c.q) == 0 {
			return
		}
		head := c.q[0]
		if now.Before(head.at) {
			// Time drift. Sleep again.
			return
		}
		heap.Pop(&c.q)
		delete(c.entries, head.handle)

		late := now.Sub(head.at)
		if late > time.Minute {
			c.log.Warn("timer fired late", zap.Uint64("handle", uint64(head.handle)), zap.Duration("late", late))
		}
		c.publish(alarm.Fire{Handle: head.handle, At: head.at})
	}
}

// dropCancelled pops cancelled registrations off the head of the queue.
func (c *Clock) dropCancelled() {
	for len(c.q) > 0 {
		head := c.q[0]
		if at, ok := c.entries[head.handle]; ok && at.Equal(head.at) {
			return
		}
		heap.Pop(&c.q)
	}
}

func (c *Clock) publish(f alarm.Fire) {
	for sub := range c.subs {
		select {
		case sub.c <- f:
		default:
			// The subscriber fell behind; it has to subscribe again.
			c.log.Warn("dropping slow timer subscriber")
			sub.close()
		}
	}
}

func (c *Clock) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	c.q = nil
	clear(c.entries)
	for sub := range c.subs {
		sub.close()
	}
}

type schedQueueEntry struct {
	at     time.Time
	handle alarm.TimerHandle
}

type schedQueue []schedQueueEntry

var _ heap.Interface = (*schedQueue)(nil)

func (q schedQueue) Len() int {
	return len(q)
}

func (q schedQueue) Less(i, j int) bool {
	ti, tj := q[i].at, q[j].at
	if ti.Equal(tj) {
		return q[i].handle < q[j].handle
	}
	return ti.Before(tj)
}

func (q schedQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
}

func (q *schedQueue) Push(x any) {
	*q = append(*q, x.(schedQueueEntry))
}

func (q *schedQueue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	old[n-1] = schedQueueEntry{}
	*q = old[:n-1]
	return it
}

var _ alarm.TimerSubscription = (*Subscription)(nil)

type Subscription struct {
	clock *Clock
	c     chan alarm.Fire
	once  sync.Once
}

func (sub *Subscription) C() <-chan alarm.Fire {
	return sub.c
}

func (sub *Subscription) Close() error {
	sub.clock.mu.Lock()
	defer sub.clock.mu.Unlock()
	sub.close()
	return nil
}

func (sub *Subscription) close() {
	sub.once.Do(func() {
		close(sub.c)
	})
	delete(sub.clock.subs, sub)
}
