package alarm

import (
	"sync"
	"time"
)

// EventKind names a lifecycle event observed by front-ends.
type EventKind string

const (
	EventAlarmFired       EventKind = "AlarmFired"
	EventAlarmDeactivated EventKind = "AlarmDeactivated"
	EventSnoozeStarted    EventKind = "SnoozeStarted"
	EventSnoozeEnded      EventKind = "SnoozeEnded"
)

type Event struct {
	Kind           EventKind `json:"kind"`
	SessionID      string    `json:"session_id"`
	At             time.Time `json:"at"`
	FireAt         time.Time `json:"fire_at"`
	SnoozeDeadline time.Time `json:"snooze_deadline,omitempty"`
	SnoozeCount    int       `json:"snooze_count"`
}

const subBufferSize = 16

type broadcaster struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[*Subscription]struct{})}
}

func (b *broadcaster) subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := &Subscription{
		b: b,
		c: make(chan Event, subBufferSize),
	}
	b.subs[sub] = struct{}{}
	return sub
}

func (b *broadcaster) publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		select {
		case sub.c <- e:
		default:
			// The subscriber fell behind; it has to subscribe again.
			sub.close()
		}
	}
}

// Subscription delivers controller events until closed.
type Subscription struct {
	b    *broadcaster
	c    chan Event
	once sync.Once
}

// C returns the event channel. It is closed when the subscription is closed
// or when the subscriber can't keep up.
func (sub *Subscription) C() <-chan Event {
	return sub.c
}

func (sub *Subscription) Close() error {
	sub.b.mu.Lock()
	defer sub.b.mu.Unlock()
	sub.close()
	return nil
}

func (sub *Subscription) close() {
	sub.once.Do(func() {
		close(sub.c)
	})
	delete(sub.b.subs, sub)
}
