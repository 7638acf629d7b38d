package alarm

import "time"

// State is the state of an alert session.
type State string

const (
	StateNone        State = "NONE"
	StateFiring      State = "FIRING"
	StateSnoozing    State = "SNOOZING"
	StateDeactivated State = "DEACTIVATED"
)

// Session is one firing-to-deactivation episode. It is only touched while
// holding the Controller lock.
type Session struct {
	ID             string
	State          State
	FireAt         time.Time
	StartedAt      time.Time
	SnoozeDeadline time.Time
	SnoozeCount    int
}

func (s *Session) snooze(now time.Time, window time.Duration) {
	s.State = StateSnoozing
	s.SnoozeDeadline = now.Add(window)
	s.SnoozeCount++
}

// resume returns a snoozing session to FIRING. The snooze count is kept.
func (s *Session) resume() {
	s.State = StateFiring
	s.SnoozeDeadline = time.Time{}
}

func (s *Session) snoozeElapsed(now time.Time) bool {
	return s.State == StateSnoozing && !now.Before(s.SnoozeDeadline)
}
