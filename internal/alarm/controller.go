// Package alarm implements the alarm lifecycle: scheduling the single daily
// wake-up, firing it, the bounded snooze countdown and code-gated
// deactivation.
package alarm

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const persistTimeout = 5 * time.Second

// Options tune a Controller. Zero values fall back to defaults.
type Options struct {
	SnoozeWindow       time.Duration
	SnoozeLimit        int // 0 means unlimited
	CodeLength         int
	FirstRunCodeLength int

	Now          func() time.Time
	NewSessionID func() string
	GenerateCode func(n int) (string, error)
}

func (o *Options) setDefault() {
	if o.SnoozeWindow <= 0 {
		o.SnoozeWindow = 30 * time.Second
	}
	if o.CodeLength <= 0 {
		o.CodeLength = 8
	}
	if o.FirstRunCodeLength <= 0 {
		o.FirstRunCodeLength = 4
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewSessionID == nil {
		o.NewSessionID = uuid.NewString
	}
	if o.GenerateCode == nil {
		o.GenerateCode = GenerateCode
	}
}

// Status is a point-in-time view of the controller for front-ends.
type Status struct {
	State          State     `json:"state"`
	Schedule       Schedule  `json:"schedule"`
	TimeOfDay      string    `json:"alarm_time"`
	SessionID      string    `json:"session_id,omitempty"`
	StartedAt      time.Time `json:"started_at,omitempty"`
	SnoozeDeadline time.Time `json:"snooze_deadline,omitempty"`
	SnoozeCount    int       `json:"snooze_count"`
	SnoozeLimit    int       `json:"snooze_limit"`
	Persisted      bool      `json:"persisted"`
}

// Controller owns the schedule and the alert session. Every transition runs
// under mu, so timer delivery and user commands never interleave.
type Controller struct {
	timer Timer
	sink  Sink
	prefs *Prefs
	log   *zap.Logger
	opts  Options

	events *broadcaster

	mu       sync.RWMutex
	schedule Schedule
	pending  TimerHandle
	session  *Session
	dirty    bool // schedule not yet persisted
}

func NewController(timer Timer, sink Sink, store Store, log *zap.Logger, opts Options) *Controller {
	opts.setDefault()
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		timer:  timer,
		sink:   sink,
		prefs:  NewPrefs(store),
		log:    log.Named("alarm"),
		opts:   opts,
		events: newBroadcaster(),
	}
}

// Subscribe returns a subscription to lifecycle events.
func (c *Controller) Subscribe() *Subscription {
	return c.events.subscribe()
}

// Recover restores the persisted schedule on startup. An alarm whose fire
// time passed while the process was down fires immediately.
func (c *Controller) Recover(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureCode(ctx); err != nil {
		return err
	}

	now := c.opts.Now()
	s, err := c.prefs.Schedule(ctx, now)
	if err != nil {
		return Wrap(ErrInternal, err, "failed to load schedule")
	}
	c.schedule = s
	if !s.Active {
		c.log.Info("no alarm armed")
		return nil
	}

	if s.FireAt.After(now) {
		if err := c.arm(s.FireAt); err != nil {
			return err
		}
		c.log.Info("alarm re-armed", zap.Time("fire_at", s.FireAt))
		return nil
	}

	c.log.Warn("alarm fire time passed while stopped, firing now", zap.Time("fire_at", s.FireAt))
	c.onFire(now)
	return nil
}

// Run delivers timer fires to the controller until ctx is done. A dropped
// subscription is renewed; one that closes before delivering anything means
// the timer source has stopped, and Run returns.
func (c *Controller) Run(ctx context.Context) error {
	sub := c.timer.Subscribe()
	received := false
	for {
		select {
		case <-ctx.Done():
			sub.Close()
			return nil

		case f, ok := <-sub.C():
			if !ok {
				if !received {
					c.log.Error("timer source stopped")
					return Errorf(ErrInternal, "timer source stopped")
				}
				c.log.Warn("timer subscription dropped, resubscribing")
				sub = c.timer.Subscribe()
				received = false
				c.Tick(c.opts.Now())
				continue
			}
			received = true
			c.deliver(f)
		}
	}
}

func (c *Controller) deliver(f Fire) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if f.Handle == 0 || f.Handle != c.pending {
		c.log.Debug("ignoring stale timer", zap.Uint64("handle", uint64(f.Handle)))
		return
	}
	if c.session != nil {
		// The handle is spent. The schedule is re-armed on deactivation.
		c.timer.Cancel(c.pending)
		c.pending = 0
		c.log.Info("alarm time reached during running session",
			zap.String("session", c.session.ID), zap.Time("fire_at", c.schedule.FireAt))
		return
	}
	c.onFire(c.opts.Now())
}

// Schedule arms the alarm for the next occurrence of t, replacing any pending
// registration. On a timer failure the previous schedule stays in place.
func (c *Controller) Schedule(ctx context.Context, t ClockTime) (Schedule, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fireAt := NextFireAt(c.opts.Now(), t)
	if err := c.arm(fireAt); err != nil {
		return c.schedule, err
	}
	c.schedule = Schedule{FireAt: fireAt, Active: true}
	c.log.Info("alarm scheduled", zap.Time("fire_at", fireAt))

	return c.schedule, c.saveSchedule(ctx)
}

// Cancel disarms the alarm. A running alert session is left alone.
func (c *Controller) Cancel(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending == 0 && !c.schedule.Active && c.schedule.FireAt.IsZero() {
		return nil
	}
	if c.pending != 0 {
		c.timer.Cancel(c.pending)
		c.pending = 0
	}
	c.schedule = Schedule{}
	c.log.Info("alarm cancelled")

	return c.saveSchedule(ctx)
}

// OnFire starts an alert session. It is a no-op while one already exists.
func (c *Controller) OnFire() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onFire(c.opts.Now())
}

func (c *Controller) onFire(now time.Time) {
	if c.session != nil {
		c.log.Debug("alarm already firing, ignoring duplicate fire", zap.String("session", c.session.ID))
		return
	}
	if c.pending != 0 {
		c.timer.Cancel(c.pending)
		c.pending = 0
	}

	fireAt := c.schedule.FireAt
	if fireAt.IsZero() {
		fireAt = now.Truncate(time.Minute)
	}
	if !c.schedule.Active || !c.schedule.FireAt.Equal(fireAt) {
		c.schedule = Schedule{FireAt: fireAt, Active: true}
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		if err := c.saveSchedule(ctx); err != nil {
			c.log.Error("failed to persist firing alarm", zap.Error(err))
		}
		cancel()
	}

	c.session = &Session{
		ID:        c.opts.NewSessionID(),
		State:     StateFiring,
		FireAt:    fireAt,
		StartedAt: now,
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	volume, err := c.prefs.Volume(ctx)
	cancel()
	if err != nil {
		c.log.Warn("failed to read volume, using default", zap.Float64("volume", volume), zap.Error(err))
	}

	if err := c.sink.Start(volume); err != nil {
		c.log.Warn("alert started without sound", zap.String("session", c.session.ID), zap.Error(err))
	}
	c.log.Info("alarm fired", zap.String("session", c.session.ID), zap.Time("fire_at", fireAt))
	c.emit(EventAlarmFired, now)
}

// AttemptDeactivate ends the alert session when code matches the stored
// confirmation code, then re-arms the alarm for the next day.
//
// A deactivation that succeeded but could not re-arm the timer returns an
// ErrTimerRegistrationFailed error.
func (c *Controller) AttemptDeactivate(ctx context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		c.log.Warn("deactivation attempted without a firing alarm")
		return Errorf(ErrNotFiring, "no alarm is firing")
	}

	stored, err := c.prefs.Code(ctx)
	if err != nil {
		return Wrap(ErrInternal, err, "failed to read confirmation code")
	}
	if stored == "" || code != stored {
		c.log.Info("incorrect deactivation code", zap.String("session", c.session.ID))
		return Errorf(ErrIncorrectCode, "incorrect code")
	}

	now := c.opts.Now()
	c.sink.Stop()
	s := c.session
	s.State = StateDeactivated
	c.session = nil
	c.log.Info("alarm deactivated", zap.String("session", s.ID), zap.Int("snoozes", s.SnoozeCount))

	c.schedule.Active = false
	var result error
	if err := c.persist(ctx, "active flag", func(ctx context.Context) error {
		return c.prefs.SetActive(ctx, false)
	}); err != nil {
		c.dirty = true
		result = err
	}

	if err := c.rescheduleAfter(ctx, s, now); err != nil {
		result = err
	}

	c.events.publish(Event{
		Kind:        EventAlarmDeactivated,
		SessionID:   s.ID,
		At:          now,
		FireAt:      c.schedule.FireAt,
		SnoozeCount: s.SnoozeCount,
	})
	return result
}

// rescheduleAfter re-arms the alarm for the day after the session's fire
// time. A schedule changed during the session wins, even when its time of day
// already passed; a cancelled one stays off.
func (c *Controller) rescheduleAfter(ctx context.Context, s *Session, now time.Time) error {
	if c.schedule.FireAt.IsZero() {
		return nil
	}
	if c.pending != 0 && c.schedule.FireAt.After(now) {
		c.schedule.Active = true
		return c.saveSchedule(ctx)
	}

	next := NextDay(s.FireAt, now)
	if !c.schedule.FireAt.Equal(s.FireAt) {
		next = NextFireAt(now, ClockTimeOf(c.schedule.FireAt))
	}
	if err := c.arm(next); err != nil {
		return err
	}
	c.schedule = Schedule{FireAt: next, Active: true}
	c.log.Info("alarm rescheduled", zap.Time("fire_at", next))
	return c.saveSchedule(ctx)
}

// Snooze pauses a firing alert for the snooze window and returns the instant
// it resumes.
func (c *Controller) Snooze(ctx context.Context) (time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil || c.session.State != StateFiring {
		c.log.Warn("snooze requested while no alarm is firing")
		return time.Time{}, Errorf(ErrNotFiring, "no alarm is firing")
	}
	if limit := c.opts.SnoozeLimit; limit > 0 && c.session.SnoozeCount >= limit {
		return time.Time{}, Errorf(ErrSnoozeLimitReached, "snooze limit of %d reached", limit)
	}

	now := c.opts.Now()
	c.session.snooze(now, c.opts.SnoozeWindow)
	c.sink.Pause()
	c.log.Info("alarm snoozed",
		zap.String("session", c.session.ID),
		zap.Time("until", c.session.SnoozeDeadline),
		zap.Int("count", c.session.SnoozeCount))
	c.emit(EventSnoozeStarted, now)
	return c.session.SnoozeDeadline, nil
}

// Tick resumes an alert whose snooze window elapsed. It also fires an alarm
// whose timer was missed and retries a failed schedule write.
func (c *Controller) Tick(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		if c.session.snoozeElapsed(now) {
			c.resume(now)
		}
	} else if c.schedule.Active && !c.schedule.FireAt.IsZero() && !now.Before(c.schedule.FireAt) {
		c.log.Warn("timer missed, firing alarm", zap.Time("fire_at", c.schedule.FireAt))
		c.onFire(now)
	}

	if c.dirty {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := c.saveSchedule(ctx); err == nil {
			c.log.Info("schedule persisted after earlier failure")
		}
	}
}

// Foreground resumes a snoozed alert immediately. The snooze still counts.
func (c *Controller) Foreground() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil && c.session.State == StateSnoozing {
		c.log.Info("front-end in foreground, resuming alert", zap.String("session", c.session.ID))
		c.resume(c.opts.Now())
	}
}

func (c *Controller) resume(now time.Time) {
	c.session.resume()
	c.sink.Resume()
	c.log.Info("snooze ended", zap.String("session", c.session.ID))
	c.emit(EventSnoozeEnded, now)
}

// RegenerateCode replaces the confirmation code. The next AttemptDeactivate
// compares against the new code.
func (c *Controller) RegenerateCode(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	code, err := c.opts.GenerateCode(c.opts.CodeLength)
	if err != nil {
		return "", Wrap(ErrInternal, err, "failed to generate code")
	}
	if err := c.persist(ctx, "confirmation code", func(ctx context.Context) error {
		return c.prefs.SetCode(ctx, code)
	}); err != nil {
		return "", err
	}
	c.log.Info("confirmation code regenerated")
	return code, nil
}

// Code returns the stored confirmation code.
func (c *Controller) Code(ctx context.Context) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	code, err := c.prefs.Code(ctx)
	if err != nil {
		return "", Wrap(ErrInternal, err, "failed to read confirmation code")
	}
	return code, nil
}

// ensureCode generates the first-run code when none is stored.
func (c *Controller) ensureCode(ctx context.Context) error {
	code, err := c.prefs.Code(ctx)
	if err != nil {
		return Wrap(ErrInternal, err, "failed to read confirmation code")
	}
	if code != "" {
		return nil
	}
	if code, err = c.opts.GenerateCode(c.opts.FirstRunCodeLength); err != nil {
		return Wrap(ErrInternal, err, "failed to generate code")
	}
	if err := c.persist(ctx, "confirmation code", func(ctx context.Context) error {
		return c.prefs.SetCode(ctx, code)
	}); err != nil {
		return err
	}
	c.log.Info("generated first confirmation code")
	return nil
}

// SetVolume stores the alert volume and applies it to a running session.
func (c *Controller) SetVolume(ctx context.Context, pct float64) error {
	if pct < 0 || pct > 100 {
		return Errorf(ErrInvalid, "volume must be within 0-100, got %v", pct)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.persist(ctx, "volume", func(ctx context.Context) error {
		return c.prefs.SetVolume(ctx, pct)
	}); err != nil {
		return err
	}
	if c.session != nil {
		c.sink.SetVolume(pct)
	}
	return nil
}

// Status returns a snapshot of the schedule and session.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	st := Status{
		State:       StateNone,
		Schedule:    c.schedule,
		TimeOfDay:   c.schedule.TimeOfDay(),
		SnoozeLimit: c.opts.SnoozeLimit,
		Persisted:   !c.dirty,
	}
	if s := c.session; s != nil {
		st.State = s.State
		st.SessionID = s.ID
		st.StartedAt = s.StartedAt
		st.SnoozeDeadline = s.SnoozeDeadline
		st.SnoozeCount = s.SnoozeCount
	}
	return st
}

// Close stops a running alert when the process shuts down. The persisted
// schedule is kept so the alert resumes on the next start.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		c.sink.Stop()
		c.log.Info("alert session torn down", zap.String("session", c.session.ID))
		c.session = nil
	}
	if c.pending != 0 {
		c.timer.Cancel(c.pending)
		c.pending = 0
	}
	return nil
}

// arm registers a timer for at and only then cancels the previous one.
func (c *Controller) arm(at time.Time) error {
	h, err := c.timer.ScheduleAt(at)
	if err != nil {
		c.log.Error("failed to register timer", zap.Time("fire_at", at), zap.Error(err))
		return Wrap(ErrTimerRegistrationFailed, err, "failed to arm alarm for %s", at.Format(time.RFC3339))
	}
	if c.pending != 0 {
		c.timer.Cancel(c.pending)
	}
	c.pending = h
	return nil
}

func (c *Controller) saveSchedule(ctx context.Context) error {
	s := c.schedule
	err := c.persist(ctx, "schedule", func(ctx context.Context) error {
		return c.prefs.SetSchedule(ctx, s)
	})
	c.dirty = err != nil
	return err
}

// persist runs write, retrying once.
func (c *Controller) persist(ctx context.Context, what string, write func(context.Context) error) error {
	err := write(ctx)
	if err == nil {
		return nil
	}
	c.log.Warn("store write failed, retrying", zap.String("what", what), zap.Error(err))
	if err = write(ctx); err == nil {
		return nil
	}
	c.log.Error("store write failed", zap.String("what", what), zap.Error(err))
	return Wrap(ErrStoreWriteFailed, err, "failed to persist %s", what)
}

func (c *Controller) emit(kind EventKind, now time.Time) {
	s := c.session
	c.events.publish(Event{
		Kind:           kind,
		SessionID:      s.ID,
		At:             now,
		FireAt:         s.FireAt,
		SnoozeDeadline: s.SnoozeDeadline,
		SnoozeCount:    s.SnoozeCount,
	})
}
