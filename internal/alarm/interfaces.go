package alarm

import "time"

// TimerHandle identifies a registration with a Timer. Zero means none.
type TimerHandle uint64

// Fire is delivered by a Timer when a registration is due.
type Fire struct {
	Handle TimerHandle
	At     time.Time
}

// Timer schedules one-shot wall-clock wake-ups.
type Timer interface {
	ScheduleAt(at time.Time) (TimerHandle, error)
	Cancel(h TimerHandle)
	Subscribe() TimerSubscription
}

type TimerSubscription interface {
	// C returns the channel fires are delivered on.
	//
	// If the subscriber can't keep up, the Timer drops it and closes its
	// channel; the holder has to subscribe again.
	C() <-chan Fire

	// Close closes the subscription.
	Close() error
}

// Sink is the alerting actuator commanded by the Controller.
type Sink interface {
	// Start begins sound, vibration, notification and volume lock. An
	// ErrAudioDeviceUnavailable error means the other channels are running.
	Start(volumePct float64) error
	Stop()
	Pause()
	Resume()
	SetVolume(pct float64)
}
