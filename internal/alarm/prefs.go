package alarm

import (
	"context"
	"strconv"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// Namespace is the store namespace holding every alarm key.
const Namespace = "alarm_prefs"

const (
	KeyAlarmTime   = "alarm_time"
	KeyAlarmActive = "is_alarm_active"
	KeyAlarmCode   = "alarm_code"
	KeyAlarmVolume = "alarm_volume"
	KeyAlarmFireAt = "alarm_fire_at"
)

// DefaultVolume is used until the user picks a volume.
const DefaultVolume = 100.0

// Store is a flat string key/value store. Get reports found=false for a
// missing key. A Set must be visible to the next Get.
type Store interface {
	Get(ctx context.Context, namespace, key string) (value string, found bool, err error)
	Set(ctx context.Context, namespace, key, value string) error
}

// Prefs reads and writes the typed alarm keys.
type Prefs struct {
	store Store
}

func NewPrefs(store Store) *Prefs {
	return &Prefs{store: store}
}

func (p *Prefs) get(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := p.store.Get(ctx, Namespace, key)
	if err != nil {
		return "", false, goerr.Wrap(err, "failed to read preference", goerr.V("key", key))
	}
	return v, ok, nil
}

func (p *Prefs) set(ctx context.Context, key, value string) error {
	if err := p.store.Set(ctx, Namespace, key, value); err != nil {
		return goerr.Wrap(err, "failed to write preference", goerr.V("key", key))
	}
	return nil
}

func (p *Prefs) Code(ctx context.Context) (string, error) {
	v, _, err := p.get(ctx, KeyAlarmCode)
	return v, err
}

func (p *Prefs) SetCode(ctx context.Context, code string) error {
	return p.set(ctx, KeyAlarmCode, code)
}

// Volume returns the volume percentage, DefaultVolume when unset or unreadable.
func (p *Prefs) Volume(ctx context.Context) (float64, error) {
	v, ok, err := p.get(ctx, KeyAlarmVolume)
	if err != nil || !ok {
		return DefaultVolume, err
	}
	pct, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return DefaultVolume, goerr.Wrap(err, "invalid stored volume", goerr.V("value", v))
	}
	return pct, nil
}

func (p *Prefs) SetVolume(ctx context.Context, pct float64) error {
	return p.set(ctx, KeyAlarmVolume, strconv.FormatFloat(pct, 'f', -1, 64))
}

// Schedule loads the persisted schedule. When alarm_fire_at is missing the
// fire time is derived from alarm_time relative to now.
func (p *Prefs) Schedule(ctx context.Context, now time.Time) (Schedule, error) {
	var s Schedule

	active, ok, err := p.get(ctx, KeyAlarmActive)
	if err != nil {
		return s, err
	}
	if ok {
		if s.Active, err = strconv.ParseBool(active); err != nil {
			return s, goerr.Wrap(err, "invalid stored active flag", goerr.V("value", active))
		}
	}

	tod, ok, err := p.get(ctx, KeyAlarmTime)
	if err != nil {
		return s, err
	}
	if !ok || tod == OffTime || tod == "" {
		s.Active = false
		return s, nil
	}

	raw, ok, err := p.get(ctx, KeyAlarmFireAt)
	if err != nil {
		return s, err
	}
	if ok && raw != "" {
		fireAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return s, goerr.Wrap(err, "invalid stored fire time", goerr.V("value", raw))
		}
		s.FireAt = fireAt.In(now.Location())
		return s, nil
	}

	ct, err := ParseClockTime(tod)
	if err != nil {
		return s, err
	}
	s.FireAt = NextFireAt(now, ct)
	return s, nil
}

// SetSchedule writes every schedule key.
func (p *Prefs) SetSchedule(ctx context.Context, s Schedule) error {
	if err := p.set(ctx, KeyAlarmTime, s.TimeOfDay()); err != nil {
		return err
	}
	fireAt := ""
	if !s.FireAt.IsZero() {
		fireAt = s.FireAt.Format(time.RFC3339)
	}
	if err := p.set(ctx, KeyAlarmFireAt, fireAt); err != nil {
		return err
	}
	return p.SetActive(ctx, s.Active)
}

func (p *Prefs) SetActive(ctx context.Context, active bool) error {
	return p.set(ctx, KeyAlarmActive, strconv.FormatBool(active))
}
