package domain

import (
	"fmt"
	"sync/atomic"
)

// Bounds for both review settings.
const (
	MinSettingValue = 1
	MaxSettingValue = 100
)

// Setting keys as sent by the cloud.
const (
	SettingMaxCardsPerSession = "max_cards_per_session"
	SettingDesiredRetention   = "desired_retention"
)

// Settings is a plain snapshot of a user's review settings.
type Settings struct {
	MaxCardsPerSession int `json:"max_cards_per_session"`
	DesiredRetention   int `json:"desired_retention"`
}

// Validate checks both values lie in [1,100].
func (s Settings) Validate() error {
	if err := checkSetting(SettingMaxCardsPerSession, s.MaxCardsPerSession); err != nil {
		return err
	}
	return checkSetting(SettingDesiredRetention, s.DesiredRetention)
}

// RetentionFraction returns the desired retention as a probability.
func (s Settings) RetentionFraction() float64 {
	return float64(s.DesiredRetention) / 100
}

// UserSettings holds live settings for one session. Reads and writes are
// lock-free; each field is updated independently.
type UserSettings struct {
	maxCards  atomic.Int32
	retention atomic.Int32
}

// NewUserSettings returns settings initialised from s. Out-of-range values
// are rejected.
func NewUserSettings(s Settings) (*UserSettings, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	u := &UserSettings{}
	u.maxCards.Store(int32(s.MaxCardsPerSession))
	u.retention.Store(int32(s.DesiredRetention))
	return u, nil
}

// MaxCardsPerSession returns the current card limit.
func (u *UserSettings) MaxCardsPerSession() int { return int(u.maxCards.Load()) }

// DesiredRetention returns the current retention target in percent.
func (u *UserSettings) DesiredRetention() int { return int(u.retention.Load()) }

// SetMaxCardsPerSession updates the card limit.
func (u *UserSettings) SetMaxCardsPerSession(n int) error {
	if err := checkSetting(SettingMaxCardsPerSession, n); err != nil {
		return err
	}
	u.maxCards.Store(int32(n))
	return nil
}

// SetDesiredRetention updates the retention target.
func (u *UserSettings) SetDesiredRetention(n int) error {
	if err := checkSetting(SettingDesiredRetention, n); err != nil {
		return err
	}
	u.retention.Store(int32(n))
	return nil
}

// Snapshot copies the current values.
func (u *UserSettings) Snapshot() Settings {
	return Settings{
		MaxCardsPerSession: u.MaxCardsPerSession(),
		DesiredRetention:   u.DesiredRetention(),
	}
}

func checkSetting(key string, v int) error {
	if v < MinSettingValue || v > MaxSettingValue {
		return fmt.Errorf("%w: %s=%d outside [%d,%d]", ErrInvalidSetting, key, v, MinSettingValue, MaxSettingValue)
	}
	return nil
}
