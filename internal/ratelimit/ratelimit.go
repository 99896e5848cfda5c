package ratelimit

import (
	"errors"
	"time"
)

// Counter tracks login attempts for one identifier inside a rolling window.
// The identifier is whatever the user typed, not the resolved account.
type Counter struct {
	Identifier  string    `json:"identifier" gorm:"primaryKey;column:identifier"`
	Attempts    int       `json:"attempts" gorm:"column:attempts"`
	WindowStart time.Time `json:"window_start" gorm:"column:window_start"`
}

func (Counter) TableName() string {
	return "rate_limit_counters"
}

// Result is the outcome of a rate-limit check. ResetTime is set only when
// the check was denied.
type Result struct {
	Allowed           bool       `json:"allowed"`
	RemainingAttempts int        `json:"remaining_attempts"`
	ResetTime         *time.Time `json:"reset_time,omitempty"`
}

var ErrCounterNotFound = errors.New("ratelimit: counter not found")

// Repository persists one counter per identifier.
type Repository interface {
	Get(identifier string) (*Counter, error)
	Save(counter *Counter) error
	Delete(identifier string) error
}
