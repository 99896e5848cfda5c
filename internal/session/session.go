package session

import (
	"errors"
	"time"
)

// Session is a time-bounded proof that an account is authenticated. The
// account snapshot is the serialized account (without its password hash)
// captured at issue time; validation falls back to it when the account row
// has gone missing.
type Session struct {
	Token           string    `json:"token" gorm:"primaryKey;column:token"`
	AccountID       string    `json:"account_id" gorm:"column:account_id;index"`
	IssuedAt        time.Time `json:"issued_at" gorm:"column:issued_at"`
	LastActivityAt  time.Time `json:"last_activity_at" gorm:"column:last_activity_at"`
	ExpiresAt       time.Time `json:"expires_at" gorm:"column:expires_at"`
	AccountSnapshot []byte    `json:"-" gorm:"column:account_snapshot"`
}

func (Session) TableName() string {
	return "sessions"
}

// IsExpired derives validity from the clock alone; there is no background
// expiry timer anywhere in the system.
func IsExpired(s *Session, now time.Time) bool {
	return now.After(s.ExpiresAt)
}

var (
	ErrSessionNotFound = errors.New("session: not found")
	ErrSessionExpired  = errors.New("session: expired")
)

// Repository persists sessions keyed by token.
type Repository interface {
	Get(token string) (*Session, error)
	Save(session *Session) error
	DeleteByToken(token string) error
	DeleteByAccount(accountID string) error
}
