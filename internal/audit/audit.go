package audit

import (
	"time"
)

// Kind enumerates the auth-relevant occurrences the log records.
type Kind string

const (
	KindLogin            Kind = "login"
	KindLogout           Kind = "logout"
	KindFailedLogin      Kind = "failed_login"
	KindPasswordChange   Kind = "password_change"
	KindDataAccess       Kind = "data_access"
	KindPermissionDenied Kind = "permission_denied"
)

// Event is one immutable audit record. Sequence is a monotonically growing
// insertion counter: eviction is strictly FIFO by insertion order, never by
// timestamp comparison.
type Event struct {
	Sequence   int64     `json:"-" gorm:"primaryKey;autoIncrement;column:sequence"`
	ID         string    `json:"id" gorm:"column:id;uniqueIndex"`
	Kind       Kind      `json:"kind" gorm:"column:kind"`
	AccountID  string    `json:"account_id,omitempty" gorm:"column:account_id"`
	Username   string    `json:"username,omitempty" gorm:"column:username"`
	IPAddress  string    `json:"ip_address,omitempty" gorm:"column:ip_address"`
	UserAgent  string    `json:"user_agent,omitempty" gorm:"column:user_agent"`
	Details    string    `json:"details,omitempty" gorm:"column:details"`
	OccurredAt time.Time `json:"occurred_at" gorm:"column:occurred_at"`
}

func (Event) TableName() string {
	return "security_events"
}

// Entry is what callers supply; id, sequence and timestamp are assigned at
// record time.
type Entry struct {
	Kind      Kind
	AccountID string
	Username  string
	IPAddress string
	UserAgent string
	Details   string
}

// Repository persists the bounded, append-only event log.
type Repository interface {
	Append(event *Event) error
	Count() (int64, error)
	DeleteOldest(n int64) error
	List() ([]Event, error)
}
