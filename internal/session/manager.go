package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roadease/workshop-management/internal/audit"
	"github.com/roadease/workshop-management/internal/core/events"
	"github.com/roadease/workshop-management/internal/obs"
	"github.com/roadease/workshop-management/internal/security"
)

// Manager owns the session lifecycle: issuing tokens at login, lazily
// expiring them on validation, and tearing them down at logout. Security
// events produced here go through the bus synchronously so the audit trail
// preserves the order in which things actually happened.
type Manager struct {
	repo Repository
	bus  *events.EventBus
	ttl  time.Duration
	now  func() time.Time
}

type ManagerOption func(*Manager)

// WithClock overrides the time source, used by tests to control expiry.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

func NewManager(repo Repository, bus *events.EventBus, ttl time.Duration, opts ...ManagerOption) *Manager {
	m := &Manager{
		repo: repo,
		bus:  bus,
		ttl:  ttl,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IssueInput carries the account identity and request metadata recorded on
// the login event. Snapshot is the serialized account without credentials.
// Details overrides the default login event message when set.
type IssueInput struct {
	AccountID string
	Username  string
	IPAddress string
	UserAgent string
	Snapshot  []byte
	Details   string
}

// Issue creates a fresh session for the account. Any previous session the
// account held is discarded first, so an account has at most one live
// session at a time.
func (m *Manager) Issue(in IssueInput) (*Session, error) {
	token, err := security.GenerateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	if err := m.repo.DeleteByAccount(in.AccountID); err != nil {
		return nil, fmt.Errorf("discard previous sessions: %w", err)
	}

	now := m.now().UTC()
	session := &Session{
		Token:           token,
		AccountID:       in.AccountID,
		IssuedAt:        now,
		LastActivityAt:  now,
		ExpiresAt:       now.Add(m.ttl),
		AccountSnapshot: in.Snapshot,
	}
	if err := m.repo.Save(session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	details := in.Details
	if details == "" {
		details = "User logged in successfully"
	}
	m.publish(audit.Entry{
		Kind:      audit.KindLogin,
		AccountID: in.AccountID,
		Username:  in.Username,
		IPAddress: in.IPAddress,
		UserAgent: in.UserAgent,
		Details:   details,
	})
	return session, nil
}

// RevokeAccount drops every session the account holds, used when credentials
// change out of band. No logout event; the password change itself is logged.
func (m *Manager) RevokeAccount(accountID string) error {
	return m.repo.DeleteByAccount(accountID)
}

// Validate looks the token up and checks it against the clock. An expired
// session is removed on the spot and recorded as a logout; a live one has
// its activity timestamp refreshed.
func (m *Manager) Validate(token string) (*Session, error) {
	session, err := m.repo.Get(token)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	now := m.now().UTC()
	if IsExpired(session, now) {
		if err := m.repo.DeleteByToken(token); err != nil {
			return nil, fmt.Errorf("delete expired session: %w", err)
		}
		m.publish(audit.Entry{
			Kind:      audit.KindLogout,
			AccountID: session.AccountID,
			Details:   "Session expired",
		})
		obs.IncSessionExpired()
		return nil, ErrSessionExpired
	}

	session.LastActivityAt = now
	if err := m.repo.Save(session); err != nil {
		return nil, fmt.Errorf("refresh session activity: %w", err)
	}
	return session, nil
}

// Invalidate removes the session for an explicit logout. A token that no
// longer resolves is not an error; logout is idempotent.
func (m *Manager) Invalidate(token, username, ipAddress, userAgent string) error {
	session, err := m.repo.Get(token)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil
		}
		return fmt.Errorf("load session: %w", err)
	}

	if err := m.repo.DeleteByToken(token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	m.publish(audit.Entry{
		Kind:      audit.KindLogout,
		AccountID: session.AccountID,
		Username:  username,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Details:   "User logged out",
	})
	return nil
}

func (m *Manager) publish(entry audit.Entry) {
	if m.bus == nil {
		return
	}
	// Handler failures are logged inside the bus; they must not break the
	// session operation itself.
	_ = m.bus.PublishSync(context.Background(), audit.NewBusEvent(entry))
}
