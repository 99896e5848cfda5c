package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roadease/workshop-management/internal"
	"github.com/roadease/workshop-management/internal/audit"
	"github.com/roadease/workshop-management/internal/core/events"
	"github.com/roadease/workshop-management/internal/ids"
	"github.com/roadease/workshop-management/internal/obs"
	"github.com/roadease/workshop-management/internal/ratelimit"
	"github.com/roadease/workshop-management/internal/security"
	"github.com/roadease/workshop-management/internal/session"
)

// RequestMeta is the per-request context recorded on security events.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// LoginResult is what a successful authentication hands back to the client.
type LoginResult struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Account   AccountSnapshot `json:"account"`
}

// ResetTokenResult carries a freshly signed reset token. Delivering it to the
// account holder is out of scope; the caller decides the channel.
type ResetTokenResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ServiceAPI is the surface the HTTP handlers and middleware consume.
type ServiceAPI interface {
	NeedsSetup() (bool, error)
	SetupInitialAdmin(dto SetupDTO, meta RequestMeta) (*LoginResult, error)
	Login(dto LoginDTO, meta RequestMeta) (*LoginResult, error)
	Logout(token string, meta RequestMeta) error
	RequestPasswordReset(dto ResetRequestDTO) (*ResetTokenResult, error)
	ResetPassword(dto ResetConfirmDTO) error
	ValidateSession(token string) (*AccountSnapshot, error)
}

// Service is the main auth service with dependencies.
type Service struct {
	accounts    AccountRepository
	resets      ResetRequestRepository
	sessions    *session.Manager
	limiter     *ratelimit.Service
	hasher      *security.Hasher
	resetTokens *ResetTokenIssuer
	bus         *events.EventBus
	logger      *slog.Logger

	strictValidation bool
	now              func() time.Time
}

type Option func(*Service)

// WithStrictSessionValidation disables the cached-snapshot fallback: a live
// session whose account row is gone fails closed instead.
func WithStrictSessionValidation(enabled bool) Option {
	return func(s *Service) {
		s.strictValidation = enabled
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(
	accounts AccountRepository,
	resets ResetRequestRepository,
	sessions *session.Manager,
	limiter *ratelimit.Service,
	hasher *security.Hasher,
	resetTokens *ResetTokenIssuer,
	bus *events.EventBus,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		accounts:    accounts,
		resets:      resets,
		sessions:    sessions,
		limiter:     limiter,
		hasher:      hasher,
		resetTokens: resetTokens,
		bus:         bus,
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NeedsSetup reports whether the account store is still empty.
func (s *Service) NeedsSetup() (bool, error) {
	count, err := s.accounts.Count()
	if err != nil {
		return false, internal.NewInternalError("failed to inspect account store", err)
	}
	return count == 0, nil
}

// SetupInitialAdmin creates the very first account. Only legal while the
// store is empty; the created account is always an admin with every grant.
func (s *Service) SetupInitialAdmin(dto SetupDTO, meta RequestMeta) (*LoginResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	count, err := s.accounts.Count()
	if err != nil {
		return nil, internal.NewInternalError("failed to inspect account store", err)
	}
	if count > 0 {
		return nil, internal.ErrSetupAlreadyDone
	}

	report := security.ValidatePasswordStrength(dto.Password)
	if !report.Valid {
		appErr := internal.NewValidationError("Password does not meet the strength requirements", internal.ErrCodeWeakPassword)
		appErr.Details = report.Errors
		return nil, appErr
	}

	existing, err := s.accounts.EmployeeIDs()
	if err != nil {
		return nil, internal.NewInternalError("failed to list employee ids", err)
	}
	employeeID, err := security.GenerateEmployeeID(existing)
	if err != nil {
		return nil, internal.NewInternalError("failed to generate employee id", err)
	}

	passwordHash, err := s.hasher.Hash(dto.Password)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	account := &Account{
		ID:           ids.New(),
		EmployeeID:   employeeID,
		Name:         security.SanitizeInput(dto.Name),
		Username:     security.SanitizeInput(dto.Username),
		Email:        security.SanitizeInput(dto.Email),
		Phone:        security.SanitizeInput(dto.Phone),
		Role:         RoleAdmin,
		Permissions:  AllPermissions(),
		PasswordHash: passwordHash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.accounts.Create(account); err != nil {
		return nil, internal.NewInternalError("failed to create admin account", err)
	}

	return s.issueSession(account, meta, "Initial admin setup")
}

// Login authenticates an identifier and password. The rate limiter runs
// before any account lookup so a locked-out caller learns nothing about
// which identifiers exist.
func (s *Service) Login(dto LoginDTO, meta RequestMeta) (*LoginResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	identifier := security.SanitizeInput(dto.Identifier)

	limit, err := s.limiter.Check(identifier)
	if err != nil {
		return nil, internal.NewInternalError("rate limiter unavailable", err)
	}
	if !limit.Allowed {
		obs.IncLoginLockout()
		s.record(audit.Entry{
			Kind:      audit.KindFailedLogin,
			Username:  identifier,
			IPAddress: meta.IPAddress,
			UserAgent: meta.UserAgent,
			Details:   "Rate limit exceeded",
		})
		appErr := internal.NewRateLimitError("Too many login attempts", internal.ErrCodeRateLimitExceeded)
		if limit.ResetTime != nil {
			appErr.Details = map[string]interface{}{"reset_time": limit.ResetTime.UTC()}
		}
		return nil, appErr
	}

	account, err := s.accounts.FindByIdentifier(identifier)
	if err != nil && !errors.Is(err, ErrAccountNotFound) {
		return nil, internal.NewInternalError("failed to look up account", err)
	}

	// Verify against a dummy digest when the identifier matched nothing,
	// so an unknown identifier costs the same as a wrong password.
	digest := s.hasher.DummyDigest()
	if account != nil {
		digest = account.PasswordHash
	}
	verified := s.hasher.Verify(dto.Password, digest)

	if account == nil || !verified {
		obs.IncLoginFailure()
		s.record(audit.Entry{
			Kind:      audit.KindFailedLogin,
			Username:  identifier,
			IPAddress: meta.IPAddress,
			UserAgent: meta.UserAgent,
			Details:   fmt.Sprintf("Invalid credentials. %d attempts remaining", limit.RemainingAttempts),
		})
		return nil, internal.ErrInvalidCredentials
	}

	if err := s.limiter.Clear(identifier); err != nil {
		s.logger.Warn("failed to clear rate limit counter", "identifier", identifier, "error", err)
	}

	return s.issueSession(account, meta, "")
}

func (s *Service) issueSession(account *Account, meta RequestMeta, details string) (*LoginResult, error) {
	snapshot := account.Snapshot()
	payload, err := MarshalSnapshot(snapshot)
	if err != nil {
		return nil, internal.NewInternalError("failed to serialize account snapshot", err)
	}

	sess, err := s.sessions.Issue(session.IssueInput{
		AccountID: account.ID,
		Username:  account.Username,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Snapshot:  payload,
		Details:   details,
	})
	if err != nil {
		return nil, internal.NewInternalError("failed to issue session", err)
	}

	obs.IncLoginSuccess()
	return &LoginResult{
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
		Account:   snapshot,
	}, nil
}

// Logout tears down the session behind the token. Unknown and already
// expired tokens succeed; logout is idempotent.
func (s *Service) Logout(token string, meta RequestMeta) error {
	if token == "" {
		return nil
	}

	var username string
	sess, err := s.sessions.Validate(token)
	if err == nil {
		if snapshot, serr := UnmarshalSnapshot(sess.AccountSnapshot); serr == nil {
			username = snapshot.Username
		}
	}

	if err := s.sessions.Invalidate(token, username, meta.IPAddress, meta.UserAgent); err != nil {
		return internal.NewInternalError("failed to invalidate session", err)
	}
	return nil
}

// ValidateSession resolves a bearer token to the owning account. A live
// session whose account row has disappeared falls back to the snapshot
// captured at login, unless strict validation is on.
func (s *Service) ValidateSession(token string) (*AccountSnapshot, error) {
	sess, err := s.sessions.Validate(token)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrSessionExpired):
			return nil, internal.ErrSessionExpired
		case errors.Is(err, session.ErrSessionNotFound):
			return nil, internal.ErrSessionInvalid
		default:
			return nil, internal.NewInternalError("failed to validate session", err)
		}
	}

	account, err := s.accounts.GetByID(sess.AccountID)
	if err != nil {
		if !errors.Is(err, ErrAccountNotFound) {
			return nil, internal.NewInternalError("failed to load account", err)
		}
		if s.strictValidation {
			return nil, internal.ErrSessionInvalid
		}
		snapshot, serr := UnmarshalSnapshot(sess.AccountSnapshot)
		if serr != nil {
			return nil, internal.ErrSessionInvalid
		}
		s.logger.Warn("account row missing, serving cached session snapshot",
			"account_id", sess.AccountID)
		return &snapshot, nil
	}

	snapshot := account.Snapshot()
	return &snapshot, nil
}

// RequestPasswordReset creates a single-use reset request when both the
// username and the registered contact match, and hands back the signed token.
func (s *Service) RequestPasswordReset(dto ResetRequestDTO) (*ResetTokenResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	account, err := s.accounts.FindByUsername(security.SanitizeInput(dto.Username))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, internal.ErrAccountNotFound
		}
		return nil, internal.NewInternalError("failed to look up account", err)
	}

	contact := security.SanitizeInput(dto.Contact)
	var matches bool
	switch dto.ContactType {
	case "email":
		matches = strings.EqualFold(account.Email, contact)
	case "phone":
		matches = account.Phone == contact
	}
	if !matches {
		return nil, internal.ErrAccountNotFound
	}

	requestID := ids.New()
	token, expiresAt, err := s.resetTokens.Issue(requestID, account.ID)
	if err != nil {
		return nil, internal.NewInternalError("failed to sign reset token", err)
	}

	request := &PasswordResetRequest{
		ID:        requestID,
		AccountID: account.ID,
		CreatedAt: s.now().UTC(),
		ExpiresAt: expiresAt,
	}
	if err := s.resets.Create(request); err != nil {
		return nil, internal.NewInternalError("failed to store reset request", err)
	}

	s.record(audit.Entry{
		Kind:      audit.KindPasswordChange,
		AccountID: account.ID,
		Username:  account.Username,
		Details:   "Password reset requested",
	})

	return &ResetTokenResult{Token: token, ExpiresAt: expiresAt}, nil
}

// ResetPassword redeems a reset token exactly once. The stored request is
// burned before the new hash lands, so a second redemption always fails even
// if the update half errored out.
func (s *Service) ResetPassword(dto ResetConfirmDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	claims, err := s.resetTokens.Parse(dto.Token)
	if err != nil {
		return internal.ErrResetTokenInvalid
	}

	request, err := s.resets.GetByID(claims.ID)
	if err != nil {
		if errors.Is(err, ErrResetRequestNotFound) {
			return internal.ErrResetTokenInvalid
		}
		return internal.NewInternalError("failed to load reset request", err)
	}

	now := s.now().UTC()
	if request.Used || now.After(request.ExpiresAt) || request.AccountID != claims.Subject {
		return internal.ErrResetTokenInvalid
	}

	report := security.ValidatePasswordStrength(dto.NewPassword)
	if !report.Valid {
		appErr := internal.NewValidationError("Password does not meet the strength requirements", internal.ErrCodeWeakPassword)
		appErr.Details = report.Errors
		return appErr
	}

	account, err := s.accounts.GetByID(request.AccountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return internal.ErrResetTokenInvalid
		}
		return internal.NewInternalError("failed to load account", err)
	}

	if err := s.resets.MarkUsed(request.ID, now); err != nil {
		return internal.NewInternalError("failed to mark reset request used", err)
	}

	passwordHash, err := s.hasher.Hash(dto.NewPassword)
	if err != nil {
		return internal.NewInternalError("failed to hash password", err)
	}
	if err := s.accounts.UpdatePasswordHash(account.ID, passwordHash); err != nil {
		return internal.NewInternalError("failed to update password", err)
	}

	// Existing sessions die with the old credential.
	if err := s.sessions.RevokeAccount(account.ID); err != nil {
		s.logger.Warn("failed to revoke sessions after password reset",
			"account_id", account.ID, "error", err)
	}

	s.record(audit.Entry{
		Kind:      audit.KindPasswordChange,
		AccountID: account.ID,
		Username:  account.Username,
		Details:   "Password reset completed",
	})
	return nil
}

func (s *Service) record(entry audit.Entry) {
	if s.bus == nil {
		return
	}
	if err := s.bus.PublishSync(context.Background(), audit.NewBusEvent(entry)); err != nil {
		s.logger.Error("failed to publish security event", "kind", entry.Kind, "error", err)
	}
}
