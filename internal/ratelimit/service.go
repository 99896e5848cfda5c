package ratelimit

import (
	"errors"
	"strings"
	"sync"
	"time"
)

type Service struct {
	repo          Repository
	maxAttempts   int
	window        time.Duration
	normalizeKeys bool
	now           func() time.Time

	// Check is a read-modify-write per identifier; the mutex keeps
	// concurrent login attempts from losing increments.
	mu sync.Mutex
}

type Option func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithNormalizedKeys lower-cases and trims identifiers before they become
// lockout keys. The legacy deployment kept raw keys, so an attacker could
// dodge the per-account limit by varying case; both behaviors are supported
// and the default stays raw.
func WithNormalizedKeys(enabled bool) Option {
	return func(s *Service) {
		s.normalizeKeys = enabled
	}
}

func NewService(repo Repository, maxAttempts int, window time.Duration, opts ...Option) *Service {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	svc := &Service{
		repo:        repo,
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Check records one attempt for the identifier and reports whether it may
// proceed. Denied results carry the time the window resets.
func (s *Service) Check(identifier string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.key(identifier)
	now := s.now()

	counter, err := s.repo.Get(key)
	if err != nil {
		if !errors.Is(err, ErrCounterNotFound) {
			return Result{}, err
		}
		counter = &Counter{Identifier: key, Attempts: 1, WindowStart: now}
		if err := s.repo.Save(counter); err != nil {
			return Result{}, err
		}
		return Result{Allowed: true, RemainingAttempts: s.maxAttempts - 1}, nil
	}

	if now.Sub(counter.WindowStart) > s.window {
		counter.Attempts = 1
		counter.WindowStart = now
		if err := s.repo.Save(counter); err != nil {
			return Result{}, err
		}
		return Result{Allowed: true, RemainingAttempts: s.maxAttempts - 1}, nil
	}

	if counter.Attempts >= s.maxAttempts {
		resetTime := counter.WindowStart.Add(s.window)
		return Result{Allowed: false, RemainingAttempts: 0, ResetTime: &resetTime}, nil
	}

	counter.Attempts++
	if err := s.repo.Save(counter); err != nil {
		return Result{}, err
	}
	return Result{Allowed: true, RemainingAttempts: s.maxAttempts - counter.Attempts}, nil
}

// Clear removes the identifier's counter entirely. Called only after a
// verified successful login.
func (s *Service) Clear(identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.repo.Delete(s.key(identifier))
	if errors.Is(err, ErrCounterNotFound) {
		return nil
	}
	return err
}

func (s *Service) key(identifier string) string {
	if s.normalizeKeys {
		return strings.ToLower(strings.TrimSpace(identifier))
	}
	return identifier
}
