package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roadease/workshop-management/internal/core/events"
	"github.com/roadease/workshop-management/internal/ids"
)

// EventTypeSecurity is the bus topic the auth modules publish to; the audit
// service subscribes so publishers never depend on the log store directly.
const EventTypeSecurity = "security.event"

type Service struct {
	repo   Repository
	limit  int64
	logger *slog.Logger
	now    func() time.Time

	// append-and-trim is a read-modify-write over the shared log
	mu sync.Mutex
}

type Option func(*Service)

func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

func NewService(repo Repository, limit int64, logger *slog.Logger, opts ...Option) *Service {
	if limit <= 0 {
		limit = 1000
	}
	svc := &Service{
		repo:   repo,
		limit:  limit,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Record appends an event and evicts the oldest entries once the log grows
// past its limit. Side effect only; callers never consume a return value
// beyond the error.
func (s *Service) Record(entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event := &Event{
		ID:         ids.New(),
		Kind:       entry.Kind,
		AccountID:  entry.AccountID,
		Username:   entry.Username,
		IPAddress:  entry.IPAddress,
		UserAgent:  entry.UserAgent,
		Details:    entry.Details,
		OccurredAt: s.now().UTC(),
	}
	if err := s.repo.Append(event); err != nil {
		return err
	}

	count, err := s.repo.Count()
	if err != nil {
		return err
	}
	if count > s.limit {
		if err := s.repo.DeleteOldest(count - s.limit); err != nil {
			return err
		}
	}
	return nil
}

// Events returns all retained events oldest-first. Callers wanting
// most-recent-first reverse explicitly.
func (s *Service) Events() ([]Event, error) {
	return s.repo.List()
}

// Subscribe wires the service to the event bus topic auth publishes on.
func (s *Service) Subscribe(bus *events.EventBus) {
	bus.Subscribe(EventTypeSecurity, func(ctx context.Context, event events.Event) error {
		entry, ok := event.Payload().(Entry)
		if !ok {
			s.logger.Warn("security event with unexpected payload", "event_id", event.EventID())
			return nil
		}
		return s.Record(entry)
	})
}

// NewBusEvent wraps an Entry for publication on the security topic.
func NewBusEvent(entry Entry) events.Event {
	return busEvent{
		id:        ids.New(),
		entry:     entry,
		timestamp: time.Now().UTC(),
	}
}

type busEvent struct {
	id        string
	entry     Entry
	timestamp time.Time
}

func (e busEvent) EventType() string     { return EventTypeSecurity }
func (e busEvent) EventID() string       { return e.id }
func (e busEvent) OccurredAt() time.Time { return e.timestamp }
func (e busEvent) Payload() interface{}  { return e.entry }
