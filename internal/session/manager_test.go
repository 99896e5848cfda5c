package session

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/roadease/workshop-management/internal/audit"
	"github.com/roadease/workshop-management/internal/core/events"
)

func TestSession(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Session Module Suite")
}

// Mock Repository for testing
type mockSessionRepository struct {
	sessions    map[string]*Session
	returnError error
}

func newMockSessionRepository() *mockSessionRepository {
	return &mockSessionRepository{sessions: make(map[string]*Session)}
}

func (m *mockSessionRepository) Get(token string) (*Session, error) {
	if m.returnError != nil {
		return nil, m.returnError
	}
	s, ok := m.sessions[token]
	if !ok {
		return nil, ErrSessionNotFound
	}
	copied := *s
	return &copied, nil
}

func (m *mockSessionRepository) Save(s *Session) error {
	if m.returnError != nil {
		return m.returnError
	}
	copied := *s
	m.sessions[s.Token] = &copied
	return nil
}

func (m *mockSessionRepository) DeleteByToken(token string) error {
	if m.returnError != nil {
		return m.returnError
	}
	delete(m.sessions, token)
	return nil
}

func (m *mockSessionRepository) DeleteByAccount(accountID string) error {
	if m.returnError != nil {
		return m.returnError
	}
	for token, s := range m.sessions {
		if s.AccountID == accountID {
			delete(m.sessions, token)
		}
	}
	return nil
}

var _ = ginkgo.Describe("Session Manager", func() {
	var (
		repo     *mockSessionRepository
		bus      *events.EventBus
		recorded []audit.Entry
		manager  *Manager
		clock    time.Time
	)

	ginkgo.BeforeEach(func() {
		repo = newMockSessionRepository()
		recorded = nil
		bus = events.NewEventBus(slog.Default())
		bus.Subscribe(audit.EventTypeSecurity, func(ctx context.Context, event events.Event) error {
			if entry, ok := event.Payload().(audit.Entry); ok {
				recorded = append(recorded, entry)
			}
			return nil
		})
		clock = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		manager = NewManager(repo, bus, 8*time.Hour, WithClock(func() time.Time { return clock }))
	})

	ginkgo.Describe("Issue", func() {
		ginkgo.It("should create a session with a 64 character hex token", func() {
			session, err := manager.Issue(IssueInput{AccountID: "acc-1", Username: "admin"})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(session.Token).To(gomega.HaveLen(64))
			gomega.Expect(session.Token).To(gomega.MatchRegexp("^[0-9a-f]{64}$"))
			gomega.Expect(session.ExpiresAt).To(gomega.Equal(clock.Add(8 * time.Hour)))
			gomega.Expect(session.IssuedAt).To(gomega.Equal(clock))
			gomega.Expect(session.LastActivityAt).To(gomega.Equal(clock))
		})

		ginkgo.It("should record a login event", func() {
			_, err := manager.Issue(IssueInput{
				AccountID: "acc-1",
				Username:  "admin",
				IPAddress: "10.0.0.1",
			})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(recorded).To(gomega.HaveLen(1))
			gomega.Expect(recorded[0].Kind).To(gomega.Equal(audit.KindLogin))
			gomega.Expect(recorded[0].Username).To(gomega.Equal("admin"))
			gomega.Expect(recorded[0].IPAddress).To(gomega.Equal("10.0.0.1"))
		})

		ginkgo.It("should keep at most one session per account", func() {
			first, err := manager.Issue(IssueInput{AccountID: "acc-1", Username: "admin"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			second, err := manager.Issue(IssueInput{AccountID: "acc-1", Username: "admin"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = manager.Validate(first.Token)
			gomega.Expect(err).To(gomega.MatchError(ErrSessionNotFound))
			_, err = manager.Validate(second.Token)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
		})
	})

	ginkgo.Describe("Validate", func() {
		ginkgo.Context("when the session is live", func() {
			ginkgo.It("should refresh the activity timestamp", func() {
				issued, _ := manager.Issue(IssueInput{AccountID: "acc-1", Username: "admin"})

				clock = clock.Add(30 * time.Minute)
				session, err := manager.Validate(issued.Token)

				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(session.LastActivityAt).To(gomega.Equal(clock))
				gomega.Expect(session.ExpiresAt).To(gomega.Equal(issued.ExpiresAt))
			})

			ginkgo.It("should accept a session just inside the expiry bound", func() {
				issued, _ := manager.Issue(IssueInput{AccountID: "acc-1", Username: "admin"})

				clock = issued.ExpiresAt
				_, err := manager.Validate(issued.Token)

				gomega.Expect(err).ToNot(gomega.HaveOccurred())
			})
		})

		ginkgo.Context("when the session has expired", func() {
			ginkgo.It("should delete it and record a logout", func() {
				// Given a session past its expiry
				issued, _ := manager.Issue(IssueInput{AccountID: "acc-1", Username: "admin"})
				recorded = nil

				// When it is validated after the lifetime elapsed
				clock = clock.Add(8*time.Hour + time.Second)
				_, err := manager.Validate(issued.Token)

				// Then it is gone and the expiry is in the log
				gomega.Expect(err).To(gomega.MatchError(ErrSessionExpired))
				gomega.Expect(repo.sessions).To(gomega.BeEmpty())
				gomega.Expect(recorded).To(gomega.HaveLen(1))
				gomega.Expect(recorded[0].Kind).To(gomega.Equal(audit.KindLogout))
				gomega.Expect(recorded[0].Details).To(gomega.Equal("Session expired"))
			})

			ginkgo.It("should report not found on the next validation", func() {
				issued, _ := manager.Issue(IssueInput{AccountID: "acc-1", Username: "admin"})

				clock = clock.Add(9 * time.Hour)
				_, _ = manager.Validate(issued.Token)
				_, err := manager.Validate(issued.Token)

				gomega.Expect(err).To(gomega.MatchError(ErrSessionNotFound))
			})
		})

		ginkgo.Context("when the token is unknown", func() {
			ginkgo.It("should return not found", func() {
				_, err := manager.Validate("deadbeef")

				gomega.Expect(err).To(gomega.MatchError(ErrSessionNotFound))
			})
		})
	})

	ginkgo.Describe("Invalidate", func() {
		ginkgo.It("should delete the session and record a logout", func() {
			issued, _ := manager.Issue(IssueInput{AccountID: "acc-1", Username: "admin"})
			recorded = nil

			err := manager.Invalidate(issued.Token, "admin", "10.0.0.1", "")

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(repo.sessions).To(gomega.BeEmpty())
			gomega.Expect(recorded).To(gomega.HaveLen(1))
			gomega.Expect(recorded[0].Kind).To(gomega.Equal(audit.KindLogout))
			gomega.Expect(recorded[0].Details).To(gomega.Equal("User logged out"))
		})

		ginkgo.It("should be idempotent for unknown tokens", func() {
			recorded = nil

			err := manager.Invalidate("deadbeef", "admin", "", "")

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(recorded).To(gomega.BeEmpty())
		})
	})
})
