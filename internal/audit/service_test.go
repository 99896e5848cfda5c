package audit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/roadease/workshop-management/internal/core/events"
	"github.com/roadease/workshop-management/pkg/logger"
)

func TestAudit(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Audit Module Suite")
}

// Mock Repository for testing
type mockEventRepository struct {
	eventLog []Event
	nextSeq  int64
}

func newMockEventRepository() *mockEventRepository {
	return &mockEventRepository{}
}

func (m *mockEventRepository) Append(event *Event) error {
	m.nextSeq++
	event.Sequence = m.nextSeq
	m.eventLog = append(m.eventLog, *event)
	return nil
}

func (m *mockEventRepository) Count() (int64, error) {
	return int64(len(m.eventLog)), nil
}

func (m *mockEventRepository) DeleteOldest(n int64) error {
	if n >= int64(len(m.eventLog)) {
		m.eventLog = nil
		return nil
	}
	m.eventLog = m.eventLog[n:]
	return nil
}

func (m *mockEventRepository) List() ([]Event, error) {
	out := make([]Event, len(m.eventLog))
	copy(out, m.eventLog)
	return out, nil
}

var _ = ginkgo.Describe("Audit Service", func() {
	var (
		repo    *mockEventRepository
		service *Service
	)

	ginkgo.BeforeEach(func() {
		repo = newMockEventRepository()
		service = NewService(repo, 1000, logger.L())
	})

	ginkgo.Describe("Record", func() {
		ginkgo.It("should assign an id and timestamp", func() {
			err := service.Record(Entry{Kind: KindLogin, Username: "admin"})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(repo.eventLog).To(gomega.HaveLen(1))
			gomega.Expect(repo.eventLog[0].ID).ToNot(gomega.BeEmpty())
			gomega.Expect(repo.eventLog[0].OccurredAt).ToNot(gomega.BeZero())
			gomega.Expect(repo.eventLog[0].Kind).To(gomega.Equal(KindLogin))
		})

		ginkgo.It("should never retain more than the limit", func() {
			small := NewService(repo, 5, logger.L())

			for i := 0; i < 12; i++ {
				err := small.Record(Entry{Kind: KindFailedLogin, Details: fmt.Sprintf("attempt %d", i)})
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
			}

			gomega.Expect(repo.eventLog).To(gomega.HaveLen(5))
		})

		ginkgo.It("should evict oldest entries first", func() {
			small := NewService(repo, 3, logger.L())

			for i := 0; i < 5; i++ {
				_ = small.Record(Entry{Kind: KindLogin, Details: fmt.Sprintf("event %d", i)})
			}

			retained, err := small.Events()
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(retained).To(gomega.HaveLen(3))
			gomega.Expect(retained[0].Details).To(gomega.Equal("event 2"))
			gomega.Expect(retained[2].Details).To(gomega.Equal("event 4"))
		})
	})

	ginkgo.Describe("Events", func() {
		ginkgo.It("should return events in insertion order, oldest first", func() {
			_ = service.Record(Entry{Kind: KindLogin, Username: "first"})
			_ = service.Record(Entry{Kind: KindLogout, Username: "second"})

			retained, err := service.Events()

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(retained).To(gomega.HaveLen(2))
			gomega.Expect(retained[0].Username).To(gomega.Equal("first"))
			gomega.Expect(retained[1].Username).To(gomega.Equal("second"))
		})
	})

	ginkgo.Describe("Subscribe", func() {
		ginkgo.It("should record entries published on the security topic", func() {
			bus := events.NewEventBus(logger.L())
			service.Subscribe(bus)

			err := bus.PublishSync(context.Background(), NewBusEvent(Entry{
				Kind:     KindPermissionDenied,
				Username: "employee",
				Details:  "payroll page",
			}))

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(repo.eventLog).To(gomega.HaveLen(1))
			gomega.Expect(repo.eventLog[0].Kind).To(gomega.Equal(KindPermissionDenied))
		})
	})
})

var _ = ginkgo.Describe("Event ids", func() {
	ginkgo.It("should sort in insertion order", func() {
		repo := newMockEventRepository()
		service := NewService(repo, 1000, logger.L(), WithClock(time.Now))

		for i := 0; i < 10; i++ {
			_ = service.Record(Entry{Kind: KindDataAccess})
		}

		for i := 1; i < len(repo.eventLog); i++ {
			gomega.Expect(repo.eventLog[i].ID > repo.eventLog[i-1].ID).To(gomega.BeTrue())
		}
	})
})
