package ratelimit

import (
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

func TestRateLimit(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "RateLimit Module Suite")
}

// Mock Repository for testing
type mockCounterRepository struct {
	counters    map[string]*Counter
	returnError error
}

func newMockCounterRepository() *mockCounterRepository {
	return &mockCounterRepository{counters: make(map[string]*Counter)}
}

func (m *mockCounterRepository) Get(identifier string) (*Counter, error) {
	if m.returnError != nil {
		return nil, m.returnError
	}
	counter, ok := m.counters[identifier]
	if !ok {
		return nil, ErrCounterNotFound
	}
	copied := *counter
	return &copied, nil
}

func (m *mockCounterRepository) Save(counter *Counter) error {
	if m.returnError != nil {
		return m.returnError
	}
	copied := *counter
	m.counters[counter.Identifier] = &copied
	return nil
}

func (m *mockCounterRepository) Delete(identifier string) error {
	if m.returnError != nil {
		return m.returnError
	}
	if _, ok := m.counters[identifier]; !ok {
		return ErrCounterNotFound
	}
	delete(m.counters, identifier)
	return nil
}

var _ = ginkgo.Describe("RateLimit Service", func() {
	var (
		repo    *mockCounterRepository
		service *Service
		clock   time.Time
	)

	ginkgo.BeforeEach(func() {
		repo = newMockCounterRepository()
		clock = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		service = NewService(repo, 5, 15*time.Minute, WithClock(func() time.Time { return clock }))
	})

	ginkgo.Describe("Check", func() {
		ginkgo.Context("when the identifier is new", func() {
			ginkgo.It("should create a counter and allow", func() {
				result, err := service.Check("admin")

				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(result.Allowed).To(gomega.BeTrue())
				gomega.Expect(result.RemainingAttempts).To(gomega.Equal(4))
				gomega.Expect(result.ResetTime).To(gomega.BeNil())
			})
		})

		ginkgo.Context("when attempts stay under the limit", func() {
			ginkgo.It("should count down remaining attempts", func() {
				remaining := []int{4, 3, 2, 1, 0}
				for _, want := range remaining {
					result, err := service.Check("admin")
					gomega.Expect(err).ToNot(gomega.HaveOccurred())
					gomega.Expect(result.Allowed).To(gomega.BeTrue())
					gomega.Expect(result.RemainingAttempts).To(gomega.Equal(want))
				}
			})
		})

		ginkgo.Context("when the limit is reached", func() {
			ginkgo.It("should deny the next call with a reset time", func() {
				// Given five attempts within the window
				windowStart := clock
				for i := 0; i < 5; i++ {
					_, err := service.Check("admin")
					gomega.Expect(err).ToNot(gomega.HaveOccurred())
				}

				// When the sixth attempt arrives
				result, err := service.Check("admin")

				// Then it is denied and the reset time is window start + 15m
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(result.Allowed).To(gomega.BeFalse())
				gomega.Expect(result.RemainingAttempts).To(gomega.Equal(0))
				gomega.Expect(result.ResetTime).ToNot(gomega.BeNil())
				gomega.Expect(*result.ResetTime).To(gomega.Equal(windowStart.Add(15 * time.Minute)))
			})

			ginkgo.It("should not increment the counter while denying", func() {
				for i := 0; i < 7; i++ {
					_, err := service.Check("admin")
					gomega.Expect(err).ToNot(gomega.HaveOccurred())
				}

				counter := repo.counters["admin"]
				gomega.Expect(counter.Attempts).To(gomega.Equal(5))
			})
		})

		ginkgo.Context("when the window has elapsed", func() {
			ginkgo.It("should reset the counter and allow", func() {
				// Given a locked-out identifier
				for i := 0; i < 6; i++ {
					_, _ = service.Check("admin")
				}

				// When the window passes
				clock = clock.Add(16 * time.Minute)
				result, err := service.Check("admin")

				// Then the counter starts fresh
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(result.Allowed).To(gomega.BeTrue())
				gomega.Expect(result.RemainingAttempts).To(gomega.Equal(4))
			})
		})

		ginkgo.Context("when identifiers differ", func() {
			ginkgo.It("should track each identifier independently", func() {
				for i := 0; i < 6; i++ {
					_, _ = service.Check("admin")
				}

				result, err := service.Check("other")

				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(result.Allowed).To(gomega.BeTrue())
			})

			ginkgo.It("should keep raw keys distinct by default", func() {
				for i := 0; i < 6; i++ {
					_, _ = service.Check("admin")
				}

				result, err := service.Check("ADMIN")

				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(result.Allowed).To(gomega.BeTrue())
			})
		})

		ginkgo.Context("when key normalization is enabled", func() {
			ginkgo.It("should fold case and whitespace into one key", func() {
				normalized := NewService(repo, 5, 15*time.Minute,
					WithClock(func() time.Time { return clock }),
					WithNormalizedKeys(true))

				for i := 0; i < 5; i++ {
					_, _ = normalized.Check("admin")
				}

				result, err := normalized.Check("  ADMIN ")

				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(result.Allowed).To(gomega.BeFalse())
			})
		})
	})

	ginkgo.Describe("Clear", func() {
		ginkgo.It("should delete the counter so lockout needs a fresh run of failures", func() {
			// Given a partially consumed window
			for i := 0; i < 4; i++ {
				_, _ = service.Check("admin")
			}

			// When the limit is cleared after a successful login
			gomega.Expect(service.Clear("admin")).To(gomega.Succeed())

			// Then the next check starts a new counter
			result, err := service.Check("admin")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(result.Allowed).To(gomega.BeTrue())
			gomega.Expect(result.RemainingAttempts).To(gomega.Equal(4))
		})

		ginkgo.It("should tolerate a missing counter", func() {
			gomega.Expect(service.Clear("never-seen")).To(gomega.Succeed())
		})
	})
})
