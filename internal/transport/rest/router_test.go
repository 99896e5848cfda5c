package rest

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	legacyrouter "github.com/getkin/kin-openapi/routers/legacy"
	"github.com/go-chi/chi"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/roadease/workshop-management/internal"
	"github.com/roadease/workshop-management/internal/audit"
	"github.com/roadease/workshop-management/internal/auth"
	"github.com/roadease/workshop-management/internal/user"
)

func TestRest(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "REST Transport Suite")
}

// stubAuthService fails every operation; routing tests only need the wiring,
// not real authentication.
type stubAuthService struct{}

func (s *stubAuthService) NeedsSetup() (bool, error) { return false, nil }

func (s *stubAuthService) SetupInitialAdmin(dto auth.SetupDTO, meta auth.RequestMeta) (*auth.LoginResult, error) {
	return nil, internal.ErrSetupAlreadyDone
}

func (s *stubAuthService) Login(dto auth.LoginDTO, meta auth.RequestMeta) (*auth.LoginResult, error) {
	return nil, internal.ErrInvalidCredentials
}

func (s *stubAuthService) Logout(token string, meta auth.RequestMeta) error { return nil }

func (s *stubAuthService) RequestPasswordReset(dto auth.ResetRequestDTO) (*auth.ResetTokenResult, error) {
	return nil, internal.ErrAccountNotFound
}

func (s *stubAuthService) ResetPassword(dto auth.ResetConfirmDTO) error {
	return internal.ErrResetTokenInvalid
}

func (s *stubAuthService) ValidateSession(token string) (*auth.AccountSnapshot, error) {
	return nil, internal.ErrSessionInvalid
}

type memoryEventRepository struct {
	events []audit.Event
}

func (r *memoryEventRepository) Append(event *audit.Event) error {
	r.events = append(r.events, *event)
	return nil
}

func (r *memoryEventRepository) Count() (int64, error) { return int64(len(r.events)), nil }

func (r *memoryEventRepository) DeleteOldest(n int64) error {
	r.events = r.events[n:]
	return nil
}

func (r *memoryEventRepository) List() ([]audit.Event, error) { return r.events, nil }

var _ = ginkgo.Describe("Router", func() {
	var router *chi.Mux

	ginkgo.BeforeEach(func() {
		router = chi.NewRouter()
		RegisterAllRoutes(
			router,
			nil,
			RouterConfig{},
			auth.NewHandler(&stubAuthService{}),
			auth.NewRBACAuthorization(auth.NewPermissionChecker(), nil, slog.Default()),
			user.NewHandler(user.NewService(nil)),
			audit.NewHandler(audit.NewService(&memoryEventRepository{}, 1000, slog.Default())),
			slog.Default(),
		)
	})

	ginkgo.It("should answer the liveness probe", func() {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring("OK"))
	})

	ginkgo.It("should serve the metrics endpoint", func() {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
	})

	ginkgo.It("should reject a malformed login body", func() {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader("{not json"))
		router.ServeHTTP(rec, req)

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
	})

	ginkgo.It("should map rejected credentials to 401", func() {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
			strings.NewReader(`{"identifier":"admin","password":"nope"}`))
		router.ServeHTTP(rec, req)

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
	})

	ginkgo.It("should require a session for /users/me", func() {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil))

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
	})

	ginkgo.It("should require a session for the security event log", func() {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/security/events", nil))

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
	})
})

var _ = ginkgo.Describe("OpenAPI document", func() {
	var doc *openapi3.T

	ginkgo.BeforeEach(func() {
		loader := openapi3.NewLoader()
		var err error
		doc, err = loader.LoadFromFile("../../../api/openapi.yml")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(doc.Validate(context.Background())).To(gomega.Succeed())
	})

	ginkgo.It("should describe every API route the router serves", func() {
		specRouter, err := legacyrouter.NewRouter(doc)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		routes := []struct {
			method string
			path   string
		}{
			{http.MethodGet, "/api/v1/health"},
			{http.MethodGet, "/api/v1/ping"},
			{http.MethodPost, "/api/v1/auth/setup"},
			{http.MethodPost, "/api/v1/auth/login"},
			{http.MethodPost, "/api/v1/auth/logout"},
			{http.MethodPost, "/api/v1/auth/password-reset/request"},
			{http.MethodPost, "/api/v1/auth/password-reset/confirm"},
			{http.MethodGet, "/api/v1/users/me"},
			{http.MethodGet, "/api/v1/security/events"},
		}

		for _, route := range routes {
			req := httptest.NewRequest(route.method, route.path, nil)
			_, _, err := specRouter.FindRoute(req)
			gomega.Expect(err).ToNot(gomega.HaveOccurred(), "missing in spec: %s %s", route.method, route.path)
		}
	})
})
