package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/roadease/workshop-management/internal/audit"
	"github.com/roadease/workshop-management/internal/core/events"
)

// RBACAuthorization gates routes on workshop permissions. Denials are
// recorded in the security event log.
type RBACAuthorization struct {
	checker PermissionChecker
	bus     *events.EventBus
	logger  *slog.Logger
}

func NewRBACAuthorization(checker PermissionChecker, bus *events.EventBus, logger *slog.Logger) *RBACAuthorization {
	if logger == nil {
		logger = slog.Default()
	}
	return &RBACAuthorization{
		checker: checker,
		bus:     bus,
		logger:  logger,
	}
}

// RequirePermission builds a middleware that passes only accounts holding
// the named permission.
func (ra *RBACAuthorization) RequirePermission(permission Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account, ok := AccountFromContext(r.Context())
			if !ok || account == nil {
				ra.logger.Warn("authorization check failed: account not found in context")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !ra.checker.HasPermission(account, permission) {
				ra.deny(r, account, string(permission))
				http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin passes only admin accounts.
func (ra *RBACAuthorization) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account, ok := AccountFromContext(r.Context())
			if !ok || account == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !ra.checker.IsAdmin(account) {
				ra.deny(r, account, "admin")
				http.Error(w, "Forbidden: admin permissions required", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (ra *RBACAuthorization) deny(r *http.Request, account *AccountSnapshot, required string) {
	ra.logger.WarnContext(r.Context(), "access denied: insufficient permissions",
		"account_id", account.ID,
		"required_permission", required)

	if ra.bus == nil {
		return
	}
	_ = ra.bus.PublishSync(context.Background(), audit.NewBusEvent(audit.Entry{
		Kind:      audit.KindPermissionDenied,
		AccountID: account.ID,
		Username:  account.Username,
		Details:   "Denied access requiring " + required,
	}))
}
