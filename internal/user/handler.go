package user

import (
	"log/slog"
	"net/http"

	"github.com/roadease/workshop-management/internal"
	"github.com/roadease/workshop-management/internal/auth"
	"github.com/roadease/workshop-management/internal/transport"
	"github.com/roadease/workshop-management/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service *Service
}

func NewHandler(svc *Service) *Handler {
	lg := logger.L()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

// Me returns the authenticated account with its effective permissions. When
// the row cannot be re-read, the session snapshot from the middleware still
// serves the request.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	account, ok := auth.AccountFromContext(r.Context())
	if !ok || account == nil {
		h.WriteError(w, http.StatusUnauthorized, "missing authenticated account")
		return
	}

	profile, err := h.Service.GetProfile(account.ID)
	if err != nil {
		if appErr, ok := internal.IsAppError(err); ok && appErr.Code == internal.ErrCodeAccountNotFound {
			h.WriteJSON(w, http.StatusOK, account)
			return
		}
		h.Logger.Error("failed to load profile", "account_id", account.ID, "error", err)
		h.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.WriteJSON(w, http.StatusOK, profile)
}
