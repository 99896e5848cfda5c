package audit

import (
	"log/slog"
	"net/http"

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

// ListEvents returns the retained security events. Oldest first by default;
// ?order=desc flips to newest first for the settings page.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Service.Events()
	if err != nil {
		h.Logger.Error("failed to list security events", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if r.URL.Query().Get("order") == "desc" {
		for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
			events[i], events[j] = events[j], events[i]
		}
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}
