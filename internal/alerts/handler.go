// AngelaMos | 2026
// handler.go

package alerts

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/pipeline-crm/internal/access"
	"github.com/carterperez-dev/pipeline-crm/internal/core"
)

type Handler struct {
	service *Service
	guard   *access.Guard
}

func NewHandler(service *Service, guard *access.Guard) *Handler {
	return &Handler{service: service, guard: guard}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.With(authenticator).Get("/alerts", h.List)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	u, err := h.guard.Principal(r.Context())
	if err != nil {
		core.JSONError(w, err)
		return
	}

	snap, err := h.service.ForUser(r.Context(), u)
	if err != nil {
		core.WriteError(w, err, "alert")
		return
	}

	core.OK(w, snap)
}
