// AngelaMos | 2026
// handler.go

package analytics

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
	r.With(authenticator).Get("/analytics", h.Report)
}

func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	u, err := h.guard.Principal(r.Context())
	if err != nil {
		core.JSONError(w, err)
		return
	}

	report, err := h.service.Report(r.Context(), u)
	if err != nil {
		core.WriteError(w, err, "report")
		return
	}

	core.OK(w, report)
}
