// AngelaMos | 2026
// handler.go

package export

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/pipeline-crm/internal/access"
	"github.com/carterperez-dev/pipeline-crm/internal/core"
)

type Handler struct {
	service *Service
	guard   *access.Guard
	now     func() time.Time
}

func NewHandler(service *Service, guard *access.Guard) *Handler {
	return &Handler{service: service, guard: guard, now: time.Now}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/export", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/opportunities.csv", h.Opportunities)
	})
}

// Opportunities renders into a buffer first so a failure can still be
// reported as a JSON error.
func (h *Handler) Opportunities(w http.ResponseWriter, r *http.Request) {
	u, err := h.guard.Principal(r.Context())
	if err != nil {
		core.JSONError(w, err)
		return
	}

	var buf bytes.Buffer
	rows, err := h.service.Opportunities(r.Context(), u, &buf)
	if err != nil {
		core.WriteError(w, err, "opportunity")
		return
	}

	filename := fmt.Sprintf("opportunities-%s.csv", h.now().UTC().Format("20060102"))

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("X-Row-Count", strconv.Itoa(rows))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes()) //nolint:errcheck // client went away
}
