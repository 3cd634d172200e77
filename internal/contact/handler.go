// AngelaMos | 2026
// handler.go

package contact

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/pipeline-crm/internal/access"
	"github.com/carterperez-dev/pipeline-crm/internal/core"
)

type Handler struct {
	service   *Service
	guard     *access.Guard
	validator *validator.Validate
}

func NewHandler(service *Service, guard *access.Guard) *Handler {
	return &Handler{
		service:   service,
		guard:     guard,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/contacts", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	u, err := h.guard.Principal(r.Context())
	if err != nil {
		core.JSONError(w, err)
		return
	}

	q := r.URL.Query()
	params := ListParams{
		Page:      core.QueryInt(r, "page", 1),
		PageSize:  core.QueryInt(r, "page_size", 20),
		AccountID: q.Get("account_id"),
		Search:    q.Get("search"),
	}

	contacts, total, err := h.service.List(r.Context(), u, params)
	if err != nil {
		core.WriteError(w, err, "contact")
		return
	}

	params.Normalize()

	core.Paginated(
		w,
		ToContactResponseList(contacts, u),
		params.Page,
		params.PageSize,
		total,
	)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	u, err := h.guard.Principal(r.Context())
	if err != nil {
		core.JSONError(w, err)
		return
	}

	var req CreateContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	c, err := h.service.Create(r.Context(), u, req)
	if err != nil {
		core.WriteError(w, err, "contact")
		return
	}

	core.Created(w, ToContactResponse(c, u))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.guard.Principal(r.Context())
	if err != nil {
		core.JSONError(w, err)
		return
	}

	c, err := h.service.Get(r.Context(), u, chi.URLParam(r, "id"))
	if err != nil {
		core.WriteError(w, err, "contact")
		return
	}

	core.OK(w, ToContactResponse(c, u))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	u, err := h.guard.Principal(r.Context())
	if err != nil {
		core.JSONError(w, err)
		return
	}

	var req UpdateContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	c, err := h.service.Update(r.Context(), u, chi.URLParam(r, "id"), req)
	if err != nil {
		core.WriteError(w, err, "contact")
		return
	}

	core.OK(w, ToContactResponse(c, u))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	u, err := h.guard.Principal(r.Context())
	if err != nil {
		core.JSONError(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), u, chi.URLParam(r, "id")); err != nil {
		core.WriteError(w, err, "contact")
		return
	}

	core.NoContent(w)
}
