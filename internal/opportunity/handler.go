// AngelaMos | 2026
// handler.go

package opportunity

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
	r.Group(func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/pipeline/meta", h.Meta)

		r.Route("/opportunities", func(r chi.Router) {
			r.Get("/", h.List)
			r.Post("/", h.Create)
			r.Get("/{id}", h.Get)
			r.Patch("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
			r.Post("/{id}/stage", h.MoveStage)
			r.Get("/{id}/targets", h.Targets)
			r.Get("/{id}/history", h.History)
		})
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
		Stage:     q.Get("stage"),
		Owner:     q.Get("owner"),
		AccountID: q.Get("account_id"),
		Search:    q.Get("search"),
	}

	opps, total, err := h.service.List(r.Context(), u, params)
	if err != nil {
		core.WriteError(w, err, "opportunity")
		return
	}

	params.Normalize()

	core.Paginated(
		w,
		ToOpportunityResponseList(opps, u),
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

	var req CreateOpportunityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	o, err := h.service.Create(r.Context(), u, req)
	if err != nil {
		core.WriteError(w, err, "opportunity")
		return
	}

	core.Created(w, ToOpportunityResponse(o, u))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.guard.Principal(r.Context())
	if err != nil {
		core.JSONError(w, err)
		return
	}

	o, err := h.service.Get(r.Context(), u, chi.URLParam(r, "id"))
	if err != nil {
		core.WriteError(w, err, "opportunity")
		return
	}

	core.OK(w, ToOpportunityResponse(o, u))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	u, err := h.guard.Principal(r.Context())
	if err != nil {
		core.JSONError(w, err)
		return
	}

	var req UpdateOpportunityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	o, err := h.service.Update(r.Context(), u, chi.URLParam(r, "id"), req)
	if err != nil {
		core.WriteError(w, err, "opportunity")
		return
	}

	core.OK(w, ToOpportunityResponse(o, u))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	u, err := h.guard.Principal(r.Context())
	if err != nil {
		core.JSONError(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), u, chi.URLParam(r, "id")); err != nil {
		core.WriteError(w, err, "opportunity")
		return
	}

	core.NoContent(w)
}

// MoveStage handles POST /opportunities/{id}/stage.
func (h *Handler) MoveStage(w http.ResponseWriter, r *http.Request) {
	u, err := h.guard.Principal(r.Context())
	if err != nil {
		core.JSONError(w, err)
		return
	}

	var req MoveStageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	o, err := h.service.MoveStage(r.Context(), u, chi.URLParam(r, "id"), req)
	if err != nil {
		core.WriteError(w, err, "opportunity")
		return
	}

	core.OK(w, ToOpportunityResponse(o, u))
}

func (h *Handler) Targets(w http.ResponseWriter, r *http.Request) {
	u, err := h.guard.Principal(r.Context())
	if err != nil {
		core.JSONError(w, err)
		return
	}

	o, targets, err := h.service.Targets(r.Context(), u, chi.URLParam(r, "id"))
	if err != nil {
		core.WriteError(w, err, "opportunity")
		return
	}

	resp := TargetsResponse{
		Current: toStageOption(o.Stage),
		Targets: make([]StageOption, 0, len(targets)),
	}
	for _, st := range targets {
		resp.Targets = append(resp.Targets, toStageOption(st))
	}

	core.OK(w, resp)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	u, err := h.guard.Principal(r.Context())
	if err != nil {
		core.JSONError(w, err)
		return
	}

	changes, err := h.service.History(r.Context(), u, chi.URLParam(r, "id"))
	if err != nil {
		core.WriteError(w, err, "opportunity")
		return
	}

	core.OK(w, toStageChangeResponses(changes))
}

// Meta describes stages, stage fields and the caller's permissions.
func (h *Handler) Meta(w http.ResponseWriter, r *http.Request) {
	u, err := h.guard.Principal(r.Context())
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, Meta(u))
}
