// AngelaMos | 2026
// handler_test.go

package opportunity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/pipeline-crm/internal/access"
	"github.com/carterperez-dev/pipeline-crm/internal/core"
	"github.com/carterperez-dev/pipeline-crm/internal/middleware"
	"github.com/carterperez-dev/pipeline-crm/internal/policy"
)

type roleVerifier struct{}

// VerifyAccessToken treats the bearer token as "name:role".
func (roleVerifier) VerifyAccessToken(
	_ context.Context,
	token string,
) (*middleware.AccessTokenClaims, error) {
	name, role, _ := strings.Cut(token, ":")
	return &middleware.AccessTokenClaims{UserID: name, Name: name, Role: role}, nil
}

func newTestRouter(repo *memRepo) http.Handler {
	svc := newTestService(repo)
	h := NewHandler(svc, access.NewGuard(nil, nil))

	r := chi.NewRouter()
	h.RegisterRoutes(r, middleware.Authenticator(roleVerifier{}))
	return r
}

func do(
	t *testing.T,
	h http.Handler,
	method, path, token, body string,
) (*httptest.ResponseRecorder, core.Response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp core.Response
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestHandlerMoveStageIllegal(t *testing.T) {
	h := newTestRouter(newMemRepo(deal("d1", "Riley", policy.StageNewLead)))

	rec, resp := do(t, h, http.MethodPost, "/opportunities/d1/stage", "Riley:SalesRep",
		`{"stage":"ProposalSent","fields":{}}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ILLEGAL_TRANSITION", resp.Error.Code)
	assert.NotEmpty(t, resp.Error.Message)
}

func TestHandlerMoveStageOK(t *testing.T) {
	h := newTestRouter(newMemRepo(deal("d1", "Riley", policy.StageNewLead)))

	rec, resp := do(t, h, http.MethodPost, "/opportunities/d1/stage", "Riley:SalesRep",
		`{"stage":"Contact Made","fields":{"Interest Type":"Panels","First Contact Notes":"ok"}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ContactMade", data["stage"])
	assert.Equal(t, "Contact Made", data["stage_label"])
	assert.Equal(t, true, data["can_edit"])
}

func TestHandlerGetNotFoundAndForbidden(t *testing.T) {
	h := newTestRouter(newMemRepo(deal("d1", "Sasha", policy.StageNewLead)))

	rec, _ := do(t, h, http.MethodGet, "/opportunities/nope", "Evan:Exec", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, resp := do(t, h, http.MethodGet, "/opportunities/d1", "Riley:SalesRep", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "NOT_OWNER", resp.Error.Code)
}

func TestHandlerCreateValidates(t *testing.T) {
	h := newTestRouter(newMemRepo())

	rec, _ := do(t, h, http.MethodPost, "/opportunities", "Riley:SalesRep", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, resp := do(t, h, http.MethodPost, "/opportunities", "Olive:OpsManagement", `{"name":"X"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "PERMISSION_DENIED", resp.Error.Code)

	rec, _ = do(t, h, http.MethodPost, "/opportunities", "Riley:SalesRep", `{"name":"X"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestHandlerTargetsForExec(t *testing.T) {
	h := newTestRouter(newMemRepo(deal("d1", "", policy.StageProposalSent)))

	rec, resp := do(t, h, http.MethodGet, "/opportunities/d1/targets", "Evan:Exec", "")
	require.Equal(t, http.StatusOK, rec.Code)

	data := resp.Data.(map[string]any)
	assert.Equal(t, []any{}, data["targets"])
}
