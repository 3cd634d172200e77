// AngelaMos | 2026
// handler_test.go

package task

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

	"github.com/carterperez-dev/pipeline-crm/internal/middleware"
)

type roleVerifier struct{}

func (roleVerifier) VerifyAccessToken(
	_ context.Context,
	token string,
) (*middleware.AccessTokenClaims, error) {
	name, role, _ := strings.Cut(token, ":")
	return &middleware.AccessTokenClaims{UserID: name, Name: name, Role: role}, nil
}

func newTestRouter() http.Handler {
	svc, _ := newTestService()
	r := chi.NewRouter()
	NewHandler(svc, svc.guard).RegisterRoutes(r, middleware.Authenticator(roleVerifier{}))
	return r
}

func call(h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCreate(t *testing.T) {
	h := newTestRouter()

	rec := call(h, http.MethodPost, "/tasks", "Evan:Exec", `{"subject":"Review"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = call(h, http.MethodPost, "/tasks", "Riley:SalesRep", `{"subject":"Review","priority":"Urgent"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(h, http.MethodPost, "/tasks", "Riley:SalesRep", `{"subject":"Review","priority":"High"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Data TaskResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "High", body.Data.Priority)
	assert.True(t, body.Data.CanEdit)
	require.NotNil(t, body.Data.Owner)
	assert.Equal(t, "Riley", *body.Data.Owner)
}

func TestHandlerListRejectsUnknownView(t *testing.T) {
	rec := call(newTestRouter(), http.MethodGet, "/tasks?view=weekly", "Riley:SalesRep", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown task view")
}

func TestHandlerGetOtherRepsTask(t *testing.T) {
	rec := call(newTestRouter(), http.MethodGet, "/tasks/t2", "Riley:SalesRep", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_OWNER")
}
