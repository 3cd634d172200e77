// AngelaMos | 2026
// middleware_test.go

package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/pipeline-crm/internal/config"
	"github.com/carterperez-dev/pipeline-crm/internal/core"
	"github.com/carterperez-dev/pipeline-crm/internal/policy"
)

type stubVerifier struct {
	claims *AccessTokenClaims
	err    error
}

func (s stubVerifier) VerifyAccessToken(
	_ context.Context,
	_ string,
) (*AccessTokenClaims, error) {
	return s.claims, s.err
}

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body core.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.NotNil(t, body.Error)
	return body.Error.Code
}

func TestAuthenticatorMissingToken(t *testing.T) {
	h := Authenticator(stubVerifier{})(http.HandlerFunc(okHandler))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, rec))
}

func TestAuthenticatorMapsTokenErrors(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{core.ErrTokenExpired, "TOKEN_EXPIRED"},
		{core.ErrTokenRevoked, "TOKEN_REVOKED"},
		{errors.New("garbage"), "TOKEN_INVALID"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			h := Authenticator(stubVerifier{err: tt.err})(http.HandlerFunc(okHandler))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer abc")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}
}

func TestAuthenticatorRejectsUnknownRole(t *testing.T) {
	claims := &AccessTokenClaims{UserID: "u1", Name: "Alice", Role: "admin"}
	h := Authenticator(stubVerifier{claims: claims})(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticatorSetsPrincipal(t *testing.T) {
	claims := &AccessTokenClaims{UserID: "u1", Name: "Alice", Role: "SalesRep"}

	var got policy.User
	h := Authenticator(stubVerifier{claims: claims})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var err error
			got, err = GetPrincipal(r.Context())
			require.NoError(t, err)
			assert.Equal(t, "u1", GetUserID(r.Context()))
			w.WriteHeader(http.StatusOK)
		}),
	)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, policy.User{Name: "Alice", Role: policy.RoleSalesRep}, got)
}

func TestRequirePermission(t *testing.T) {
	tests := []struct {
		role   string
		status int
	}{
		{"Exec", http.StatusOK},
		{"OpsManagement", http.StatusForbidden},
		{"SalesRep", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			claims := &AccessTokenClaims{UserID: "u1", Name: "x", Role: tt.role}
			h := Authenticator(stubVerifier{claims: claims})(
				RequirePermission(policy.PermExportData)(http.HandlerFunc(okHandler)),
			)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer abc")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusForbidden {
				assert.Equal(t, "PERMISSION_DENIED", errorCode(t, rec))
			}
		})
	}
}

func TestRequirePermissionWithoutAuth(t *testing.T) {
	h := RequirePermission(policy.PermViewAll)(http.HandlerFunc(okHandler))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
}

func TestCORS(t *testing.T) {
	h := CORS(config.CORSConfig{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	})(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodOptions, "/v1/opportunities", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(true)(http.HandlerFunc(okHandler)).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestRoleRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	limits := map[policy.Role]RoleLimit{
		policy.RoleExec: {RequestsPerMinute: 2, BurstSize: 2},
	}

	claims := &AccessTokenClaims{UserID: "u1", Name: "Eve", Role: "Exec"}
	h := Authenticator(stubVerifier{claims: claims})(
		RoleRateLimiter(rdb, limits)(http.HandlerFunc(okHandler)),
	)

	statuses := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer abc")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		statuses = append(statuses, rec.Code)
		assert.Equal(t, "Exec", rec.Header().Get("X-RateLimit-Role"))
	}

	assert.Equal(t, []int{200, 200, 429}, statuses)
}

func TestRateLimiterFallsBackWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	rl := NewRateLimiter(rdb, RateLimitConfig{Limit: PerMinute(1, 1)})
	h := rl.Handler(http.HandlerFunc(okHandler))

	statuses := make([]int, 0, 2)
	for range 2 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		statuses = append(statuses, rec.Code)
	}

	assert.Equal(t, []int{200, 429}, statuses)
}

func TestLocalLimiterSweepsIdleBuckets(t *testing.T) {
	l := newLocalLimiter(time.Minute)
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	res, err := l.allow("a", PerMinute(60, 1), start)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Allowed)

	_, err = l.allow("b", PerMinute(60, 1), start.Add(2*time.Minute))
	require.NoError(t, err)
	assert.NotContains(t, l.buckets, "a")

	_, err = l.allow("c", redis_rate.Limit{}, start)
	assert.Error(t, err)
}
