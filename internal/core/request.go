// AngelaMos | 2026
// request.go

package core

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// QueryInt reads an integer query parameter, falling back to defaultVal
// when it is absent or malformed.
func QueryInt(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return parsed
}

// Bind decodes the JSON body into a T and validates it. On failure the 400
// has already been written and ok is false.
func Bind[T any](w http.ResponseWriter, r *http.Request, v *validator.Validate) (req T, ok bool) {
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return req, false
	}

	if err := v.Struct(req); err != nil {
		BadRequest(w, FormatValidationError(err))
		return req, false
	}

	return req, true
}
