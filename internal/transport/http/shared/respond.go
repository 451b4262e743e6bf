// Package shared holds the response helpers every HTTP handler uses, so the
// error envelope and status mapping stay identical across the API.
package shared

import (
	"encoding/json"
	"net/http"

	dErrors "sipro/pkg/domain-errors"
)

type errorResponse struct {
	Error string       `json:"error"`
	Code  dErrors.Code `json:"code"`
}

// WriteJSON writes v with the given status. Encoding failures are ignored:
// the status line is already on the wire.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError maps a domain error onto the wire. Authentication failures
// (signature mismatches) deliberately map to 400, not 401, so clients do
// not treat them as an expired session.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	WriteJSON(w, dErrors.HTTPStatus(code), errorResponse{
		Error: dErrors.MessageOf(err),
		Code:  code,
	})
}
