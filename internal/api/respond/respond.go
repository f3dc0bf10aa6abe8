// Package respond writes JSON API answers.
package respond

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/hlog"
)

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, errorBody{Error: msg})
}

func FieldError(w http.ResponseWriter, status int, field, msg string) {
	JSON(w, status, errorBody{Error: msg, Field: field})
}

// Internal logs err against the request and answers with a generic 500.
func Internal(w http.ResponseWriter, r *http.Request, err error) {
	hlog.FromRequest(r).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	Error(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
}

// WantsJSON reports whether r came from an API caller rather than a browser page.
func WantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}
