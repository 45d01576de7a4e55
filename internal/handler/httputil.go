package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/matthewbaird/estatein/internal/auth"
	"github.com/matthewbaird/estatein/internal/crud"
	"github.com/matthewbaird/estatein/internal/docstore"
	"github.com/matthewbaird/estatein/internal/schema"
	"github.com/matthewbaird/estatein/internal/types"
)

var validate = validator.New()

var (
	errInvalidJSON = errors.New("invalid request body")
	errInvalidForm = errors.New("invalid form")
)

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("writeJSON encode error")
	}
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// decodeValid decodes the body into v and runs its validate tags.
func decodeValid(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := decodeJSON(r, v); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", errInvalidJSON.Error())
		return false
	}
	if err := validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return false
	}
	return true
}

// parseOrder reads order_by and dir. The default is newest first.
func parseOrder(r *http.Request) types.Order {
	o := types.DefaultOrder
	if v := r.URL.Query().Get("order_by"); v != "" {
		o.Field = v
	}
	switch strings.ToLower(r.URL.Query().Get("dir")) {
	case "asc":
		o.Desc = false
	case "desc":
		o.Desc = true
	}
	return o
}

// statusOf classifies a store, form or upload error.
func statusOf(err error) (int, string) {
	var verr *schema.ValidationError
	var ferr *schema.FieldError
	var uerr *crud.UploadError
	switch {
	case errors.Is(err, errInvalidJSON):
		return http.StatusBadRequest, "INVALID_JSON"
	case errors.Is(err, errInvalidForm):
		return http.StatusBadRequest, "INVALID_FORM"
	case errors.Is(err, crud.ErrUnknownCollection), errors.Is(err, docstore.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.As(err, &verr), errors.As(err, &ferr):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.As(err, &uerr):
		return http.StatusBadGateway, "UPLOAD_FAILED"
	case errors.Is(err, crud.ErrSubmitting):
		return http.StatusConflict, "SUBMITTING"
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrNoSession):
		return http.StatusUnauthorized, "UNAUTHORIZED"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

// storeErrorToHTTP maps errors to appropriate HTTP responses. Validation
// errors carry the per-field problems.
func storeErrorToHTTP(w http.ResponseWriter, err error) {
	status, code := statusOf(err)
	switch code {
	case "INTERNAL_ERROR":
		log.Error().Err(err).Msg("internal error")
		writeError(w, status, code, "internal server error")
	case "VALIDATION_ERROR":
		writeJSON(w, status, map[string]any{
			"error":    err.Error(),
			"code":     code,
			"problems": problemsOf(err),
		})
	default:
		writeError(w, status, code, err.Error())
	}
}

// problemsOf flattens validation errors into field -> message.
func problemsOf(err error) map[string]string {
	out := make(map[string]string)
	var verr *schema.ValidationError
	var ferr *schema.FieldError
	switch {
	case errors.As(err, &verr):
		for _, p := range verr.Problems {
			out[p.Field] = p.Message
		}
	case errors.As(err, &ferr):
		out[ferr.Field] = ferr.Message
	}
	return out
}
