package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/dom/rbac-backend/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// DecodeJSON decodes the request body into v, reporting a validation error
// on malformed input.
func DecodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.NewValidationError("invalid request body")
	}
	return nil
}

// IDParam parses the named URL parameter as a UUID. A malformed id can
// never match a row, so it is reported as notFound.
func IDParam(r *http.Request, name string, notFound error) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, notFound
	}
	return id, nil
}
