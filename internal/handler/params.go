package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"

	"github.com/rainbowtourguides/backend/internal/auth"
	"github.com/rainbowtourguides/backend/internal/domain"
)

// pathID parses the {id} URL parameter. It writes a 422 and returns false on failure.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		requestError(w, "id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// bindQuery binds one form-style query parameter into dest. Optional
// parameters that are absent leave dest untouched.
func bindQuery(w http.ResponseWriter, r *http.Request, name string, required bool, dest any) bool {
	if err := runtime.BindQueryParameter("form", true, required, name, r.URL.Query(), dest); err != nil {
		requestError(w, fmt.Sprintf("invalid query parameter %q", name))
		return false
	}
	return true
}

// queryUUID binds a required UUID query parameter.
func queryUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	var raw string
	if !bindQuery(w, r, name, true, &raw) {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		requestError(w, fmt.Sprintf("%s must be a UUID", name))
		return uuid.Nil, false
	}
	return id, true
}

// queryValue binds a required query parameter into a time.Time or
// openapi_types.Date. Times must be RFC 3339; dates are YYYY-MM-DD.
func queryValue(w http.ResponseWriter, r *http.Request, name string, dest any) bool {
	var raw string
	if !bindQuery(w, r, name, true, &raw) {
		return false
	}
	if err := runtime.BindStringToObject(raw, dest); err != nil {
		requestError(w, fmt.Sprintf("invalid query parameter %q", name))
		return false
	}
	return true
}

// pagination reads ?page= and ?limit= with the directory defaults.
func pagination(w http.ResponseWriter, r *http.Request) (domain.PaginationParams, bool) {
	var page, limit *int
	if !bindQuery(w, r, "page", false, &page) || !bindQuery(w, r, "limit", false, &limit) {
		return domain.PaginationParams{}, false
	}
	return domain.NewPaginationParams(page, limit), true
}

// actor returns the caller set by middleware.RequireRole.
// Routes mounted without it never call this.
func actor(r *http.Request) domain.Actor {
	a, _ := auth.ActorFrom(r.Context())
	return a
}
