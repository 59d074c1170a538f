package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/rainbowtourguides/backend/internal/domain"
)

// ThemeResponse is the wire shape of a theme tag.
type ThemeResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"createdAt"`
}

// ThemeList is the body of GET /api/themes.
type ThemeList struct {
	Data       []ThemeResponse `json:"data"`
	Pagination Pagination      `json:"pagination"`
}

// ListThemes handles GET /api/themes.
// The optional ?q= query parameter filters themes by slug prefix.
func (s *Server) ListThemes(w http.ResponseWriter, r *http.Request) {
	var q *string
	if !bindQuery(w, r, "q", false, &q) {
		return
	}
	params, ok := pagination(w, r)
	if !ok {
		return
	}

	themes, total, err := s.themes.ListPaged(r.Context(), derefString(q), params)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}

	data := make([]ThemeResponse, len(themes))
	for i, t := range themes {
		data[i] = themeToResponse(t)
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	writeJSON(w, http.StatusOK, ThemeList{
		Data:       data,
		Pagination: Pagination{Page: params.Page, Limit: params.Limit, Total: total},
	})
}

// themeToResponse converts a domain.Theme to its wire shape.
func themeToResponse(t domain.Theme) ThemeResponse {
	return ThemeResponse{ID: t.ID, Name: t.Name, Slug: t.Slug, CreatedAt: t.CreatedAt}
}
