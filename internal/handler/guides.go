package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/rainbowtourguides/backend/internal/domain"
	"github.com/rainbowtourguides/backend/internal/preference"
	"github.com/rainbowtourguides/backend/internal/pricing"
)

// TierPrices are the single-traveler totals of the three tour lengths.
type TierPrices struct {
	H4       float64 `json:"h4"`
	H6       float64 `json:"h6"`
	H8       float64 `json:"h8"`
	Currency string  `json:"currency"`
}

// GuideResponse is the public shape of a guide profile.
type GuideResponse struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"userId"`
	DisplayName   string     `json:"displayName"`
	City          string     `json:"city"`
	Bio           string     `json:"bio"`
	Languages     []string   `json:"languages"`
	Themes        []string   `json:"themes"`
	BaseRateHour  float64    `json:"baseRateHour"`
	Currency      string     `json:"currency"`
	Timezone      string     `json:"timezone"`
	RatingAverage float64    `json:"ratingAverage"`
	RatingCount   int        `json:"ratingCount"`
	Verified      bool       `json:"verified"`
	Prices        TierPrices `json:"prices"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// GuideRequest is the body of POST /api/guides and PUT /api/guides/{id}.
// Themes are free-form names; they are stored as slugs.
type GuideRequest struct {
	DisplayName  string   `json:"displayName"`
	City         string   `json:"city"`
	Bio          string   `json:"bio"`
	Languages    []string `json:"languages"`
	Themes       []string `json:"themes"`
	BaseRateHour float64  `json:"baseRateHour"`
	Currency     string   `json:"currency"`
	Timezone     string   `json:"timezone"`
}

// Pagination describes one page of a list response.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// GuideList is the body of GET /api/guides.
type GuideList struct {
	Data       []GuideResponse `json:"data"`
	Pagination Pagination      `json:"pagination"`
}

// QuoteResponse is a group price breakdown in the guide's currency plus the
// total rendered in the visitor's preferred currency.
type QuoteResponse struct {
	pricing.Breakdown
	Travelers       int                 `json:"travelers"`
	DurationHours   int                 `json:"durationHours"`
	Display         string              `json:"display"`
	DisplayCurrency preference.Currency `json:"displayCurrency"`
}

// ListGuides handles GET /api/guides.
// Supports ?city=, ?theme=, ?language=, ?page= and ?limit=.
func (s *Server) ListGuides(w http.ResponseWriter, r *http.Request) {
	var city, theme, language *string
	if !bindQuery(w, r, "city", false, &city) ||
		!bindQuery(w, r, "theme", false, &theme) ||
		!bindQuery(w, r, "language", false, &language) {
		return
	}
	params, ok := pagination(w, r)
	if !ok {
		return
	}

	f := domain.GuideFilter{City: derefString(city), Theme: derefString(theme), Language: derefString(language)}
	guides, total, err := s.guides.ListPaged(r.Context(), f, params)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}

	data := make([]GuideResponse, len(guides))
	for i, g := range guides {
		data[i] = guideToResponse(g)
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	writeJSON(w, http.StatusOK, GuideList{
		Data:       data,
		Pagination: Pagination{Page: params.Page, Limit: params.Limit, Total: total},
	})
}

// GetGuide handles GET /api/guides/{id}.
func (s *Server) GetGuide(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	g, err := s.guides.GetByID(r.Context(), id)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, guideToResponse(g))
}

// CreateGuide handles POST /api/guides. The profile belongs to the caller.
func (s *Server) CreateGuide(w http.ResponseWriter, r *http.Request) {
	var body GuideRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	created, err := s.guides.Create(r.Context(), actor(r), requestToGuide(uuid.Nil, body))
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, guideToResponse(created))
}

// UpdateGuide handles PUT /api/guides/{id}.
func (s *Server) UpdateGuide(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body GuideRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	updated, err := s.guides.Update(r.Context(), actor(r), requestToGuide(id, body))
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, guideToResponse(updated))
}

// QuoteGuide handles GET /api/guides/{id}/quote?duration&travelers.
// travelers defaults to 1.
func (s *Server) QuoteGuide(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var (
		duration  int
		travelers *int
	)
	if !bindQuery(w, r, "duration", true, &duration) || !bindQuery(w, r, "travelers", false, &travelers) {
		return
	}
	n := 1
	if travelers != nil {
		n = *travelers
	}

	b, err := s.guides.Quote(r.Context(), id, duration, n)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}

	sess := s.session(w, r)
	writeJSON(w, http.StatusOK, QuoteResponse{
		Breakdown:       b,
		Travelers:       n,
		DurationHours:   duration,
		Display:         sess.FormatPrice(preference.ToUSD(b.Total, preference.Currency(b.Currency))),
		DisplayCurrency: sess.Preferences().Currency,
	})
}

// --- mapping helpers --------------------------------------------------------

func requestToGuide(id uuid.UUID, body GuideRequest) domain.GuideProfile {
	return domain.GuideProfile{
		ID:           id,
		DisplayName:  body.DisplayName,
		City:         body.City,
		Bio:          body.Bio,
		Languages:    body.Languages,
		Themes:       body.Themes,
		BaseRateHour: body.BaseRateHour,
		Currency:     body.Currency,
		Timezone:     body.Timezone,
	}
}

func guideToResponse(g domain.GuideProfile) GuideResponse {
	return GuideResponse{
		ID:            g.ID,
		UserID:        g.UserID,
		DisplayName:   g.DisplayName,
		City:          g.City,
		Bio:           g.Bio,
		Languages:     nonNil(g.Languages),
		Themes:        nonNil(g.Themes),
		BaseRateHour:  g.BaseRateHour,
		Currency:      g.Currency,
		Timezone:      g.Timezone,
		RatingAverage: g.RatingAverage,
		RatingCount:   g.RatingCount,
		Verified:      g.Verified,
		Prices: TierPrices{
			H4:       g.Prices.H4,
			H6:       g.Prices.H6,
			H8:       g.Prices.H8,
			Currency: g.Prices.Currency,
		},
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
}

// nonNil keeps empty lists as [] rather than null on the wire.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// derefString returns the value of s, or "" when nil.
func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
