package domain

import (
	"time"

	"github.com/google/uuid"
)

// GuideProfile is the public profile of a guide user.
// Prices is derived from BaseRateHour on every read and never persisted.
type GuideProfile struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	DisplayName   string
	City          string
	Bio           string
	Languages     []string
	Themes        []string // theme slugs
	BaseRateHour  float64
	Currency      string
	Timezone      string // IANA name, e.g. "Europe/Lisbon"
	RatingAverage float64
	RatingCount   int
	Verified      bool
	Prices        TierPrices
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TierPrices holds the single-traveler total for each duration tier.
type TierPrices struct {
	H4       float64
	H6       float64
	H8       float64
	Currency string
}

// Location resolves the guide's timezone, falling back to UTC when the
// profile has none or names an unknown zone.
func (g GuideProfile) Location() *time.Location {
	if g.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(g.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// GuideFilter narrows the guide directory listing. Empty fields match all.
type GuideFilter struct {
	City     string
	Theme    string
	Language string
}
