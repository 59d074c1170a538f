package domain

import (
	"time"

	"github.com/google/uuid"
)

// Theme is a tour theme label guides attach to their profile
// ("Queer History", "Nightlife").
// Identity is determined by Slug, which is always lowercase and hyphenated.
// Name preserves the casing supplied by whoever created the theme first.
type Theme struct {
	ID        uuid.UUID
	Name      string
	Slug      string
	CreatedAt time.Time
}
