package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rainbowtourguides/backend/internal/domain"
	"github.com/rainbowtourguides/backend/internal/preference"
	"github.com/rainbowtourguides/backend/internal/pricing"
	"github.com/rainbowtourguides/backend/internal/repo"
)

// GuideService implements the guide directory and profile management.
// Tier prices are never stored; every read recomputes them from the hourly rate.
type GuideService struct {
	guides repo.GuideRepo
	tx     repo.Transactor
}

// NewGuideService constructs a GuideService.
func NewGuideService(guides repo.GuideRepo, tx repo.Transactor) *GuideService {
	return &GuideService{guides: guides, tx: tx}
}

// Create registers the actor's guide profile. A user has at most one.
func (s *GuideService) Create(ctx context.Context, actor domain.Actor, g domain.GuideProfile) (domain.GuideProfile, error) {
	g.UserID = actor.UserID
	g = withDefaults(g)
	if err := validateGuide(g); err != nil {
		return domain.GuideProfile{}, fmt.Errorf("service.GuideService.Create: %w", err)
	}

	var created domain.GuideProfile
	err := s.tx.InTx(ctx, func(r repo.Repos) error {
		_, err := r.Guides.GetByUserID(ctx, actor.UserID)
		switch {
		case err == nil:
			return fmt.Errorf("%w: user already has a guide profile", domain.ErrConflict)
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}

		p, err := r.Guides.Create(ctx, g)
		if err != nil {
			return err
		}
		created, err = applyThemes(ctx, r, p.ID, g.Themes)
		return err
	})
	if err != nil {
		return domain.GuideProfile{}, fmt.Errorf("service.GuideService.Create: %w", err)
	}
	return withPrices(created), nil
}

// GetByID returns a single profile with tier prices.
func (s *GuideService) GetByID(ctx context.Context, id uuid.UUID) (domain.GuideProfile, error) {
	g, err := s.guides.GetByID(ctx, id)
	if err != nil {
		return domain.GuideProfile{}, fmt.Errorf("service.GuideService.GetByID: %w", err)
	}
	return withPrices(g), nil
}

// ListPaged returns one page of the directory and the total match count.
func (s *GuideService) ListPaged(ctx context.Context, f domain.GuideFilter, p domain.PaginationParams) ([]domain.GuideProfile, int64, error) {
	f.City = strings.TrimSpace(f.City)
	f.Theme = Slugify(f.Theme)
	f.Language = strings.ToLower(strings.TrimSpace(f.Language))

	guides, total, err := s.guides.ListPaged(ctx, f, p)
	if err != nil {
		return nil, 0, fmt.Errorf("service.GuideService.ListPaged: %w", err)
	}
	for i := range guides {
		guides[i] = withPrices(guides[i])
	}
	return guides, total, nil
}

// Update overwrites the editable profile fields and replaces its themes.
// Theme names are normalized to slugs and created on first use. Omitted
// currency and timezone fall back to the same defaults as Create.
func (s *GuideService) Update(ctx context.Context, actor domain.Actor, g domain.GuideProfile) (domain.GuideProfile, error) {
	g = withDefaults(g)
	if err := validateGuide(g); err != nil {
		return domain.GuideProfile{}, fmt.Errorf("service.GuideService.Update: %w", err)
	}

	var updated domain.GuideProfile
	err := s.tx.InTx(ctx, func(r repo.Repos) error {
		current, err := r.Guides.GetByID(ctx, g.ID)
		if err != nil {
			return err
		}
		if err := authorizeGuide(actor, current); err != nil {
			return err
		}
		if _, err := r.Guides.Update(ctx, g); err != nil {
			return err
		}
		updated, err = applyThemes(ctx, r, g.ID, g.Themes)
		return err
	})
	if err != nil {
		return domain.GuideProfile{}, fmt.Errorf("service.GuideService.Update: %w", err)
	}
	return withPrices(updated), nil
}

func withDefaults(g domain.GuideProfile) domain.GuideProfile {
	if g.Currency == "" {
		g.Currency = string(preference.USD)
	}
	if g.Timezone == "" {
		g.Timezone = "UTC"
	}
	return g
}

// Quote prices a tour of the given length for a group with the guide's current rate.
func (s *GuideService) Quote(ctx context.Context, id uuid.UUID, hours, travelers int) (pricing.Breakdown, error) {
	d, err := pricing.ParseDuration(hours)
	if err != nil {
		return pricing.Breakdown{}, fmt.Errorf("service.GuideService.Quote: %w: %w", domain.ErrValidation, err)
	}
	g, err := s.guides.GetByID(ctx, id)
	if err != nil {
		return pricing.Breakdown{}, fmt.Errorf("service.GuideService.Quote: %w", err)
	}
	b, err := pricing.CalculateGroupPrice(g.BaseRateHour, d, travelers, g.Currency)
	if err != nil {
		return pricing.Breakdown{}, fmt.Errorf("service.GuideService.Quote: %w: %w", domain.ErrValidation, err)
	}
	return b, nil
}

// applyThemes upserts each theme name, links the set to the guide and returns
// the reloaded profile.
func applyThemes(ctx context.Context, r repo.Repos, guideID uuid.UUID, names []string) (domain.GuideProfile, error) {
	ids := make([]uuid.UUID, 0, len(names))
	seen := make(map[uuid.UUID]bool, len(names))
	for _, name := range names {
		t, err := upsertTheme(ctx, r.Themes, name)
		if err != nil {
			return domain.GuideProfile{}, err
		}
		if !seen[t.ID] {
			seen[t.ID] = true
			ids = append(ids, t.ID)
		}
	}
	if err := r.Themes.SetForGuide(ctx, guideID, ids); err != nil {
		return domain.GuideProfile{}, err
	}
	return r.Guides.GetByID(ctx, guideID)
}

// withPrices fills the tier price table from the hourly rate.
func withPrices(g domain.GuideProfile) domain.GuideProfile {
	g.Prices = domain.TierPrices{Currency: g.Currency}
	for _, d := range pricing.Durations() {
		b, err := pricing.CalculateTourPrice(g.BaseRateHour, d, g.Currency)
		if err != nil {
			// A non-positive rate has no price table; leave zeros.
			return g
		}
		switch d {
		case pricing.HalfDay:
			g.Prices.H4 = b.Total
		case pricing.Extended:
			g.Prices.H6 = b.Total
		case pricing.FullDay:
			g.Prices.H8 = b.Total
		}
	}
	return g
}

func validateGuide(g domain.GuideProfile) error {
	if strings.TrimSpace(g.DisplayName) == "" {
		return fmt.Errorf("%w: display name is required", domain.ErrValidation)
	}
	if g.BaseRateHour <= 0 {
		return fmt.Errorf("%w: %w", domain.ErrValidation, pricing.ErrInvalidRate)
	}
	if g.Timezone != "" {
		if _, err := time.LoadLocation(g.Timezone); err != nil {
			return fmt.Errorf("%w: unknown timezone %q", domain.ErrValidation, g.Timezone)
		}
	}
	if g.Currency != "" {
		if _, err := preference.ParseCurrency(g.Currency); err != nil {
			return err
		}
	}
	for _, l := range g.Languages {
		if _, err := preference.ParseLanguage(l); err != nil {
			return err
		}
	}
	return nil
}
