package service

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/rainbowtourguides/backend/internal/domain"
	"github.com/rainbowtourguides/backend/internal/repo"
)

// ThemeService implements business logic for Theme operations.
// Its primary responsibility is slug normalization: all theme identity is
// determined by slug, which is always lowercase and hyphenated.
type ThemeService struct {
	themes repo.ThemeRepo
}

// NewThemeService constructs a ThemeService backed by the provided ThemeRepo.
func NewThemeService(themes repo.ThemeRepo) *ThemeService {
	return &ThemeService{themes: themes}
}

// UpsertByName normalizes name to a slug and returns the theme with that slug,
// creating it if needed.
func (s *ThemeService) UpsertByName(ctx context.Context, name string) (domain.Theme, error) {
	t, err := upsertTheme(ctx, s.themes, name)
	if err != nil {
		return domain.Theme{}, fmt.Errorf("service.ThemeService.UpsertByName: %w", err)
	}
	return t, nil
}

// ListPaged returns one page of themes whose slug starts with the slug form of prefix.
func (s *ThemeService) ListPaged(ctx context.Context, prefix string, p domain.PaginationParams) ([]domain.Theme, int64, error) {
	themes, total, err := s.themes.ListPaged(ctx, Slugify(prefix), p)
	if err != nil {
		return nil, 0, fmt.Errorf("service.ThemeService.ListPaged: %w", err)
	}
	return themes, total, nil
}

func upsertTheme(ctx context.Context, themes repo.ThemeRepo, name string) (domain.Theme, error) {
	name = strings.TrimSpace(name)
	slug := Slugify(name)
	if slug == "" {
		return domain.Theme{}, fmt.Errorf("%w: theme name %q has no letters or digits", domain.ErrValidation, name)
	}
	return themes.Upsert(ctx, name, slug)
}

// Slugify lowercases s and joins its runs of letters and digits with single
// hyphens: "Queer  History!" becomes "queer-history".
func Slugify(s string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}
