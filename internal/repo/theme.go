package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/rainbowtourguides/backend/internal/domain"
)

// ThemeRepo defines the persistence operations for themes and the
// guide_themes join table.
type ThemeRepo interface {
	// Upsert inserts a theme by slug, or returns the existing theme if the slug
	// already exists. The name of the first creator is preserved on conflict.
	Upsert(ctx context.Context, name, slug string) (domain.Theme, error)

	// ListPaged returns one page of themes whose slug starts with prefix,
	// ordered by slug, and the total count.
	ListPaged(ctx context.Context, prefix string, p domain.PaginationParams) ([]domain.Theme, int64, error)

	// SetForGuide replaces the guide's theme links with the given theme IDs.
	SetForGuide(ctx context.Context, guideID uuid.UUID, themeIDs []uuid.UUID) error
}

type pgThemeRepo struct {
	db db
}

// NewThemeRepo constructs a ThemeRepo backed by the provided db connection.
func NewThemeRepo(db db) ThemeRepo {
	return &pgThemeRepo{db: db}
}

// Upsert inserts a theme or returns the existing row on slug conflict.
// DO UPDATE SET is used instead of DO NOTHING so that RETURNING always yields
// a row.
func (r *pgThemeRepo) Upsert(ctx context.Context, name, slug string) (domain.Theme, error) {
	const q = `
		INSERT INTO themes (name, slug)
		VALUES (@name, @slug)
		ON CONFLICT (slug) DO UPDATE SET slug = EXCLUDED.slug
		RETURNING id, name, slug, created_at`

	t, err := scanTheme(r.db.QueryRow(ctx, q, pgx.NamedArgs{"name": name, "slug": slug}))
	if err != nil {
		return domain.Theme{}, fmt.Errorf("repo.ThemeRepo.Upsert: %w", err)
	}
	return t, nil
}

func (r *pgThemeRepo) ListPaged(ctx context.Context, prefix string, p domain.PaginationParams) ([]domain.Theme, int64, error) {
	args := pgx.NamedArgs{"prefix": prefix, "limit": p.Limit, "offset": p.Offset()}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM themes WHERE slug LIKE @prefix || '%'`, args).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.ThemeRepo.ListPaged: count: %w", err)
	}

	const q = `
		SELECT id, name, slug, created_at
		FROM themes
		WHERE slug LIKE @prefix || '%'
		ORDER BY slug
		LIMIT @limit OFFSET @offset`

	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.ThemeRepo.ListPaged: %w", err)
	}
	themes, err := collect(rows, scanTheme)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.ThemeRepo.ListPaged: %w", err)
	}
	return themes, total, nil
}

func (r *pgThemeRepo) SetForGuide(ctx context.Context, guideID uuid.UUID, themeIDs []uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM guide_themes WHERE guide_id = @guide_id`,
		pgx.NamedArgs{"guide_id": guideID}); err != nil {
		return fmt.Errorf("repo.ThemeRepo.SetForGuide: clear: %w", err)
	}
	if len(themeIDs) == 0 {
		return nil
	}

	const q = `
		INSERT INTO guide_themes (guide_id, theme_id)
		SELECT @guide_id, unnest(@theme_ids::uuid[])
		ON CONFLICT (guide_id, theme_id) DO NOTHING`

	_, err := r.db.Exec(ctx, q, pgx.NamedArgs{"guide_id": guideID, "theme_ids": uuidStrings(themeIDs)})
	if err != nil {
		return fmt.Errorf("repo.ThemeRepo.SetForGuide: %w", err)
	}
	return nil
}

func scanTheme(s scanner) (domain.Theme, error) {
	var (
		t  domain.Theme
		id pgtype.UUID
	)
	if err := s.Scan(&id, &t.Name, &t.Slug, &t.CreatedAt); err != nil {
		return domain.Theme{}, notFound(err, domain.ErrNotFound)
	}
	t.ID = fromPgUUID(id)
	return t, nil
}
