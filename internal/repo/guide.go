package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/rainbowtourguides/backend/internal/domain"
)

// GuideRepo defines the persistence operations for guide profiles.
type GuideRepo interface {
	// Create inserts a profile for an existing user and returns the persisted record.
	Create(ctx context.Context, g domain.GuideProfile) (domain.GuideProfile, error)

	// GetByID retrieves a profile with its theme slugs.
	// Returns domain.ErrNotFound if no profile with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.GuideProfile, error)

	// GetByUserID retrieves the profile owned by a user.
	// Returns domain.ErrNotFound if the user has no guide profile.
	GetByUserID(ctx context.Context, userID uuid.UUID) (domain.GuideProfile, error)

	// ListPaged returns one page of profiles matching f, best rated first,
	// and the total number of matches.
	ListPaged(ctx context.Context, f domain.GuideFilter, p domain.PaginationParams) ([]domain.GuideProfile, int64, error)

	// Update overwrites the editable fields of a profile. Themes are managed
	// through ThemeRepo.SetForGuide. Returns domain.ErrNotFound if absent.
	Update(ctx context.Context, g domain.GuideProfile) (domain.GuideProfile, error)
}

type pgGuideRepo struct {
	db db
}

// NewGuideRepo constructs a GuideRepo backed by the provided db connection.
func NewGuideRepo(db db) GuideRepo {
	return &pgGuideRepo{db: db}
}

// guideColumns selects a profile plus its theme slugs aggregated in slug order.
const guideColumns = `
	g.id, g.user_id, g.display_name, g.city, g.bio, g.languages,
	COALESCE((
		SELECT array_agg(t.slug ORDER BY t.slug)
		FROM guide_themes gt JOIN themes t ON t.id = gt.theme_id
		WHERE gt.guide_id = g.id
	), '{}') AS themes,
	g.base_rate_hour, g.currency, g.timezone, g.rating_average, g.rating_count,
	g.verified, g.created_at, g.updated_at`

// guideFilterClause is shared by the count and page queries of ListPaged.
const guideFilterClause = `
	WHERE (@city = '' OR lower(g.city) = lower(@city))
	  AND (@language = '' OR @language = ANY(g.languages))
	  AND (@theme = '' OR EXISTS (
		SELECT 1 FROM guide_themes gt JOIN themes t ON t.id = gt.theme_id
		WHERE gt.guide_id = g.id AND t.slug = @theme))`

func (r *pgGuideRepo) Create(ctx context.Context, g domain.GuideProfile) (domain.GuideProfile, error) {
	const q = `
		INSERT INTO guide_profiles (user_id, display_name, city, bio, languages, base_rate_hour, currency, timezone, verified)
		VALUES (@user_id, @display_name, @city, @bio, @languages, @base_rate_hour, @currency, @timezone, @verified)
		RETURNING id`

	var id pgtype.UUID
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{
		"user_id":        g.UserID,
		"display_name":   g.DisplayName,
		"city":           g.City,
		"bio":            g.Bio,
		"languages":      nonNilStrings(g.Languages),
		"base_rate_hour": g.BaseRateHour,
		"currency":       g.Currency,
		"timezone":       g.Timezone,
		"verified":       g.Verified,
	}).Scan(&id)
	if err != nil {
		return domain.GuideProfile{}, fmt.Errorf("repo.GuideRepo.Create: %w", err)
	}
	return r.GetByID(ctx, fromPgUUID(id))
}

func (r *pgGuideRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.GuideProfile, error) {
	q := `SELECT ` + guideColumns + ` FROM guide_profiles g WHERE g.id = @id`

	g, err := scanGuide(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.GuideProfile{}, fmt.Errorf("repo.GuideRepo.GetByID: %w", notFound(err, domain.ErrNotFound))
	}
	return g, nil
}

func (r *pgGuideRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (domain.GuideProfile, error) {
	q := `SELECT ` + guideColumns + ` FROM guide_profiles g WHERE g.user_id = @user_id`

	g, err := scanGuide(r.db.QueryRow(ctx, q, pgx.NamedArgs{"user_id": userID}))
	if err != nil {
		return domain.GuideProfile{}, fmt.Errorf("repo.GuideRepo.GetByUserID: %w", notFound(err, domain.ErrNotFound))
	}
	return g, nil
}

func (r *pgGuideRepo) ListPaged(ctx context.Context, f domain.GuideFilter, p domain.PaginationParams) ([]domain.GuideProfile, int64, error) {
	args := pgx.NamedArgs{
		"city":     f.City,
		"language": f.Language,
		"theme":    f.Theme,
		"limit":    p.Limit,
		"offset":   p.Offset(),
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM guide_profiles g `+guideFilterClause, args).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.GuideRepo.ListPaged: count: %w", err)
	}

	q := `SELECT ` + guideColumns + ` FROM guide_profiles g ` + guideFilterClause + `
		ORDER BY g.rating_average DESC, g.rating_count DESC, g.id
		LIMIT @limit OFFSET @offset`
	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.GuideRepo.ListPaged: %w", err)
	}
	guides, err := collect(rows, scanGuide)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.GuideRepo.ListPaged: %w", err)
	}
	return guides, total, nil
}

func (r *pgGuideRepo) Update(ctx context.Context, g domain.GuideProfile) (domain.GuideProfile, error) {
	const q = `
		UPDATE guide_profiles
		SET display_name   = @display_name,
		    city           = @city,
		    bio            = @bio,
		    languages      = @languages,
		    base_rate_hour = @base_rate_hour,
		    currency       = @currency,
		    timezone       = @timezone,
		    updated_at     = now()
		WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{
		"id":             g.ID,
		"display_name":   g.DisplayName,
		"city":           g.City,
		"bio":            g.Bio,
		"languages":      nonNilStrings(g.Languages),
		"base_rate_hour": g.BaseRateHour,
		"currency":       g.Currency,
		"timezone":       g.Timezone,
	})
	if err != nil {
		return domain.GuideProfile{}, fmt.Errorf("repo.GuideRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.GuideProfile{}, fmt.Errorf("repo.GuideRepo.Update: %w", domain.ErrNotFound)
	}
	return r.GetByID(ctx, g.ID)
}

// scanGuide maps a row selected with guideColumns into a domain.GuideProfile.
func scanGuide(s scanner) (domain.GuideProfile, error) {
	var (
		g      domain.GuideProfile
		id     pgtype.UUID
		userID pgtype.UUID
	)
	err := s.Scan(&id, &userID, &g.DisplayName, &g.City, &g.Bio, &g.Languages, &g.Themes,
		&g.BaseRateHour, &g.Currency, &g.Timezone, &g.RatingAverage, &g.RatingCount,
		&g.Verified, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return domain.GuideProfile{}, err
	}
	g.ID = fromPgUUID(id)
	g.UserID = fromPgUUID(userID)
	return g, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
