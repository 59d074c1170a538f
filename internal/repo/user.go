package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/rainbowtourguides/backend/internal/domain"
)

// UserRepo defines the persistence operations for users. Credentials are held
// by the identity provider; this table only maps ids to roles.
type UserRepo interface {
	// UpsertByEmail creates the user or returns the existing one. An existing
	// user's role is updated to role.
	UpsertByEmail(ctx context.Context, email, displayName string, role domain.Role) (domain.Actor, error)
}

type pgUserRepo struct {
	db db
}

// NewUserRepo constructs a UserRepo backed by the provided db connection.
func NewUserRepo(db db) UserRepo {
	return &pgUserRepo{db: db}
}

func (r *pgUserRepo) UpsertByEmail(ctx context.Context, email, displayName string, role domain.Role) (domain.Actor, error) {
	const q = `
		INSERT INTO users (email, display_name, role)
		VALUES (@email, @display_name, @role)
		ON CONFLICT (email) DO UPDATE SET role = EXCLUDED.role, updated_at = now()
		RETURNING id, role`

	var (
		id      pgtype.UUID
		roleRaw string
	)
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{
		"email":        email,
		"display_name": displayName,
		"role":         string(role),
	}).Scan(&id, &roleRaw)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("repo.UserRepo.UpsertByEmail: %w", err)
	}
	return domain.Actor{UserID: uuid.UUID(id.Bytes), Role: domain.Role(roleRaw)}, nil
}
