package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/rainbowtourguides/backend/internal/domain"
	"github.com/rainbowtourguides/backend/internal/repo"
)

// TokenIssuer signs bearer tokens for an actor.
type TokenIssuer interface {
	Issue(a domain.Actor) (string, error)
}

// AuthService implements the prototype demo login. It trusts the caller's
// claimed identity and must only be mounted in development.
type AuthService struct {
	users  repo.UserRepo
	issuer TokenIssuer
}

// NewAuthService constructs an AuthService.
func NewAuthService(users repo.UserRepo, issuer TokenIssuer) *AuthService {
	return &AuthService{users: users, issuer: issuer}
}

// DemoLogin upserts the user by email with the requested role and returns a
// signed token for it.
func (s *AuthService) DemoLogin(ctx context.Context, email string, role domain.Role) (string, domain.Actor, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", domain.Actor{}, fmt.Errorf("service.AuthService.DemoLogin: %w: invalid email", domain.ErrValidation)
	}
	if !role.Valid() {
		return "", domain.Actor{}, fmt.Errorf("service.AuthService.DemoLogin: %w: unknown role %q", domain.ErrValidation, role)
	}

	name, _, _ := strings.Cut(email, "@")
	actor, err := s.users.UpsertByEmail(ctx, email, name, role)
	if err != nil {
		return "", domain.Actor{}, fmt.Errorf("service.AuthService.DemoLogin: %w", err)
	}
	token, err := s.issuer.Issue(actor)
	if err != nil {
		return "", domain.Actor{}, fmt.Errorf("service.AuthService.DemoLogin: %w", err)
	}
	return token, actor, nil
}
