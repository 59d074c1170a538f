package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rainbowtourguides/backend/internal/domain"
	"github.com/rainbowtourguides/backend/internal/service"
)

type stubIssuer struct{}

func (stubIssuer) Issue(a domain.Actor) (string, error) { return "token-for-" + a.UserID.String(), nil }

var _ service.TokenIssuer = stubIssuer{}

func TestAuthService_DemoLogin(t *testing.T) {
	id := uuid.New()
	var gotEmail, gotName string
	svc := service.NewAuthService(&mockUserRepo{
		upsertByEmail: func(_ context.Context, email, name string, role domain.Role) (domain.Actor, error) {
			gotEmail, gotName = email, name
			return domain.Actor{UserID: id, Role: role}, nil
		},
	}, stubIssuer{})

	token, actor, err := svc.DemoLogin(context.Background(), "  Sam@Example.test ", domain.RoleGuide)

	require.NoError(t, err)
	assert.Equal(t, "token-for-"+id.String(), token)
	assert.Equal(t, domain.Actor{UserID: id, Role: domain.RoleGuide}, actor)
	assert.Equal(t, "sam@example.test", gotEmail)
	assert.Equal(t, "sam", gotName)
}

func TestAuthService_DemoLogin_Validation(t *testing.T) {
	svc := service.NewAuthService(&mockUserRepo{}, stubIssuer{})

	_, _, err := svc.DemoLogin(context.Background(), "not-an-email", domain.RoleTraveler)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, _, err = svc.DemoLogin(context.Background(), "Sam <sam@example.test>", domain.RoleTraveler)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, _, err = svc.DemoLogin(context.Background(), "sam@example.test", "superuser")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
