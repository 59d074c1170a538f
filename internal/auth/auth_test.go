package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rainbowtourguides/backend/internal/auth"
	"github.com/rainbowtourguides/backend/internal/domain"
)

func requestWithToken(token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

func TestIssuer_RoundTrip(t *testing.T) {
	iss := auth.NewIssuer("secret", time.Hour)
	actor := domain.Actor{UserID: uuid.New(), Role: domain.RoleGuide}

	token, err := iss.Issue(actor)
	require.NoError(t, err)

	got, err := iss.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, actor, got)
}

func TestIssuer_Verify_WrongSecret(t *testing.T) {
	token, err := auth.NewIssuer("secret", time.Hour).Issue(domain.Actor{UserID: uuid.New(), Role: domain.RoleTraveler})
	require.NoError(t, err)

	_, err = auth.NewIssuer("other", time.Hour).Verify(token)

	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestIssuer_Verify_Expired(t *testing.T) {
	token, err := auth.NewIssuer("secret", -time.Minute).Issue(domain.Actor{UserID: uuid.New(), Role: domain.RoleTraveler})
	require.NoError(t, err)

	_, err = auth.NewIssuer("secret", time.Hour).Verify(token)

	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestAuthorize(t *testing.T) {
	iss := auth.NewIssuer("secret", time.Hour)
	guide := domain.Actor{UserID: uuid.New(), Role: domain.RoleGuide}
	traveler := domain.Actor{UserID: uuid.New(), Role: domain.RoleTraveler}
	admin := domain.Actor{UserID: uuid.New(), Role: domain.RoleAdmin}

	tokenFor := func(a domain.Actor) string {
		tok, err := iss.Issue(a)
		require.NoError(t, err)
		return tok
	}

	t.Run("missing header", func(t *testing.T) {
		d := auth.Authorize(requestWithToken(""), iss, domain.RoleGuide)
		assert.IsType(t, auth.Unauthenticated{}, d)
	})

	t.Run("not a bearer token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Basic abc")
		assert.IsType(t, auth.Unauthenticated{}, auth.Authorize(r, iss))
	})

	t.Run("garbage token", func(t *testing.T) {
		assert.IsType(t, auth.Unauthenticated{}, auth.Authorize(requestWithToken("nope"), iss))
	})

	t.Run("wrong role", func(t *testing.T) {
		d := auth.Authorize(requestWithToken(tokenFor(traveler)), iss, domain.RoleGuide)
		f, ok := d.(auth.Forbidden)
		require.True(t, ok, "expected Forbidden, got %T", d)
		assert.Equal(t, traveler, f.Actor)
	})

	t.Run("matching role", func(t *testing.T) {
		d := auth.Authorize(requestWithToken(tokenFor(guide)), iss, domain.RoleGuide)
		a, ok := d.(auth.Authorized)
		require.True(t, ok, "expected Authorized, got %T", d)
		assert.Equal(t, guide, a.Actor)
	})

	t.Run("admin passes any role check", func(t *testing.T) {
		d := auth.Authorize(requestWithToken(tokenFor(admin)), iss, domain.RoleGuide)
		assert.IsType(t, auth.Authorized{}, d)
	})

	t.Run("no roles means any authenticated caller", func(t *testing.T) {
		d := auth.Authorize(requestWithToken(tokenFor(traveler)), iss)
		assert.IsType(t, auth.Authorized{}, d)
	})
}
