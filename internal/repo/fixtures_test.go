package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/rainbowtourguides/backend/internal/domain"
	"github.com/rainbowtourguides/backend/internal/repo"
	"github.com/rainbowtourguides/backend/testutil"
)

// newTestTx opens a transaction that is rolled back when the test ends, so
// every test sees an isolated view of the shared database.
func newTestTx(t *testing.T) pgx.Tx {
	t.Helper()
	pool := testutil.NewPool(t)

	tx, err := pool.Begin(context.Background())
	require.NoError(t, err, "begin transaction")

	t.Cleanup(func() {
		_ = tx.Rollback(context.Background())
	})
	return tx
}

// newTestRepos returns every repo bound to one rolled-back transaction.
func newTestRepos(t *testing.T) repo.Repos {
	t.Helper()
	return repo.NewRepos(newTestTx(t))
}

func mustCreateUser(t *testing.T, r repo.Repos, role domain.Role) domain.Actor {
	t.Helper()
	email := uuid.NewString() + "@example.test"
	a, err := r.Users.UpsertByEmail(context.Background(), email, "Test User", role)
	require.NoError(t, err)
	return a
}

func guideFixture(userID uuid.UUID) domain.GuideProfile {
	return domain.GuideProfile{
		UserID:       userID,
		DisplayName:  "Ana",
		City:         "Lisbon",
		Bio:          "Queer history walks through Bairro Alto.",
		Languages:    []string{"en", "pt"},
		BaseRateHour: 50,
		Currency:     "USD",
		Timezone:     "Europe/Lisbon",
	}
}

func mustCreateGuide(t *testing.T, r repo.Repos) domain.GuideProfile {
	t.Helper()
	u := mustCreateUser(t, r, domain.RoleGuide)
	g, err := r.Guides.Create(context.Background(), guideFixture(u.UserID))
	require.NoError(t, err)
	return g
}

func mustCreateSlot(t *testing.T, r repo.Repos, guideID uuid.UUID, start time.Time, hours int) domain.Slot {
	t.Helper()
	s, err := r.Slots.Create(context.Background(), domain.Slot{
		GuideID:       guideID,
		StartTime:     start,
		DurationHours: hours,
	})
	require.NoError(t, err)
	return s
}

// day returns midnight UTC n days from a fixed base date.
func day(n int) time.Time {
	return time.Date(2031, 6, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}
