package service_test

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rainbowtourguides/backend/internal/domain"
	"github.com/rainbowtourguides/backend/internal/repo"
)

// Hand-written test doubles. Each method is a function field; set only the
// ones a test needs.

type mockUserRepo struct {
	upsertByEmail func(ctx context.Context, email, name string, role domain.Role) (domain.Actor, error)
}

func (m *mockUserRepo) UpsertByEmail(ctx context.Context, email, name string, role domain.Role) (domain.Actor, error) {
	return m.upsertByEmail(ctx, email, name, role)
}

type mockGuideRepo struct {
	create      func(ctx context.Context, g domain.GuideProfile) (domain.GuideProfile, error)
	getByID     func(ctx context.Context, id uuid.UUID) (domain.GuideProfile, error)
	getByUserID func(ctx context.Context, userID uuid.UUID) (domain.GuideProfile, error)
	listPaged   func(ctx context.Context, f domain.GuideFilter, p domain.PaginationParams) ([]domain.GuideProfile, int64, error)
	update      func(ctx context.Context, g domain.GuideProfile) (domain.GuideProfile, error)
}

func (m *mockGuideRepo) Create(ctx context.Context, g domain.GuideProfile) (domain.GuideProfile, error) {
	return m.create(ctx, g)
}
func (m *mockGuideRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.GuideProfile, error) {
	return m.getByID(ctx, id)
}
func (m *mockGuideRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (domain.GuideProfile, error) {
	return m.getByUserID(ctx, userID)
}
func (m *mockGuideRepo) ListPaged(ctx context.Context, f domain.GuideFilter, p domain.PaginationParams) ([]domain.GuideProfile, int64, error) {
	return m.listPaged(ctx, f, p)
}
func (m *mockGuideRepo) Update(ctx context.Context, g domain.GuideProfile) (domain.GuideProfile, error) {
	return m.update(ctx, g)
}

type mockThemeRepo struct {
	upsert      func(ctx context.Context, name, slug string) (domain.Theme, error)
	listPaged   func(ctx context.Context, prefix string, p domain.PaginationParams) ([]domain.Theme, int64, error)
	setForGuide func(ctx context.Context, guideID uuid.UUID, themeIDs []uuid.UUID) error
}

func (m *mockThemeRepo) Upsert(ctx context.Context, name, slug string) (domain.Theme, error) {
	return m.upsert(ctx, name, slug)
}
func (m *mockThemeRepo) ListPaged(ctx context.Context, prefix string, p domain.PaginationParams) ([]domain.Theme, int64, error) {
	return m.listPaged(ctx, prefix, p)
}
func (m *mockThemeRepo) SetForGuide(ctx context.Context, guideID uuid.UUID, themeIDs []uuid.UUID) error {
	return m.setForGuide(ctx, guideID, themeIDs)
}

type mockSlotRepo struct {
	create     func(ctx context.Context, s domain.Slot) (domain.Slot, error)
	getByID    func(ctx context.Context, id uuid.UUID) (domain.Slot, error)
	lockMany   func(ctx context.Context, ids []uuid.UUID) ([]domain.Slot, error)
	list       func(ctx context.Context, f domain.SlotFilter) ([]domain.Slot, error)
	hasOverlap func(ctx context.Context, guideID uuid.UUID, start, end time.Time) (bool, error)
	deleteOpen func(ctx context.Context, id uuid.UUID) error
	transition func(ctx context.Context, ids []uuid.UUID, to domain.SlotStatus) ([]domain.Slot, error)
}

func (m *mockSlotRepo) Create(ctx context.Context, s domain.Slot) (domain.Slot, error) {
	return m.create(ctx, s)
}
func (m *mockSlotRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Slot, error) {
	return m.getByID(ctx, id)
}
func (m *mockSlotRepo) LockMany(ctx context.Context, ids []uuid.UUID) ([]domain.Slot, error) {
	return m.lockMany(ctx, ids)
}
func (m *mockSlotRepo) List(ctx context.Context, f domain.SlotFilter) ([]domain.Slot, error) {
	return m.list(ctx, f)
}
func (m *mockSlotRepo) HasOverlap(ctx context.Context, guideID uuid.UUID, start, end time.Time) (bool, error) {
	return m.hasOverlap(ctx, guideID, start, end)
}
func (m *mockSlotRepo) DeleteOpen(ctx context.Context, id uuid.UUID) error {
	return m.deleteOpen(ctx, id)
}
func (m *mockSlotRepo) Transition(ctx context.Context, ids []uuid.UUID, to domain.SlotStatus) ([]domain.Slot, error) {
	return m.transition(ctx, ids, to)
}

type mockReservationRepo struct {
	create            func(ctx context.Context, res domain.Reservation) (domain.Reservation, error)
	getByID           func(ctx context.Context, id uuid.UUID) (domain.Reservation, error)
	updateStatus      func(ctx context.Context, id uuid.UUID, from, to domain.ReservationStatus) (domain.Reservation, error)
	listPendingBefore func(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
}

func (m *mockReservationRepo) Create(ctx context.Context, res domain.Reservation) (domain.Reservation, error) {
	return m.create(ctx, res)
}
func (m *mockReservationRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	return m.getByID(ctx, id)
}
func (m *mockReservationRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.ReservationStatus) (domain.Reservation, error) {
	return m.updateStatus(ctx, id, from, to)
}
func (m *mockReservationRepo) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	return m.listPendingBefore(ctx, cutoff)
}

// fakeTransactor runs fn against fixed repos and records whether the
// transaction would have committed.
type fakeTransactor struct {
	repos     repo.Repos
	commits   int
	rollbacks int
}

func (f *fakeTransactor) InTx(_ context.Context, fn func(repo.Repos) error) error {
	if err := fn(f.repos); err != nil {
		f.rollbacks++
		return err
	}
	f.commits++
	return nil
}

// compile-time checks
var (
	_ repo.UserRepo        = (*mockUserRepo)(nil)
	_ repo.GuideRepo       = (*mockGuideRepo)(nil)
	_ repo.ThemeRepo       = (*mockThemeRepo)(nil)
	_ repo.SlotRepo        = (*mockSlotRepo)(nil)
	_ repo.ReservationRepo = (*mockReservationRepo)(nil)
	_ repo.Transactor      = (*fakeTransactor)(nil)
)

// ---- shared fixtures -------------------------------------------------------

var (
	guideUser    = domain.Actor{UserID: uuid.MustParse("00000000-0000-0000-0000-0000000000a1"), Role: domain.RoleGuide}
	otherGuide   = domain.Actor{UserID: uuid.MustParse("00000000-0000-0000-0000-0000000000a2"), Role: domain.RoleGuide}
	travelerUser = domain.Actor{UserID: uuid.MustParse("00000000-0000-0000-0000-0000000000b1"), Role: domain.RoleTraveler}
	adminUser    = domain.Actor{UserID: uuid.MustParse("00000000-0000-0000-0000-0000000000c1"), Role: domain.RoleAdmin}
)

// fixedNow is the clock used by every service test.
var fixedNow = time.Date(2031, 5, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func guideFixture() domain.GuideProfile {
	return domain.GuideProfile{
		ID:           uuid.MustParse("00000000-0000-0000-0000-00000000beef"),
		UserID:       guideUser.UserID,
		DisplayName:  "Ana",
		City:         "Lisbon",
		Languages:    []string{"en", "pt"},
		BaseRateHour: 50,
		Currency:     "USD",
		Timezone:     "Europe/Lisbon",
	}
}

// guideRepoFor returns a GuideRepo that knows exactly one guide.
func guideRepoFor(g domain.GuideProfile) *mockGuideRepo {
	return &mockGuideRepo{
		getByID: func(_ context.Context, id uuid.UUID) (domain.GuideProfile, error) {
			if id != g.ID {
				return domain.GuideProfile{}, domain.ErrNotFound
			}
			return g, nil
		},
	}
}

func openSlot(guideID uuid.UUID, start time.Time, hours int) domain.Slot {
	return domain.Slot{
		ID:            uuid.New(),
		GuideID:       guideID,
		StartTime:     start,
		DurationHours: hours,
		Status:        domain.SlotOpen,
	}
}
