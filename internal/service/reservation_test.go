package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rainbowtourguides/backend/internal/cache"
	"github.com/rainbowtourguides/backend/internal/domain"
	"github.com/rainbowtourguides/backend/internal/repo"
	"github.com/rainbowtourguides/backend/internal/service"
)

// bookingWorld is an in-memory stand-in for the slot and reservation tables
// that applies the same compare-and-set rules as the Postgres repos.
type bookingWorld struct {
	guide        domain.GuideProfile
	slots        map[uuid.UUID]domain.Slot
	reservations map[uuid.UUID]domain.Reservation
}

func newBookingWorld(slots ...domain.Slot) *bookingWorld {
	w := &bookingWorld{
		guide:        guideFixture(),
		slots:        map[uuid.UUID]domain.Slot{},
		reservations: map[uuid.UUID]domain.Reservation{},
	}
	for _, s := range slots {
		w.slots[s.ID] = s
	}
	return w
}

func (w *bookingWorld) repos() repo.Repos {
	return repo.Repos{
		Guides:       guideRepoFor(w.guide),
		Slots:        w.slotRepo(),
		Reservations: w.reservationRepo(),
	}
}

func (w *bookingWorld) slotRepo() *mockSlotRepo {
	return &mockSlotRepo{
		lockMany: func(_ context.Context, ids []uuid.UUID) ([]domain.Slot, error) {
			out := []domain.Slot{}
			for _, id := range ids {
				if s, ok := w.slots[id]; ok {
					out = append(out, s)
				}
			}
			return out, nil
		},
		transition: func(_ context.Context, ids []uuid.UUID, to domain.SlotStatus) ([]domain.Slot, error) {
			for _, id := range ids {
				s, ok := w.slots[id]
				if !ok || !domain.CanTransition(s.Status, to) {
					return nil, domain.ErrConflict
				}
			}
			out := make([]domain.Slot, 0, len(ids))
			for _, id := range ids {
				s := w.slots[id]
				s.Status = to
				w.slots[id] = s
				out = append(out, s)
			}
			return out, nil
		},
	}
}

func (w *bookingWorld) reservationRepo() *mockReservationRepo {
	return &mockReservationRepo{
		create: func(_ context.Context, res domain.Reservation) (domain.Reservation, error) {
			res.ID = uuid.New()
			res.CreatedAt = fixedNow
			w.reservations[res.ID] = res
			return res, nil
		},
		getByID: func(_ context.Context, id uuid.UUID) (domain.Reservation, error) {
			res, ok := w.reservations[id]
			if !ok {
				return domain.Reservation{}, domain.ErrNotFound
			}
			return res, nil
		},
		updateStatus: func(_ context.Context, id uuid.UUID, from, to domain.ReservationStatus) (domain.Reservation, error) {
			res, ok := w.reservations[id]
			if !ok {
				return domain.Reservation{}, domain.ErrNotFound
			}
			if res.Status != from {
				return domain.Reservation{}, domain.ErrConflict
			}
			res.Status = to
			w.reservations[id] = res
			return res, nil
		},
		listPendingBefore: func(_ context.Context, cutoff time.Time) ([]uuid.UUID, error) {
			ids := []uuid.UUID{}
			for id, res := range w.reservations {
				if res.Status == domain.ReservationPending && res.CreatedAt.Before(cutoff) {
					ids = append(ids, id)
				}
			}
			return ids, nil
		},
	}
}

func newReservationService(w *bookingWorld) (*service.ReservationService, *fakeTransactor) {
	tx := &fakeTransactor{repos: w.repos()}
	c := cache.New(cache.NewMemoryStore(), time.Minute, nil)
	svc := service.NewReservationService(tx, w.reservationRepo(), guideRepoFor(w.guide), c,
		service.Fees{TravelerPct: 10, GuidePct: 15}, nil).WithClock(clock)
	return svc, tx
}

func TestReservationService_Create_PricesAndHoldsSlots(t *testing.T) {
	g := guideFixture()
	six := openSlot(g.ID, fixedNow.Add(24*time.Hour), 6)
	eight := openSlot(g.ID, fixedNow.Add(48*time.Hour), 8)
	w := newBookingWorld(six, eight)
	svc, _ := newReservationService(w)

	got, err := svc.Create(context.Background(), travelerUser, service.CreateReservation{
		GuideID: g.ID, SlotIDs: []uuid.UUID{six.ID, eight.ID}, Travelers: 2,
	})

	require.NoError(t, err)
	// 6h: 2 x 285 = 570; 8h: 2 x 360 = 720.
	assert.InDelta(t, 1290.0, got.Subtotal, 0.001)
	assert.InDelta(t, 129.0, got.ServiceFee, 0.001)
	assert.InDelta(t, 1419.0, got.Total, 0.001)
	assert.InDelta(t, 10.0, got.TravelerFeePct, 0.001)
	assert.InDelta(t, 15.0, got.GuideFeePct, 0.001)
	assert.Equal(t, domain.ReservationPending, got.Status)
	assert.Equal(t, travelerUser.UserID, got.TravelerID)
	require.Len(t, got.Sessions, 2)
	assert.InDelta(t, 30.0, got.Sessions[0].Discount, 0.001)

	assert.Equal(t, domain.SlotPending, w.slots[six.ID].Status)
	assert.Equal(t, domain.SlotPending, w.slots[eight.ID].Status)
}

func TestReservationService_Create_SecondClaimConflicts(t *testing.T) {
	g := guideFixture()
	s := openSlot(g.ID, fixedNow.Add(24*time.Hour), 4)
	w := newBookingWorld(s)
	svc, _ := newReservationService(w)
	req := service.CreateReservation{GuideID: g.ID, SlotIDs: []uuid.UUID{s.ID}, Travelers: 1}

	_, err := svc.Create(context.Background(), travelerUser, req)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), travelerUser, req)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Len(t, w.reservations, 1)
}

func TestReservationService_Create_Rejections(t *testing.T) {
	g := guideFixture()
	foreign := openSlot(uuid.New(), fixedNow.Add(24*time.Hour), 4)
	started := openSlot(g.ID, fixedNow.Add(-time.Hour), 4)
	closed := openSlot(g.ID, fixedNow.Add(24*time.Hour), 4)
	closed.Status = domain.SlotClosed
	ok := openSlot(g.ID, fixedNow.Add(72*time.Hour), 4)

	tests := []struct {
		name  string
		actor domain.Actor
		req   service.CreateReservation
		want  error
	}{
		{"no travelers", travelerUser, service.CreateReservation{GuideID: g.ID, SlotIDs: []uuid.UUID{ok.ID}}, domain.ErrValidation},
		{"no slots", travelerUser, service.CreateReservation{GuideID: g.ID, Travelers: 1}, domain.ErrValidation},
		{"duplicate slot", travelerUser, service.CreateReservation{GuideID: g.ID, SlotIDs: []uuid.UUID{ok.ID, ok.ID}, Travelers: 1}, domain.ErrValidation},
		{"own slots", guideUser, service.CreateReservation{GuideID: g.ID, SlotIDs: []uuid.UUID{ok.ID}, Travelers: 1}, domain.ErrValidation},
		{"unknown guide", travelerUser, service.CreateReservation{GuideID: uuid.New(), SlotIDs: []uuid.UUID{ok.ID}, Travelers: 1}, domain.ErrNotFound},
		{"unknown slot", travelerUser, service.CreateReservation{GuideID: g.ID, SlotIDs: []uuid.UUID{uuid.New()}, Travelers: 1}, domain.ErrNotFound},
		{"other guide's slot", travelerUser, service.CreateReservation{GuideID: g.ID, SlotIDs: []uuid.UUID{ok.ID, foreign.ID}, Travelers: 1}, domain.ErrConflict},
		{"closed slot", travelerUser, service.CreateReservation{GuideID: g.ID, SlotIDs: []uuid.UUID{closed.ID}, Travelers: 1}, domain.ErrConflict},
		{"started slot", travelerUser, service.CreateReservation{GuideID: g.ID, SlotIDs: []uuid.UUID{started.ID}, Travelers: 1}, domain.ErrConflict},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := newBookingWorld(foreign, started, closed, ok)
			svc, _ := newReservationService(w)

			_, err := svc.Create(context.Background(), tc.actor, tc.req)

			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, domain.SlotOpen, w.slots[ok.ID].Status, "no slot may be held after a rejection")
		})
	}
}

func bookedWorld(t *testing.T) (*bookingWorld, *service.ReservationService, domain.Reservation) {
	t.Helper()
	g := guideFixture()
	s := openSlot(g.ID, fixedNow.Add(24*time.Hour), 4)
	w := newBookingWorld(s)
	svc, _ := newReservationService(w)
	res, err := svc.Create(context.Background(), travelerUser, service.CreateReservation{
		GuideID: g.ID, SlotIDs: []uuid.UUID{s.ID}, Travelers: 1,
	})
	require.NoError(t, err)
	return w, svc, res
}

func TestReservationService_Accept_BooksSlots(t *testing.T) {
	w, svc, res := bookedWorld(t)

	got, err := svc.Accept(context.Background(), guideUser, res.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.ReservationAccepted, got.Status)
	assert.Equal(t, domain.SlotBooked, w.slots[res.Sessions[0].SlotID].Status)
}

func TestReservationService_Accept_TravelerForbidden(t *testing.T) {
	_, svc, res := bookedWorld(t)

	_, err := svc.Accept(context.Background(), travelerUser, res.ID)

	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestReservationService_Cancel_ReopensSlots(t *testing.T) {
	w, svc, res := bookedWorld(t)

	got, err := svc.Cancel(context.Background(), travelerUser, res.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.ReservationCancelled, got.Status)
	assert.Equal(t, domain.SlotOpen, w.slots[res.Sessions[0].SlotID].Status)
}

func TestReservationService_Cancel_OnlyWhilePending(t *testing.T) {
	w, svc, res := bookedWorld(t)
	_, err := svc.Accept(context.Background(), guideUser, res.ID)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), travelerUser, res.ID)

	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, domain.SlotBooked, w.slots[res.Sessions[0].SlotID].Status)
}

func TestReservationService_Cancel_StrangerForbidden(t *testing.T) {
	_, svc, res := bookedWorld(t)
	stranger := domain.Actor{UserID: uuid.New(), Role: domain.RoleTraveler}

	_, err := svc.Cancel(context.Background(), stranger, res.ID)

	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestReservationService_Complete_ClosesSlots(t *testing.T) {
	w, svc, res := bookedWorld(t)
	ctx := context.Background()

	_, err := svc.Complete(ctx, guideUser, res.ID)
	assert.ErrorIs(t, err, domain.ErrConflict, "pending reservations cannot complete")

	_, err = svc.Accept(ctx, guideUser, res.ID)
	require.NoError(t, err)
	got, err := svc.Complete(ctx, guideUser, res.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.ReservationCompleted, got.Status)
	assert.Equal(t, domain.SlotClosed, w.slots[res.Sessions[0].SlotID].Status)
}

func TestReservationService_Get_Visibility(t *testing.T) {
	_, svc, res := bookedWorld(t)
	ctx := context.Background()

	for _, a := range []domain.Actor{travelerUser, guideUser, adminUser} {
		_, err := svc.Get(ctx, a, res.ID)
		assert.NoError(t, err, a.Role)
	}
	_, err := svc.Get(ctx, otherGuide, res.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestReservationService_ExpireStale(t *testing.T) {
	w, svc, res := bookedWorld(t)
	svc.WithClock(func() time.Time { return fixedNow.Add(31 * time.Minute) })

	n, err := svc.ExpireStale(context.Background(), 30*time.Minute)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, domain.ReservationCancelled, w.reservations[res.ID].Status)
	assert.Equal(t, domain.SlotOpen, w.slots[res.Sessions[0].SlotID].Status)
}

func TestReservationService_ExpireStale_KeepsFreshHolds(t *testing.T) {
	w, svc, res := bookedWorld(t)
	svc.WithClock(func() time.Time { return fixedNow.Add(10 * time.Minute) })

	n, err := svc.ExpireStale(context.Background(), 30*time.Minute)

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, domain.ReservationPending, w.reservations[res.ID].Status)
}

func TestReservationService_ExpireStale_RepoError(t *testing.T) {
	w := newBookingWorld()
	tx := &fakeTransactor{repos: w.repos()}
	boom := errors.New("db down")
	svc := service.NewReservationService(tx, &mockReservationRepo{
		listPendingBefore: func(context.Context, time.Time) ([]uuid.UUID, error) { return nil, boom },
	}, guideRepoFor(w.guide), cache.New(cache.NewMemoryStore(), time.Minute, nil), service.Fees{}, nil)

	_, err := svc.ExpireStale(context.Background(), time.Minute)

	assert.ErrorIs(t, err, boom)
}
