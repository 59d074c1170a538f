package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rainbowtourguides/backend/internal/cache"
	"github.com/rainbowtourguides/backend/internal/domain"
	"github.com/rainbowtourguides/backend/internal/pricing"
	"github.com/rainbowtourguides/backend/internal/repo"
)

// MaxSessionsPerReservation caps how many slots one reservation may hold.
const MaxSessionsPerReservation = 10

// Fees are the marketplace percentages applied to a reservation subtotal.
type Fees struct {
	TravelerPct float64
	GuidePct    float64
}

// CreateReservation is a traveler's request to hold one or more slots.
type CreateReservation struct {
	GuideID   uuid.UUID
	SlotIDs   []uuid.UUID
	Travelers int
}

// ReservationService implements the booking flow. Every state change moves the
// reservation and its slots together inside one transaction.
type ReservationService struct {
	tx           repo.Transactor
	reservations repo.ReservationRepo
	guides       repo.GuideRepo
	cache        *cache.Cache
	fees         Fees
	log          *slog.Logger
	now          func() time.Time
}

// NewReservationService constructs a ReservationService. A nil logger discards log output.
func NewReservationService(tx repo.Transactor, reservations repo.ReservationRepo, guides repo.GuideRepo,
	c *cache.Cache, fees Fees, logger *slog.Logger) *ReservationService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ReservationService{
		tx:           tx,
		reservations: reservations,
		guides:       guides,
		cache:        c,
		fees:         fees,
		log:          logger,
		now:          time.Now,
	}
}

// WithClock replaces the clock used for start-time checks and hold expiry.
func (s *ReservationService) WithClock(now func() time.Time) *ReservationService {
	s.now = now
	return s
}

// Create holds every requested slot (open -> pending) and records the quoted
// price of each. Either all slots are claimed or none are.
func (s *ReservationService) Create(ctx context.Context, actor domain.Actor, req CreateReservation) (domain.Reservation, error) {
	if err := validateReservationRequest(req); err != nil {
		return domain.Reservation{}, fmt.Errorf("service.ReservationService.Create: %w", err)
	}

	var created domain.Reservation
	err := s.tx.InTx(ctx, func(r repo.Repos) error {
		guide, err := r.Guides.GetByID(ctx, req.GuideID)
		if err != nil {
			return err
		}
		if guide.UserID == actor.UserID {
			return fmt.Errorf("%w: guides cannot book their own slots", domain.ErrValidation)
		}

		slots, err := r.Slots.LockMany(ctx, req.SlotIDs)
		if err != nil {
			return err
		}
		if len(slots) != len(req.SlotIDs) {
			return fmt.Errorf("%w: one or more slots do not exist", domain.ErrNotFound)
		}

		res := domain.Reservation{
			TravelerID:     actor.UserID,
			GuideID:        guide.ID,
			Travelers:      req.Travelers,
			TravelerFeePct: s.fees.TravelerPct,
			GuideFeePct:    s.fees.GuidePct,
			Currency:       guide.Currency,
			Status:         domain.ReservationPending,
		}
		for _, slot := range slots {
			session, err := s.price(guide, slot, req.Travelers)
			if err != nil {
				return err
			}
			res.Sessions = append(res.Sessions, session)
			res.Subtotal += session.Total
		}
		res.ServiceFee = pricing.Fee(res.Subtotal, s.fees.TravelerPct)
		res.Total = res.Subtotal + res.ServiceFee

		if _, err := r.Slots.Transition(ctx, req.SlotIDs, domain.SlotPending); err != nil {
			return err
		}
		created, err = r.Reservations.Create(ctx, res)
		return err
	})
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("service.ReservationService.Create: %w", err)
	}
	invalidateAvailability(ctx, s.cache, s.log, created.GuideID)
	return created, nil
}

// Get returns a reservation visible to one of its participants or an admin.
func (s *ReservationService) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Reservation, error) {
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("service.ReservationService.Get: %w", err)
	}
	guide, err := s.guides.GetByID(ctx, res.GuideID)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("service.ReservationService.Get: %w", err)
	}
	if !actor.IsAdmin() && actor.UserID != res.TravelerID && actor.UserID != guide.UserID {
		return domain.Reservation{}, fmt.Errorf("service.ReservationService.Get: %w: not a participant", domain.ErrForbidden)
	}
	return res, nil
}

// Accept confirms a pending reservation; its slots become booked.
func (s *ReservationService) Accept(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Reservation, error) {
	res, err := s.move(ctx, actor, id, guideOnly, domain.ReservationPending, domain.ReservationAccepted, domain.SlotBooked)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("service.ReservationService.Accept: %w", err)
	}
	return res, nil
}

// Cancel withdraws a pending reservation; its slots reopen.
// Accepted reservations cannot be cancelled here.
func (s *ReservationService) Cancel(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Reservation, error) {
	res, err := s.move(ctx, actor, id, anyParticipant, domain.ReservationPending, domain.ReservationCancelled, domain.SlotOpen)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("service.ReservationService.Cancel: %w", err)
	}
	return res, nil
}

// Complete marks an accepted reservation as delivered; its slots close.
func (s *ReservationService) Complete(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Reservation, error) {
	res, err := s.move(ctx, actor, id, guideOnly, domain.ReservationAccepted, domain.ReservationCompleted, domain.SlotClosed)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("service.ReservationService.Complete: %w", err)
	}
	return res, nil
}

// ExpireStale cancels every reservation still pending after ttl and reopens
// its slots. Reservations that change state concurrently are skipped.
// It returns how many reservations were expired.
func (s *ReservationService) ExpireStale(ctx context.Context, ttl time.Duration) (int, error) {
	ids, err := s.reservations.ListPendingBefore(ctx, s.now().Add(-ttl))
	if err != nil {
		return 0, fmt.Errorf("service.ReservationService.ExpireStale: %w", err)
	}

	expired := 0
	system := domain.Actor{Role: domain.RoleAdmin}
	for _, id := range ids {
		_, err := s.move(ctx, system, id, anyParticipant, domain.ReservationPending, domain.ReservationCancelled, domain.SlotOpen)
		switch {
		case err == nil:
			expired++
		case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrNotFound):
			s.log.InfoContext(ctx, "hold already resolved", "reservation_id", id, "error", err)
		default:
			return expired, fmt.Errorf("service.ReservationService.ExpireStale: %w", err)
		}
	}
	return expired, nil
}

type participants int

const (
	guideOnly participants = iota
	anyParticipant
)

// move runs one reservation status change and the matching slot transition
// atomically, then drops the guide's cached calendar.
func (s *ReservationService) move(ctx context.Context, actor domain.Actor, id uuid.UUID, who participants,
	from, to domain.ReservationStatus, slotsTo domain.SlotStatus) (domain.Reservation, error) {
	var updated domain.Reservation
	err := s.tx.InTx(ctx, func(r repo.Repos) error {
		res, err := r.Reservations.GetByID(ctx, id)
		if err != nil {
			return err
		}
		guide, err := r.Guides.GetByID(ctx, res.GuideID)
		if err != nil {
			return err
		}
		allowed := actor.IsAdmin() || actor.UserID == guide.UserID ||
			(who == anyParticipant && actor.UserID == res.TravelerID)
		if !allowed {
			return fmt.Errorf("%w: not allowed to move this reservation to %s", domain.ErrForbidden, to)
		}

		if updated, err = r.Reservations.UpdateStatus(ctx, id, from, to); err != nil {
			return err
		}
		_, err = r.Slots.Transition(ctx, updated.SlotIDs(), slotsTo)
		return err
	})
	if err != nil {
		return domain.Reservation{}, err
	}
	invalidateAvailability(ctx, s.cache, s.log, updated.GuideID)
	return updated, nil
}

// price quotes one held slot. The slot must be open, belong to the guide and
// not have started yet.
func (s *ReservationService) price(guide domain.GuideProfile, slot domain.Slot, travelers int) (domain.ReservationSession, error) {
	if slot.GuideID != guide.ID {
		return domain.ReservationSession{}, fmt.Errorf("%w: slot %s belongs to another guide", domain.ErrConflict, slot.ID)
	}
	if slot.Status != domain.SlotOpen {
		return domain.ReservationSession{}, fmt.Errorf("%w: slot %s is %s", domain.ErrConflict, slot.ID, slot.Status)
	}
	if !slot.StartTime.After(s.now()) {
		return domain.ReservationSession{}, fmt.Errorf("%w: slot %s has already started", domain.ErrConflict, slot.ID)
	}
	d, err := pricing.ParseDuration(slot.DurationHours)
	if err != nil {
		return domain.ReservationSession{}, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	b, err := pricing.CalculateGroupPrice(guide.BaseRateHour, d, travelers, guide.Currency)
	if err != nil {
		return domain.ReservationSession{}, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	return domain.ReservationSession{
		SlotID:        slot.ID,
		StartTime:     slot.StartTime,
		DurationHours: slot.DurationHours,
		Subtotal:      b.Subtotal,
		Discount:      b.Discount,
		Total:         b.Total,
	}, nil
}

func validateReservationRequest(req CreateReservation) error {
	if req.Travelers < 1 {
		return fmt.Errorf("%w: %w", domain.ErrValidation, pricing.ErrInvalidTravelers)
	}
	if len(req.SlotIDs) == 0 {
		return fmt.Errorf("%w: at least one slot is required", domain.ErrValidation)
	}
	if len(req.SlotIDs) > MaxSessionsPerReservation {
		return fmt.Errorf("%w: at most %d slots per reservation", domain.ErrValidation, MaxSessionsPerReservation)
	}
	seen := make(map[uuid.UUID]bool, len(req.SlotIDs))
	for _, id := range req.SlotIDs {
		if seen[id] {
			return fmt.Errorf("%w: slot %s listed twice", domain.ErrValidation, id)
		}
		seen[id] = true
	}
	return nil
}
