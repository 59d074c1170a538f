package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/rainbowtourguides/backend/internal/domain"
)

// ReservationRepo defines the persistence operations for reservations and
// their sessions.
type ReservationRepo interface {
	// Create inserts a reservation with all of its sessions.
	Create(ctx context.Context, res domain.Reservation) (domain.Reservation, error)

	// GetByID retrieves a reservation with its sessions in booking order.
	// Returns domain.ErrNotFound if absent.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Reservation, error)

	// UpdateStatus moves a reservation to `to` only if it is currently `from`.
	// Returns domain.ErrNotFound if absent and domain.ErrConflict if it is in
	// any other status.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.ReservationStatus) (domain.Reservation, error)

	// ListPendingBefore returns the IDs of pending reservations created before
	// cutoff, oldest first.
	ListPendingBefore(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
}

type pgReservationRepo struct {
	db db
}

// NewReservationRepo constructs a ReservationRepo backed by the provided db connection.
func NewReservationRepo(db db) ReservationRepo {
	return &pgReservationRepo{db: db}
}

const reservationColumns = `
	id, traveler_id, guide_id, travelers, subtotal, traveler_fee_pct, guide_fee_pct,
	service_fee, total, currency, status, created_at, updated_at`

func (r *pgReservationRepo) Create(ctx context.Context, res domain.Reservation) (domain.Reservation, error) {
	const q = `
		INSERT INTO reservations (traveler_id, guide_id, travelers, subtotal, traveler_fee_pct,
		                          guide_fee_pct, service_fee, total, currency, status)
		VALUES (@traveler_id, @guide_id, @travelers, @subtotal, @traveler_fee_pct,
		        @guide_fee_pct, @service_fee, @total, @currency, @status)
		RETURNING ` + reservationColumns

	status := res.Status
	if status == "" {
		status = domain.ReservationPending
	}
	created, err := scanReservation(r.db.QueryRow(ctx, q, pgx.NamedArgs{
		"traveler_id":      res.TravelerID,
		"guide_id":         res.GuideID,
		"travelers":        res.Travelers,
		"subtotal":         res.Subtotal,
		"traveler_fee_pct": res.TravelerFeePct,
		"guide_fee_pct":    res.GuideFeePct,
		"service_fee":      res.ServiceFee,
		"total":            res.Total,
		"currency":         res.Currency,
		"status":           string(status),
	}))
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("repo.ReservationRepo.Create: %w", err)
	}

	const qs = `
		INSERT INTO reservation_sessions (reservation_id, slot_id, position, start_time,
		                                  duration_hours, subtotal, discount, total)
		VALUES (@reservation_id, @slot_id, @position, @start_time,
		        @duration_hours, @subtotal, @discount, @total)`

	for i, s := range res.Sessions {
		_, err := r.db.Exec(ctx, qs, pgx.NamedArgs{
			"reservation_id": created.ID,
			"slot_id":        s.SlotID,
			"position":       i,
			"start_time":     s.StartTime,
			"duration_hours": s.DurationHours,
			"subtotal":       s.Subtotal,
			"discount":       s.Discount,
			"total":          s.Total,
		})
		if err != nil {
			return domain.Reservation{}, fmt.Errorf("repo.ReservationRepo.Create: session %d: %w", i, err)
		}
	}
	created.Sessions = append([]domain.ReservationSession{}, res.Sessions...)
	return created, nil
}

func (r *pgReservationRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = @id`

	res, err := scanReservation(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("repo.ReservationRepo.GetByID: %w", notFound(err, domain.ErrNotFound))
	}
	if res.Sessions, err = r.sessions(ctx, id); err != nil {
		return domain.Reservation{}, fmt.Errorf("repo.ReservationRepo.GetByID: %w", err)
	}
	return res, nil
}

func (r *pgReservationRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.ReservationStatus) (domain.Reservation, error) {
	const q = `
		UPDATE reservations
		SET status = @to, updated_at = now()
		WHERE id = @id AND status = @from
		RETURNING ` + reservationColumns

	res, err := scanReservation(r.db.QueryRow(ctx, q, pgx.NamedArgs{
		"id":   id,
		"from": string(from),
		"to":   string(to),
	}))
	if err == nil {
		if res.Sessions, err = r.sessions(ctx, id); err != nil {
			return domain.Reservation{}, fmt.Errorf("repo.ReservationRepo.UpdateStatus: %w", err)
		}
		return res, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Reservation{}, fmt.Errorf("repo.ReservationRepo.UpdateStatus: %w", err)
	}

	// No row updated: tell a missing reservation apart from a status mismatch.
	var current string
	err = r.db.QueryRow(ctx, `SELECT status FROM reservations WHERE id = @id`, pgx.NamedArgs{"id": id}).Scan(&current)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("repo.ReservationRepo.UpdateStatus: %w", notFound(err, domain.ErrNotFound))
	}
	return domain.Reservation{}, fmt.Errorf("repo.ReservationRepo.UpdateStatus: %w: reservation is %s, not %s",
		domain.ErrConflict, current, from)
}

func (r *pgReservationRepo) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	const q = `
		SELECT id FROM reservations
		WHERE status = 'pending' AND created_at < @cutoff
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"cutoff": cutoff})
	if err != nil {
		return nil, fmt.Errorf("repo.ReservationRepo.ListPendingBefore: %w", err)
	}
	ids, err := collect(rows, func(s scanner) (uuid.UUID, error) {
		var id pgtype.UUID
		err := s.Scan(&id)
		return fromPgUUID(id), err
	})
	if err != nil {
		return nil, fmt.Errorf("repo.ReservationRepo.ListPendingBefore: %w", err)
	}
	return ids, nil
}

func (r *pgReservationRepo) sessions(ctx context.Context, reservationID uuid.UUID) ([]domain.ReservationSession, error) {
	const q = `
		SELECT slot_id, start_time, duration_hours, subtotal, discount, total
		FROM reservation_sessions
		WHERE reservation_id = @reservation_id
		ORDER BY position`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"reservation_id": reservationID})
	if err != nil {
		return nil, fmt.Errorf("sessions: %w", err)
	}
	return collect(rows, func(s scanner) (domain.ReservationSession, error) {
		var (
			rs     domain.ReservationSession
			slotID pgtype.UUID
		)
		err := s.Scan(&slotID, &rs.StartTime, &rs.DurationHours, &rs.Subtotal, &rs.Discount, &rs.Total)
		rs.SlotID = fromPgUUID(slotID)
		return rs, err
	})
}

func scanReservation(s scanner) (domain.Reservation, error) {
	var (
		res        domain.Reservation
		id         pgtype.UUID
		travelerID pgtype.UUID
		guideID    pgtype.UUID
		status     string
	)
	err := s.Scan(&id, &travelerID, &guideID, &res.Travelers, &res.Subtotal, &res.TravelerFeePct,
		&res.GuideFeePct, &res.ServiceFee, &res.Total, &res.Currency, &status, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return domain.Reservation{}, err
	}
	res.ID = fromPgUUID(id)
	res.TravelerID = fromPgUUID(travelerID)
	res.GuideID = fromPgUUID(guideID)
	res.Status = domain.ReservationStatus(status)
	return res, nil
}
