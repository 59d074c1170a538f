package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/rainbowtourguides/backend/internal/domain"
)

// SlotRepo defines the persistence operations for guide availability slots.
type SlotRepo interface {
	// Create inserts a new open slot and returns the persisted record.
	// Returns domain.ErrConflict if it overlaps a slot of the same guide that
	// is not closed.
	Create(ctx context.Context, s domain.Slot) (domain.Slot, error)

	// GetByID retrieves a slot. Returns domain.ErrNotFound if absent.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Slot, error)

	// LockMany retrieves the given slots with a row lock held until the
	// surrounding transaction ends. Missing IDs are simply absent from the result.
	LockMany(ctx context.Context, ids []uuid.UUID) ([]domain.Slot, error)

	// List returns the slots matching f ordered by start time.
	List(ctx context.Context, f domain.SlotFilter) ([]domain.Slot, error)

	// HasOverlap reports whether the guide has a slot that is not closed and
	// intersects [start, end).
	HasOverlap(ctx context.Context, guideID uuid.UUID, start, end time.Time) (bool, error)

	// DeleteOpen removes a slot only while it is open.
	// Returns domain.ErrNotFound if the slot does not exist and
	// domain.ErrConflict if it exists in any other status.
	DeleteOpen(ctx context.Context, id uuid.UUID) error

	// Transition moves every slot in ids to status `to`, provided each is
	// currently in a status allowed to move there. Returns domain.ErrConflict
	// when any slot is missing or not eligible; the slots that did move stay
	// moved, so callers run this inside a transaction and roll back on error.
	Transition(ctx context.Context, ids []uuid.UUID, to domain.SlotStatus) ([]domain.Slot, error)
}

type pgSlotRepo struct {
	db db
}

// NewSlotRepo constructs a SlotRepo backed by the provided db connection.
func NewSlotRepo(db db) SlotRepo {
	return &pgSlotRepo{db: db}
}

const slotColumns = `id, guide_id, start_time, duration_hours, status, created_at, updated_at`

func (r *pgSlotRepo) Create(ctx context.Context, s domain.Slot) (domain.Slot, error) {
	const q = `
		INSERT INTO slots (guide_id, start_time, end_time, duration_hours, status)
		VALUES (@guide_id, @start_time::timestamptz,
		        @start_time::timestamptz + make_interval(hours => @duration_hours::int),
		        @duration_hours::int, @status)
		RETURNING ` + slotColumns

	status := s.Status
	if status == "" {
		status = domain.SlotOpen
	}
	created, err := scanSlot(r.db.QueryRow(ctx, q, pgx.NamedArgs{
		"guide_id":       s.GuideID,
		"start_time":     s.StartTime,
		"duration_hours": s.DurationHours,
		"status":         string(status),
	}))
	if isViolation(err, exclusionViolation) {
		return domain.Slot{}, fmt.Errorf("repo.SlotRepo.Create: %w: slot overlaps another slot of this guide", domain.ErrConflict)
	}
	if err != nil {
		return domain.Slot{}, fmt.Errorf("repo.SlotRepo.Create: %w", err)
	}
	return created, nil
}

func (r *pgSlotRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Slot, error) {
	const q = `SELECT ` + slotColumns + ` FROM slots WHERE id = @id`

	s, err := scanSlot(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Slot{}, fmt.Errorf("repo.SlotRepo.GetByID: %w", notFound(err, domain.ErrNotFound))
	}
	return s, nil
}

func (r *pgSlotRepo) LockMany(ctx context.Context, ids []uuid.UUID) ([]domain.Slot, error) {
	const q = `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE id = ANY(@ids::uuid[])
		ORDER BY start_time
		FOR UPDATE`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"ids": uuidStrings(ids)})
	if err != nil {
		return nil, fmt.Errorf("repo.SlotRepo.LockMany: %w", err)
	}
	slots, err := collect(rows, scanSlot)
	if err != nil {
		return nil, fmt.Errorf("repo.SlotRepo.LockMany: %w", err)
	}
	return slots, nil
}

func (r *pgSlotRepo) List(ctx context.Context, f domain.SlotFilter) ([]domain.Slot, error) {
	const q = `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE guide_id = @guide_id
		  AND start_time >= @from
		  AND start_time < @to
		  AND (@status = '' OR status = @status)
		ORDER BY start_time, id`

	status := ""
	if f.Status != nil {
		status = string(*f.Status)
	}
	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{
		"guide_id": f.GuideID,
		"from":     f.From,
		"to":       f.To,
		"status":   status,
	})
	if err != nil {
		return nil, fmt.Errorf("repo.SlotRepo.List: %w", err)
	}
	slots, err := collect(rows, scanSlot)
	if err != nil {
		return nil, fmt.Errorf("repo.SlotRepo.List: %w", err)
	}
	return slots, nil
}

func (r *pgSlotRepo) HasOverlap(ctx context.Context, guideID uuid.UUID, start, end time.Time) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM slots
			WHERE guide_id = @guide_id
			  AND status <> 'closed'
			  AND start_time < @end
			  AND end_time > @start
		)`

	var exists bool
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"guide_id": guideID, "start": start, "end": end}).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("repo.SlotRepo.HasOverlap: %w", err)
	}
	return exists, nil
}

func (r *pgSlotRepo) DeleteOpen(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM slots WHERE id = @id AND status = 'open'`, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.SlotRepo.DeleteOpen: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Nothing deleted: tell a missing slot apart from one that is no longer open.
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM slots WHERE id = @id)`,
		pgx.NamedArgs{"id": id}).Scan(&exists); err != nil {
		return fmt.Errorf("repo.SlotRepo.DeleteOpen: %w", err)
	}
	if !exists {
		return fmt.Errorf("repo.SlotRepo.DeleteOpen: %w", domain.ErrNotFound)
	}
	return fmt.Errorf("repo.SlotRepo.DeleteOpen: %w: slot is not open", domain.ErrConflict)
}

func (r *pgSlotRepo) Transition(ctx context.Context, ids []uuid.UUID, to domain.SlotStatus) ([]domain.Slot, error) {
	const q = `
		UPDATE slots
		SET status = @to, updated_at = now()
		WHERE id = ANY(@ids::uuid[])
		  AND status = ANY(@from::text[])
		RETURNING ` + slotColumns

	sources := domain.SourcesFor(to)
	from := make([]string, len(sources))
	for i, s := range sources {
		from[i] = string(s)
	}

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{
		"ids":  uuidStrings(ids),
		"to":   string(to),
		"from": from,
	})
	if err != nil {
		return nil, fmt.Errorf("repo.SlotRepo.Transition: %w", err)
	}
	slots, err := collect(rows, scanSlot)
	if err != nil {
		return nil, fmt.Errorf("repo.SlotRepo.Transition: %w", err)
	}
	if len(slots) != len(ids) {
		return nil, fmt.Errorf("repo.SlotRepo.Transition: %w: %d of %d slots cannot move to %s",
			domain.ErrConflict, len(ids)-len(slots), len(ids), to)
	}
	return slots, nil
}

func scanSlot(s scanner) (domain.Slot, error) {
	var (
		slot    domain.Slot
		id      pgtype.UUID
		guideID pgtype.UUID
		status  string
	)
	if err := s.Scan(&id, &guideID, &slot.StartTime, &slot.DurationHours, &status, &slot.CreatedAt, &slot.UpdatedAt); err != nil {
		return domain.Slot{}, err
	}
	slot.ID = fromPgUUID(id)
	slot.GuideID = fromPgUUID(guideID)
	slot.Status = domain.SlotStatus(status)
	return slot, nil
}
