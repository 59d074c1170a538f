// Package service contains the business logic for the Rainbow Tour Guides API.
// Services validate inputs, enforce business rules, and orchestrate repo calls.
// No SQL lives here; services depend on repo interfaces, not implementations.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rainbowtourguides/backend/internal/cache"
	"github.com/rainbowtourguides/backend/internal/domain"
	"github.com/rainbowtourguides/backend/internal/pricing"
	"github.com/rainbowtourguides/backend/internal/repo"
)

// MaxListRange bounds a single availability query: two calendar months plus slack.
const MaxListRange = 62 * 24 * time.Hour

// SlotService implements the guide availability calendar.
// Reads go through the response cache; every successful mutation drops the
// guide's cached views.
type SlotService struct {
	slots  repo.SlotRepo
	guides repo.GuideRepo
	cache  *cache.Cache
	log    *slog.Logger
	now    func() time.Time
}

// NewSlotService constructs a SlotService. A nil logger discards log output.
func NewSlotService(slots repo.SlotRepo, guides repo.GuideRepo, c *cache.Cache, logger *slog.Logger) *SlotService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SlotService{slots: slots, guides: guides, cache: c, log: logger, now: time.Now}
}

// WithClock replaces the clock used for the "start time in the future" rule.
func (s *SlotService) WithClock(now func() time.Time) *SlotService {
	s.now = now
	return s
}

// List returns the guide's slots starting in [f.From, f.To), ordered by start
// time, plus the same slots bucketed by day in the guide's timezone.
func (s *SlotService) List(ctx context.Context, f domain.SlotFilter) (domain.SlotCalendar, error) {
	if err := validateRange(f.From, f.To, MaxListRange); err != nil {
		return domain.SlotCalendar{}, fmt.Errorf("service.SlotService.List: %w", err)
	}
	status := ""
	if f.Status != nil {
		if !f.Status.Valid() {
			return domain.SlotCalendar{}, fmt.Errorf("service.SlotService.List: %w: unknown status %q", domain.ErrValidation, *f.Status)
		}
		status = string(*f.Status)
	}

	guide, err := s.guides.GetByID(ctx, f.GuideID)
	if err != nil {
		return domain.SlotCalendar{}, fmt.Errorf("service.SlotService.List: %w", err)
	}

	raw, err := s.cache.Fetch(ctx, cache.AvailabilityResource(f.GuideID), cache.AvailabilityParams(f.From, f.To, status),
		func(ctx context.Context) ([]byte, error) {
			slots, err := s.slots.List(ctx, f)
			if err != nil {
				return nil, err
			}
			return json.Marshal(slots)
		})
	if err != nil {
		return domain.SlotCalendar{}, fmt.Errorf("service.SlotService.List: %w", err)
	}

	var slots []domain.Slot
	if err := json.Unmarshal(raw, &slots); err != nil {
		return domain.SlotCalendar{}, fmt.Errorf("service.SlotService.List: decode cached slots: %w", err)
	}
	if slots == nil {
		slots = []domain.Slot{}
	}
	return domain.SlotCalendar{Slots: slots, Days: domain.GroupByDay(slots, guide.Location())}, nil
}

// Create validates and persists a new open slot on the guide's calendar.
// Returns domain.ErrValidation for a bad duration or a start time not in the
// future, domain.ErrNotFound for an unknown guide, domain.ErrForbidden when the
// actor does not own the guide profile, and domain.ErrConflict when the slot
// overlaps another slot that is not closed.
func (s *SlotService) Create(ctx context.Context, actor domain.Actor, slot domain.Slot) (domain.Slot, error) {
	if _, err := pricing.ParseDuration(slot.DurationHours); err != nil {
		return domain.Slot{}, fmt.Errorf("service.SlotService.Create: %w: %w", domain.ErrValidation, err)
	}
	if slot.StartTime.IsZero() {
		return domain.Slot{}, fmt.Errorf("service.SlotService.Create: %w: start time is required", domain.ErrValidation)
	}
	if !slot.StartTime.After(s.now()) {
		return domain.Slot{}, fmt.Errorf("service.SlotService.Create: %w: start time must be in the future", domain.ErrValidation)
	}

	guide, err := s.guides.GetByID(ctx, slot.GuideID)
	if err != nil {
		return domain.Slot{}, fmt.Errorf("service.SlotService.Create: %w", err)
	}
	if err := authorizeGuide(actor, guide); err != nil {
		return domain.Slot{}, fmt.Errorf("service.SlotService.Create: %w", err)
	}

	overlap, err := s.slots.HasOverlap(ctx, slot.GuideID, slot.StartTime, slot.EndTime())
	if err != nil {
		return domain.Slot{}, fmt.Errorf("service.SlotService.Create: %w", err)
	}
	if overlap {
		return domain.Slot{}, fmt.Errorf("service.SlotService.Create: %w: slot overlaps an existing slot", domain.ErrConflict)
	}

	slot.Status = domain.SlotOpen
	created, err := s.slots.Create(ctx, slot)
	if err != nil {
		return domain.Slot{}, fmt.Errorf("service.SlotService.Create: %w", err)
	}
	s.invalidate(ctx, slot.GuideID)
	return created, nil
}

// Delete removes an open slot. Returns domain.ErrConflict when the slot is no
// longer open.
func (s *SlotService) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	slot, err := s.owned(ctx, actor, id)
	if err != nil {
		return fmt.Errorf("service.SlotService.Delete: %w", err)
	}
	if err := s.slots.DeleteOpen(ctx, id); err != nil {
		return fmt.Errorf("service.SlotService.Delete: %w", err)
	}
	s.invalidate(ctx, slot.GuideID)
	return nil
}

// SetStatus applies a guide-initiated status change. Guides may only close a
// slot directly; every other transition belongs to the reservation flow.
func (s *SlotService) SetStatus(ctx context.Context, actor domain.Actor, id uuid.UUID, status domain.SlotStatus) (domain.Slot, error) {
	if status != domain.SlotClosed {
		return domain.Slot{}, fmt.Errorf("service.SlotService.SetStatus: %w: status can only be set to %q", domain.ErrValidation, domain.SlotClosed)
	}
	slot, err := s.owned(ctx, actor, id)
	if err != nil {
		return domain.Slot{}, fmt.Errorf("service.SlotService.SetStatus: %w", err)
	}
	updated, err := s.slots.Transition(ctx, []uuid.UUID{id}, status)
	if err != nil {
		return domain.Slot{}, fmt.Errorf("service.SlotService.SetStatus: %w", err)
	}
	s.invalidate(ctx, slot.GuideID)
	return updated[0], nil
}

// owned loads a slot and checks the actor manages its guide's calendar.
func (s *SlotService) owned(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Slot, error) {
	slot, err := s.slots.GetByID(ctx, id)
	if err != nil {
		return domain.Slot{}, err
	}
	guide, err := s.guides.GetByID(ctx, slot.GuideID)
	if err != nil {
		return domain.Slot{}, err
	}
	if err := authorizeGuide(actor, guide); err != nil {
		return domain.Slot{}, err
	}
	return slot, nil
}

func (s *SlotService) invalidate(ctx context.Context, guideID uuid.UUID) {
	invalidateAvailability(ctx, s.cache, s.log, guideID)
}

// invalidateAvailability drops every cached calendar view of a guide.
// The mutation has already committed, so a failure is logged, not returned.
func invalidateAvailability(ctx context.Context, c *cache.Cache, log *slog.Logger, guideID uuid.UUID) {
	if err := c.InvalidatePrefix(ctx, cache.AvailabilityPrefix(guideID)); err != nil {
		log.ErrorContext(ctx, "invalidate availability cache", "guide_id", guideID, "error", err)
	}
}

// authorizeGuide allows admins and the user owning the guide profile.
func authorizeGuide(actor domain.Actor, guide domain.GuideProfile) error {
	if actor.IsAdmin() || actor.UserID == guide.UserID {
		return nil
	}
	return fmt.Errorf("%w: only the guide can manage this calendar", domain.ErrForbidden)
}

// validateRange checks from < to and that the range spans at most limit.
func validateRange(from, to time.Time, limit time.Duration) error {
	if from.IsZero() || to.IsZero() {
		return fmt.Errorf("%w: from and to are required", domain.ErrValidation)
	}
	if !from.Before(to) {
		return fmt.Errorf("%w: from must be before to", domain.ErrValidation)
	}
	if to.Sub(from) > limit {
		return fmt.Errorf("%w: range must not exceed %d days", domain.ErrValidation, int(limit.Hours()/24))
	}
	return nil
}
