package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rainbowtourguides/backend/internal/domain"
	"github.com/rainbowtourguides/backend/internal/repo"
)

// MaxExportDays bounds a calendar export to one year.
const MaxExportDays = 366

// ExportService assembles a flat calendar export of a guide's slots.
// It reads the store directly; exports are rare and must not be served stale.
type ExportService struct {
	guides repo.GuideRepo
	slots  repo.SlotRepo
}

// NewExportService constructs an ExportService backed by the provided repos.
func NewExportService(guides repo.GuideRepo, slots repo.SlotRepo) *ExportService {
	return &ExportService{guides: guides, slots: slots}
}

// Export returns one ExportRow per slot whose start falls on a calendar day
// between first and last inclusive, ordered by start time. Only the year,
// month and day of first and last are read; the days are those of the guide's
// timezone, and dates and times in the rows are rendered in it too.
func (s *ExportService) Export(ctx context.Context, guideID uuid.UUID, first, last time.Time) ([]domain.ExportRow, error) {
	if err := validateDays(first, last, MaxExportDays); err != nil {
		return nil, fmt.Errorf("service.ExportService.Export: %w", err)
	}
	guide, err := s.guides.GetByID(ctx, guideID)
	if err != nil {
		return nil, fmt.Errorf("service.ExportService.Export: %w", err)
	}

	loc := guide.Location()
	from := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, loc)
	to := time.Date(last.Year(), last.Month(), last.Day()+1, 0, 0, 0, 0, loc)
	slots, err := s.slots.List(ctx, domain.SlotFilter{GuideID: guideID, From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("service.ExportService.Export: %w", err)
	}

	rows := make([]domain.ExportRow, 0, len(slots))
	for _, sl := range slots {
		start := sl.StartTime.In(loc)
		rows = append(rows, domain.ExportRow{
			SlotID:        sl.ID.String(),
			Date:          start.Format(time.DateOnly),
			StartTime:     start.Format(time.RFC3339),
			EndTime:       sl.EndTime().In(loc).Format(time.RFC3339),
			DurationHours: sl.DurationHours,
			Status:        string(sl.Status),
		})
	}
	return rows, nil
}

// validateDays checks an inclusive range of calendar days.
func validateDays(first, last time.Time, limit int) error {
	if first.IsZero() || last.IsZero() {
		return fmt.Errorf("%w: from and to are required", domain.ErrValidation)
	}
	a := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, time.UTC)
	if b.Before(a) {
		return fmt.Errorf("%w: to must not be before from", domain.ErrValidation)
	}
	if days := int(b.Sub(a).Hours()/24) + 1; days > limit {
		return fmt.Errorf("%w: range must not exceed %d days", domain.ErrValidation, limit)
	}
	return nil
}
