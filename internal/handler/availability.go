package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/rainbowtourguides/backend/internal/domain"
)

// SlotResponse is the persisted wire shape of a slot.
type SlotResponse struct {
	ID            uuid.UUID         `json:"id"`
	GuideID       uuid.UUID         `json:"guide_id"`
	StartTime     time.Time         `json:"start_time"`
	DurationHours int               `json:"duration_hours"`
	Status        domain.SlotStatus `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// DayResponse is one calendar cell: the slots starting on Date in the guide's timezone.
type DayResponse struct {
	Date  openapi_types.Date `json:"date"`
	Slots []SlotResponse     `json:"slots"`
}

// CalendarResponse is the body of GET /api/availability.
type CalendarResponse struct {
	Slots []SlotResponse `json:"slots"`
	Days  []DayResponse  `json:"days"`
}

// CreateSlotRequest is the body of POST /api/guides/availability.
type CreateSlotRequest struct {
	GuideID       uuid.UUID `json:"guideId"`
	StartTime     time.Time `json:"startTime"`
	DurationHours int       `json:"durationHours"`
}

// PatchSlotRequest is the body of PATCH /api/availability/{id}.
type PatchSlotRequest struct {
	Status domain.SlotStatus `json:"status"`
}

// ListAvailability handles GET /api/availability?guideId&from&to[&status].
func (s *Server) ListAvailability(w http.ResponseWriter, r *http.Request) {
	guideID, ok := queryUUID(w, r, "guideId")
	if !ok {
		return
	}
	var (
		from, to time.Time
		status   *string
	)
	if !queryValue(w, r, "from", &from) ||
		!queryValue(w, r, "to", &to) ||
		!bindQuery(w, r, "status", false, &status) {
		return
	}

	f := domain.SlotFilter{GuideID: guideID, From: from, To: to}
	if status != nil {
		st := domain.SlotStatus(*status)
		f.Status = &st
	}

	cal, err := s.slots.List(r.Context(), f)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, calendarToResponse(cal))
}

// CreateSlot handles POST /api/guides/availability.
func (s *Server) CreateSlot(w http.ResponseWriter, r *http.Request) {
	var body CreateSlotRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.GuideID == uuid.Nil {
		requestError(w, "guideId is required")
		return
	}

	created, err := s.slots.Create(r.Context(), actor(r), domain.Slot{
		GuideID:       body.GuideID,
		StartTime:     body.StartTime,
		DurationHours: body.DurationHours,
	})
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, slotToResponse(created))
}

// DeleteSlot handles DELETE /api/availability/{id}.
func (s *Server) DeleteSlot(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.slots.Delete(r.Context(), actor(r), id); err != nil {
		s.serviceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PatchSlot handles PATCH /api/availability/{id}. Only {"status":"closed"} is accepted.
func (s *Server) PatchSlot(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body PatchSlotRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	updated, err := s.slots.SetStatus(r.Context(), actor(r), id, body.Status)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slotToResponse(updated))
}

// --- mapping helpers --------------------------------------------------------

func slotToResponse(sl domain.Slot) SlotResponse {
	return SlotResponse{
		ID:            sl.ID,
		GuideID:       sl.GuideID,
		StartTime:     sl.StartTime,
		DurationHours: sl.DurationHours,
		Status:        sl.Status,
		CreatedAt:     sl.CreatedAt,
		UpdatedAt:     sl.UpdatedAt,
	}
}

func slotsToResponse(slots []domain.Slot) []SlotResponse {
	out := make([]SlotResponse, len(slots))
	for i, sl := range slots {
		out[i] = slotToResponse(sl)
	}
	return out
}

// calendarToResponse converts the service calendar. Day keys come from the
// service already formatted in the guide's timezone, so they are parsed back
// as bare dates with no further zone conversion.
func calendarToResponse(cal domain.SlotCalendar) CalendarResponse {
	days := make([]DayResponse, 0, len(cal.Days))
	for _, d := range cal.Days {
		date, err := time.Parse(time.DateOnly, d.Date)
		if err != nil {
			continue
		}
		days = append(days, DayResponse{Date: openapi_types.Date{Time: date}, Slots: slotsToResponse(d.Slots)})
	}
	return CalendarResponse{Slots: slotsToResponse(cal.Slots), Days: days}
}
