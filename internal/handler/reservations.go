package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rainbowtourguides/backend/internal/domain"
	"github.com/rainbowtourguides/backend/internal/service"
)

// SessionResponse is one priced slot of a reservation.
type SessionResponse struct {
	SlotID        *uuid.UUID `json:"slotId,omitempty"`
	StartTime     time.Time  `json:"startTime"`
	DurationHours int        `json:"durationHours"`
	Subtotal      float64    `json:"subtotal"`
	Discount      float64    `json:"discount"`
	Total         float64    `json:"total"`
}

// ReservationResponse is the wire shape of a reservation.
type ReservationResponse struct {
	ID             uuid.UUID                `json:"id"`
	TravelerID     uuid.UUID                `json:"travelerId"`
	GuideID        uuid.UUID                `json:"guideId"`
	Travelers      int                      `json:"travelers"`
	Sessions       []SessionResponse        `json:"sessions"`
	Subtotal       float64                  `json:"subtotal"`
	TravelerFeePct float64                  `json:"travelerFeePct"`
	GuideFeePct    float64                  `json:"guideFeePct"`
	ServiceFee     float64                  `json:"serviceFee"`
	Total          float64                  `json:"total"`
	Currency       string                   `json:"currency"`
	Status         domain.ReservationStatus `json:"status"`
	CreatedAt      time.Time                `json:"createdAt"`
	UpdatedAt      time.Time                `json:"updatedAt"`
}

// CreateReservationRequest is the body of POST /api/reservations.
type CreateReservationRequest struct {
	GuideID   uuid.UUID   `json:"guideId"`
	SlotIDs   []uuid.UUID `json:"slotIds"`
	Travelers int         `json:"travelers"`
}

// CreateReservation handles POST /api/reservations.
func (s *Server) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var body CreateReservationRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.GuideID == uuid.Nil {
		requestError(w, "guideId is required")
		return
	}

	res, err := s.reservations.Create(r.Context(), actor(r), service.CreateReservation{
		GuideID:   body.GuideID,
		SlotIDs:   body.SlotIDs,
		Travelers: body.Travelers,
	})
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reservationToResponse(res))
}

// GetReservation handles GET /api/reservations/{id}.
func (s *Server) GetReservation(w http.ResponseWriter, r *http.Request) {
	s.reservationAction(w, r, s.reservations.Get)
}

// AcceptReservation handles POST /api/reservations/{id}/accept.
func (s *Server) AcceptReservation(w http.ResponseWriter, r *http.Request) {
	s.reservationAction(w, r, s.reservations.Accept)
}

// CancelReservation handles POST /api/reservations/{id}/cancel.
func (s *Server) CancelReservation(w http.ResponseWriter, r *http.Request) {
	s.reservationAction(w, r, s.reservations.Cancel)
}

// CompleteReservation handles POST /api/reservations/{id}/complete.
func (s *Server) CompleteReservation(w http.ResponseWriter, r *http.Request) {
	s.reservationAction(w, r, s.reservations.Complete)
}

type reservationFunc func(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Reservation, error)

// reservationAction runs fn against the {id} reservation as the caller and
// writes the result.
func (s *Server) reservationAction(w http.ResponseWriter, r *http.Request, fn reservationFunc) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := fn(r.Context(), actor(r), id)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reservationToResponse(res))
}

func reservationToResponse(res domain.Reservation) ReservationResponse {
	sessions := make([]SessionResponse, len(res.Sessions))
	for i, ss := range res.Sessions {
		sessions[i] = SessionResponse{
			StartTime:     ss.StartTime,
			DurationHours: ss.DurationHours,
			Subtotal:      ss.Subtotal,
			Discount:      ss.Discount,
			Total:         ss.Total,
		}
		if ss.SlotID != uuid.Nil {
			sessions[i].SlotID = &ss.SlotID
		}
	}
	return ReservationResponse{
		ID:             res.ID,
		TravelerID:     res.TravelerID,
		GuideID:        res.GuideID,
		Travelers:      res.Travelers,
		Sessions:       sessions,
		Subtotal:       res.Subtotal,
		TravelerFeePct: res.TravelerFeePct,
		GuideFeePct:    res.GuideFeePct,
		ServiceFee:     res.ServiceFee,
		Total:          res.Total,
		Currency:       res.Currency,
		Status:         res.Status,
		CreatedAt:      res.CreatedAt,
		UpdatedAt:      res.UpdatedAt,
	}
}
