package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationAccepted  ReservationStatus = "accepted"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationCompleted ReservationStatus = "completed"
	ReservationRefunded  ReservationStatus = "refunded"
)

// Reservation aggregates one or more booked sessions against a single guide.
// Money fields are whole currency units of Currency.
type Reservation struct {
	ID             uuid.UUID
	TravelerID     uuid.UUID
	GuideID        uuid.UUID
	Travelers      int
	Sessions       []ReservationSession
	Subtotal       float64
	TravelerFeePct float64
	GuideFeePct    float64
	ServiceFee     float64
	Total          float64
	Currency       string
	Status         ReservationStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ReservationSession is one slot inside a reservation with the price it was
// quoted at when the reservation was made.
// SlotID is uuid.Nil once the slot has been deleted.
type ReservationSession struct {
	SlotID        uuid.UUID
	StartTime     time.Time
	DurationHours int
	Subtotal      float64
	Discount      float64
	Total         float64
}

// SlotIDs returns the slot of every session whose slot still exists, in
// session order.
func (r Reservation) SlotIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(r.Sessions))
	for _, s := range r.Sessions {
		if s.SlotID != uuid.Nil {
			ids = append(ids, s.SlotID)
		}
	}
	return ids
}
