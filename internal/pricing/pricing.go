// Package pricing computes tour prices from a guide's hourly rate.
// Everything here is pure arithmetic; prices are never persisted and are
// recomputed from the current rate on every request.
package pricing

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidDuration is returned for a duration outside the tier table.
var ErrInvalidDuration = errors.New("duration must be 4, 6 or 8 hours")

// ErrInvalidRate is returned for a non-positive hourly rate.
var ErrInvalidRate = errors.New("base rate must be greater than zero")

// ErrInvalidTravelers is returned for a group of fewer than one traveler.
var ErrInvalidTravelers = errors.New("travelers must be at least 1")

// Duration is a tour length in hours. Only the values in the tier table are valid.
type Duration int

const (
	HalfDay  Duration = 4
	Extended Duration = 6
	FullDay  Duration = 8
)

// tierDiscount maps each duration to its discount percentage.
var tierDiscount = map[Duration]float64{
	HalfDay:  0,
	Extended: 5,
	FullDay:  10,
}

// Durations lists the valid tiers in ascending order.
func Durations() []Duration {
	return []Duration{HalfDay, Extended, FullDay}
}

// ParseDuration converts an hour count into a Duration.
func ParseDuration(hours int) (Duration, error) {
	d := Duration(hours)
	if _, ok := tierDiscount[d]; !ok {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidDuration, hours)
	}
	return d, nil
}

// DiscountPercentage returns the tier discount for d.
func DiscountPercentage(d Duration) (float64, error) {
	pct, ok := tierDiscount[d]
	if !ok {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidDuration, int(d))
	}
	return pct, nil
}

// Breakdown is the derived price of a tour.
// Subtotal - Discount == Total always holds.
type Breakdown struct {
	Subtotal           float64 `json:"subtotal"`
	Discount           float64 `json:"discount"`
	DiscountPercentage float64 `json:"discountPercentage"`
	Total              float64 `json:"total"`
	Currency           string  `json:"currency"`
}

// CalculateTourPrice prices a single-traveler tour.
// The discount is rounded half up to a whole currency unit.
func CalculateTourPrice(baseRateHour float64, d Duration, currency string) (Breakdown, error) {
	if baseRateHour <= 0 || math.IsNaN(baseRateHour) || math.IsInf(baseRateHour, 0) {
		return Breakdown{}, ErrInvalidRate
	}
	pct, err := DiscountPercentage(d)
	if err != nil {
		return Breakdown{}, err
	}

	subtotal := baseRateHour * float64(d)
	discount := math.Floor(subtotal*pct/100 + 0.5)

	return Breakdown{
		Subtotal:           subtotal,
		Discount:           discount,
		DiscountPercentage: pct,
		Total:              subtotal - discount,
		Currency:           currency,
	}, nil
}

// CalculateGroupPrice prices a tour for a group. Every amount of the
// single-traveler breakdown is multiplied by travelers; the percentage is a
// rate and stays as is.
func CalculateGroupPrice(baseRateHour float64, d Duration, travelers int, currency string) (Breakdown, error) {
	if travelers < 1 {
		return Breakdown{}, ErrInvalidTravelers
	}
	single, err := CalculateTourPrice(baseRateHour, d, currency)
	if err != nil {
		return Breakdown{}, err
	}

	n := float64(travelers)
	return Breakdown{
		Subtotal:           single.Subtotal * n,
		Discount:           single.Discount * n,
		DiscountPercentage: single.DiscountPercentage,
		Total:              single.Total * n,
		Currency:           single.Currency,
	}, nil
}

// Fee returns round(amount * pct / 100), half up.
func Fee(amount, pct float64) float64 {
	return math.Floor(amount*pct/100 + 0.5)
}
