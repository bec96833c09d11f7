package domain

import "time"

type PeriodKind string

const (
	PeriodKindBooking           PeriodKind = "BOOKING"
	PeriodKindManualBlock       PeriodKind = "MANUAL_BLOCK"
	PeriodKindAvailableOverride PeriodKind = "AVAILABLE_OVERRIDE"
)

// UnavailablePeriod is one reason a boat cannot be booked on certain days.
// Booking-kind periods are derived from live bookings and never stored on
// their own; manual blocks and overrides are owner-managed rows.
type UnavailablePeriod struct {
	ID          string     `json:"id,omitempty"`
	BoatID      string     `json:"boat_id"`
	Kind        PeriodKind `json:"kind"`
	Range       DateRange  `json:"range"`
	Reason      string     `json:"reason,omitempty"`
	ReferenceID string     `json:"reference_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at,omitempty"`
}

// Blocks reports whether the period counts in conflict checks. Overrides
// never conflict: they only punch holes in previously blocked ranges.
func (p UnavailablePeriod) Blocks() bool {
	return p.Kind != PeriodKindAvailableOverride
}
