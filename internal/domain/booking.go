package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

// ServiceFeePercent is the platform fee charged on top of the subtotal.
const ServiceFeePercent = 10

type Booking struct {
	ID               string        `json:"id"`
	BoatID           string        `json:"boat_id"`
	RenterID         string        `json:"renter_id"`
	OwnerID          string        `json:"owner_id"`
	Range            DateRange     `json:"range"`
	DailyPriceCents  int64         `json:"daily_price_cents"`
	Status           BookingStatus `json:"status"`
	PaymentStatus    PaymentStatus `json:"payment_status"`
	PaymentReference string        `json:"payment_reference"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

func SubtotalCents(dailyPriceCents int64, r DateRange) int64 {
	return dailyPriceCents * int64(r.Days())
}

func ServiceFeeCents(dailyPriceCents int64, r DateRange) int64 {
	return SubtotalCents(dailyPriceCents, r) * ServiceFeePercent / 100
}

func TotalCents(dailyPriceCents int64, r DateRange) int64 {
	return SubtotalCents(dailyPriceCents, r) + ServiceFeeCents(dailyPriceCents, r)
}

func (b *Booking) SubtotalCents() int64 {
	return SubtotalCents(b.DailyPriceCents, b.Range)
}

func (b *Booking) ServiceFeeCents() int64 {
	return ServiceFeeCents(b.DailyPriceCents, b.Range)
}

func (b *Booking) TotalCents() int64 {
	return TotalCents(b.DailyPriceCents, b.Range)
}

// Active reports whether the booking still blocks its boat's dates.
// Completed bookings lie entirely in the past, so only cancellation
// actually frees future days.
func (b *Booking) Active() bool {
	return b.Status != BookingStatusCancelled
}

// UnavailablePeriod derives the blocking period for a live booking.
func (b *Booking) UnavailablePeriod() UnavailablePeriod {
	return UnavailablePeriod{
		BoatID:      b.BoatID,
		Kind:        PeriodKindBooking,
		Range:       b.Range,
		ReferenceID: b.ID,
	}
}
