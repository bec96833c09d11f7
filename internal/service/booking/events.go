package booking

import (
	"github.com/sailingloc/boatbooking/internal/domain"
	"github.com/sailingloc/boatbooking/internal/kafka"
)

func BookingEventPayload(eventType string, b *domain.Booking) kafka.BookingEvent {
	return kafka.BookingEvent{
		Type:       eventType,
		BookingID:  b.ID,
		BoatID:     b.BoatID,
		RenterID:   b.RenterID,
		Status:     string(b.Status),
		Start:      b.Range.Start.Format(domain.DateFormat),
		End:        b.Range.End.Format(domain.DateFormat),
		TotalCents: b.TotalCents(),
	}
}
