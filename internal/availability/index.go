// Package availability holds the pure availability queries: the
// unavailability index over a boat's period set and the owner calendar
// grid. Nothing here touches storage or mutates caller state.
package availability

import (
	"time"

	"github.com/sailingloc/boatbooking/internal/domain"
)

// Index answers availability queries over a snapshot of a boat's
// unavailable periods. It never mutates the snapshot and never panics on
// queries; invalid candidates come back as typed errors.
type Index struct {
	periods []domain.UnavailablePeriod
}

func NewIndex(periods []domain.UnavailablePeriod) *Index {
	return &Index{periods: periods}
}

func (i *Index) Periods() []domain.UnavailablePeriod {
	return i.periods
}

// IsDayBlocked reports whether day is unavailable. An available-override
// covering the day punches a hole: the day is free no matter what else
// covers it.
func (i *Index) IsDayBlocked(day time.Time) bool {
	return i.Covering(day) != nil
}

// Covering returns the period that makes day unavailable, or nil when the
// day is free. Booking-kind periods win over manual blocks, since a
// reservation is the harder constraint.
func (i *Index) Covering(day time.Time) *domain.UnavailablePeriod {
	d := domain.Midnight(day)

	for idx := range i.periods {
		p := &i.periods[idx]
		if p.Kind == domain.PeriodKindAvailableOverride && p.Range.Contains(d) {
			return nil
		}
	}

	var block *domain.UnavailablePeriod
	for idx := range i.periods {
		p := &i.periods[idx]
		if !p.Blocks() || !p.Range.Contains(d) {
			continue
		}
		if p.Kind == domain.PeriodKindBooking {
			return p
		}
		if block == nil {
			block = p
		}
	}
	return block
}

// CoveringBlock returns the manual block covering day, if any. Used by the
// unblock selection mode to map a clicked day back to its originating block.
func (i *Index) CoveringBlock(day time.Time) *domain.UnavailablePeriod {
	d := domain.Midnight(day)
	for idx := range i.periods {
		p := &i.periods[idx]
		if p.Kind == domain.PeriodKindManualBlock && p.Range.Contains(d) {
			return p
		}
	}
	return nil
}

// Conflicts returns every blocking period overlapping the candidate range,
// booking-kind conflicts first so callers surface the most relevant one.
func (i *Index) Conflicts(candidate domain.DateRange) []domain.UnavailablePeriod {
	var bookings, blocks []domain.UnavailablePeriod
	for _, p := range i.periods {
		if !p.Blocks() || !p.Range.Overlaps(candidate) {
			continue
		}
		if p.Kind == domain.PeriodKindBooking {
			bookings = append(bookings, p)
		} else {
			blocks = append(blocks, p)
		}
	}
	return append(bookings, blocks...)
}

// CheckRange reports a ConflictError when the candidate collides with
// anything blocking.
func (i *Index) CheckRange(candidate domain.DateRange) error {
	if conflicts := i.Conflicts(candidate); len(conflicts) > 0 {
		return &domain.ConflictError{Conflicts: conflicts}
	}
	return nil
}

// ValidateCandidate gates a new range selection: the start must be strictly
// after today, the stay at least one full day, and the range free of
// conflicts.
func (i *Index) ValidateCandidate(today time.Time, candidate domain.DateRange) error {
	t := domain.Midnight(today)
	if !candidate.Start.After(t) {
		return &domain.ValidationError{Field: "start", Reason: "start date must be after today"}
	}
	if !candidate.End.After(candidate.Start) {
		return &domain.ValidationError{Field: "end", Reason: "end date must be after start date"}
	}
	return i.CheckRange(candidate)
}
