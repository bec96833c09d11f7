package domain

import "time"

// RenterCancelLeadDays is the minimum number of days before the start date
// at which a renter may still cancel a confirmed booking on their own.
const RenterCancelLeadDays = 7

func (b *Booking) isOwner(actor Actor) bool {
	return actor.ID == b.OwnerID && actor.Role == RoleOwner
}

func (b *Booking) isRenter(actor Actor) bool {
	return actor.ID == b.RenterID
}

func (b *Booking) isAdmin(actor Actor) bool {
	return actor.Role == RoleAdmin
}

// CanTransition checks the lifecycle table for a move to target by actor at
// time now. A move absent from the table yields InvalidTransitionError; a
// move present but disallowed for this actor or this moment yields
// PolicyError. Callers must surface these distinctly, never coerce.
func (b *Booking) CanTransition(target BookingStatus, actor Actor, now time.Time) error {
	switch {
	case b.Status == BookingStatusPending && target == BookingStatusConfirmed:
		if !b.isOwner(actor) && !b.isAdmin(actor) {
			return &PolicyError{Rule: "confirm_actor", Detail: "only the boat owner may confirm a booking"}
		}
		return nil

	case b.Status == BookingStatusPending && target == BookingStatusCancelled:
		// No real charge has settled yet, so both parties may always back out.
		if !b.isOwner(actor) && !b.isRenter(actor) && !b.isAdmin(actor) {
			return &PolicyError{Rule: "cancel_actor", Detail: "only a booking party may cancel it"}
		}
		return nil

	case b.Status == BookingStatusConfirmed && target == BookingStatusCancelled:
		if b.isOwner(actor) || b.isAdmin(actor) {
			return nil
		}
		if !b.isRenter(actor) {
			return &PolicyError{Rule: "cancel_actor", Detail: "only a booking party may cancel it"}
		}
		if DaysUntil(now, b.Range.Start) < RenterCancelLeadDays {
			return &PolicyError{
				Rule:   "cancellation_lead_time",
				Detail: "a confirmed booking can only be cancelled by the renter at least 7 days before the start date",
			}
		}
		return nil

	case b.Status == BookingStatusConfirmed && target == BookingStatusCompleted:
		if !b.isOwner(actor) && !b.isAdmin(actor) {
			return &PolicyError{Rule: "complete_actor", Detail: "only the boat owner or the system may complete a booking"}
		}
		if !Midnight(now).After(b.Range.End) {
			return &PolicyError{Rule: "completion_date", Detail: "a booking can only be completed after its end date"}
		}
		return nil
	}

	return &InvalidTransitionError{From: b.Status, To: target}
}
