package domain

import "fmt"

// ValidationError covers malformed input: bad dates, missing identity
// fields. Recoverable, surfaced inline to the user.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConflictError reports that a candidate range collides with existing
// unavailable periods. Conflicts carries every colliding period, with
// booking-kind conflicts ordered first.
type ConflictError struct {
	Conflicts []UnavailablePeriod
}

func (e *ConflictError) Error() string {
	if len(e.Conflicts) == 0 {
		return "requested dates are unavailable"
	}
	first := e.Conflicts[0]
	if first.Kind == PeriodKindManualBlock && first.Reason != "" {
		return fmt.Sprintf("requested dates are unavailable: blocked %s (%s)", first.Range, first.Reason)
	}
	return fmt.Sprintf("requested dates are unavailable: already booked or blocked %s", first.Range)
}

// InvalidTransitionError reports an illegal state-machine move. It is never
// coerced to the nearest valid transition.
type InvalidTransitionError struct {
	From BookingStatus
	To   BookingStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid booking transition from %s to %s", e.From, e.To)
}

// PolicyError covers well-formed requests disallowed by a business rule,
// e.g. a renter cancelling inside the lead-time window or an owner trying
// to book their own boat.
type PolicyError struct {
	Rule   string
	Detail string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("policy %s: %s", e.Rule, e.Detail)
}

// CollaboratorError wraps a failure of an external authority (identity,
// payment, persistence). Transient: the triggering step stays retryable.
type CollaboratorError struct {
	Collaborator string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s authority failed: %v", e.Collaborator, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}
