// Package reservation orchestrates the renter-facing flow: identity
// establishment, payment capture, then booking materialization. Steps are
// strictly ordered and the flow is resumable: state lives in Redis under a
// flow id, so a lost response or a retried call never double-charges or
// double-books.
package reservation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sailingloc/boatbooking/internal/domain"
	"github.com/sailingloc/boatbooking/internal/identity"
	"github.com/sailingloc/boatbooking/internal/payment"
	"github.com/sailingloc/boatbooking/internal/repository"
	bookingsvc "github.com/sailingloc/boatbooking/internal/service/booking"
	"github.com/sailingloc/boatbooking/internal/service/periods"
	"go.uber.org/zap"
)

type Step string

const (
	StepIdentity Step = "identity"
	StepPayment  Step = "payment"
	StepDone     Step = "done"
)

// Flow is the persisted state of one reservation attempt. The candidate
// range is set at Start and retained across every later step.
type Flow struct {
	ID               string           `json:"id"`
	BoatID           string           `json:"boat_id"`
	OwnerID          string           `json:"owner_id"`
	Range            domain.DateRange `json:"range"`
	DailyPriceCents  int64            `json:"daily_price_cents"`
	TotalCents       int64            `json:"total_cents"`
	RenterID         string           `json:"renter_id,omitempty"`
	Step             Step             `json:"step"`
	PaymentReference string           `json:"payment_reference,omitempty"`
	BookingID        string           `json:"booking_id,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
}

type FlowStore interface {
	SaveFlow(ctx context.Context, id string, flow interface{}) error
	GetFlow(ctx context.Context, id string, dest interface{}) (bool, error)
	DeleteFlow(ctx context.Context, id string) error
}

type StartInput struct {
	BoatID       string
	Range        domain.DateRange
	SessionToken string
}

// IdentityInput carries either an existing session, sign-in credentials,
// or the fields for a brand-new account. Exactly one path is taken.
type IdentityInput struct {
	SessionToken string
	Email        string
	Password     string
	NewAccount   *identity.NewAccountInput
}

type ReservationUseCase interface {
	Start(ctx context.Context, input StartInput) (*Flow, error)
	EstablishIdentity(ctx context.Context, flowID string, input IdentityInput) (*Flow, error)
	Pay(ctx context.Context, flowID string, instrument payment.Instrument) (*Flow, *domain.Booking, error)
}

type ReservationService struct {
	boats    repository.BoatRepository
	periods  periods.PeriodsUseCase
	bookings bookingsvc.BookingUseCase
	identity identity.Authority
	payments payment.Authority
	flows    FlowStore
	now      func() time.Time
	logger   *zap.Logger
}

func NewReservationService(
	boats repository.BoatRepository,
	periodsSvc periods.PeriodsUseCase,
	bookings bookingsvc.BookingUseCase,
	identitySvc identity.Authority,
	payments payment.Authority,
	flows FlowStore,
	logger *zap.Logger,
) *ReservationService {
	return &ReservationService{
		boats:    boats,
		periods:  periodsSvc,
		bookings: bookings,
		identity: identitySvc,
		payments: payments,
		flows:    flows,
		now:      time.Now,
		logger:   logger,
	}
}

// Start opens a flow for a candidate range. The availability check here is
// advisory; materialization re-checks authoritatively after payment. An
// owner trying to book their own boat is rejected right here, before the
// identity or payment steps ever run.
func (s *ReservationService) Start(ctx context.Context, input StartInput) (*Flow, error) {
	boat, err := s.boats.GetByID(ctx, input.BoatID)
	if err != nil {
		return nil, err
	}

	if err := s.periods.CheckRange(ctx, input.BoatID, input.Range); err != nil {
		return nil, err
	}

	flow := &Flow{
		ID:              uuid.NewString(),
		BoatID:          boat.ID,
		OwnerID:         boat.OwnerID,
		Range:           input.Range,
		DailyPriceCents: boat.DailyPriceCents,
		TotalCents:      domain.TotalCents(boat.DailyPriceCents, input.Range),
		Step:            StepIdentity,
		CreatedAt:       s.now(),
	}

	if input.SessionToken != "" {
		id, err := s.identity.EstablishSession(ctx, input.SessionToken)
		if err != nil {
			return nil, err
		}
		if err := s.admitRenter(id, boat.OwnerID); err != nil {
			return nil, err
		}
		flow.RenterID = id.UserID
		flow.Step = StepPayment
	}

	if err := s.flows.SaveFlow(ctx, flow.ID, flow); err != nil {
		return nil, &domain.CollaboratorError{Collaborator: "flow store", Err: err}
	}
	return flow, nil
}

// EstablishIdentity runs step one. The candidate range set at Start stays
// on the flow untouched. Calling it again after the step already passed is
// a harmless no-op returning the current flow.
func (s *ReservationService) EstablishIdentity(ctx context.Context, flowID string, input IdentityInput) (*Flow, error) {
	flow, err := s.loadFlow(ctx, flowID)
	if err != nil {
		return nil, err
	}
	if flow.Step != StepIdentity {
		return flow, nil
	}

	var id *identity.Identity
	switch {
	case input.SessionToken != "":
		id, err = s.identity.EstablishSession(ctx, input.SessionToken)
	case input.NewAccount != nil:
		id, _, err = s.identity.Register(ctx, *input.NewAccount)
	case input.Email != "":
		id, _, err = s.identity.SignIn(ctx, input.Email, input.Password)
	default:
		return nil, &domain.ValidationError{Field: "identity", Reason: "a session, credentials or new account fields are required"}
	}
	if err != nil {
		return nil, err
	}

	if err := s.admitRenter(id, flow.OwnerID); err != nil {
		return nil, err
	}

	flow.RenterID = id.UserID
	flow.Step = StepPayment
	if err := s.flows.SaveFlow(ctx, flow.ID, flow); err != nil {
		return nil, &domain.CollaboratorError{Collaborator: "flow store", Err: err}
	}
	return flow, nil
}

// Pay runs step two: charge, then materialize. Payment failure keeps the
// flow on the payment step with its range intact, so the renter can retry.
// When a charge already settled, a retry skips straight to materialization
// keyed by the stored payment reference.
func (s *ReservationService) Pay(ctx context.Context, flowID string, instrument payment.Instrument) (*Flow, *domain.Booking, error) {
	flow, err := s.loadFlow(ctx, flowID)
	if err != nil {
		return nil, nil, err
	}

	if flow.Step == StepIdentity {
		return nil, nil, &domain.PolicyError{Rule: "step_order", Detail: "identity must be established before payment"}
	}
	if flow.BookingID != "" {
		booking, err := s.bookings.GetByID(ctx, flow.BookingID)
		if err != nil {
			return nil, nil, err
		}
		return flow, booking, nil
	}

	if flow.PaymentReference == "" {
		receipt, err := s.payments.Charge(ctx, flow.TotalCents, instrument)
		if err != nil {
			return nil, nil, err
		}
		flow.PaymentReference = receipt.Reference
		// Persist the reference before materialization so a crash between
		// the two cannot lose the settled charge.
		if err := s.flows.SaveFlow(ctx, flow.ID, flow); err != nil {
			return nil, nil, &domain.CollaboratorError{Collaborator: "flow store", Err: err}
		}
	}

	booking, err := s.bookings.Materialize(ctx, bookingsvc.MaterializeInput{
		BoatID:           flow.BoatID,
		RenterID:         flow.RenterID,
		Range:            flow.Range,
		PaymentReference: flow.PaymentReference,
	})
	if err != nil {
		var cerr *domain.ConflictError
		if errors.As(err, &cerr) {
			// The range was taken after payment began. Reverse the charge
			// and retire the flow; these dates cannot be retried.
			if rerr := s.payments.Reverse(ctx, flow.PaymentReference); rerr != nil {
				s.logger.Error("failed to reverse charge after conflict",
					zap.String("flow_id", flow.ID),
					zap.String("reference", flow.PaymentReference),
					zap.Error(rerr),
				)
			}
			_ = s.flows.DeleteFlow(ctx, flow.ID)
		}
		return nil, nil, err
	}

	flow.BookingID = booking.ID
	flow.Step = StepDone
	if err := s.flows.SaveFlow(ctx, flow.ID, flow); err != nil {
		s.logger.Warn("failed to persist completed flow", zap.String("flow_id", flow.ID), zap.Error(err))
	}
	return flow, booking, nil
}

func (s *ReservationService) admitRenter(id *identity.Identity, ownerID string) error {
	if id.UserID == ownerID {
		return &domain.PolicyError{Rule: "own_listing", Detail: "owners cannot book their own boats"}
	}
	if !id.Role.CanBook() {
		return &domain.PolicyError{Rule: "renter_role", Detail: "only renter accounts may book boats"}
	}
	return nil
}

func (s *ReservationService) loadFlow(ctx context.Context, flowID string) (*Flow, error) {
	var flow Flow
	found, err := s.flows.GetFlow(ctx, flowID, &flow)
	if err != nil {
		return nil, &domain.CollaboratorError{Collaborator: "flow store", Err: err}
	}
	if !found {
		return nil, &domain.ValidationError{Field: "flow", Reason: "unknown or expired reservation flow"}
	}
	return &flow, nil
}

var _ ReservationUseCase = (*ReservationService)(nil)
