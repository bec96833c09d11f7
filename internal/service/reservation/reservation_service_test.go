package reservation

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sailingloc/boatbooking/internal/availability"
	"github.com/sailingloc/boatbooking/internal/domain"
	"github.com/sailingloc/boatbooking/internal/identity"
	"github.com/sailingloc/boatbooking/internal/payment"
	bookingsvc "github.com/sailingloc/boatbooking/internal/service/booking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type MockBoatRepository struct {
	mock.Mock
}

func (m *MockBoatRepository) List(ctx context.Context) ([]domain.Boat, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Boat), args.Error(1)
}

func (m *MockBoatRepository) GetByID(ctx context.Context, id string) (*domain.Boat, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Boat), args.Error(1)
}

type MockPeriods struct {
	mock.Mock
}

func (m *MockPeriods) ListPeriods(ctx context.Context, boatID string) ([]domain.UnavailablePeriod, error) {
	args := m.Called(ctx, boatID)
	return args.Get(0).([]domain.UnavailablePeriod), args.Error(1)
}

func (m *MockPeriods) CheckRange(ctx context.Context, boatID string, candidate domain.DateRange) error {
	args := m.Called(ctx, boatID, candidate)
	return args.Error(0)
}

func (m *MockPeriods) MonthGrid(ctx context.Context, boatID string, year int, month time.Month, sel *availability.Selection) ([]availability.Cell, error) {
	args := m.Called(ctx, boatID, year, month, sel)
	return args.Get(0).([]availability.Cell), args.Error(1)
}

func (m *MockPeriods) AddManualBlock(ctx context.Context, actor domain.Actor, boatID string, r domain.DateRange, reason string) (*domain.UnavailablePeriod, error) {
	args := m.Called(ctx, actor, boatID, r, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UnavailablePeriod), args.Error(1)
}

func (m *MockPeriods) RemoveManualBlock(ctx context.Context, actor domain.Actor, boatID, blockID string) error {
	args := m.Called(ctx, actor, boatID, blockID)
	return args.Error(0)
}

type MockBookings struct {
	mock.Mock
}

func (m *MockBookings) Materialize(ctx context.Context, input bookingsvc.MaterializeInput) (*domain.Booking, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookings) Confirm(ctx context.Context, actor domain.Actor, id string) (*domain.Booking, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookings) Cancel(ctx context.Context, actor domain.Actor, id string) (*domain.Booking, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookings) Complete(ctx context.Context, actor domain.Actor, id string) (*domain.Booking, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookings) CompleteFinished(ctx context.Context) ([]domain.Booking, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookings) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

type MockIdentity struct {
	mock.Mock
}

func (m *MockIdentity) EstablishSession(ctx context.Context, token string) (*identity.Identity, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Identity), args.Error(1)
}

func (m *MockIdentity) SignIn(ctx context.Context, email, password string) (*identity.Identity, string, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).(*identity.Identity), args.String(1), args.Error(2)
}

func (m *MockIdentity) Register(ctx context.Context, input identity.NewAccountInput) (*identity.Identity, string, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).(*identity.Identity), args.String(1), args.Error(2)
}

type MockPayments struct {
	mock.Mock
}

func (m *MockPayments) Charge(ctx context.Context, amountCents int64, instrument payment.Instrument) (*payment.Receipt, error) {
	args := m.Called(ctx, amountCents, instrument)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Receipt), args.Error(1)
}

func (m *MockPayments) Reverse(ctx context.Context, reference string) error {
	args := m.Called(ctx, reference)
	return args.Error(0)
}

// memFlowStore round-trips flows through JSON the way the redis store does,
// so resumption tests exercise real serialization.
type memFlowStore struct {
	flows map[string][]byte
}

func newMemFlowStore() *memFlowStore {
	return &memFlowStore{flows: make(map[string][]byte)}
}

func (s *memFlowStore) SaveFlow(_ context.Context, id string, flow interface{}) error {
	data, err := json.Marshal(flow)
	if err != nil {
		return err
	}
	s.flows[id] = data
	return nil
}

func (s *memFlowStore) GetFlow(_ context.Context, id string, dest interface{}) (bool, error) {
	data, ok := s.flows[id]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (s *memFlowStore) DeleteFlow(_ context.Context, id string) error {
	delete(s.flows, id)
	return nil
}

func mustRange(t *testing.T, start, end string) domain.DateRange {
	t.Helper()
	r, err := domain.ParseDateRange(start, end)
	assert.NoError(t, err)
	return r
}

type fixture struct {
	boats    *MockBoatRepository
	periods  *MockPeriods
	bookings *MockBookings
	identity *MockIdentity
	payments *MockPayments
	flows    *memFlowStore
	service  *ReservationService
}

func newFixture() *fixture {
	f := &fixture{
		boats:    &MockBoatRepository{},
		periods:  &MockPeriods{},
		bookings: &MockBookings{},
		identity: &MockIdentity{},
		payments: &MockPayments{},
		flows:    newMemFlowStore(),
	}
	f.service = &ReservationService{
		boats:    f.boats,
		periods:  f.periods,
		bookings: f.bookings,
		identity: f.identity,
		payments: f.payments,
		flows:    f.flows,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	return f
}

var testBoat = &domain.Boat{ID: "boat-1", OwnerID: "owner-1", DailyPriceCents: 20000}

func TestReservationService_Start_Anonymous(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	r := mustRange(t, "2025-06-10", "2025-06-15")

	f.boats.On("GetByID", ctx, "boat-1").Return(testBoat, nil).Once()
	f.periods.On("CheckRange", ctx, "boat-1", r).Return(nil).Once()

	flow, err := f.service.Start(ctx, StartInput{BoatID: "boat-1", Range: r})

	assert.NoError(t, err)
	assert.Equal(t, StepIdentity, flow.Step)
	assert.Equal(t, r, flow.Range)
	assert.Equal(t, int64(110000), flow.TotalCents)
	assert.Empty(t, flow.RenterID)
	assert.Contains(t, f.flows.flows, flow.ID)
}

func TestReservationService_Start_WithSessionSkipsIdentityStep(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	r := mustRange(t, "2025-06-10", "2025-06-15")

	f.boats.On("GetByID", ctx, "boat-1").Return(testBoat, nil).Once()
	f.periods.On("CheckRange", ctx, "boat-1", r).Return(nil).Once()
	f.identity.On("EstablishSession", ctx, "token").
		Return(&identity.Identity{UserID: "renter-1", Role: domain.RoleRenter}, nil).Once()

	flow, err := f.service.Start(ctx, StartInput{BoatID: "boat-1", Range: r, SessionToken: "token"})

	assert.NoError(t, err)
	assert.Equal(t, StepPayment, flow.Step)
	assert.Equal(t, "renter-1", flow.RenterID)
}

func TestReservationService_Start_UnavailableRange(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	r := mustRange(t, "2025-06-10", "2025-06-15")

	f.boats.On("GetByID", ctx, "boat-1").Return(testBoat, nil).Once()
	f.periods.On("CheckRange", ctx, "boat-1", r).
		Return(&domain.ConflictError{Conflicts: []domain.UnavailablePeriod{{Kind: domain.PeriodKindBooking, Range: r}}}).Once()

	flow, err := f.service.Start(ctx, StartInput{BoatID: "boat-1", Range: r})

	assert.Nil(t, flow)
	var cerr *domain.ConflictError
	assert.ErrorAs(t, err, &cerr)
	assert.Empty(t, f.flows.flows)
}

func TestReservationService_Start_OwnerOwnBoat(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	r := mustRange(t, "2025-06-10", "2025-06-15")

	f.boats.On("GetByID", ctx, "boat-1").Return(testBoat, nil).Once()
	f.periods.On("CheckRange", ctx, "boat-1", r).Return(nil).Once()
	f.identity.On("EstablishSession", ctx, "token").
		Return(&identity.Identity{UserID: "owner-1", Role: domain.RoleOwner}, nil).Once()

	flow, err := f.service.Start(ctx, StartInput{BoatID: "boat-1", Range: r, SessionToken: "token"})

	assert.Nil(t, flow)
	var perr *domain.PolicyError
	assert.ErrorAs(t, err, &perr)
	assert.Equal(t, "own_listing", perr.Rule)
}

func startedFlow(t *testing.T, f *fixture, renterID string, step Step) *Flow {
	t.Helper()
	flow := &Flow{
		ID:              "flow-1",
		BoatID:          "boat-1",
		OwnerID:         "owner-1",
		Range:           mustRange(t, "2025-06-10", "2025-06-15"),
		DailyPriceCents: 20000,
		TotalCents:      110000,
		RenterID:        renterID,
		Step:            step,
	}
	assert.NoError(t, f.flows.SaveFlow(context.Background(), flow.ID, flow))
	return flow
}

func TestReservationService_EstablishIdentity_SignIn(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	startedFlow(t, f, "", StepIdentity)

	f.identity.On("SignIn", ctx, "renter@example.com", "secretpass").
		Return(&identity.Identity{UserID: "renter-1", Role: domain.RoleRenter}, "jwt", nil).Once()

	flow, err := f.service.EstablishIdentity(ctx, "flow-1", IdentityInput{Email: "renter@example.com", Password: "secretpass"})

	assert.NoError(t, err)
	assert.Equal(t, StepPayment, flow.Step)
	assert.Equal(t, "renter-1", flow.RenterID)
	// The candidate range set at the start must survive the step.
	assert.Equal(t, mustRange(t, "2025-06-10", "2025-06-15"), flow.Range)
}

func TestReservationService_EstablishIdentity_AlreadyPassedIsNoOp(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	startedFlow(t, f, "renter-1", StepPayment)

	flow, err := f.service.EstablishIdentity(ctx, "flow-1", IdentityInput{Email: "other@example.com", Password: "secretpass"})

	assert.NoError(t, err)
	assert.Equal(t, StepPayment, flow.Step)
	assert.Equal(t, "renter-1", flow.RenterID)
	f.identity.AssertNotCalled(t, "SignIn", mock.Anything, mock.Anything, mock.Anything)
}

func TestReservationService_EstablishIdentity_OwnerRoleRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	startedFlow(t, f, "", StepIdentity)

	f.identity.On("SignIn", ctx, "other-owner@example.com", "secretpass").
		Return(&identity.Identity{UserID: "owner-2", Role: domain.RoleOwner}, "jwt", nil).Once()

	flow, err := f.service.EstablishIdentity(ctx, "flow-1", IdentityInput{Email: "other-owner@example.com", Password: "secretpass"})

	assert.Nil(t, flow)
	var perr *domain.PolicyError
	assert.ErrorAs(t, err, &perr)
	assert.Equal(t, "renter_role", perr.Rule)
}

func TestReservationService_Pay_BeforeIdentityRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	startedFlow(t, f, "", StepIdentity)

	flow, booking, err := f.service.Pay(ctx, "flow-1", payment.Instrument{Method: "card", Token: "tok"})

	assert.Nil(t, flow)
	assert.Nil(t, booking)
	var perr *domain.PolicyError
	assert.ErrorAs(t, err, &perr)
	assert.Equal(t, "step_order", perr.Rule)
	f.payments.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything, mock.Anything)
}

func TestReservationService_Pay_Success(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	startedFlow(t, f, "renter-1", StepPayment)
	instrument := payment.Instrument{Method: "card", Token: "tok"}

	f.payments.On("Charge", ctx, int64(110000), instrument).
		Return(&payment.Receipt{Success: true, Reference: "pay_123"}, nil).Once()
	f.bookings.On("Materialize", ctx, bookingsvc.MaterializeInput{
		BoatID:           "boat-1",
		RenterID:         "renter-1",
		Range:            mustRange(t, "2025-06-10", "2025-06-15"),
		PaymentReference: "pay_123",
	}).Return(&domain.Booking{ID: "booking-1", Status: domain.BookingStatusPending}, nil).Once()

	flow, booking, err := f.service.Pay(ctx, "flow-1", instrument)

	assert.NoError(t, err)
	assert.Equal(t, StepDone, flow.Step)
	assert.Equal(t, "booking-1", flow.BookingID)
	assert.Equal(t, "booking-1", booking.ID)
	f.payments.AssertExpectations(t)
	f.bookings.AssertExpectations(t)
}

func TestReservationService_Pay_DeclinedKeepsFlowRetryable(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	startedFlow(t, f, "renter-1", StepPayment)
	instrument := payment.Instrument{Method: "card", Token: "tok"}

	f.payments.On("Charge", ctx, int64(110000), instrument).
		Return(nil, &payment.DeclinedError{Reason: "insufficient funds"}).Once()

	flow, booking, err := f.service.Pay(ctx, "flow-1", instrument)

	assert.Nil(t, flow)
	assert.Nil(t, booking)
	var derr *payment.DeclinedError
	assert.ErrorAs(t, err, &derr)
	f.bookings.AssertNotCalled(t, "Materialize", mock.Anything, mock.Anything)

	// The flow survives with its range intact for a retry.
	var saved Flow
	found, err := f.flows.GetFlow(ctx, "flow-1", &saved)
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, StepPayment, saved.Step)
	assert.Equal(t, mustRange(t, "2025-06-10", "2025-06-15"), saved.Range)
}

func TestReservationService_Pay_RetryAfterChargeSkipsRecharge(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	flow := startedFlow(t, f, "renter-1", StepPayment)
	flow.PaymentReference = "pay_123"
	assert.NoError(t, f.flows.SaveFlow(ctx, flow.ID, flow))

	f.bookings.On("Materialize", ctx, mock.MatchedBy(func(input bookingsvc.MaterializeInput) bool {
		return input.PaymentReference == "pay_123"
	})).Return(&domain.Booking{ID: "booking-1", Status: domain.BookingStatusPending}, nil).Once()

	_, booking, err := f.service.Pay(ctx, "flow-1", payment.Instrument{Method: "card", Token: "tok"})

	assert.NoError(t, err)
	assert.Equal(t, "booking-1", booking.ID)
	f.payments.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything, mock.Anything)
}

func TestReservationService_Pay_CompletedFlowReplaysBooking(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	flow := startedFlow(t, f, "renter-1", StepDone)
	flow.PaymentReference = "pay_123"
	flow.BookingID = "booking-1"
	assert.NoError(t, f.flows.SaveFlow(ctx, flow.ID, flow))

	f.bookings.On("GetByID", ctx, "booking-1").
		Return(&domain.Booking{ID: "booking-1", Status: domain.BookingStatusPending}, nil).Once()

	_, booking, err := f.service.Pay(ctx, "flow-1", payment.Instrument{Method: "card", Token: "tok"})

	assert.NoError(t, err)
	assert.Equal(t, "booking-1", booking.ID)
	f.payments.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything, mock.Anything)
	f.bookings.AssertNotCalled(t, "Materialize", mock.Anything, mock.Anything)
}

func TestReservationService_Pay_ConflictReversesCharge(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	startedFlow(t, f, "renter-1", StepPayment)
	instrument := payment.Instrument{Method: "card", Token: "tok"}

	f.payments.On("Charge", ctx, int64(110000), instrument).
		Return(&payment.Receipt{Success: true, Reference: "pay_123"}, nil).Once()
	f.bookings.On("Materialize", ctx, mock.Anything).
		Return(nil, &domain.ConflictError{Conflicts: []domain.UnavailablePeriod{{
			Kind:  domain.PeriodKindBooking,
			Range: mustRange(t, "2025-06-12", "2025-06-14"),
		}}}).Once()
	f.payments.On("Reverse", ctx, "pay_123").Return(nil).Once()

	flow, booking, err := f.service.Pay(ctx, "flow-1", instrument)

	assert.Nil(t, flow)
	assert.Nil(t, booking)
	var cerr *domain.ConflictError
	assert.ErrorAs(t, err, &cerr)
	f.payments.AssertExpectations(t)

	// The flow is retired: these dates cannot be retried.
	var saved Flow
	found, gerr := f.flows.GetFlow(ctx, "flow-1", &saved)
	assert.NoError(t, gerr)
	assert.False(t, found)
}

func TestReservationService_Pay_UnknownFlow(t *testing.T) {
	f := newFixture()

	flow, booking, err := f.service.Pay(context.Background(), "missing", payment.Instrument{Method: "card", Token: "tok"})

	assert.Nil(t, flow)
	assert.Nil(t, booking)
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, "flow", verr.Field)
}
