package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sailingloc/boatbooking/internal/domain"
	"github.com/sailingloc/boatbooking/internal/repository"
	"github.com/sailingloc/boatbooking/internal/service/booking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockBookingUseCase struct {
	mock.Mock
}

func (m *MockBookingUseCase) Materialize(ctx context.Context, input booking.MaterializeInput) (*domain.Booking, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) Confirm(ctx context.Context, actor domain.Actor, id string) (*domain.Booking, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) Cancel(ctx context.Context, actor domain.Actor, id string) (*domain.Booking, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) Complete(ctx context.Context, actor domain.Actor, id string) (*domain.Booking, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) CompleteFinished(ctx context.Context) ([]domain.Booking, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func mustRange(t *testing.T, start, end string) domain.DateRange {
	t.Helper()
	r, err := domain.ParseDateRange(start, end)
	assert.NoError(t, err)
	return r
}

func testBooking(t *testing.T) *domain.Booking {
	t.Helper()
	return &domain.Booking{
		ID:              "booking-1",
		BoatID:          "boat-1",
		RenterID:        "renter-1",
		OwnerID:         "owner-1",
		Range:           mustRange(t, "2025-06-10", "2025-06-15"),
		DailyPriceCents: 20000,
		Status:          domain.BookingStatusConfirmed,
		PaymentStatus:   domain.PaymentStatusPaid,
	}
}

func TestBookingHandler_confirm(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/bookings/booking-1/confirm", nil)
	c.Params = gin.Params{{Key: "id", Value: "booking-1"}}

	owner := domain.Actor{ID: "owner-1", Role: domain.RoleOwner}
	c.Set(actorKey, owner)

	confirmed := testBooking(t)
	mockService.On("Confirm", c.Request.Context(), owner, "booking-1").Return(confirmed, nil)

	handler.confirm(c)

	assert.Equal(t, 200, w.Code)
	var resp bookingResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "CONFIRMED", resp.Status)
	assert.Equal(t, "2025-06-10", resp.Start)
	assert.Equal(t, int64(100000), resp.SubtotalCents)
	assert.Equal(t, int64(10000), resp.ServiceFeeCents)
	assert.Equal(t, int64(110000), resp.TotalCents)
	mockService.AssertExpectations(t)
}

func TestBookingHandler_confirm_NoActor(t *testing.T) {
	handler := NewBookingHandler(&MockBookingUseCase{})

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/bookings/booking-1/confirm", nil)
	c.Params = gin.Params{{Key: "id", Value: "booking-1"}}

	handler.confirm(c)

	assert.Equal(t, 401, w.Code)
}

func TestBookingHandler_cancel_PolicyError(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/bookings/booking-1/cancel", nil)
	c.Params = gin.Params{{Key: "id", Value: "booking-1"}}

	renter := domain.Actor{ID: "renter-1", Role: domain.RoleRenter}
	c.Set(actorKey, renter)

	mockService.On("Cancel", c.Request.Context(), renter, "booking-1").
		Return(nil, &domain.PolicyError{Rule: "cancellation_lead_time", Detail: "too late"})

	handler.cancel(c)

	assert.Equal(t, 422, w.Code)
	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "policy", resp["constraint"])
	assert.Equal(t, "cancellation_lead_time", resp["rule"])
}

func TestBookingHandler_complete_InvalidTransition(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/bookings/booking-1/complete", nil)
	c.Params = gin.Params{{Key: "id", Value: "booking-1"}}

	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
	c.Set(actorKey, admin)

	mockService.On("Complete", c.Request.Context(), admin, "booking-1").
		Return(nil, &domain.InvalidTransitionError{From: domain.BookingStatusCancelled, To: domain.BookingStatusCompleted})

	handler.complete(c)

	assert.Equal(t, 422, w.Code)
	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_transition", resp["constraint"])
	assert.Equal(t, "CANCELLED", resp["from"])
}

func TestBookingHandler_get_NotFound(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/bookings/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	c.Set(actorKey, domain.Actor{ID: "renter-1", Role: domain.RoleRenter})

	mockService.On("GetByID", c.Request.Context(), "missing").
		Return(nil, repository.ErrBookingNotFound)

	handler.get(c)

	assert.Equal(t, 404, w.Code)
	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "not_found", resp["constraint"])
}

func TestBookingHandler_get_StorageErrorIsNot404(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/bookings/booking-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "booking-1"}}
	c.Set(actorKey, domain.Actor{ID: "renter-1", Role: domain.RoleRenter})

	mockService.On("GetByID", c.Request.Context(), "booking-1").
		Return(nil, &domain.CollaboratorError{Collaborator: "postgres", Err: errors.New("connection refused")})

	handler.get(c)

	assert.Equal(t, 502, w.Code)
	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "collaborator", resp["constraint"])
}
