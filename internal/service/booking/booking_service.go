// Package booking owns the booking lifecycle: authoritative
// materialization after payment, and the role- and time-gated transitions
// between pending, confirmed, cancelled and completed.
package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sailingloc/boatbooking/internal/domain"
	"github.com/sailingloc/boatbooking/internal/repository"
	"go.uber.org/zap"
)

// ErrBoatBusy means another materialization attempt holds the boat's lock.
// Transient: the caller may retry.
var ErrBoatBusy = errors.New("another booking attempt is in progress for this boat")

type BookingUseCase interface {
	Materialize(ctx context.Context, input MaterializeInput) (*domain.Booking, error)
	Confirm(ctx context.Context, actor domain.Actor, id string) (*domain.Booking, error)
	Cancel(ctx context.Context, actor domain.Actor, id string) (*domain.Booking, error)
	Complete(ctx context.Context, actor domain.Actor, id string) (*domain.Booking, error)
	CompleteFinished(ctx context.Context) ([]domain.Booking, error)
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
}

type Cache interface {
	AcquireBoatLock(ctx context.Context, boatID string, ttl time.Duration) (bool, error)
	ReleaseBoatLock(ctx context.Context, boatID string) error
	InvalidatePeriods(ctx context.Context, boatID string) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type BookingService struct {
	bookings           repository.BookingRepository
	boats              repository.BoatRepository
	cache              Cache
	producer           Producer
	bookingTopic       string
	notificationsTopic string
	lockTTL            time.Duration
	now                func() time.Time
	logger             *zap.Logger
}

type BookingServiceOption func(*BookingService)

// WithNotificationsTopic mirrors every booking event onto a second topic
// consumed by the notifications worker.
func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

type MaterializeInput struct {
	BoatID           string
	RenterID         string
	Range            domain.DateRange
	PaymentReference string
}

func NewBookingService(
	bookings repository.BookingRepository,
	boats repository.BoatRepository,
	cache Cache,
	producer Producer,
	bookingTopic string,
	lockTTL time.Duration,
	logger *zap.Logger,
	opts ...BookingServiceOption,
) *BookingService {
	s := &BookingService{
		bookings:     bookings,
		boats:        boats,
		cache:        cache,
		producer:     producer,
		bookingTopic: bookingTopic,
		lockTTL:      lockTTL,
		now:          time.Now,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Materialize commits a booking after a confirmed charge. This is the
// authoritative availability check: the advisory pre-payment check may be
// stale by the time the charge settles, so the overlap scan runs again
// against the committed period set inside one transaction. Safe to repeat:
// a replay with the same payment reference returns the booking committed
// the first time.
func (s *BookingService) Materialize(ctx context.Context, input MaterializeInput) (*domain.Booking, error) {
	if input.PaymentReference == "" {
		return nil, &domain.ValidationError{Field: "payment_reference", Reason: "payment reference is required"}
	}

	if existing, err := s.bookings.GetByPaymentReference(ctx, input.PaymentReference); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	boat, err := s.boats.GetByID(ctx, input.BoatID)
	if err != nil {
		return nil, err
	}
	if boat.OwnerID == input.RenterID {
		return nil, &domain.PolicyError{Rule: "own_listing", Detail: "owners cannot book their own boats"}
	}

	locked := false
	if s.cache != nil {
		ok, err := s.cache.AcquireBoatLock(ctx, input.BoatID, s.lockTTL)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrBoatBusy
		}
		locked = true
	}
	defer func() {
		if locked {
			_ = s.cache.ReleaseBoatLock(ctx, input.BoatID)
		}
	}()

	booking := &domain.Booking{
		ID:               uuid.NewString(),
		BoatID:           input.BoatID,
		RenterID:         input.RenterID,
		OwnerID:          boat.OwnerID,
		Range:            input.Range,
		DailyPriceCents:  boat.DailyPriceCents,
		PaymentStatus:    domain.PaymentStatusPaid,
		PaymentReference: input.PaymentReference,
	}

	if err := s.bookings.CreateChecked(ctx, booking); err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.InvalidatePeriods(ctx, input.BoatID)
	}
	s.publish(ctx, "booking_created", booking)

	s.logger.Info("booking materialized",
		zap.String("booking_id", booking.ID),
		zap.String("boat_id", booking.BoatID),
		zap.String("range", booking.Range.String()),
	)
	return booking, nil
}

func (s *BookingService) Confirm(ctx context.Context, actor domain.Actor, id string) (*domain.Booking, error) {
	return s.transition(ctx, actor, id, domain.BookingStatusConfirmed, "booking_confirmed")
}

func (s *BookingService) Cancel(ctx context.Context, actor domain.Actor, id string) (*domain.Booking, error) {
	return s.transition(ctx, actor, id, domain.BookingStatusCancelled, "booking_cancelled")
}

func (s *BookingService) Complete(ctx context.Context, actor domain.Actor, id string) (*domain.Booking, error) {
	return s.transition(ctx, actor, id, domain.BookingStatusCompleted, "booking_completed")
}

func (s *BookingService) transition(ctx context.Context, actor domain.Actor, id string, target domain.BookingStatus, eventType string) (*domain.Booking, error) {
	current, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := current.CanTransition(target, actor, s.now()); err != nil {
		return nil, err
	}

	updated, err := s.bookings.UpdateStatus(ctx, id, current.Status, target)
	if err != nil {
		return nil, err
	}

	// The booking-kind period set changed; the next read re-derives it.
	if s.cache != nil {
		_ = s.cache.InvalidatePeriods(ctx, updated.BoatID)
	}
	s.publish(ctx, eventType, updated)
	return updated, nil
}

// CompleteFinished sweeps confirmed bookings whose end date has passed.
// Run by the worker on a cron schedule.
func (s *BookingService) CompleteFinished(ctx context.Context) ([]domain.Booking, error) {
	completed, err := s.bookings.CompleteFinished(ctx, s.now())
	if err != nil {
		return nil, err
	}
	for i := range completed {
		b := &completed[i]
		if s.cache != nil {
			_ = s.cache.InvalidatePeriods(ctx, b.BoatID)
		}
		s.publish(ctx, "booking_completed", b)
	}
	return completed, nil
}

func (s *BookingService) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	return s.bookings.GetByID(ctx, id)
}

func (s *BookingService) publish(ctx context.Context, eventType string, b *domain.Booking) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	event := BookingEventPayload(eventType, b)
	if err := s.producer.Publish(ctx, s.bookingTopic, b.ID, event); err != nil {
		// Notification delivery never rolls back a transition.
		s.logger.Warn("failed to publish booking event",
			zap.String("type", eventType),
			zap.String("booking_id", b.ID),
			zap.Error(err),
		)
	}

	if s.notificationsTopic == "" {
		return
	}
	if err := s.producer.Publish(ctx, s.notificationsTopic, b.ID, event); err != nil {
		s.logger.Warn("failed to publish booking notification",
			zap.String("type", eventType),
			zap.String("booking_id", b.ID),
			zap.Error(err),
		)
	}
}

var _ BookingUseCase = (*BookingService)(nil)
