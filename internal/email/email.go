package email

import (
	"context"

	"github.com/sailingloc/boatbooking/internal/domain"
	"github.com/sailingloc/boatbooking/internal/kafka"
	"go.uber.org/zap"
)

// UserDirectory resolves a recipient address when the event carries none.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// Sender delivers booking notifications. Fire-and-forget: a delivery
// failure is logged and never propagates back into a booking transition.
type Sender struct {
	users  UserDirectory
	logger *zap.Logger
}

func NewSender(users UserDirectory, logger *zap.Logger) *Sender {
	return &Sender{users: users, logger: logger}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	recipient := event.RenterEmail
	if recipient == "" && s.users != nil {
		user, err := s.users.GetByID(ctx, event.RenterID)
		if err != nil {
			s.logger.Warn("resolve notification recipient",
				zap.String("booking_id", event.BookingID),
				zap.String("renter_id", event.RenterID),
				zap.Error(err),
			)
			return nil
		}
		recipient = user.Email
	}

	s.logger.Info("sending booking notification",
		zap.String("type", event.Type),
		zap.String("booking_id", event.BookingID),
		zap.String("recipient", recipient),
		zap.String("stay", event.Start+".."+event.End),
	)
	return nil
}
