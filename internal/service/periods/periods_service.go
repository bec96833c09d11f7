// Package periods owns the unavailable-period set of each boat: deriving
// it from live bookings and owner blocks, answering advisory availability
// queries, building the owner calendar, and applying owner block/unblock
// mutations.
package periods

import (
	"context"
	"time"

	"github.com/sailingloc/boatbooking/internal/availability"
	"github.com/sailingloc/boatbooking/internal/domain"
	"github.com/sailingloc/boatbooking/internal/repository"
	"go.uber.org/zap"
)

type PeriodsUseCase interface {
	ListPeriods(ctx context.Context, boatID string) ([]domain.UnavailablePeriod, error)
	// CheckRange is the advisory pre-payment availability check. The
	// authoritative check happens again inside booking materialization.
	CheckRange(ctx context.Context, boatID string, candidate domain.DateRange) error
	MonthGrid(ctx context.Context, boatID string, year int, month time.Month, sel *availability.Selection) ([]availability.Cell, error)
	AddManualBlock(ctx context.Context, actor domain.Actor, boatID string, r domain.DateRange, reason string) (*domain.UnavailablePeriod, error)
	RemoveManualBlock(ctx context.Context, actor domain.Actor, boatID, blockID string) error
}

type Cache interface {
	GetPeriods(ctx context.Context, boatID string) ([]domain.UnavailablePeriod, error)
	SetPeriods(ctx context.Context, boatID string, periods []domain.UnavailablePeriod) error
	InvalidatePeriods(ctx context.Context, boatID string) error
}

type PeriodsService struct {
	boats    repository.BoatRepository
	bookings repository.BookingRepository
	blocks   repository.BlockRepository
	cache    Cache
	now      func() time.Time
	logger   *zap.Logger
}

func NewPeriodsService(
	boats repository.BoatRepository,
	bookings repository.BookingRepository,
	blocks repository.BlockRepository,
	cache Cache,
	logger *zap.Logger,
) *PeriodsService {
	return &PeriodsService{
		boats:    boats,
		bookings: bookings,
		blocks:   blocks,
		cache:    cache,
		now:      time.Now,
		logger:   logger,
	}
}

// ListPeriods returns the boat's full unavailable-period set: one derived
// period per non-cancelled booking plus every owner-managed block row.
func (s *PeriodsService) ListPeriods(ctx context.Context, boatID string) ([]domain.UnavailablePeriod, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetPeriods(ctx, boatID); err == nil && cached != nil {
			return cached, nil
		}
	}

	bookings, err := s.bookings.ListActiveByBoat(ctx, boatID)
	if err != nil {
		return nil, err
	}
	blocks, err := s.blocks.ListByBoat(ctx, boatID)
	if err != nil {
		return nil, err
	}

	periods := make([]domain.UnavailablePeriod, 0, len(bookings)+len(blocks))
	for i := range bookings {
		periods = append(periods, bookings[i].UnavailablePeriod())
	}
	periods = append(periods, blocks...)

	if s.cache != nil {
		_ = s.cache.SetPeriods(ctx, boatID, periods)
	}
	return periods, nil
}

func (s *PeriodsService) CheckRange(ctx context.Context, boatID string, candidate domain.DateRange) error {
	periods, err := s.ListPeriods(ctx, boatID)
	if err != nil {
		return err
	}
	return availability.NewIndex(periods).ValidateCandidate(s.now(), candidate)
}

func (s *PeriodsService) MonthGrid(ctx context.Context, boatID string, year int, month time.Month, sel *availability.Selection) ([]availability.Cell, error) {
	periods, err := s.ListPeriods(ctx, boatID)
	if err != nil {
		return nil, err
	}
	return availability.MonthGrid(year, month, s.now(), availability.NewIndex(periods), sel), nil
}

func (s *PeriodsService) AddManualBlock(ctx context.Context, actor domain.Actor, boatID string, r domain.DateRange, reason string) (*domain.UnavailablePeriod, error) {
	if err := s.authorizeOwner(ctx, actor, boatID); err != nil {
		return nil, err
	}

	period := &domain.UnavailablePeriod{
		BoatID: boatID,
		Kind:   domain.PeriodKindManualBlock,
		Range:  r,
		Reason: reason,
	}
	if err := s.blocks.Add(ctx, period); err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.InvalidatePeriods(ctx, boatID)
	}
	s.logger.Info("manual block added",
		zap.String("boat_id", boatID),
		zap.String("block_id", period.ID),
		zap.String("range", r.String()),
	)
	return period, nil
}

func (s *PeriodsService) RemoveManualBlock(ctx context.Context, actor domain.Actor, boatID, blockID string) error {
	if err := s.authorizeOwner(ctx, actor, boatID); err != nil {
		return err
	}

	if err := s.blocks.Remove(ctx, boatID, blockID); err != nil {
		return err
	}

	if s.cache != nil {
		_ = s.cache.InvalidatePeriods(ctx, boatID)
	}
	s.logger.Info("manual block removed", zap.String("boat_id", boatID), zap.String("block_id", blockID))
	return nil
}

func (s *PeriodsService) authorizeOwner(ctx context.Context, actor domain.Actor, boatID string) error {
	if actor.Role == domain.RoleAdmin {
		return nil
	}
	boat, err := s.boats.GetByID(ctx, boatID)
	if err != nil {
		return err
	}
	if boat.OwnerID != actor.ID {
		return &domain.PolicyError{Rule: "block_owner", Detail: "only the boat owner may manage its blocks"}
	}
	return nil
}

var _ PeriodsUseCase = (*PeriodsService)(nil)
