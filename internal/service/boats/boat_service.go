package boats

import (
	"context"

	"github.com/sailingloc/boatbooking/internal/domain"
	"github.com/sailingloc/boatbooking/internal/repository"
)

type BoatUseCase interface {
	List(ctx context.Context) ([]domain.Boat, error)
	GetByID(ctx context.Context, id string) (*domain.Boat, error)
}

type Cache interface {
	GetBoats(ctx context.Context) ([]domain.Boat, error)
	SetBoats(ctx context.Context, boats []domain.Boat) error
}

type BoatService struct {
	repo  repository.BoatRepository
	cache Cache
}

func NewBoatService(repo repository.BoatRepository, cache Cache) *BoatService {
	return &BoatService{repo: repo, cache: cache}
}

func (s *BoatService) List(ctx context.Context) ([]domain.Boat, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetBoats(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	boats, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.SetBoats(ctx, boats)
	}
	return boats, nil
}

func (s *BoatService) GetByID(ctx context.Context, id string) (*domain.Boat, error) {
	return s.repo.GetByID(ctx, id)
}

var _ BoatUseCase = (*BoatService)(nil)
