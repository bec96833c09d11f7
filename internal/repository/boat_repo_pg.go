package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sailingloc/boatbooking/internal/domain"
)

type BoatRepository interface {
	List(ctx context.Context) ([]domain.Boat, error)
	GetByID(ctx context.Context, id string) (*domain.Boat, error)
}

type PGBoatRepository struct {
	db *pgxpool.Pool
}

func NewBoatRepository(db *pgxpool.Pool) BoatRepository {
	return &PGBoatRepository{db: db}
}

func (r *PGBoatRepository) List(ctx context.Context) ([]domain.Boat, error) {
	rows, err := r.db.Query(ctx, `SELECT id, owner_id, name, model, daily_price_cents, equipment, created_at, updated_at FROM boats ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	boats := make([]domain.Boat, 0)
	for rows.Next() {
		var b domain.Boat
		var equipment []byte
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.Name, &b.Model, &b.DailyPriceCents, &equipment, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		if len(equipment) > 0 {
			if err := json.Unmarshal(equipment, &b.Equipment); err != nil {
				return nil, err
			}
		}
		boats = append(boats, b)
	}
	return boats, rows.Err()
}

func (r *PGBoatRepository) GetByID(ctx context.Context, id string) (*domain.Boat, error) {
	row := r.db.QueryRow(ctx, `SELECT id, owner_id, name, model, daily_price_cents, equipment, created_at, updated_at FROM boats WHERE id=$1`, id)
	var b domain.Boat
	var equipment []byte
	if err := row.Scan(&b.ID, &b.OwnerID, &b.Name, &b.Model, &b.DailyPriceCents, &equipment, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	if len(equipment) > 0 {
		if err := json.Unmarshal(equipment, &b.Equipment); err != nil {
			return nil, err
		}
	}
	return &b, nil
}

var _ BoatRepository = (*PGBoatRepository)(nil)
