package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sailingloc/boatbooking/internal/domain"
)

var ErrBlockNotFound = errors.New("block not found")

// BlockRepository persists owner-managed periods: manual blocks and
// available overrides. Booking-kind periods are derived from bookings and
// never stored here.
type BlockRepository interface {
	ListByBoat(ctx context.Context, boatID string) ([]domain.UnavailablePeriod, error)
	Add(ctx context.Context, p *domain.UnavailablePeriod) error
	Remove(ctx context.Context, boatID, blockID string) error
}

type PGBlockRepository struct {
	db *pgxpool.Pool
}

func NewBlockRepository(db *pgxpool.Pool) BlockRepository {
	return &PGBlockRepository{db: db}
}

func (r *PGBlockRepository) ListByBoat(ctx context.Context, boatID string) ([]domain.UnavailablePeriod, error) {
	rows, err := r.db.Query(ctx, `SELECT id, boat_id, kind, start_date, end_date, reason, created_at FROM boat_blocks WHERE boat_id=$1 ORDER BY start_date`, boatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	periods := make([]domain.UnavailablePeriod, 0)
	for rows.Next() {
		var p domain.UnavailablePeriod
		if err := rows.Scan(&p.ID, &p.BoatID, &p.Kind, &p.Range.Start, &p.Range.End, &p.Reason, &p.CreatedAt); err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

// Add inserts inside a transaction holding the boat row lock, the same lock
// materialization takes, so a block never lands mid-way through a concurrent
// booking's availability check.
func (r *PGBlockRepository) Add(ctx context.Context, p *domain.UnavailablePeriod) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var boatID string
	if err := tx.QueryRow(ctx, `SELECT id FROM boats WHERE id=$1 FOR UPDATE`, p.BoatID).Scan(&boatID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.ValidationError{Field: "boat_id", Reason: "unknown boat"}
		}
		return err
	}

	if err := tx.QueryRow(ctx, `INSERT INTO boat_blocks (boat_id, kind, start_date, end_date, reason)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`, p.BoatID, p.Kind, p.Range.Start, p.Range.End, p.Reason).
		Scan(&p.ID, &p.CreatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *PGBlockRepository) Remove(ctx context.Context, boatID, blockID string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM boat_blocks WHERE id=$1 AND boat_id=$2`, blockID, boatID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrBlockNotFound
	}
	return nil
}

var _ BlockRepository = (*PGBlockRepository)(nil)
