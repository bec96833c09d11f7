package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sailingloc/boatbooking/internal/availability"
	"github.com/sailingloc/boatbooking/internal/domain"
)

var ErrBookingNotFound = errors.New("booking not found")

type BookingRepository interface {
	// CreateChecked materializes a booking inside one transaction: it locks
	// the boat row, re-derives the committed period set, re-runs the overlap
	// check and inserts only if the range is still free. A replay with an
	// already-committed payment reference loads the existing booking instead
	// of inserting a second one.
	CreateChecked(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	GetByPaymentReference(ctx context.Context, reference string) (*domain.Booking, error)
	ListActiveByBoat(ctx context.Context, boatID string) ([]domain.Booking, error)
	// UpdateStatus is a compare-and-swap: the row moves to the new status
	// only if it is still in the status the caller observed.
	UpdateStatus(ctx context.Context, id string, from, to domain.BookingStatus) (*domain.Booking, error)
	CompleteFinished(ctx context.Context, before time.Time) ([]domain.Booking, error)
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `id, boat_id, renter_id, owner_id, start_date, end_date, daily_price_cents, status, payment_status, payment_reference, created_at, updated_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.BoatID, &b.RenterID, &b.OwnerID, &b.Range.Start, &b.Range.End, &b.DailyPriceCents, &b.Status, &b.PaymentStatus, &b.PaymentReference, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PGBookingRepository) CreateChecked(ctx context.Context, booking *domain.Booking) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Serializes every writer touching this boat's availability.
	var boatID string
	if err := tx.QueryRow(ctx, `SELECT id FROM boats WHERE id=$1 FOR UPDATE`, booking.BoatID).Scan(&boatID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.ValidationError{Field: "boat_id", Reason: "unknown boat"}
		}
		return err
	}

	// Replay of a confirmed charge: return what was already committed.
	existing, err := scanBookingMaybe(tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE payment_reference=$1`, booking.PaymentReference))
	if err != nil {
		return err
	}
	if existing != nil {
		*booking = *existing
		return tx.Commit(ctx)
	}

	periods, err := committedPeriods(ctx, tx, booking.BoatID)
	if err != nil {
		return err
	}
	if err := availability.NewIndex(periods).CheckRange(booking.Range); err != nil {
		return err
	}

	booking.Status = domain.BookingStatusPending
	if err := tx.QueryRow(ctx, `INSERT INTO bookings (id, boat_id, renter_id, owner_id, start_date, end_date, daily_price_cents, status, payment_status, payment_reference)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		booking.ID, booking.BoatID, booking.RenterID, booking.OwnerID, booking.Range.Start, booking.Range.End,
		booking.DailyPriceCents, booking.Status, booking.PaymentStatus, booking.PaymentReference).
		Scan(&booking.CreatedAt, &booking.UpdatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func committedPeriods(ctx context.Context, tx pgx.Tx, boatID string) ([]domain.UnavailablePeriod, error) {
	var periods []domain.UnavailablePeriod

	rows, err := tx.Query(ctx, `SELECT id, start_date, end_date FROM bookings WHERE boat_id=$1 AND status != $2`, boatID, domain.BookingStatusCancelled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p domain.UnavailablePeriod
		p.BoatID = boatID
		p.Kind = domain.PeriodKindBooking
		if err := rows.Scan(&p.ReferenceID, &p.Range.Start, &p.Range.End); err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	blockRows, err := tx.Query(ctx, `SELECT id, kind, start_date, end_date, reason FROM boat_blocks WHERE boat_id=$1`, boatID)
	if err != nil {
		return nil, err
	}
	defer blockRows.Close()
	for blockRows.Next() {
		var p domain.UnavailablePeriod
		p.BoatID = boatID
		if err := blockRows.Scan(&p.ID, &p.Kind, &p.Range.Start, &p.Range.End, &p.Reason); err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, blockRows.Err()
}

func scanBookingMaybe(row pgx.Row) (*domain.Booking, error) {
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

func (r *PGBookingRepository) GetByPaymentReference(ctx context.Context, reference string) (*domain.Booking, error) {
	return scanBookingMaybe(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE payment_reference=$1`, reference))
}

func (r *PGBookingRepository) ListActiveByBoat(ctx context.Context, boatID string) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE boat_id=$1 AND status != $2 ORDER BY start_date`, boatID, domain.BookingStatusCancelled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// UpdateStatus flips the status column only. Bookings are never deleted:
// cancelled and completed rows stay queryable. The swap is guarded by the
// status the caller validated against, so two racing transitions cannot
// both win and a terminal row cannot be resurrected.
func (r *PGBookingRepository) UpdateStatus(ctx context.Context, id string, from, to domain.BookingStatus) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `UPDATE bookings SET status=$1, updated_at=now() WHERE id=$2 AND status=$3 RETURNING `+bookingColumns, to, id, from))
	if !errors.Is(err, pgx.ErrNoRows) {
		return b, err
	}

	// Zero rows: either the booking is gone, or another transition got
	// there first. Re-read to tell the two apart.
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, &domain.InvalidTransitionError{From: current.Status, To: to}
}

func (r *PGBookingRepository) CompleteFinished(ctx context.Context, before time.Time) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `UPDATE bookings SET status=$1, updated_at=now() WHERE status=$2 AND end_date < $3 RETURNING `+bookingColumns,
		domain.BookingStatusCompleted, domain.BookingStatusConfirmed, domain.Midnight(before))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var completed []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		completed = append(completed, *b)
	}
	return completed, rows.Err()
}

var _ BookingRepository = (*PGBookingRepository)(nil)
