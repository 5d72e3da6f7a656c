package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/trailhead/tour-bookings/internal/domain"
)

type BookingRepository interface {
	// CreateFromCheckout persists a provider-confirmed booking exactly
	// once per checkout session. A second call with the same session id
	// is a no-op: created is false and no error is returned. Webhook
	// delivery is at-least-once, so this is the duplicate guard.
	CreateFromCheckout(ctx context.Context, tourID, userID int64, price float64, sessionID string) (booking *domain.Booking, created bool, err error)
	Create(ctx context.Context, req *domain.BookingCreateReq) (*domain.Booking, error)
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	ListByUserID(ctx context.Context, userID int64, limit, offset int) ([]domain.Booking, error)
}

type bookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) BookingRepository {
	return &bookingRepository{pool: pool}
}

const bookingCols = `id, tour_id, user_id, price, paid, checkout_session_id, created_at`

func (r *bookingRepository) CreateFromCheckout(ctx context.Context, tourID, userID int64, price float64, sessionID string) (*domain.Booking, bool, error) {
	// The unique index on checkout_session_id is the sole concurrency
	// guard; ON CONFLICT DO NOTHING turns redelivery into zero rows.
	const q = `INSERT INTO bookings (tour_id, user_id, price, paid, checkout_session_id)
		VALUES ($1, $2, $3, true, $4)
		ON CONFLICT (checkout_session_id) DO NOTHING
		RETURNING ` + bookingCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var b domain.Booking
	err := r.pool.QueryRow(ctx, q, tourID, userID, price, sessionID).Scan(
		&b.ID, &b.TourID, &b.UserID, &b.Price, &b.Paid, &b.CheckoutSessionID, &b.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &b, true, nil
}

func (r *bookingRepository) Create(ctx context.Context, req *domain.BookingCreateReq) (*domain.Booking, error) {
	const q = `INSERT INTO bookings (tour_id, user_id, price, paid)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + bookingCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var b domain.Booking
	err := r.pool.QueryRow(ctx, q, req.TourID, req.UserID, req.Price, req.Paid).Scan(
		&b.ID, &b.TourID, &b.UserID, &b.Price, &b.Paid, &b.CheckoutSessionID, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var b domain.Booking
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&b.ID, &b.TourID, &b.UserID, &b.Price, &b.Paid, &b.CheckoutSessionID, &b.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return &b, err
}

func (r *bookingRepository) ListByUserID(ctx context.Context, userID int64, limit, offset int) ([]domain.Booking, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(&b.ID, &b.TourID, &b.UserID, &b.Price, &b.Paid, &b.CheckoutSessionID, &b.CreatedAt); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
