package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/trailhead/tour-bookings/internal/domain"
)

type TourRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Tour, error)
	List(ctx context.Context, limit, offset int) ([]domain.Tour, error)
}

type tourRepository struct {
	pool *pgxpool.Pool
}

func NewTourRepository(pool *pgxpool.Pool) TourRepository {
	return &tourRepository{pool: pool}
}

const tourCols = `id, name, slug, summary, image_cover, price, created_at`

func (r *tourRepository) GetByID(ctx context.Context, id int64) (*domain.Tour, error) {
	const q = `SELECT ` + tourCols + ` FROM tours WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var t domain.Tour
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&t.ID, &t.Name, &t.Slug, &t.Summary, &t.ImageCover, &t.Price, &t.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return &t, err
}

func (r *tourRepository) List(ctx context.Context, limit, offset int) ([]domain.Tour, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	const q = `SELECT ` + tourCols + ` FROM tours ORDER BY name LIMIT $1 OFFSET $2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tours []domain.Tour
	for rows.Next() {
		var t domain.Tour
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.Summary, &t.ImageCover, &t.Price, &t.CreatedAt); err != nil {
			return nil, err
		}
		tours = append(tours, t)
	}
	return tours, rows.Err()
}
