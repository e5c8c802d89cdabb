package repository

import (
	"context"

	"github.com/Domenick1991/parkus/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGSpotRepository struct {
	db *pgxpool.Pool
}

func NewSpotRepository(db *pgxpool.Pool) SpotRepository {
	return &PGSpotRepository{db: db}
}

func (r *PGSpotRepository) Create(ctx context.Context, spot *domain.ParkingSpot) error {
	err := r.db.QueryRow(ctx, `INSERT INTO parking_spots (owner_id, title, location, price_per_hour_cents)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`, spot.OwnerID, spot.Title, spot.Location, spot.PricePerHour.Cents()).
		Scan(&spot.ID, &spot.CreatedAt)
	if err != nil {
		return storageErr("insert spot", err)
	}
	return nil
}

func (r *PGSpotRepository) GetByID(ctx context.Context, id int64) (*domain.ParkingSpot, error) {
	return getSpot(ctx, r.db, id, false)
}

func getSpot(ctx context.Context, q querier, id int64, forUpdate bool) (*domain.ParkingSpot, error) {
	sql := `SELECT id, owner_id, title, location, price_per_hour_cents, created_at FROM parking_spots WHERE id=$1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	var s domain.ParkingSpot
	var price int64
	if err := q.QueryRow(ctx, sql, id).Scan(&s.ID, &s.OwnerID, &s.Title, &s.Location, &price, &s.CreatedAt); err != nil {
		return nil, notFoundOr("get spot", err)
	}
	s.PricePerHour = domain.Money(price)
	return &s, nil
}

var _ SpotRepository = (*PGSpotRepository)(nil)
