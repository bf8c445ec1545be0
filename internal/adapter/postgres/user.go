package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/miras-dev/taxi-dispatch/internal/domain/models"
	"github.com/miras-dev/taxi-dispatch/internal/domain/types"
)

type PassengerRepo struct {
	db *pgxpool.Pool
}

func NewPassengerRepo(db *pgxpool.Pool) *PassengerRepo {
	return &PassengerRepo{db: db}
}

func (r *PassengerRepo) GetPassenger(ctx context.Context, id uuid.UUID) (*models.Passenger, error) {
	const op = "PassengerRepo.GetPassenger"
	q := TxorDB(ctx, r.db)

	query := `SELECT id, name FROM passengers WHERE id = $1`

	var p models.Passenger
	err := q.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrPassengerNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &p, nil
}
