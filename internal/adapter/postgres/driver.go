package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/miras-dev/taxi-dispatch/internal/domain/models"
	"github.com/miras-dev/taxi-dispatch/internal/domain/types"
	"github.com/miras-dev/taxi-dispatch/pkg/metrics"
)

// DriverRepo is the directory adapter for drivers. Every write is a single
// UPDATE statement, so each update is atomic per driver without needing a
// surrounding transaction.
type DriverRepo struct {
	db *pgxpool.Pool
}

func NewDriverRepo(db *pgxpool.Pool) *DriverRepo {
	return &DriverRepo{db: db}
}

const driverColumns = `
	id, name, status, verify_status,
	latitude, longitude, location_updated_at,
	rating, total_orders, completed_orders, cancelled_orders,
	total_income, this_month_income, this_week_income, today_income,
	created_at, updated_at`

func (r *DriverRepo) GetDriver(ctx context.Context, id uuid.UUID) (*models.Driver, error) {
	const op = "DriverRepo.GetDriver"
	q := TxorDB(ctx, r.db)

	query := `SELECT ` + driverColumns + ` FROM drivers WHERE id = $1`

	d, err := scanDriver(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrDriverNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return d, nil
}

func (r *DriverRepo) GetDrivers(ctx context.Context, ids []uuid.UUID) ([]models.Driver, error) {
	const op = "DriverRepo.GetDrivers"
	q := TxorDB(ctx, r.db)

	query := `SELECT ` + driverColumns + ` FROM drivers WHERE id = ANY($1)`

	rows, err := q.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	return collectDrivers(rows, op)
}

func (r *DriverRepo) ListAvailable(ctx context.Context) ([]models.Driver, error) {
	const op = "DriverRepo.ListAvailable"
	q := TxorDB(ctx, r.db)

	query := `SELECT ` + driverColumns + ` FROM drivers
		WHERE status = 'ONLINE' AND verify_status = 'APPROVED'`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	return collectDrivers(rows, op)
}

// exec runs a single-driver UPDATE, records the directory metric and maps a
// zero row count to ErrDriverNotFound.
func (r *DriverRepo) exec(ctx context.Context, op, query string, args ...any) error {
	q := TxorDB(ctx, r.db)

	cmdTag, err := q.Exec(ctx, query, args...)
	metrics.RecordDirectoryOp("dispatch", op, err)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return types.ErrDriverNotFound
	}

	return nil
}

func (r *DriverRepo) SetStatus(ctx context.Context, id uuid.UUID, status types.DriverStatus) error {
	query := `UPDATE drivers SET status = $2, updated_at = now() WHERE id = $1`
	return r.exec(ctx, "set_status", query, id, status)
}

func (r *DriverRepo) IncrementOrderStats(ctx context.Context, id uuid.UUID, completed bool) error {
	query := `
		UPDATE drivers
		SET total_orders = total_orders + 1,
		    completed_orders = completed_orders + CASE WHEN $2 THEN 1 ELSE 0 END,
		    cancelled_orders = cancelled_orders + CASE WHEN $2 THEN 0 ELSE 1 END,
		    updated_at = now()
		WHERE id = $1;`

	return r.exec(ctx, "increment_order_stats", query, id, completed)
}

func (r *DriverRepo) UpdateIncome(ctx context.Context, id uuid.UUID, amount models.Money) error {
	query := `
		UPDATE drivers
		SET total_income = total_income + $2,
		    this_month_income = this_month_income + $2,
		    this_week_income = this_week_income + $2,
		    today_income = today_income + $2,
		    updated_at = now()
		WHERE id = $1;`

	return r.exec(ctx, "update_income", query, id, int64(amount))
}

// UpdateRating folds one new rating into the running average in a single
// statement, so concurrent ratings cannot lose updates. total_orders is read
// and the new average computed by the database atomically.
func (r *DriverRepo) UpdateRating(ctx context.Context, id uuid.UUID, rating float64) error {
	query := `
		UPDATE drivers
		SET rating = CASE
		        WHEN total_orders <= 0 THEN $2
		        ELSE (rating * total_orders + $2) / (total_orders + 1)
		    END,
		    updated_at = now()
		WHERE id = $1;`

	return r.exec(ctx, "update_rating", query, id, rating)
}

func (r *DriverRepo) UpdateLocation(ctx context.Context, id uuid.UUID, loc models.Location, at time.Time) error {
	query := `
		UPDATE drivers
		SET latitude = $2,
		    longitude = $3,
		    location_updated_at = $4,
		    updated_at = now()
		WHERE id = $1;`

	return r.exec(ctx, "update_location", query, id, loc.Latitude, loc.Longitude, at)
}

func collectDrivers(rows pgx.Rows, op string) ([]models.Driver, error) {
	var drivers []models.Driver
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		drivers = append(drivers, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return drivers, nil
}

func scanDriver(row pgx.Row) (*models.Driver, error) {
	var (
		d      models.Driver
		income [4]int64
	)

	err := row.Scan(
		&d.ID, &d.Name, &d.Status, &d.VerifyStatus,
		&d.Location.Latitude, &d.Location.Longitude, &d.LocationUpdatedAt,
		&d.Rating, &d.TotalOrders, &d.CompletedOrders, &d.CancelledOrders,
		&income[0], &income[1], &income[2], &income[3],
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.TotalIncome = models.Money(income[0])
	d.ThisMonthIncome = models.Money(income[1])
	d.ThisWeekIncome = models.Money(income[2])
	d.TodayIncome = models.Money(income[3])

	return &d, nil
}
