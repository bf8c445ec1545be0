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
	"github.com/miras-dev/taxi-dispatch/pkg/postgres"
)

type OrderRepo struct {
	db *pgxpool.Pool
}

func NewOrderRepo(db *pgxpool.Pool) *OrderRepo {
	return &OrderRepo{db: db}
}

const orderColumns = `
	id, order_no, passenger_id, driver_id, order_type, status, pay_status,
	pickup_latitude, pickup_longitude, pickup_address,
	dest_latitude, dest_longitude, dest_address,
	route,
	estimated_distance_km, estimated_duration_min, estimated_price,
	actual_distance_km, actual_duration_min, actual_price,
	fare_base, fare_distance, fare_duration, fare_night, fare_other, fare_coupon_discount,
	remark, cancel_reason, cancelled_by,
	passenger_rating, passenger_comment, driver_rating, driver_comment,
	payment,
	created_at, reserved_at, accepted_at, arrived_at, started_at, completed_at, cancelled_at, updated_at`

func (r *OrderRepo) Create(ctx context.Context, o *models.Order) error {
	const op = "OrderRepo.Create"
	q := TxorDB(ctx, r.db)

	query := `
		INSERT INTO orders (
			id, order_no, passenger_id, order_type, status, pay_status,
			pickup_latitude, pickup_longitude, pickup_address,
			dest_latitude, dest_longitude, dest_address,
			estimated_distance_km, estimated_duration_min, estimated_price,
			fare_base, fare_distance, fare_duration, fare_night, fare_other, fare_coupon_discount,
			remark, reserved_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6,
		        $7, $8, $9,
		        $10, $11, $12,
		        $13, $14, $15,
		        $16, $17, $18, $19, $20, $21,
		        $22, $23, $24, $25);`

	started := time.Now()
	_, err := q.Exec(ctx, query,
		o.ID, o.OrderNo, o.PassengerID, o.OrderType, o.Status, o.PayStatus,
		o.Pickup.Latitude, o.Pickup.Longitude, o.Pickup.Address,
		o.Destination.Latitude, o.Destination.Longitude, o.Destination.Address,
		o.EstimatedDistanceKm, o.EstimatedDurationMin, int64(o.EstimatedPrice),
		int64(o.Fare.Base), int64(o.Fare.Distance), int64(o.Fare.Duration), int64(o.Fare.Night), int64(o.Fare.Other), int64(o.Fare.CouponDiscount),
		o.Remark, o.ReservedAt, o.CreatedAt, o.UpdatedAt,
	)
	metrics.RecordDatabaseQuery("dispatch", "create_order", err, time.Since(started))
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, types.ErrConflict)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *OrderRepo) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate locks the order row until the surrounding transaction ends.
func (r *OrderRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return r.get(ctx, id, true)
}

func (r *OrderRepo) get(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.Order, error) {
	const op = "OrderRepo.Get"
	q := TxorDB(ctx, r.db)

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	o, err := scanOrder(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrOrderNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return o, nil
}

func (r *OrderRepo) GetByOrderNo(ctx context.Context, orderNo string) (*models.Order, error) {
	const op = "OrderRepo.GetByOrderNo"
	q := TxorDB(ctx, r.db)

	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_no = $1`

	o, err := scanOrder(q.QueryRow(ctx, query, orderNo))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrOrderNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return o, nil
}

func (r *OrderRepo) Update(ctx context.Context, o *models.Order) error {
	const op = "OrderRepo.Update"
	q := TxorDB(ctx, r.db)

	query := `
		UPDATE orders
		SET
			driver_id = $2,
			status = $3,
			pay_status = $4,
			actual_distance_km = $5,
			actual_duration_min = $6,
			actual_price = $7,
			cancel_reason = $8,
			cancelled_by = $9,
			passenger_rating = $10,
			passenger_comment = $11,
			driver_rating = $12,
			driver_comment = $13,
			payment = $14,
			accepted_at = $15,
			arrived_at = $16,
			started_at = $17,
			completed_at = $18,
			cancelled_at = $19,
			updated_at = now()
		WHERE id = $1;`

	var actualPrice *int64
	if o.ActualPrice != nil {
		v := int64(*o.ActualPrice)
		actualPrice = &v
	}

	started := time.Now()
	cmdTag, err := q.Exec(ctx, query,
		o.ID,
		o.DriverID,
		o.Status,
		o.PayStatus,
		o.ActualDistanceKm,
		o.ActualDurationMin,
		actualPrice,
		o.CancelReason,
		o.CancelledBy,
		o.PassengerRating,
		o.PassengerComment,
		o.DriverRating,
		o.DriverComment,
		o.Payment,
		o.AcceptedAt,
		o.ArrivedAt,
		o.StartedAt,
		o.CompletedAt,
		o.CancelledAt,
	)
	metrics.RecordDatabaseQuery("dispatch", "update_order", err, time.Since(started))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return types.ErrOrderNotFound
	}

	return nil
}

// AppendRoutePoint appends a single route sample without rewriting the whole
// route column.
func (r *OrderRepo) AppendRoutePoint(ctx context.Context, id uuid.UUID, pt models.RoutePoint) error {
	const op = "OrderRepo.AppendRoutePoint"
	q := TxorDB(ctx, r.db)

	query := `
		UPDATE orders
		SET route = COALESCE(route, '[]'::jsonb) || to_jsonb($2::json),
		    updated_at = now()
		WHERE id = $1;`

	cmdTag, err := q.Exec(ctx, query, id, pt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return types.ErrOrderNotFound
	}

	return nil
}

func (r *OrderRepo) Stats(ctx context.Context) (*models.OrderStats, error) {
	const op = "OrderRepo.Stats"
	q := TxorDB(ctx, r.db)

	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'PENDING'),
			COUNT(*) FILTER (WHERE status = 'IN_PROGRESS'),
			COUNT(*) FILTER (WHERE status = 'COMPLETED'),
			COUNT(*) FILTER (WHERE status = 'CANCELLED'),
			COUNT(*) FILTER (WHERE created_at >= date_trunc('day', now())),
			COALESCE(SUM(actual_price) FILTER (WHERE pay_status = 'PAID' AND created_at >= date_trunc('day', now())), 0)
		FROM orders;`

	var stats models.OrderStats
	var todayRevenue int64
	err := q.QueryRow(ctx, query).Scan(
		&stats.TotalOrders,
		&stats.PendingOrders,
		&stats.InProgressOrders,
		&stats.CompletedOrders,
		&stats.CancelledOrders,
		&stats.TodayOrders,
		&todayRevenue,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	stats.TodayRevenue = models.Money(todayRevenue)

	return &stats, nil
}

func scanOrder(row pgx.Row) (*models.Order, error) {
	var (
		o           models.Order
		estPrice    int64
		actualPrice *int64
		fare        [6]int64
	)

	err := row.Scan(
		&o.ID, &o.OrderNo, &o.PassengerID, &o.DriverID, &o.OrderType, &o.Status, &o.PayStatus,
		&o.Pickup.Latitude, &o.Pickup.Longitude, &o.Pickup.Address,
		&o.Destination.Latitude, &o.Destination.Longitude, &o.Destination.Address,
		&o.Route,
		&o.EstimatedDistanceKm, &o.EstimatedDurationMin, &estPrice,
		&o.ActualDistanceKm, &o.ActualDurationMin, &actualPrice,
		&fare[0], &fare[1], &fare[2], &fare[3], &fare[4], &fare[5],
		&o.Remark, &o.CancelReason, &o.CancelledBy,
		&o.PassengerRating, &o.PassengerComment, &o.DriverRating, &o.DriverComment,
		&o.Payment,
		&o.CreatedAt, &o.ReservedAt, &o.AcceptedAt, &o.ArrivedAt, &o.StartedAt, &o.CompletedAt, &o.CancelledAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.EstimatedPrice = models.Money(estPrice)
	if actualPrice != nil {
		v := models.Money(*actualPrice)
		o.ActualPrice = &v
	}
	o.Fare = models.Fare{
		Base:           models.Money(fare[0]),
		Distance:       models.Money(fare[1]),
		Duration:       models.Money(fare[2]),
		Night:          models.Money(fare[3]),
		Other:          models.Money(fare[4]),
		CouponDiscount: models.Money(fare[5]),
	}

	return &o, nil
}
