package order

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/miras-dev/taxi-dispatch/internal/domain/models"
	"github.com/miras-dev/taxi-dispatch/internal/domain/types"
)

// OrderRepo is the persistence port for orders. GetForUpdate must lock the
// order row for the duration of the surrounding transaction; that lock is
// the per-order serialization point for all transitions.
type OrderRepo interface {
	Create(ctx context.Context, order *models.Order) error
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetByOrderNo(ctx context.Context, orderNo string) (*models.Order, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	Update(ctx context.Context, order *models.Order) error
	AppendRoutePoint(ctx context.Context, id uuid.UUID, pt models.RoutePoint) error
	Stats(ctx context.Context) (*models.OrderStats, error)
}

// DriverDirectory is the interface to the external driver directory. Each
// update must be atomic per driver; the engine never mutates driver rows
// directly.
type DriverDirectory interface {
	GetDriver(ctx context.Context, id uuid.UUID) (*models.Driver, error)
	SetStatus(ctx context.Context, id uuid.UUID, status types.DriverStatus) error
	IncrementOrderStats(ctx context.Context, id uuid.UUID, completed bool) error
	UpdateIncome(ctx context.Context, id uuid.UUID, amount models.Money) error
	// UpdateRating folds a new passenger rating into the driver's running
	// average: (oldAvg*totalOrders + rating) / (totalOrders + 1).
	UpdateRating(ctx context.Context, id uuid.UUID, rating float64) error
	UpdateLocation(ctx context.Context, id uuid.UUID, loc models.Location, at time.Time) error
}

// PassengerDirectory resolves passenger identities. Account management lives
// elsewhere; the engine only checks existence at order creation.
type PassengerDirectory interface {
	GetPassenger(ctx context.Context, id uuid.UUID) (*models.Passenger, error)
}

// Emitter is the notification sink. Fire-and-forget: implementations must
// never block the caller on downstream delivery.
type Emitter interface {
	Emit(ctx context.Context, event types.OrderEvent, order *models.Order)
}
