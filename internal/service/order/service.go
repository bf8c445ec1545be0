package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/miras-dev/taxi-dispatch/internal/domain/models"
	"github.com/miras-dev/taxi-dispatch/internal/domain/types"
	"github.com/miras-dev/taxi-dispatch/internal/service/geo"
	"github.com/miras-dev/taxi-dispatch/pkg/logger"
	wrap "github.com/miras-dev/taxi-dispatch/pkg/logger/wrapper"
	"github.com/miras-dev/taxi-dispatch/pkg/metrics"
	"github.com/miras-dev/taxi-dispatch/pkg/trm"
)

const serviceName = "dispatch"

/*
Service is the order lifecycle engine. Every transition runs inside a single
transaction that locks the order row first, so concurrent attempts on the
same order serialize and at most one wins; the associated driver update joins
the same transaction, so a directory failure aborts the whole transition.
Lifecycle events are emitted only after the transaction commits.
*/
type Service struct {
	orders     OrderRepo
	drivers    DriverDirectory
	passengers PassengerDirectory
	emitter    Emitter
	index      *geo.Index
	trm        trm.TxManager
	l          logger.Logger

	orderNoRetries int
}

// New returns a new instance of the order service with all dependencies injected.
func New(orders OrderRepo, drivers DriverDirectory, passengers PassengerDirectory, emitter Emitter, index *geo.Index, trm trm.TxManager, l logger.Logger, orderNoRetries int) *Service {
	if orderNoRetries <= 0 {
		orderNoRetries = 3
	}
	return &Service{
		orders:         orders,
		drivers:        drivers,
		passengers:     passengers,
		emitter:        emitter,
		index:          index,
		trm:            trm,
		l:              l,
		orderNoRetries: orderNoRetries,
	}
}

// CreateOrderRequest carries everything a dispatch request may specify.
type CreateOrderRequest struct {
	PassengerID uuid.UUID
	OrderType   types.OrderType
	Pickup      models.Location
	Destination models.Location
	ReservedAt  *time.Time
	Remark      string
}

// Create validates the passenger, prices the trip and persists a new PENDING
// order under a fresh unique order number. Number collisions are retried
// silently with a new number.
func (s *Service) Create(ctx context.Context, req CreateOrderRequest) (*models.Order, error) {
	ctx = wrap.WithAction(ctx, "create_order")

	if _, err := s.passengers.GetPassenger(ctx, req.PassengerID); err != nil {
		return nil, wrap.Error(ctx, err)
	}

	orderType := req.OrderType
	if orderType == "" {
		orderType = types.TypeImmediate
	}

	now := time.Now()
	distance := geo.Haversine(req.Pickup, req.Destination)
	duration := estimateDuration(distance)

	departure := now
	if orderType == types.TypeReserved && req.ReservedAt != nil {
		departure = *req.ReservedAt
	}
	fare := estimateFare(distance, duration, departure)

	o := &models.Order{
		ID:          uuid.New(),
		PassengerID: req.PassengerID,
		OrderType:   orderType,
		Status:      types.StatusPending,
		PayStatus:   types.PayUnpaid,
		Pickup:      req.Pickup,
		Destination: req.Destination,
		Remark:      req.Remark,
		ReservedAt:  req.ReservedAt,

		EstimatedDistanceKm:  distance,
		EstimatedDurationMin: duration,
		EstimatedPrice:       fare.Total(),
		Fare:                 fare,

		CreatedAt: now,
		UpdatedAt: now,
	}

	var lastErr error
	for attempt := 0; attempt < s.orderNoRetries; attempt++ {
		orderNo, err := generateOrderNo(time.Now())
		if err != nil {
			return nil, wrap.Error(ctx, fmt.Errorf("could not generate order number: %w", err))
		}
		o.OrderNo = orderNo

		err = s.trm.Do(ctx, func(ctx context.Context) error {
			return s.orders.Create(ctx, o)
		})
		if err == nil {
			lastErr = nil
			break
		}
		if !errors.Is(err, types.ErrConflict) {
			return nil, wrap.Error(ctx, err)
		}

		// Collision on order_no: retry with a fresh number.
		s.l.Warn(ctx, "order number collision, retrying", "order_no", orderNo, "attempt", attempt+1)
		lastErr = err
	}
	if lastErr != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%w: order number retries exhausted: %v", types.ErrInternal, lastErr))
	}

	metrics.OrdersCreatedTotal.WithLabelValues(serviceName, string(orderType)).Inc()
	metrics.ActiveOrdersGauge.WithLabelValues(serviceName).Inc()

	s.l.Info(wrap.WithOrderID(ctx, o.ID.String()), "order created", "order_no", o.OrderNo, "estimated_price", int64(o.EstimatedPrice))
	s.emitter.Emit(ctx, types.EventOrderCreated, o)

	return o, nil
}

// Accept lets a driver claim a pending order. The order row lock makes the
// accept race deterministic: one caller wins, the rest see the order already
// accepted and fail with ErrInvalidState.
func (s *Service) Accept(ctx context.Context, orderID, driverID uuid.UUID) (*models.Order, error) {
	ctx = wrap.WithAction(ctx, "accept_order")
	ctx = wrap.WithDriverID(ctx, driverID.String())

	var accepted *models.Order

	err := s.trm.Do(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return wrap.Error(ctx, err)
		}

		if o.Status != types.StatusPending {
			return wrap.Error(ctx, fmt.Errorf("%w: order is %s", types.ErrInvalidState, o.Status))
		}

		driver, err := s.drivers.GetDriver(ctx, driverID)
		if err != nil {
			return wrap.Error(ctx, err)
		}
		if driver.VerifyStatus != types.VerifyApproved {
			return wrap.Error(ctx, fmt.Errorf("%w: driver is not approved", types.ErrInvalidState))
		}
		if driver.Status != types.DriverOnline {
			return wrap.Error(ctx, fmt.Errorf("%w: driver is not online", types.ErrInvalidState))
		}

		now := time.Now()
		o.Status = types.StatusAccepted
		o.DriverID = &driverID
		o.AcceptedAt = &now

		if err := s.orders.Update(ctx, o); err != nil {
			return wrap.Error(ctx, err)
		}
		if err := s.drivers.SetStatus(ctx, driverID, types.DriverBusy); err != nil {
			return wrap.Error(ctx, err)
		}

		accepted = o
		return nil
	})

	metrics.RecordTransition(serviceName, types.StatusAccepted.String(), err)
	if err != nil {
		return nil, err
	}

	s.l.Info(wrap.WithOrderID(ctx, orderID.String()), "order accepted")
	s.emitter.Emit(ctx, types.EventOrderAccepted, accepted)

	return accepted, nil
}

// DriverArrived marks the driver as waiting at the pickup point.
func (s *Service) DriverArrived(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	ctx = wrap.WithAction(ctx, "driver_arrived")

	o, err := s.transition(ctx, orderID, types.StatusAccepted, func(o *models.Order, now time.Time) error {
		o.Status = types.StatusDriverArrived
		o.ArrivedAt = &now
		return nil
	})
	metrics.RecordTransition(serviceName, types.StatusDriverArrived.String(), err)
	if err != nil {
		return nil, err
	}

	s.emitter.Emit(ctx, types.EventDriverArrived, o)
	return o, nil
}

// StartTrip begins the trip once the driver has arrived.
func (s *Service) StartTrip(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	ctx = wrap.WithAction(ctx, "start_trip")

	o, err := s.transition(ctx, orderID, types.StatusDriverArrived, func(o *models.Order, now time.Time) error {
		o.Status = types.StatusInProgress
		o.StartedAt = &now
		return nil
	})
	metrics.RecordTransition(serviceName, types.StatusInProgress.String(), err)
	if err != nil {
		return nil, err
	}

	s.emitter.Emit(ctx, types.EventTripStarted, o)
	return o, nil
}

// CompleteTrip finishes an in-progress trip. The actual price comes from the
// caller (pricing policy is external); actual distance and duration are
// derived from the recorded route and timestamps. Payment stays UNPAID.
func (s *Service) CompleteTrip(ctx context.Context, orderID uuid.UUID, actualPrice models.Money) (*models.Order, error) {
	ctx = wrap.WithAction(ctx, "complete_trip")

	o, err := s.transition(ctx, orderID, types.StatusInProgress, func(o *models.Order, now time.Time) error {
		o.Status = types.StatusCompleted
		o.CompletedAt = &now
		o.ActualPrice = &actualPrice

		o.ActualDurationMin = models.TripDurationMin(o)
		if len(o.Route) > 1 {
			o.ActualDistanceKm = geo.RouteDistanceKm(o.Route)
		} else {
			o.ActualDistanceKm = o.EstimatedDistanceKm
		}

		if o.DriverID != nil {
			if err := s.drivers.SetStatus(ctx, *o.DriverID, types.DriverOnline); err != nil {
				return err
			}
			if err := s.drivers.IncrementOrderStats(ctx, *o.DriverID, true); err != nil {
				return err
			}
		}
		return nil
	})
	metrics.RecordTransition(serviceName, types.StatusCompleted.String(), err)
	if err != nil {
		return nil, err
	}

	metrics.ActiveOrdersGauge.WithLabelValues(serviceName).Dec()
	s.l.Info(wrap.WithOrderID(ctx, orderID.String()), "trip completed", "actual_price", int64(actualPrice))
	s.emitter.Emit(ctx, types.EventTripCompleted, o)

	return o, nil
}

// CancelOrder cancels an order that has not started yet. If a driver was
// already assigned they are released back online and their cancelled-order
// counter is incremented.
func (s *Service) CancelOrder(ctx context.Context, orderID uuid.UUID, reason string, cancelledBy uuid.UUID) (*models.Order, error) {
	ctx = wrap.WithAction(ctx, "cancel_order")

	var cancelled *models.Order

	err := s.trm.Do(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return wrap.Error(ctx, err)
		}

		if !types.CanCancel(o.Status) {
			return wrap.Error(ctx, fmt.Errorf("%w: order is %s", types.ErrInvalidState, o.Status))
		}

		now := time.Now()
		o.Status = types.StatusCancelled
		o.CancelledAt = &now
		o.CancelReason = reason
		o.CancelledBy = &cancelledBy

		if err := s.orders.Update(ctx, o); err != nil {
			return wrap.Error(ctx, err)
		}

		if o.DriverID != nil {
			if err := s.drivers.SetStatus(ctx, *o.DriverID, types.DriverOnline); err != nil {
				return wrap.Error(ctx, err)
			}
			if err := s.drivers.IncrementOrderStats(ctx, *o.DriverID, false); err != nil {
				return wrap.Error(ctx, err)
			}
		}

		cancelled = o
		return nil
	})

	metrics.RecordTransition(serviceName, types.StatusCancelled.String(), err)
	if err != nil {
		return nil, err
	}

	metrics.ActiveOrdersGauge.WithLabelValues(serviceName).Dec()
	s.l.Info(wrap.WithOrderID(ctx, orderID.String()), "order cancelled", "reason", reason)
	s.emitter.Emit(ctx, types.EventOrderCancelled, cancelled)

	return cancelled, nil
}

// Timeout expires a pending order that no driver claimed. Called by an
// external sweeper; same atomicity discipline as Cancel.
func (s *Service) Timeout(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	ctx = wrap.WithAction(ctx, "timeout_order")

	o, err := s.transition(ctx, orderID, types.StatusPending, func(o *models.Order, now time.Time) error {
		o.Status = types.StatusTimeout
		o.CancelledAt = &now
		return nil
	})
	metrics.RecordTransition(serviceName, types.StatusTimeout.String(), err)
	if err != nil {
		return nil, err
	}

	metrics.ActiveOrdersGauge.WithLabelValues(serviceName).Dec()
	s.emitter.Emit(ctx, types.EventOrderTimeout, o)
	return o, nil
}

// PayOrder records payment for an unpaid order and credits the driver's
// income with the actual price, or zero when the trip has not settled yet.
// The only precondition is that the order is still UNPAID.
func (s *Service) PayOrder(ctx context.Context, orderID uuid.UUID, payment models.PaymentInfo) (*models.Order, error) {
	ctx = wrap.WithAction(ctx, "pay_order")

	var paid *models.Order

	err := s.trm.Do(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return wrap.Error(ctx, err)
		}

		if o.PayStatus != types.PayUnpaid {
			return wrap.Error(ctx, fmt.Errorf("%w: order is already %s", types.ErrInvalidState, o.PayStatus))
		}

		if payment.PaidAt.IsZero() {
			payment.PaidAt = time.Now()
		}
		o.PayStatus = types.PayPaid
		o.Payment = &payment

		if err := s.orders.Update(ctx, o); err != nil {
			return wrap.Error(ctx, err)
		}

		if o.DriverID != nil {
			var amount models.Money
			if o.ActualPrice != nil {
				amount = *o.ActualPrice
			}
			if err := s.drivers.UpdateIncome(ctx, *o.DriverID, amount); err != nil {
				return wrap.Error(ctx, err)
			}
		}

		paid = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.l.Info(wrap.WithOrderID(ctx, orderID.String()), "order paid", "method", payment.Method)
	s.emitter.Emit(ctx, types.EventOrderPaid, paid)

	return paid, nil
}

// RateOrder writes a post-trip rating for one side of a completed order.
// Passenger and driver rate independently, in either order. A passenger
// rating also updates the driver's running average in the directory.
func (s *Service) RateOrder(ctx context.Context, orderID uuid.UUID, party types.Party, rating float64, comment string) (*models.Order, error) {
	ctx = wrap.WithAction(ctx, "rate_order")

	if rating < 1 || rating > 5 {
		return nil, wrap.Error(ctx, fmt.Errorf("%w: rating %.1f out of range [1, 5]", types.ErrInvalidState, rating))
	}

	var rated *models.Order

	err := s.trm.Do(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return wrap.Error(ctx, err)
		}

		if o.Status != types.StatusCompleted {
			return wrap.Error(ctx, fmt.Errorf("%w: order is %s, rating requires completion", types.ErrInvalidState, o.Status))
		}

		switch party {
		case types.PartyPassenger:
			o.PassengerRating = &rating
			o.PassengerComment = comment
		case types.PartyDriver:
			o.DriverRating = &rating
			o.DriverComment = comment
		default:
			return wrap.Error(ctx, fmt.Errorf("%w: unknown rating party %q", types.ErrInvalidState, party))
		}

		if err := s.orders.Update(ctx, o); err != nil {
			return wrap.Error(ctx, err)
		}

		if party == types.PartyPassenger && o.DriverID != nil {
			if err := s.drivers.UpdateRating(ctx, *o.DriverID, rating); err != nil {
				return wrap.Error(ctx, err)
			}
		}

		rated = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitter.Emit(ctx, types.EventOrderRated, rated)
	return rated, nil
}

// AppendRoutePoint records a driven route sample for an in-progress trip.
func (s *Service) AppendRoutePoint(ctx context.Context, orderID uuid.UUID, pt models.RoutePoint) error {
	ctx = wrap.WithAction(ctx, "append_route_point")

	return s.trm.Do(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return wrap.Error(ctx, err)
		}
		if o.Status != types.StatusInProgress {
			return wrap.Error(ctx, fmt.Errorf("%w: order is %s", types.ErrInvalidState, o.Status))
		}
		return s.orders.AppendRoutePoint(ctx, orderID, pt)
	})
}

// Get returns an order by id.
func (s *Service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.orders.Get(ctx, orderID)
}

// GetByOrderNo returns an order by its business number.
func (s *Service) GetByOrderNo(ctx context.Context, orderNo string) (*models.Order, error) {
	return s.orders.GetByOrderNo(ctx, orderNo)
}

// Nearby finds available drivers around a point, best-rated first.
func (s *Service) Nearby(ctx context.Context, origin models.Location, radiusKm float64, limit int) ([]models.Driver, error) {
	return s.index.FindNearby(ctx, origin, radiusKm, limit)
}

// Stats returns an aggregate order snapshot.
func (s *Service) Stats(ctx context.Context) (*models.OrderStats, error) {
	return s.orders.Stats(ctx)
}

// transition runs a single-order status change inside a transaction: lock
// the row, require the expected current status, apply, persist.
func (s *Service) transition(ctx context.Context, orderID uuid.UUID, from types.OrderStatus, apply func(o *models.Order, now time.Time) error) (*models.Order, error) {
	var result *models.Order

	err := s.trm.Do(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return wrap.Error(ctx, err)
		}

		if o.Status != from {
			return wrap.Error(ctx, fmt.Errorf("%w: order is %s, expected %s", types.ErrInvalidState, o.Status, from))
		}

		if err := apply(o, time.Now()); err != nil {
			return wrap.Error(ctx, err)
		}

		if err := s.orders.Update(ctx, o); err != nil {
			return wrap.Error(ctx, err)
		}

		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
