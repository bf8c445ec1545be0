package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/miras-dev/taxi-dispatch/internal/domain/types"
)

// Money is an amount in the smallest currency unit (tyin for KZT, cents for
// USD). Integer arithmetic avoids rounding drift on fare math.
type Money int64

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// RoutePoint is a single recorded sample of the driven route.
type RoutePoint struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// Fare itemizes the price components. Total is the authoritative sum;
// individual components are set by the pricing policy, not by the engine.
type Fare struct {
	Base           Money `json:"base"`
	Distance       Money `json:"distance"`
	Duration       Money `json:"duration"`
	Night          Money `json:"night"`
	Other          Money `json:"other"`
	CouponDiscount Money `json:"coupon_discount"`
}

// Total returns the sum of all components minus the coupon discount.
func (f Fare) Total() Money {
	return f.Base + f.Distance + f.Duration + f.Night + f.Other - f.CouponDiscount
}

type PaymentInfo struct {
	Method        string    `json:"method"`
	TransactionID string    `json:"transaction_id"`
	PaidAt        time.Time `json:"paid_at"`
}

// Order is the central entity of the dispatch core. It is a plain record;
// all transition logic lives in the order service.
type Order struct {
	ID      uuid.UUID
	OrderNo string // business key, unique, assigned once at creation

	PassengerID uuid.UUID
	DriverID    *uuid.UUID // nil until accepted, set exactly once

	OrderType types.OrderType
	Status    types.OrderStatus
	PayStatus types.PayStatus

	Pickup      Location
	Destination Location
	Route       []RoutePoint

	// Estimate, fixed at creation.
	EstimatedDistanceKm  float64
	EstimatedDurationMin int
	EstimatedPrice       Money

	// Actuals, set at completion.
	ActualDistanceKm  float64
	ActualDurationMin int
	ActualPrice       *Money

	Fare Fare

	Remark string

	// Cancellation metadata.
	CancelReason string
	CancelledBy  *uuid.UUID

	// Post-trip ratings, writable once completed, independently per party.
	PassengerRating  *float64
	PassengerComment string
	DriverRating     *float64
	DriverComment    string

	Payment *PaymentInfo

	// Временные метки переходов, каждая выставляется ровно один раз.
	CreatedAt   time.Time
	ReservedAt  *time.Time
	AcceptedAt  *time.Time
	ArrivedAt   *time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time
	UpdatedAt   time.Time
}

// OrderStats is an aggregate snapshot over all orders.
type OrderStats struct {
	TotalOrders      int   `json:"total_orders"`
	PendingOrders    int   `json:"pending_orders"`
	InProgressOrders int   `json:"in_progress_orders"`
	CompletedOrders  int   `json:"completed_orders"`
	CancelledOrders  int   `json:"cancelled_orders"`
	TodayOrders      int   `json:"today_orders"`
	TodayRevenue     Money `json:"today_revenue"`
}

// TripDurationMin returns the actual trip duration in whole minutes,
// zero until both timestamps are present.
func TripDurationMin(o *Order) int {
	if o.StartedAt == nil || o.CompletedAt == nil {
		return 0
	}
	return int(o.CompletedAt.Sub(*o.StartedAt).Round(time.Minute) / time.Minute)
}
