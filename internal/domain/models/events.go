package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/miras-dev/taxi-dispatch/internal/domain/types"
)

/* ======================= rabbitmq ======================= */

// OrderEventMessage is the payload published to the notification exchange on
// every lifecycle transition. Fire-and-forget, at-least-once.
type OrderEventMessage struct {
	Event       types.OrderEvent  `json:"event"`
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNo     string            `json:"order_no"`
	Status      types.OrderStatus `json:"status"`
	PassengerID uuid.UUID         `json:"passenger_id"`
	DriverID    *uuid.UUID        `json:"driver_id,omitempty"`
	ActualPrice *Money            `json:"actual_price,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// OrderRequestMessage is the message-driven ingress for dispatch requests.
type OrderRequestMessage struct {
	PassengerID   uuid.UUID       `json:"passenger_id"`
	OrderType     types.OrderType `json:"order_type,omitempty"`
	Pickup        Location        `json:"pickup"`
	Destination   Location        `json:"destination"`
	ReservedAt    *time.Time      `json:"reserved_at,omitempty"`
	Remark        string          `json:"remark,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

// LocationUpdateMessage carries a driver coordinate sample into the
// directory's geo cache.
type LocationUpdateMessage struct {
	DriverID  uuid.UUID `json:"driver_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}
