package types

// OrderEvent identifies a lifecycle event emitted to the notification sink.
type OrderEvent string

func (e OrderEvent) String() string {
	return string(e)
}

const (
	EventOrderCreated   OrderEvent = "ORDER_CREATED"
	EventOrderAccepted  OrderEvent = "ORDER_ACCEPTED"
	EventDriverArrived  OrderEvent = "DRIVER_ARRIVED"
	EventTripStarted    OrderEvent = "TRIP_STARTED"
	EventTripCompleted  OrderEvent = "TRIP_COMPLETED"
	EventOrderCancelled OrderEvent = "ORDER_CANCELLED"
	EventOrderTimeout   OrderEvent = "ORDER_TIMEOUT"
	EventOrderPaid      OrderEvent = "ORDER_PAID"
	EventOrderRated     OrderEvent = "ORDER_RATED"
)
