package types

// Order lifecycle statuses. PENDING is initial; COMPLETED, CANCELLED and
// TIMEOUT are terminal.
type OrderStatus string

const (
	StatusPending       OrderStatus = "PENDING"
	StatusAccepted      OrderStatus = "ACCEPTED"
	StatusDriverArrived OrderStatus = "DRIVER_ARRIVED"
	StatusInProgress    OrderStatus = "IN_PROGRESS"
	StatusCompleted     OrderStatus = "COMPLETED"
	StatusCancelled     OrderStatus = "CANCELLED"
	StatusTimeout       OrderStatus = "TIMEOUT"
)

func (s OrderStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is possible from s.
func IsTerminal(s OrderStatus) bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusTimeout:
		return true
	}
	return false
}

// CanCancel reports whether an order in status s may still be cancelled.
// Cancellation is never reachable once the trip has started.
func CanCancel(s OrderStatus) bool {
	switch s {
	case StatusPending, StatusAccepted, StatusDriverArrived:
		return true
	}
	return false
}

// Enum для типа заказа
type OrderType string

const (
	TypeImmediate OrderType = "IMMEDIATE"
	TypeReserved  OrderType = "RESERVED"
)

// Enum для статуса оплаты
type PayStatus string

const (
	PayUnpaid   PayStatus = "UNPAID"
	PayPaid     PayStatus = "PAID"
	PayRefunded PayStatus = "REFUNDED"
)

// Enum для статуса водителя
type DriverStatus string

const (
	DriverOffline DriverStatus = "OFFLINE"
	DriverOnline  DriverStatus = "ONLINE"
	DriverBusy    DriverStatus = "BUSY"
)

// Enum для статуса проверки водителя
type VerifyStatus string

const (
	VerifyPending  VerifyStatus = "PENDING"
	VerifyApproved VerifyStatus = "APPROVED"
	VerifyRejected VerifyStatus = "REJECTED"
)

// Enum для типов участников заказа
type Party string

const (
	PartyPassenger Party = "passenger"
	PartyDriver    Party = "driver"
)
