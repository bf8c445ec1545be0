package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/miras-dev/taxi-dispatch/internal/domain/types"
)

// Driver is the directory's view of a driver as consumed by the dispatch
// core. The core reads this record and issues well-defined updates through
// the directory interface; it never mutates fields directly.
type Driver struct {
	ID           uuid.UUID
	Name         string
	Status       types.DriverStatus
	VerifyStatus types.VerifyStatus

	Location          Location
	LocationUpdatedAt *time.Time

	Rating float64 // running average from passenger ratings

	TotalOrders     int
	CompletedOrders int
	CancelledOrders int

	// Income accumulators, smallest currency unit.
	TotalIncome     Money
	ThisMonthIncome Money
	ThisWeekIncome  Money
	TodayIncome     Money

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Available reports whether the driver may be offered work.
func Available(d *Driver) bool {
	return d.Status == types.DriverOnline && d.VerifyStatus == types.VerifyApproved
}

// Passenger is the minimal identity the core needs to validate a dispatch
// request. Account management belongs to the user directory.
type Passenger struct {
	ID   uuid.UUID
	Name string
}
