package order

import (
	"math"
	"time"

	"github.com/miras-dev/taxi-dispatch/internal/domain/models"
)

// Default tariff, smallest currency unit. The engine only guarantees the
// components sum to the total; the numbers themselves are policy and will
// move to an external pricing service eventually.
const (
	baseFare   = models.Money(50000) // flag fall
	ratePerKm  = models.Money(10000)
	ratePerMin = models.Money(5000)

	averageSpeedKmh = 50 // средняя скорость в пути

	nightStartHour    = 22
	nightEndHour      = 6
	nightSurchargePct = 20
)

// estimateDuration returns the estimated travel time in whole minutes.
func estimateDuration(distanceKm float64) int {
	if distanceKm <= 0 {
		return 0
	}
	durationMinutes := (distanceKm / averageSpeedKmh) * 60
	return int(math.Ceil(durationMinutes))
}

// isNight reports whether t falls into the night tariff window.
func isNight(t time.Time) bool {
	h := t.Hour()
	return h >= nightStartHour || h < nightEndHour
}

// estimateFare itemizes the fare for a trip of the given distance and
// duration starting at departure time.
func estimateFare(distanceKm float64, durationMin int, departure time.Time) models.Fare {
	f := models.Fare{
		Base:     baseFare,
		Distance: models.Money(math.Round(distanceKm)) * ratePerKm,
		Duration: models.Money(durationMin) * ratePerMin,
	}

	if isNight(departure) {
		f.Night = (f.Base + f.Distance + f.Duration) * nightSurchargePct / 100
	}

	return f
}
