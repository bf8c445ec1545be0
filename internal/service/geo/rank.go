package geo

import (
	"sort"

	"github.com/miras-dev/taxi-dispatch/internal/domain/models"
)

// Rank filters drivers down to available ones within radiusKm of origin and
// orders them by rating descending, then completed orders descending,
// truncated to limit. Pure function, exact haversine math.
func Rank(drivers []models.Driver, origin models.Location, radiusKm float64, limit int) []models.Driver {
	if limit <= 0 {
		return nil
	}

	matched := make([]models.Driver, 0, len(drivers))
	for _, d := range drivers {
		if !models.Available(&d) {
			continue
		}
		if Haversine(origin, d.Location) > radiusKm {
			continue
		}
		matched = append(matched, d)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Rating != matched[j].Rating {
			return matched[i].Rating > matched[j].Rating
		}
		return matched[i].CompletedOrders > matched[j].CompletedOrders
	})

	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched
}
