package geo

import (
	"math"

	"github.com/miras-dev/taxi-dispatch/internal/domain/models"
)

const earthRadiusKm = 6371

// Haversine возвращает расстояние по большому кругу между двумя точками в км.
func Haversine(p1, p2 models.Location) float64 {
	// градусы в радианы
	lat1Rad := p1.Latitude * math.Pi / 180
	lon1Rad := p1.Longitude * math.Pi / 180
	lat2Rad := p2.Latitude * math.Pi / 180
	lon2Rad := p2.Longitude * math.Pi / 180

	diffLat := lat2Rad - lat1Rad
	diffLon := lon2Rad - lon1Rad

	a := math.Pow(math.Sin(diffLat/2), 2) + math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Pow(math.Sin(diffLon/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// RouteDistanceKm sums haversine distances over consecutive route samples.
func RouteDistanceKm(route []models.RoutePoint) float64 {
	var total float64
	for i := 1; i < len(route); i++ {
		a := models.Location{Latitude: route[i-1].Latitude, Longitude: route[i-1].Longitude}
		b := models.Location{Latitude: route[i].Latitude, Longitude: route[i].Longitude}
		total += Haversine(a, b)
	}
	return total
}
