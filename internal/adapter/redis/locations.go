package redis

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/miras-dev/taxi-dispatch/internal/domain/models"
)

const driverGeoKey = "drivers:geo"

// LocationCache keeps live driver coordinates in a redis geo set. It is a
// prefilter only: ids returned from Near are re-checked against the directory
// and exact distance math before any dispatch decision.
type LocationCache struct {
	client *redis.Client
}

func NewLocationCache(client *redis.Client) *LocationCache {
	return &LocationCache{client: client}
}

func (c *LocationCache) Add(ctx context.Context, driverID uuid.UUID, loc models.Location) error {
	err := c.client.GeoAdd(ctx, driverGeoKey, &redis.GeoLocation{
		Name:      driverID.String(),
		Longitude: loc.Longitude,
		Latitude:  loc.Latitude,
	}).Err()
	if err != nil {
		return fmt.Errorf("geoadd driver location: %w", err)
	}
	return nil
}

func (c *LocationCache) Remove(ctx context.Context, driverID uuid.UUID) error {
	if err := c.client.ZRem(ctx, driverGeoKey, driverID.String()).Err(); err != nil {
		return fmt.Errorf("remove driver location: %w", err)
	}
	return nil
}

// Near returns ids of drivers whose cached coordinates fall within radiusKm
// of origin. Unparsable members are skipped.
func (c *LocationCache) Near(ctx context.Context, origin models.Location, radiusKm float64) ([]uuid.UUID, error) {
	locations, err := c.client.GeoSearchLocation(ctx, driverGeoKey, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  origin.Longitude,
			Latitude:   origin.Latitude,
			Radius:     radiusKm,
			RadiusUnit: "km",
			Sort:       "ASC",
		},
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("geosearch drivers: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(locations))
	for _, loc := range locations {
		id, err := uuid.Parse(loc.Name)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}

	return ids, nil
}
