package geo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/miras-dev/taxi-dispatch/internal/domain/models"
	"github.com/miras-dev/taxi-dispatch/pkg/logger"
	wrap "github.com/miras-dev/taxi-dispatch/pkg/logger/wrapper"
	"github.com/miras-dev/taxi-dispatch/pkg/metrics"
)

// DriverSource is the directory-side view the index needs: driver records
// with live coordinates.
type DriverSource interface {
	ListAvailable(ctx context.Context) ([]models.Driver, error)
	GetDrivers(ctx context.Context, ids []uuid.UUID) ([]models.Driver, error)
}

// CandidateSource prefilters driver ids near a point. A geo cache (redis)
// implements this; a nil source means the index ranks the full available set.
type CandidateSource interface {
	Near(ctx context.Context, origin models.Location, radiusKm float64) ([]uuid.UUID, error)
}

// Index answers nearest-driver queries. Candidates come either from the
// optional CandidateSource or from the full available-driver listing; final
// filtering and ordering always use exact haversine math via Rank, so a
// cache returning stale or extra ids cannot affect correctness.
type Index struct {
	drivers DriverSource
	cache   CandidateSource

	l logger.Logger
}

func NewIndex(drivers DriverSource, cache CandidateSource, l logger.Logger) *Index {
	return &Index{
		drivers: drivers,
		cache:   cache,
		l:       l,
	}
}

// FindNearby returns available drivers within radiusKm of origin, best first.
// An empty result is valid, not an error.
func (ix *Index) FindNearby(ctx context.Context, origin models.Location, radiusKm float64, limit int) ([]models.Driver, error) {
	ctx = wrap.WithAction(ctx, "find_nearby_drivers")
	started := time.Now()

	source := "directory"
	var (
		candidates []models.Driver
		err        error
	)

	if ix.cache != nil {
		source = "geo_cache"
		candidates, err = ix.fromCache(ctx, origin, radiusKm)
	} else {
		candidates, err = ix.drivers.ListAvailable(ctx)
	}
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	result := Rank(candidates, origin, radiusKm, limit)

	metrics.RecordNearbySearch("dispatch", source, time.Since(started))
	ix.l.Debug(ctx, "nearby search done",
		"candidates", len(candidates),
		"matched", len(result),
		"radius_km", radiusKm,
	)

	return result, nil
}

func (ix *Index) fromCache(ctx context.Context, origin models.Location, radiusKm float64) ([]models.Driver, error) {
	ids, err := ix.cache.Near(ctx, origin, radiusKm)
	if err != nil {
		// Cache failure is not fatal: fall back to the directory listing.
		ix.l.Warn(ctx, "geo cache lookup failed, falling back to directory", "error", err.Error())
		return ix.drivers.ListAvailable(ctx)
	}
	if len(ids) == 0 {
		// A cold cache (flush, restart) must not hide drivers who have not
		// re-sent a location yet; the directory listing is authoritative.
		return ix.drivers.ListAvailable(ctx)
	}

	drivers, err := ix.drivers.GetDrivers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve candidates: %w", err)
	}
	return drivers, nil
}
