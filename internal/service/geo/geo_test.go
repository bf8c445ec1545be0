package geo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/google/uuid"

	"github.com/miras-dev/taxi-dispatch/internal/domain/models"
	"github.com/miras-dev/taxi-dispatch/internal/domain/types"
)

func TestHaversine_KnownDistance(t *testing.T) {
	// Алматы — Астана, примерно 970 км по большому кругу.
	almaty := models.Location{Latitude: 43.238949, Longitude: 76.889709}
	astana := models.Location{Latitude: 51.169392, Longitude: 71.449074}

	got := Haversine(almaty, astana)
	if got < 950 || got > 990 {
		t.Fatalf("Almaty-Astana distance = %.1f km, want ~970", got)
	}
}

func TestHaversine_ZeroForSamePoint(t *testing.T) {
	p := models.Location{Latitude: 31.23, Longitude: 121.47}
	if d := Haversine(p, p); d != 0 {
		t.Fatalf("distance to self = %v, want 0", d)
	}
}

func TestHaversine_Symmetric(t *testing.T) {
	a := models.Location{Latitude: 31.23, Longitude: 121.47}
	b := models.Location{Latitude: 31.30, Longitude: 121.55}

	if d1, d2 := Haversine(a, b), Haversine(b, a); math.Abs(d1-d2) > 1e-12 {
		t.Fatalf("haversine not symmetric: %v vs %v", d1, d2)
	}
}

func TestRouteDistanceKm(t *testing.T) {
	route := []models.RoutePoint{
		{Latitude: 31.23, Longitude: 121.47},
		{Latitude: 31.25, Longitude: 121.49},
		{Latitude: 31.28, Longitude: 121.52},
	}

	leg1 := Haversine(
		models.Location{Latitude: 31.23, Longitude: 121.47},
		models.Location{Latitude: 31.25, Longitude: 121.49},
	)
	leg2 := Haversine(
		models.Location{Latitude: 31.25, Longitude: 121.49},
		models.Location{Latitude: 31.28, Longitude: 121.52},
	)

	if got, want := RouteDistanceKm(route), leg1+leg2; math.Abs(got-want) > 1e-12 {
		t.Fatalf("route distance = %v, want %v", got, want)
	}

	if RouteDistanceKm(route[:1]) != 0 {
		t.Fatalf("single-point route must have zero distance")
	}
	if RouteDistanceKm(nil) != 0 {
		t.Fatalf("empty route must have zero distance")
	}
}

func driverAt(lat, lon, rating float64, status types.DriverStatus, verify types.VerifyStatus) models.Driver {
	return models.Driver{
		ID:           uuid.New(),
		Status:       status,
		VerifyStatus: verify,
		Rating:       rating,
		Location:     models.Location{Latitude: lat, Longitude: lon},
	}
}

func TestRank_FiltersByRadiusAndAvailability(t *testing.T) {
	origin := models.Location{Latitude: 31.23, Longitude: 121.47}

	near1 := driverAt(31.235, 121.475, 4.5, types.DriverOnline, types.VerifyApproved)
	near2 := driverAt(31.24, 121.48, 4.9, types.DriverOnline, types.VerifyApproved)
	offline := driverAt(31.235, 121.475, 5.0, types.DriverOffline, types.VerifyApproved)
	unverified := driverAt(31.235, 121.475, 5.0, types.DriverOnline, types.VerifyPending)
	far := driverAt(31.50, 121.90, 5.0, types.DriverOnline, types.VerifyApproved)

	got := Rank([]models.Driver{near1, offline, far, near2, unverified}, origin, 5, 10)

	if len(got) != 2 {
		t.Fatalf("matched %d drivers, want 2", len(got))
	}
	// Best rating first.
	if got[0].ID != near2.ID || got[1].ID != near1.ID {
		t.Fatalf("wrong ranking order")
	}
}

func TestRank_OrderingAndLimit(t *testing.T) {
	origin := models.Location{Latitude: 31.23, Longitude: 121.47}

	a := driverAt(31.231, 121.471, 4.5, types.DriverOnline, types.VerifyApproved)
	b := driverAt(31.232, 121.472, 4.5, types.DriverOnline, types.VerifyApproved)
	c := driverAt(31.233, 121.473, 4.9, types.DriverOnline, types.VerifyApproved)
	a.CompletedOrders = 10
	b.CompletedOrders = 200

	got := Rank([]models.Driver{a, b, c}, origin, 5, 10)
	if len(got) != 3 {
		t.Fatalf("matched %d drivers, want 3", len(got))
	}

	// Non-increasing by rating, ties broken by completed orders.
	for i := 1; i < len(got); i++ {
		if got[i].Rating > got[i-1].Rating {
			t.Fatalf("ranking not sorted by rating")
		}
	}
	if got[0].ID != c.ID || got[1].ID != b.ID || got[2].ID != a.ID {
		t.Fatalf("tie-break by completed orders failed")
	}

	if limited := Rank([]models.Driver{a, b, c}, origin, 5, 2); len(limited) != 2 {
		t.Fatalf("limit not applied, got %d", len(limited))
	}
	if Rank([]models.Driver{a}, origin, 5, 0) != nil {
		t.Fatalf("zero limit must return nil")
	}
}

/* ======================= index ======================= */

type stubDrivers struct {
	available []models.Driver
	resolved  []models.Driver
}

func (s *stubDrivers) ListAvailable(ctx context.Context) ([]models.Driver, error) {
	return s.available, nil
}

func (s *stubDrivers) GetDrivers(ctx context.Context, ids []uuid.UUID) ([]models.Driver, error) {
	return s.resolved, nil
}

type stubCache struct {
	ids []uuid.UUID
	err error
}

func (s *stubCache) Near(ctx context.Context, origin models.Location, radiusKm float64) ([]uuid.UUID, error) {
	return s.ids, s.err
}

type testLogger struct{}

func (testLogger) Debug(ctx context.Context, msg string, args ...any)            {}
func (testLogger) Info(ctx context.Context, msg string, args ...any)             {}
func (testLogger) Warn(ctx context.Context, msg string, args ...any)             {}
func (testLogger) Error(ctx context.Context, msg string, err error, args ...any) {}
func (testLogger) GetSlogLogger() *slog.Logger                                   { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestIndex_UsesCacheCandidates(t *testing.T) {
	origin := models.Location{Latitude: 31.23, Longitude: 121.47}
	cached := driverAt(31.235, 121.475, 4.9, types.DriverOnline, types.VerifyApproved)

	drivers := &stubDrivers{resolved: []models.Driver{cached}}
	cache := &stubCache{ids: []uuid.UUID{cached.ID}}

	ix := NewIndex(drivers, cache, testLogger{})
	got, err := ix.FindNearby(context.Background(), origin, 5, 10)
	if err != nil {
		t.Fatalf("find nearby: %v", err)
	}
	if len(got) != 1 || got[0].ID != cached.ID {
		t.Fatalf("expected the cached candidate, got %v", got)
	}
}

func TestIndex_FallsBackOnCacheFailure(t *testing.T) {
	origin := models.Location{Latitude: 31.23, Longitude: 121.47}
	available := driverAt(31.235, 121.475, 4.9, types.DriverOnline, types.VerifyApproved)

	drivers := &stubDrivers{available: []models.Driver{available}}
	cache := &stubCache{err: errors.New("redis down")}

	ix := NewIndex(drivers, cache, testLogger{})
	got, err := ix.FindNearby(context.Background(), origin, 5, 10)
	if err != nil {
		t.Fatalf("find nearby: %v", err)
	}
	if len(got) != 1 || got[0].ID != available.ID {
		t.Fatalf("cache failure must fall back to the directory listing")
	}
}

func TestIndex_EmptyCacheFallsBackToDirectory(t *testing.T) {
	origin := models.Location{Latitude: 31.23, Longitude: 121.47}
	available := driverAt(31.235, 121.475, 4.9, types.DriverOnline, types.VerifyApproved)

	// Cold cache: no candidate ids, no error. Online drivers must still be
	// found through the directory listing.
	drivers := &stubDrivers{available: []models.Driver{available}}
	cache := &stubCache{}

	ix := NewIndex(drivers, cache, testLogger{})
	got, err := ix.FindNearby(context.Background(), origin, 5, 10)
	if err != nil {
		t.Fatalf("find nearby: %v", err)
	}
	if len(got) != 1 || got[0].ID != available.ID {
		t.Fatalf("empty cache must fall back to the directory listing, got %v", got)
	}
}

func TestIndex_StaleCacheEntriesFilteredByExactMath(t *testing.T) {
	origin := models.Location{Latitude: 31.23, Longitude: 121.47}

	// The cache claims this driver is near, but the directory's authoritative
	// coordinates put them far outside the radius.
	stale := driverAt(31.90, 122.10, 4.9, types.DriverOnline, types.VerifyApproved)

	drivers := &stubDrivers{resolved: []models.Driver{stale}}
	cache := &stubCache{ids: []uuid.UUID{stale.ID}}

	ix := NewIndex(drivers, cache, testLogger{})
	got, err := ix.FindNearby(context.Background(), origin, 5, 10)
	if err != nil {
		t.Fatalf("find nearby: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("stale candidate must be filtered out, got %v", got)
	}
}

func BenchmarkRank(b *testing.B) {
	origin := models.Location{Latitude: 31.23, Longitude: 121.47}
	drivers := make([]models.Driver, 500)
	for i := range drivers {
		drivers[i] = driverAt(
			31.2+float64(i%100)*0.001,
			121.4+float64(i%100)*0.001,
			float64(3+i%3),
			types.DriverOnline,
			types.VerifyApproved,
		)
	}

	for i := 0; i < b.N; i++ {
		_ = Rank(drivers, origin, 5, 10)
	}
}
