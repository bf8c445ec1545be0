package order

import (
	"testing"
	"time"

	"github.com/miras-dev/taxi-dispatch/internal/domain/models"
)

func TestEstimateDuration(t *testing.T) {
	cases := []struct {
		distanceKm float64
		want       int
	}{
		{0, 0},
		{-1, 0},
		{25, 30},   // half an hour at 50 km/h
		{50, 60},
		{1, 2},     // 1.2 min rounds up
	}

	for _, tc := range cases {
		if got := estimateDuration(tc.distanceKm); got != tc.want {
			t.Fatalf("estimateDuration(%v) = %d, want %d", tc.distanceKm, got, tc.want)
		}
	}
}

func TestIsNight(t *testing.T) {
	day := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)
	lateEvening := time.Date(2025, 6, 1, 22, 0, 0, 0, time.UTC)
	earlyMorning := time.Date(2025, 6, 1, 5, 59, 0, 0, time.UTC)
	sixAM := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)

	if isNight(day) {
		t.Fatalf("14:00 must not be night tariff")
	}
	if !isNight(lateEvening) {
		t.Fatalf("22:00 must be night tariff")
	}
	if !isNight(earlyMorning) {
		t.Fatalf("05:59 must be night tariff")
	}
	if isNight(sixAM) {
		t.Fatalf("06:00 must not be night tariff")
	}
}

func TestEstimateFare_Daytime(t *testing.T) {
	day := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)

	f := estimateFare(10, 12, day)

	if f.Base != baseFare {
		t.Fatalf("base = %d, want %d", f.Base, baseFare)
	}
	if f.Distance != 10*ratePerKm {
		t.Fatalf("distance component = %d, want %d", f.Distance, 10*ratePerKm)
	}
	if f.Duration != 12*ratePerMin {
		t.Fatalf("duration component = %d, want %d", f.Duration, 12*ratePerMin)
	}
	if f.Night != 0 {
		t.Fatalf("daytime trip must have no night surcharge, got %d", f.Night)
	}
	if f.Total() != f.Base+f.Distance+f.Duration {
		t.Fatalf("total %d does not equal the sum of components", f.Total())
	}
}

func TestEstimateFare_NightSurcharge(t *testing.T) {
	night := time.Date(2025, 6, 1, 23, 30, 0, 0, time.UTC)

	f := estimateFare(10, 12, night)

	wantNight := (f.Base + f.Distance + f.Duration) * nightSurchargePct / 100
	if f.Night != wantNight {
		t.Fatalf("night surcharge = %d, want %d", f.Night, wantNight)
	}
	if f.Total() != f.Base+f.Distance+f.Duration+f.Night {
		t.Fatalf("total must include the surcharge")
	}
}

func TestFareTotal_CouponDiscount(t *testing.T) {
	f := models.Fare{Base: 1000, Distance: 2000, Duration: 500, CouponDiscount: 300}
	if f.Total() != 3200 {
		t.Fatalf("total = %d, want 3200", f.Total())
	}
}
