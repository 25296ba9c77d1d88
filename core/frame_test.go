package core

import (
	"math"
	"testing"

	"github.com/cdav1990/overwatch-mission-core/model"
)

func TestToEngine_Mapping(t *testing.T) {
	got := ToEngine(model.LocalCoord{X: 1, Y: 2, Z: 3})
	want := model.EngineCoord{X: 1, Y: 3, Z: -2}
	if got != want {
		t.Fatalf("ToEngine(1,2,3) = %+v, want %+v", got, want)
	}
}

func TestFromEngine_Mapping(t *testing.T) {
	got := FromEngine(model.EngineCoord{X: 1, Y: 3, Z: -2})
	want := model.LocalCoord{X: 1, Y: 2, Z: 3}
	if got != want {
		t.Fatalf("FromEngine(1,3,-2) = %+v, want %+v", got, want)
	}
}

func TestFrame_RoundTrip(t *testing.T) {
	cases := []model.LocalCoord{
		{},
		{X: 1, Y: 2, Z: 3},
		{X: -10.5, Y: 0.25, Z: -3.75},
		{X: 1e9, Y: -1e9, Z: 1e-9},
		{X: math.MaxFloat64 / 4, Y: -math.MaxFloat64 / 4, Z: 0},
	}
	for _, p := range cases {
		back := FromEngine(ToEngine(p))
		if math.Abs(back.X-p.X) > 1e-6 || math.Abs(back.Y-p.Y) > 1e-6 || math.Abs(back.Z-p.Z) > 1e-6 {
			t.Errorf("round trip of %+v produced %+v", p, back)
		}
		// Engine -> ENU -> engine must also hold.
		e := model.EngineCoord{X: p.X, Y: p.Y, Z: p.Z}
		eBack := ToEngine(FromEngine(e))
		if eBack != e {
			t.Errorf("engine round trip of %+v produced %+v", e, eBack)
		}
	}
}

func TestHeadingDeg_CardinalDirections(t *testing.T) {
	origin := model.LocalCoord{}
	cases := []struct {
		name string
		to   model.LocalCoord
		want float64
	}{
		{"north", model.LocalCoord{Y: 10}, 0},
		{"east", model.LocalCoord{X: 10}, 90},
		{"south", model.LocalCoord{Y: -10}, 180},
		{"west", model.LocalCoord{X: -10}, 270},
		{"northeast", model.LocalCoord{X: 10, Y: 10}, 45},
	}
	for _, tc := range cases {
		got, ok := HeadingDeg(origin, tc.to)
		if !ok {
			t.Fatalf("%s: expected a defined heading", tc.name)
		}
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("%s: heading = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestHeadingDeg_VerticalLegHasNoHeading(t *testing.T) {
	_, ok := HeadingDeg(model.LocalCoord{Z: 0}, model.LocalCoord{Z: 25})
	if ok {
		t.Fatalf("vertical leg should report no heading")
	}
}

func TestHeadingDeg_AlwaysNormalized(t *testing.T) {
	// Sweep directions; every result must land in [0, 360).
	for i := 0; i < 720; i++ {
		angle := float64(i) * math.Pi / 180.0
		to := model.LocalCoord{X: math.Sin(angle) * 50, Y: math.Cos(angle) * 50}
		got, ok := HeadingDeg(model.LocalCoord{}, to)
		if !ok {
			continue
		}
		if got < 0 || got >= 360 {
			t.Fatalf("heading %v out of [0,360) for sweep step %d", got, i)
		}
	}
}

func TestNormalizeHeading(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0, 0},
		{360, 0},
		{-90, 270},
		{450, 90},
		{-720, 0},
	}
	for _, tc := range cases {
		if got := NormalizeHeading(tc.in); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("NormalizeHeading(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestGeodetic_RoundTrip(t *testing.T) {
	origin := model.Origin{LatDeg: 37.7749, LonDeg: -122.4194, AltM: 12}
	points := []model.LocalCoord{
		{},
		{X: 150, Y: -220, Z: 40},
		{X: -1000, Y: 2500, Z: 0},
	}
	for _, p := range points {
		lat, lon, alt := ToGeodetic(origin, p)
		back := FromGeodetic(origin, lat, lon, alt)
		if Distance(back, p) > 1e-6 {
			t.Errorf("geodetic round trip of %+v produced %+v", p, back)
		}
	}
}

func TestVectorHelpers(t *testing.T) {
	a := model.LocalCoord{X: 3, Y: 4, Z: 0}
	if n := Norm(a); n != 5 {
		t.Errorf("Norm = %v, want 5", n)
	}
	if d := Distance(a, model.LocalCoord{}); d != 5 {
		t.Errorf("Distance = %v, want 5", d)
	}
	mid := Lerp(model.LocalCoord{}, a, 0.5)
	if mid != (model.LocalCoord{X: 1.5, Y: 2, Z: 0}) {
		t.Errorf("Lerp midpoint = %+v", mid)
	}
	if got := Dot(a, model.LocalCoord{X: 1, Y: 1, Z: 1}); got != 7 {
		t.Errorf("Dot = %v, want 7", got)
	}
}
