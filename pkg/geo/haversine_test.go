package geo

import (
	"math"
	"testing"
)

func TestHaversine(t *testing.T) {
	tests := []struct {
		name             string
		lat1, lon1       float64
		lat2, lon2       float64
		wantMeters       float64
		tolerancePercent float64
	}{
		{
			name: "One degree of latitude at the equator",
			lat1: 0, lon1: 0,
			lat2: 1, lon2: 0,
			wantMeters:       111_194.93,
			tolerancePercent: 0.01,
		},
		{
			name: "Equator to pole",
			lat1: 0, lon1: 0,
			lat2: 90, lon2: 0,
			wantMeters:       10_007_543.4,
			tolerancePercent: 0.01,
		},
		{
			name: "Vancouver to Toronto",
			lat1: 49.2827, lon1: -123.1207,
			lat2: 43.6532, lon2: -79.3832,
			wantMeters:       3_357_000,
			tolerancePercent: 1,
		},
		{
			name: "Same point",
			lat1: 49.19, lon1: -122.89,
			lat2: 49.19, lon2: -122.89,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Haversine(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if tt.wantMeters == 0 {
				if got != 0 {
					t.Errorf("expected 0, got %f", got)
				}
				return
			}
			diff := math.Abs(got-tt.wantMeters) / tt.wantMeters * 100
			if diff > tt.tolerancePercent {
				t.Errorf("Haversine = %f m, want ~%f m (diff %.3f%%)", got, tt.wantMeters, diff)
			}
		})
	}
}

func TestPolylineLength(t *testing.T) {
	pts := []LatLng{{0, 0}, {1, 0}, {2, 0}}
	got := PolylineLength(pts)
	want := Distance(pts[0], pts[2])
	if math.Abs(got-want) > 1e-6 {
		t.Errorf("PolylineLength = %f, want %f", got, want)
	}
	if PolylineLength(pts[:1]) != 0 {
		t.Errorf("single vertex polyline should have zero length")
	}
}

func TestProjectOnSegment(t *testing.T) {
	tests := []struct {
		name     string
		p, a, b  LatLng
		wantT    float64
		wantProj LatLng
	}{
		{
			name:     "Perpendicular foot inside segment",
			p:        LatLng{Lat: 1, Lng: 5},
			a:        LatLng{Lat: 0, Lng: 0},
			b:        LatLng{Lat: 0, Lng: 10},
			wantT:    0.5,
			wantProj: LatLng{Lat: 0, Lng: 5},
		},
		{
			name:     "Clamped before start",
			p:        LatLng{Lat: 1, Lng: -3},
			a:        LatLng{Lat: 0, Lng: 0},
			b:        LatLng{Lat: 0, Lng: 10},
			wantT:    0,
			wantProj: LatLng{Lat: 0, Lng: 0},
		},
		{
			name:     "Clamped past end",
			p:        LatLng{Lat: -2, Lng: 14},
			a:        LatLng{Lat: 0, Lng: 0},
			b:        LatLng{Lat: 0, Lng: 10},
			wantT:    1,
			wantProj: LatLng{Lat: 0, Lng: 10},
		},
		{
			name:     "Degenerate segment",
			p:        LatLng{Lat: 3, Lng: 4},
			a:        LatLng{Lat: 1, Lng: 1},
			b:        LatLng{Lat: 1, Lng: 1},
			wantT:    0,
			wantProj: LatLng{Lat: 1, Lng: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proj, ratio, distSq := ProjectOnSegment(tt.p, tt.a, tt.b)
			if math.Abs(ratio-tt.wantT) > 1e-12 {
				t.Errorf("t = %f, want %f", ratio, tt.wantT)
			}
			if PlanarDistSq(proj, tt.wantProj) > 1e-18 {
				t.Errorf("proj = %+v, want %+v", proj, tt.wantProj)
			}
			if math.Abs(distSq-PlanarDistSq(tt.p, proj)) > 1e-12 {
				t.Errorf("distSq = %f, want %f", distSq, PlanarDistSq(tt.p, proj))
			}
			if PointAt(tt.a, tt.b, ratio) != proj {
				t.Errorf("projection not reproducible from t")
			}
		})
	}
}

func TestRound(t *testing.T) {
	if got := Round(49.123456789, 5); got != 49.12346 {
		t.Errorf("Round = %v, want 49.12346", got)
	}
	if got := Round(12.345, 2); math.Abs(got-12.35) > 1e-9 && math.Abs(got-12.34) > 1e-9 {
		t.Errorf("Round = %v", got)
	}
}

func BenchmarkHaversine(b *testing.B) {
	for b.Loop() {
		Haversine(49.2827, -123.1207, 49.1967, -123.1815)
	}
}

func BenchmarkProjectOnSegment(b *testing.B) {
	p := LatLng{Lat: 49.25, Lng: -123.1}
	a := LatLng{Lat: 49.2, Lng: -123.2}
	c := LatLng{Lat: 49.3, Lng: -123.0}
	for b.Loop() {
		ProjectOnSegment(p, a, c)
	}
}
