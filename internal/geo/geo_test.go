package geo

import (
	"math"
	"testing"
)

func TestDistanceKm(t *testing.T) {
	tests := []struct {
		name      string
		a, b      Point
		want      float64
		tolerance float64
	}{
		{
			name:      "same point",
			a:         Point{Latitude: 51.5, Longitude: -0.12},
			b:         Point{Latitude: 51.5, Longitude: -0.12},
			want:      0,
			tolerance: 0.001,
		},
		{
			name:      "london to paris",
			a:         Point{Latitude: 51.5074, Longitude: -0.1278},
			b:         Point{Latitude: 48.8566, Longitude: 2.3522},
			want:      343.5,
			tolerance: 2,
		},
		{
			name:      "across the equator",
			a:         Point{Latitude: 1, Longitude: 0},
			b:         Point{Latitude: -1, Longitude: 0},
			want:      222.4,
			tolerance: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKm(tt.a, tt.b)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("DistanceKm = %v, want %v (±%v)", got, tt.want, tt.tolerance)
			}
		})
	}
}
