package dating

import "testing"

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b Coordinates
		want int
	}{
		{"same point", Coordinates{40, -74}, Coordinates{40, -74}, 0},
		{"0.7 degrees of latitude", Coordinates{40, -74}, Coordinates{40.7, -74}, 78},
		{"london to paris", Coordinates{51.5074, -0.1278}, Coordinates{48.8566, 2.3522}, 344},
		{"new york to los angeles", Coordinates{40.7128, -74.0060}, Coordinates{34.0522, -118.2437}, 3936},
		{"antipodal on the equator", Coordinates{0, 0}, Coordinates{0, 180}, 20015},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Distance(tt.a, tt.b); got != tt.want {
				t.Errorf("Distance(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
			if got := Distance(tt.b, tt.a); got != tt.want {
				t.Errorf("Distance is not symmetric: reversed = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDistanceBetween(t *testing.T) {
	a := &Coordinates{40, -74}

	if _, ok := DistanceBetween(a, nil); ok {
		t.Error("expected ok=false with a missing location")
	}
	if _, ok := DistanceBetween(nil, nil); ok {
		t.Error("expected ok=false with both locations missing")
	}
	if km, ok := DistanceBetween(a, &Coordinates{40.7, -74}); !ok || km != 78 {
		t.Errorf("DistanceBetween = %d, %v; want 78, true", km, ok)
	}
}
