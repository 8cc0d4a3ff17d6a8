package dating

import "math"

const earthRadiusKm = 6371

// Distance returns the great-circle distance between a and b in whole
// kilometers (Haversine). Inputs are assumed to be in valid degree ranges.
func Distance(a, b Coordinates) int {
	dLat := toRadians(b.Latitude - a.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Latitude))*math.Cos(toRadians(b.Latitude))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return int(math.Round(earthRadiusKm * c))
}

// DistanceBetween is Distance for optional locations; ok is false when
// either side has no coordinates.
func DistanceBetween(a, b *Coordinates) (km int, ok bool) {
	if a == nil || b == nil {
		return 0, false
	}
	return Distance(*a, *b), true
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
