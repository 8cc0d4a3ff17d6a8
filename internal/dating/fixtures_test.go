package dating

import (
	"fmt"
	"math"
	"time"
)

var asOf = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

// newProfile returns a valid 30-year-old profile in New Jersey.
func newProfile(id, gender string) Profile {
	return Profile{
		ID:        id,
		BirthDate: time.Date(1994, 3, 15, 0, 0, 0, 0, time.UTC),
		Gender:    gender,
		Interests: []string{"hiking"},
		Location:  &Coordinates{Latitude: 40, Longitude: -74},
	}
}

func newPool(n int, gender string) []Profile {
	pool := make([]Profile, 0, n)
	for i := 0; i < n; i++ {
		pool = append(pool, newProfile(fmt.Sprintf("cand-%03d", i), gender))
	}
	return pool
}

func ids(profiles []Profile) []string {
	out := make([]string, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p.ID)
	}
	return out
}

func factorByName(b ScoreBreakdown, name string) (Factor, bool) {
	for _, f := range b.Factors {
		if f.Name == name {
			return f, true
		}
	}
	return Factor{}, false
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
