package dating

import (
	"fmt"
	"reflect"
	"testing"
)

func TestCandidateFilterRules(t *testing.T) {
	requester := newProfile("me", "male")
	requester.Preferences.Genders = []string{"female"}

	far := newProfile("far", "female")
	far.Location = &Coordinates{Latitude: 40.7, Longitude: -74} // 78 km

	near := newProfile("near", "female")
	near.Location = &Coordinates{Latitude: 40.1, Longitude: -74} // 11 km

	unlocated := newProfile("unlocated", "female")
	unlocated.Location = nil

	malformed := newProfile("bad id!", "female")

	badLifestyle := newProfile("bad-lifestyle", "female")
	badLifestyle.Lifestyle.Smoking = ptr("constantly")

	self := newProfile("me", "female")

	candidates := []Profile{
		newProfile("liked", "female"),
		newProfile("man", "male"),
		newProfile("Upper", "FEMALE"),
		far,
		near,
		unlocated,
		self,
		malformed,
		badLifestyle,
		newProfile("near", "female"),
	}

	got, stats := CandidateFilter{}.FilterWithStats(&requester, candidates, NewExclusionSet("liked"), FilterOptions{MaxDistanceKm: ptr(50.0)})

	want := []string{"Upper", "near", "unlocated"}
	if !reflect.DeepEqual(ids(got), want) {
		t.Fatalf("kept %v, want %v", ids(got), want)
	}

	wantStats := FilterStats{Excluded: 1, Self: 1, Gender: 1, Distance: 1, Malformed: 2, Duplicate: 1}
	if stats != wantStats {
		t.Errorf("stats = %+v, want %+v", stats, wantStats)
	}
	if stats.Dropped()+len(got) != len(candidates) {
		t.Errorf("dropped %d + kept %d != %d", stats.Dropped(), len(got), len(candidates))
	}
}

func TestCandidateFilterDistanceScenario(t *testing.T) {
	requester := newProfile("me", "male")
	requester.Location = &Coordinates{Latitude: 40.0, Longitude: -74.0}
	requester.Interests = []string{"a", "b", "c"}

	candidate := newProfile("cand", "female")
	candidate.Location = &Coordinates{Latitude: 40.7, Longitude: -74.0}
	candidate.Interests = []string{"a", "b", "c"}

	got := CandidateFilter{}.Filter(&requester, []Profile{candidate}, nil, FilterOptions{MaxDistanceKm: ptr(50.0)})
	if len(got) != 0 {
		t.Fatalf("candidate ~78 km away survived a 50 km ceiling: %v", ids(got))
	}

	got = CandidateFilter{}.Filter(&requester, []Profile{candidate}, nil, FilterOptions{})
	if len(got) != 1 {
		t.Fatal("candidate dropped without a distance ceiling")
	}
}

func TestCandidateFilterSelfWithoutExclusions(t *testing.T) {
	requester := newProfile("me", "male")
	got := CandidateFilter{}.Filter(&requester, []Profile{requester, newProfile("other", "female")}, nil, FilterOptions{})

	if want := []string{"other"}; !reflect.DeepEqual(ids(got), want) {
		t.Fatalf("kept %v, want %v", ids(got), want)
	}
}

func TestCandidateFilterEverythingExcluded(t *testing.T) {
	requester := newProfile("me", "male")
	pool := newPool(100, "female")

	exclusions := make(ExclusionSet, 100)
	for i := 0; i < 100; i++ {
		exclusions[fmt.Sprintf("cand-%03d", i)] = struct{}{}
	}

	got := CandidateFilter{}.Filter(&requester, pool, exclusions, FilterOptions{})
	if len(got) != 0 {
		t.Fatalf("kept %d candidates, want 0", len(got))
	}
}

func TestCandidateFilterIdempotent(t *testing.T) {
	requester := newProfile("me", "male")
	requester.Preferences.Genders = []string{"female", "nonbinary"}

	pool := append(newPool(5, "female"), newPool(3, "male")...)
	pool = append(pool, newProfile("cand-000", "female"), requester)

	exclusions := NewExclusionSet("cand-002")
	opts := FilterOptions{MaxDistanceKm: ptr(25.0)}

	once := CandidateFilter{}.Filter(&requester, pool, exclusions, opts)
	twice := CandidateFilter{}.Filter(&requester, once, exclusions, opts)

	if !reflect.DeepEqual(ids(once), ids(twice)) {
		t.Fatalf("filter is not idempotent: %v then %v", ids(once), ids(twice))
	}
	if len(once) > len(pool) {
		t.Fatal("filter grew the pool")
	}
}
