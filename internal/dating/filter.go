package dating

// FilterOptions tunes the hard filters. A nil MaxDistanceKm disables the
// distance ceiling.
type FilterOptions struct {
	MaxDistanceKm *float64
}

// FilterStats counts dropped candidates per reason.
type FilterStats struct {
	Excluded  int
	Self      int
	Gender    int
	Distance  int
	Malformed int
	Duplicate int
}

// Dropped is the total number of candidates removed.
func (s FilterStats) Dropped() int {
	return s.Excluded + s.Self + s.Gender + s.Distance + s.Malformed + s.Duplicate
}

// CandidateFilter applies the hard inclusion/exclusion rules before scoring.
type CandidateFilter struct{}

// Filter returns the candidates that survive every hard rule.
func (f CandidateFilter) Filter(requester *Profile, candidates []Profile, exclusions ExclusionSet, opts FilterOptions) []Profile {
	kept, _ := f.FilterWithStats(requester, candidates, exclusions, opts)
	return kept
}

// FilterWithStats is Filter plus a tally of why candidates were dropped.
// Output order follows input order; the result never holds the same id twice.
func (CandidateFilter) FilterWithStats(requester *Profile, candidates []Profile, exclusions ExclusionSet, opts FilterOptions) ([]Profile, FilterStats) {
	var stats FilterStats
	kept := make([]Profile, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))

	for i := range candidates {
		c := &candidates[i]

		switch {
		case exclusions.Contains(c.ID):
			stats.Excluded++
			continue
		case !requester.Preferences.AcceptsGender(c.Gender):
			stats.Gender++
			continue
		case exceedsDistance(requester, c, opts.MaxDistanceKm):
			stats.Distance++
			continue
		case c.ID == requester.ID:
			stats.Self++
			continue
		}

		// Malformed profiles stop here so the scorer never sees them.
		if err := c.Validate(); err != nil {
			stats.Malformed++
			continue
		}
		if _, dup := seen[c.ID]; dup {
			stats.Duplicate++
			continue
		}
		seen[c.ID] = struct{}{}
		kept = append(kept, *c)
	}

	return kept, stats
}

func exceedsDistance(requester, candidate *Profile, maxKm *float64) bool {
	if maxKm == nil {
		return false
	}
	km, ok := DistanceBetween(requester.Location, candidate.Location)
	if !ok {
		return false
	}
	return float64(km) > *maxKm
}
