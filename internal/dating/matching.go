package dating

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Factor names, in canonical order.
const (
	FactorSharedInterests = "shared_interests"
	FactorAgePreference   = "age_preference"
	FactorDistance        = "distance"
	FactorReciprocity     = "reciprocity"
	FactorRecentActivity  = "recent_activity"
	FactorLifestyle       = "lifestyle"
)

// Weights are the base factor weights. They must sum to 1.
type Weights struct {
	SharedInterests float64
	AgePreference   float64
	Distance        float64
	Reciprocity     float64
	RecentActivity  float64
	Lifestyle       float64
}

func (w Weights) sum() float64 {
	return w.SharedInterests + w.AgePreference + w.Distance + w.Reciprocity + w.RecentActivity + w.Lifestyle
}

// DefaultWeights returns the production weighting.
func DefaultWeights() Weights {
	return Weights{
		SharedInterests: 0.30,
		AgePreference:   0.20,
		Distance:        0.20,
		Reciprocity:     0.10,
		RecentActivity:  0.10,
		Lifestyle:       0.10,
	}
}

// ScoringConfig parameterizes the Scorer.
type ScoringConfig struct {
	Weights Weights

	// AgeToleranceYears is how far outside the preferred range the age
	// factor takes to decay to zero.
	AgeToleranceYears float64

	// DefaultDistanceCeilingKm applies when the requester has no max distance.
	DefaultDistanceCeilingKm float64

	// InactivityThreshold is when the activity factor reaches zero.
	InactivityThreshold time.Duration
}

// DefaultScoringConfig returns the production scoring parameters.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		Weights:                  DefaultWeights(),
		AgeToleranceYears:        10,
		DefaultDistanceCeilingKm: 100,
		InactivityThreshold:      30 * 24 * time.Hour,
	}
}

// Validate rejects configurations that would break the [0,1] score bound.
func (c ScoringConfig) Validate() error {
	w := c.Weights
	for _, v := range []float64{w.SharedInterests, w.AgePreference, w.Distance, w.Reciprocity, w.RecentActivity, w.Lifestyle} {
		if v < 0 {
			return errors.New("scoring weights must not be negative")
		}
	}
	if math.Abs(w.sum()-1) > 1e-6 {
		return fmt.Errorf("scoring weights must sum to 1, got %.4f", w.sum())
	}
	if c.AgeToleranceYears <= 0 || c.DefaultDistanceCeilingKm <= 0 || c.InactivityThreshold <= 0 {
		return errors.New("age tolerance, distance ceiling and inactivity threshold must be positive")
	}
	return nil
}

// Scorer computes compatibility between a requester and a candidate. It
// holds no mutable state and is safe for concurrent use.
type Scorer struct {
	cfg ScoringConfig
}

// NewScorer validates cfg and returns a Scorer.
func NewScorer(cfg ScoringConfig) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring config: %w", err)
	}
	return &Scorer{cfg: cfg}, nil
}

// factorResult is a factor before weight normalization. Inapplicable
// factors give their weight away to the applicable ones.
type factorResult struct {
	name       string
	weight     float64
	value      float64 // in [0,1]
	reason     string
	applicable bool
}

// Score computes the breakdown for candidate as seen by requester at asOf.
// It is pure: identical inputs always give identical output.
func (s *Scorer) Score(requester, candidate *Profile, asOf time.Time) ScoreBreakdown {
	km, hasDistance := DistanceBetween(requester.Location, candidate.Location)

	results := [...]factorResult{
		s.interestsFactor(requester, candidate),
		s.ageFactor(requester, candidate, asOf),
		s.distanceFactor(requester, km, hasDistance),
		s.reciprocityFactor(requester, candidate, asOf, km, hasDistance),
		s.activityFactor(candidate, asOf),
		s.lifestyleFactor(requester, candidate),
	}

	var totalWeight float64
	for _, r := range results {
		if r.applicable && r.weight > 0 {
			totalWeight += r.weight
		}
	}

	breakdown := ScoreBreakdown{Factors: make([]Factor, 0, len(results))}
	if hasDistance {
		breakdown.DistanceKm = &km
	}
	if totalWeight == 0 {
		return breakdown
	}

	var score float64
	for _, r := range results {
		if !r.applicable || r.weight <= 0 {
			continue
		}
		weight := r.weight / totalWeight
		contribution := weight * r.value
		score += contribution
		breakdown.Factors = append(breakdown.Factors, Factor{
			Name:         r.name,
			Weight:       weight,
			Contribution: contribution,
			Reason:       r.reason,
		})
	}

	sort.SliceStable(breakdown.Factors, func(i, j int) bool {
		return breakdown.Factors[i].Contribution > breakdown.Factors[j].Contribution
	})
	breakdown.Score = clamp01(score)

	return breakdown
}

func (s *Scorer) interestsFactor(requester, candidate *Profile) factorResult {
	r := factorResult{name: FactorSharedInterests, weight: s.cfg.Weights.SharedInterests}

	mine := interestSet(requester.Interests)
	theirs := interestSet(candidate.Interests)
	if len(mine) == 0 || len(theirs) == 0 {
		return r
	}

	matches := 0
	for interest := range theirs {
		if _, ok := mine[interest]; ok {
			matches++
		}
	}

	// Jaccard similarity coefficient
	union := len(mine) + len(theirs) - matches
	r.applicable = true
	r.value = float64(matches) / float64(union)

	switch matches {
	case 0:
		r.reason = "No common interests"
	case 1:
		r.reason = "Shares 1 common interest"
	default:
		r.reason = fmt.Sprintf("Shares %d common interests", matches)
	}
	return r
}

func (s *Scorer) ageFactor(requester, candidate *Profile, asOf time.Time) factorResult {
	r := factorResult{name: FactorAgePreference, weight: s.cfg.Weights.AgePreference}

	ageRange := requester.Preferences.AgeRange
	if ageRange == nil {
		return r
	}
	r.applicable = true

	age := candidate.AgeAt(asOf)
	if ageRange.Contains(age) {
		r.value = 1
		r.reason = fmt.Sprintf("Age %d is within your preferred range (%d-%d)", age, ageRange.Min, ageRange.Max)
		return r
	}

	gap := ageRange.Min - age
	if age > ageRange.Max {
		gap = age - ageRange.Max
	}
	r.value = math.Max(0, 1-float64(gap)/s.cfg.AgeToleranceYears)
	r.reason = fmt.Sprintf("Age %d is %s outside your preferred range (%d-%d)", age, plural(gap, "year"), ageRange.Min, ageRange.Max)
	return r
}

func (s *Scorer) distanceFactor(requester *Profile, km int, hasDistance bool) factorResult {
	r := factorResult{name: FactorDistance, weight: s.cfg.Weights.Distance}
	if !hasDistance {
		return r
	}
	r.applicable = true

	ceiling := s.cfg.DefaultDistanceCeilingKm
	if pref := requester.Preferences.MaxDistanceKm; pref != nil && *pref > 0 {
		ceiling = *pref
	}
	r.value = math.Max(0, 1-float64(km)/ceiling)

	if km == 0 {
		r.reason = "Less than 1 km away"
	} else {
		r.reason = fmt.Sprintf("%d km away", km)
	}
	return r
}

func (s *Scorer) reciprocityFactor(requester, candidate *Profile, asOf time.Time, km int, hasDistance bool) factorResult {
	r := factorResult{name: FactorReciprocity, weight: s.cfg.Weights.Reciprocity, applicable: true}

	prefs := candidate.Preferences
	accepts := prefs.AcceptsGender(requester.Gender)
	if accepts && prefs.AgeRange != nil {
		accepts = prefs.AgeRange.Contains(requester.AgeAt(asOf))
	}
	// Unknown distance never counts against mutual fit.
	if accepts && prefs.MaxDistanceKm != nil && hasDistance {
		accepts = float64(km) <= *prefs.MaxDistanceKm
	}

	if accepts {
		r.value = 1
		r.reason = "You also fit their preferences"
	} else {
		r.reason = "You are outside their stated preferences"
	}
	return r
}

func (s *Scorer) activityFactor(candidate *Profile, asOf time.Time) factorResult {
	r := factorResult{name: FactorRecentActivity, weight: s.cfg.Weights.RecentActivity}
	if candidate.LastActiveAt == nil {
		return r
	}
	r.applicable = true

	elapsed := asOf.Sub(*candidate.LastActiveAt)
	if elapsed < 0 {
		elapsed = 0
	}
	threshold := s.cfg.InactivityThreshold
	r.value = math.Max(0, 1-float64(elapsed)/float64(threshold))

	switch {
	case elapsed < 24*time.Hour:
		r.reason = "Active today"
	case elapsed < threshold:
		r.reason = fmt.Sprintf("Active %s ago", plural(int(elapsed/(24*time.Hour)), "day"))
	default:
		r.reason = fmt.Sprintf("Inactive for over %s", plural(int(threshold/(24*time.Hour)), "day"))
	}
	return r
}

func (s *Scorer) lifestyleFactor(requester, candidate *Profile) factorResult {
	r := factorResult{name: FactorLifestyle, weight: s.cfg.Weights.Lifestyle}

	pairs := [][2]*string{
		{requester.Lifestyle.Smoking, candidate.Lifestyle.Smoking},
		{requester.Lifestyle.Drinking, candidate.Lifestyle.Drinking},
		{requester.Lifestyle.Children, candidate.Lifestyle.Children},
	}

	compared, agreed := 0, 0
	for _, p := range pairs {
		if p[0] == nil || p[1] == nil {
			continue
		}
		compared++
		if strings.EqualFold(*p[0], *p[1]) {
			agreed++
		}
	}
	if compared == 0 {
		return r
	}

	r.applicable = true
	r.value = float64(agreed) / float64(compared)
	r.reason = fmt.Sprintf("Matches %d of %d lifestyle choices", agreed, compared)
	return r
}

func interestSet(interests []string) map[string]struct{} {
	set := make(map[string]struct{}, len(interests))
	for _, interest := range interests {
		if key := strings.ToLower(strings.TrimSpace(interest)); key != "" {
			set[key] = struct{}{}
		}
	}
	return set
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}
