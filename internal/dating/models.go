package dating

import (
	"fmt"
	"strings"
	"time"

	"github.com/imadgeboyega/kiekky-matching/internal/common/utils"
)

// Coordinates is a point in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
}

// AgeRange is an inclusive range of accepted ages.
type AgeRange struct {
	Min int `json:"min" validate:"gte=18,lte=120"`
	Max int `json:"max" validate:"gtefield=Min,lte=120"`
}

// Contains reports whether age falls inside the range.
func (r AgeRange) Contains(age int) bool {
	return age >= r.Min && age <= r.Max
}

// Preferences are the requester's stated matching preferences. An empty
// Genders list accepts everyone; nil fields mean "no preference".
type Preferences struct {
	Genders       []string  `json:"genders" validate:"max=10,dive,required,max=32"`
	AgeRange      *AgeRange `json:"age_range,omitempty" validate:"omitempty"`
	MaxDistanceKm *float64  `json:"max_distance_km,omitempty" validate:"omitempty,gt=0,lte=20040"`
}

// AcceptsGender reports whether gender satisfies the preference list.
func (p Preferences) AcceptsGender(gender string) bool {
	if len(p.Genders) == 0 {
		return true
	}
	for _, g := range p.Genders {
		if strings.EqualFold(g, gender) {
			return true
		}
	}
	return false
}

// Lifestyle attributes are optional; nil means undeclared.
type Lifestyle struct {
	Smoking  *string `json:"smoking,omitempty" validate:"omitempty,oneof=never sometimes regularly"`
	Drinking *string `json:"drinking,omitempty" validate:"omitempty,oneof=never sometimes regularly"`
	Children *string `json:"children,omitempty" validate:"omitempty,oneof=none want have open"`
}

// Profile is an immutable snapshot of a user's matchable attributes.
type Profile struct {
	ID           string       `json:"id" validate:"required,identifier"`
	BirthDate    time.Time    `json:"birth_date"`
	Gender       string       `json:"gender" validate:"required,max=32"`
	Interests    []string     `json:"interests" validate:"max=50,dive,required,max=50"`
	Location     *Coordinates `json:"location,omitempty" validate:"omitempty"`
	Preferences  Preferences  `json:"preferences"`
	Lifestyle    Lifestyle    `json:"lifestyle"`
	LastActiveAt *time.Time   `json:"last_active_at,omitempty"`
}

// Validate checks the fields the filter and scorer rely on.
func (p *Profile) Validate() error {
	if err := utils.ValidateStruct(p); err != nil {
		return fmt.Errorf("%w: profile %q: %v", ErrInvalidInput, p.ID, err)
	}
	if p.BirthDate.IsZero() {
		return fmt.Errorf("%w: profile %q: birth_date is required", ErrInvalidInput, p.ID)
	}
	return nil
}

// AgeAt returns the profile's age in whole years at t.
func (p *Profile) AgeAt(t time.Time) int {
	b := p.BirthDate
	years := t.Year() - b.Year()
	if t.Month() < b.Month() || (t.Month() == b.Month() && t.Day() < b.Day()) {
		years--
	}
	return years
}

// ExclusionSet holds candidate ids the requester already liked, matched or passed.
type ExclusionSet map[string]struct{}

// NewExclusionSet builds a set from ids.
func NewExclusionSet(ids ...string) ExclusionSet {
	set := make(ExclusionSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Contains is safe on a nil set.
func (s ExclusionSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Factor is one term of a compatibility score.
type Factor struct {
	Name         string  `json:"name"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
	Reason       string  `json:"reason"`
}

// ScoreBreakdown explains a compatibility score.
type ScoreBreakdown struct {
	Score      float64  `json:"score"`
	Factors    []Factor `json:"factors"`
	DistanceKm *int     `json:"distance_km"`
}

// Recommendation is one ranked candidate. Never persisted by this package.
type Recommendation struct {
	CandidateID string         `json:"candidate_id"`
	Percentage  int            `json:"percentage"`
	Explanation string         `json:"explanation"`
	Breakdown   ScoreBreakdown `json:"breakdown"`
}

func validateIdentifier(id string) error {
	if !utils.IsValidIdentifier(id) {
		return fmt.Errorf("%w: %q is not a valid user id", ErrInvalidInput, id)
	}
	return nil
}
