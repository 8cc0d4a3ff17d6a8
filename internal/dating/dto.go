// internal/dating/dto.go
package dating

import "time"

// DTOs for API requests/responses

// RankRequestDTO is the body of POST /rank. Malformed pool entries are
// dropped by the filter rather than rejected.
type RankRequestDTO struct {
	Requester  *Profile       `json:"requester" validate:"required"`
	Pool       []Profile      `json:"pool" validate:"max=1000"`
	Exclusions []string       `json:"exclusions" validate:"max=10000,dive,identifier"`
	Options    RankOptionsDTO `json:"options"`
}

type RankOptionsDTO struct {
	Limit         int        `json:"limit"`
	MaxDistanceKm *float64   `json:"max_distance_km,omitempty"`
	AsOf          *time.Time `json:"as_of,omitempty"`
}

func (o RankOptionsDTO) toRankOptions() RankOptions {
	opts := RankOptions{Limit: o.Limit, MaxDistanceKm: o.MaxDistanceKm}
	if o.AsOf != nil {
		opts.AsOf = *o.AsOf
	}
	return opts
}

type RecommendationsResponse struct {
	Recommendations []Recommendation `json:"recommendations"`
	Count           int              `json:"count"`
}

type CompatibilityResponse struct {
	UserID      string         `json:"user_id"`
	CandidateID string         `json:"candidate_id"`
	Percentage  int            `json:"percentage"`
	Breakdown   ScoreBreakdown `json:"breakdown"`
}
