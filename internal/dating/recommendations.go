// internal/dating/recommendations.go

package dating

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultRecommendationLimit = 10
	MaxRecommendationLimit     = 50
)

// RankOptions controls one ranking request.
type RankOptions struct {
	// Limit is clamped to [1,50]; zero means DefaultRecommendationLimit.
	Limit int

	// MaxDistanceKm is the hard distance ceiling; nil disables it.
	MaxDistanceKm *float64

	// AsOf is the instant ages and activity are measured at. Zero means now.
	AsOf time.Time
}

// Ranker runs filter and scorer across a candidate pool.
type Ranker struct {
	filter  CandidateFilter
	scorer  *Scorer
	workers int
	logger  zerolog.Logger
}

// NewRanker returns a Ranker whose scoring pool is sized to the available cores.
func NewRanker(scorer *Scorer, logger zerolog.Logger) *Ranker {
	return &Ranker{
		scorer:  scorer,
		workers: runtime.GOMAXPROCS(0),
		logger:  logger,
	}
}

type scoredCandidate struct {
	id        string
	breakdown ScoreBreakdown
}

// Rank filters pool, scores survivors in parallel and returns the top
// candidates by score, ties broken by ascending id. An empty pool after
// filtering yields an empty, non-nil slice. A malformed requester is
// rejected with ErrInvalidInput before anything is filtered or scored.
func (r *Ranker) Rank(ctx context.Context, requester *Profile, pool []Profile, exclusions ExclusionSet, opts RankOptions) ([]Recommendation, error) {
	if requester == nil {
		return nil, fmt.Errorf("%w: requester is required", ErrInvalidInput)
	}
	if err := requester.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	asOf := opts.AsOf
	if asOf.IsZero() {
		asOf = start
	}
	limit := clampLimit(opts.Limit)

	candidates, stats := r.filter.FilterWithStats(requester, pool, exclusions, FilterOptions{MaxDistanceKm: opts.MaxDistanceKm})
	RecordFilterStats(stats)

	logger := r.logger.With().Str("requester_id", requester.ID).Logger()
	if len(candidates) == 0 {
		logger.Debug().Int("pool", len(pool)).Int("dropped", stats.Dropped()).Msg("no candidates survived filtering")
		return []Recommendation{}, nil
	}

	scored, err := r.scoreAll(ctx, requester, candidates, asOf)
	if err != nil {
		return nil, err
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].breakdown.Score != scored[j].breakdown.Score {
			return scored[i].breakdown.Score > scored[j].breakdown.Score
		}
		return scored[i].id < scored[j].id
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}

	recommendations := make([]Recommendation, 0, len(scored))
	for _, sc := range scored {
		recommendations = append(recommendations, Recommendation{
			CandidateID: sc.id,
			Percentage:  int(math.Round(sc.breakdown.Score * 100)),
			Explanation: explain(sc.breakdown),
			Breakdown:   sc.breakdown,
		})
	}

	RecordRanking(time.Since(start), len(recommendations))
	logger.Debug().
		Int("pool", len(pool)).
		Int("candidates", len(candidates)).
		Int("returned", len(recommendations)).
		Dur("latency", time.Since(start)).
		Msg("ranking complete")

	return recommendations, nil
}

// scoreAll scores every candidate on a bounded pool. Each worker writes
// only its own slot, so no locking is needed. Cancellation stops new work
// from being scheduled; calls already running finish.
func (r *Ranker) scoreAll(ctx context.Context, requester *Profile, candidates []Profile, asOf time.Time) ([]scoredCandidate, error) {
	scored := make([]scoredCandidate, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i := range candidates {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			breakdown := r.scorer.Score(requester, &candidates[i], asOf)
			RecordCompatibilityScore(breakdown.Score)
			scored[i] = scoredCandidate{id: candidates[i].ID, breakdown: breakdown}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	// Wait returns nil if the parent was cancelled before any goroutine ran.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return scored, nil
}

// explain picks the reason of the strongest contributing factor.
func explain(b ScoreBreakdown) string {
	for _, f := range b.Factors {
		if f.Contribution > 0 {
			return f.Reason
		}
	}
	return "Recommended for you"
}

func clampLimit(limit int) int {
	switch {
	case limit == 0:
		return DefaultRecommendationLimit
	case limit < 1:
		return 1
	case limit > MaxRecommendationLimit:
		return MaxRecommendationLimit
	default:
		return limit
	}
}
