// internal/dating/service.go

package dating

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrProfileNotFound = errors.New("profile not found")
)

// maxEarthDistanceKm is half the Earth's circumference.
const maxEarthDistanceKm = 20040

type Service interface {
	// GetRecommendations ranks a caller-supplied pool for requester.
	GetRecommendations(ctx context.Context, requester *Profile, pool []Profile, exclusions ExclusionSet, opts RankOptions) ([]Recommendation, error)

	// RecommendForUser loads the requester, its candidate pool and its
	// exclusions from storage and ranks them.
	RecommendForUser(ctx context.Context, userID string, opts RankOptions) ([]Recommendation, error)

	// GetCompatibility scores one stored candidate for one stored requester.
	GetCompatibility(ctx context.Context, userID, candidateID string) (*ScoreBreakdown, error)
}

// ServiceConfig holds the knobs the service applies before ranking.
type ServiceConfig struct {
	CandidatePoolSize int
	DefaultLimit      int
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		CandidatePoolSize: 200,
		DefaultLimit:      DefaultRecommendationLimit,
	}
}

type service struct {
	repo   Repository
	ranker *Ranker
	scorer *Scorer
	cfg    ServiceConfig
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, scorer *Scorer, cfg ServiceConfig, logger zerolog.Logger) Service {
	if cfg.CandidatePoolSize <= 0 {
		cfg.CandidatePoolSize = DefaultServiceConfig().CandidatePoolSize
	}
	if cfg.DefaultLimit <= 0 || cfg.DefaultLimit > MaxRecommendationLimit {
		cfg.DefaultLimit = DefaultRecommendationLimit
	}
	return &service{
		repo:   repo,
		ranker: NewRanker(scorer, logger),
		scorer: scorer,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

func (s *service) GetRecommendations(ctx context.Context, requester *Profile, pool []Profile, exclusions ExclusionSet, opts RankOptions) ([]Recommendation, error) {
	if requester == nil {
		return nil, fmt.Errorf("%w: requester is required", ErrInvalidInput)
	}
	if err := requester.Validate(); err != nil {
		return nil, err
	}

	opts, err := s.normalizeOptions(requester, opts)
	if err != nil {
		return nil, err
	}

	return s.ranker.Rank(ctx, requester, pool, exclusions, opts)
}

func (s *service) RecommendForUser(ctx context.Context, userID string, opts RankOptions) ([]Recommendation, error) {
	requester, err := s.loadProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	opts, err = s.normalizeOptions(requester, opts)
	if err != nil {
		return nil, err
	}

	pool, err := s.repo.FindCandidates(ctx, requester, s.cfg.CandidatePoolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}

	exclusions, err := s.repo.GetExclusions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load exclusions: %w", err)
	}

	return s.ranker.Rank(ctx, requester, pool, exclusions, opts)
}

func (s *service) GetCompatibility(ctx context.Context, userID, candidateID string) (*ScoreBreakdown, error) {
	if userID == candidateID {
		return nil, fmt.Errorf("%w: cannot score a profile against itself", ErrInvalidInput)
	}

	requester, err := s.loadProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	candidate, err := s.loadProfile(ctx, candidateID)
	if err != nil {
		return nil, err
	}

	breakdown := s.scorer.Score(requester, candidate, s.now())
	RecordCompatibilityScore(breakdown.Score)
	return &breakdown, nil
}

func (s *service) loadProfile(ctx context.Context, id string) (*Profile, error) {
	if err := validateIdentifier(id); err != nil {
		return nil, err
	}

	profile, err := s.repo.GetProfile(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load profile %q: %w", id, err)
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return profile, nil
}

// normalizeOptions rejects out-of-range options and fills defaults: the
// configured limit, the requester's own distance preference and the
// current time.
func (s *service) normalizeOptions(requester *Profile, opts RankOptions) (RankOptions, error) {
	switch {
	case opts.Limit < 0 || opts.Limit > MaxRecommendationLimit:
		return opts, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidInput, MaxRecommendationLimit)
	case opts.Limit == 0:
		opts.Limit = s.cfg.DefaultLimit
	}

	if opts.MaxDistanceKm != nil {
		if d := *opts.MaxDistanceKm; d <= 0 || d > maxEarthDistanceKm {
			return opts, fmt.Errorf("%w: max_distance_km must be greater than 0 and at most %d", ErrInvalidInput, maxEarthDistanceKm)
		}
	} else {
		opts.MaxDistanceKm = requester.Preferences.MaxDistanceKm
	}

	if opts.AsOf.IsZero() {
		opts.AsOf = s.now()
	}
	return opts, nil
}
