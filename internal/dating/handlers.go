package dating

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/imadgeboyega/kiekky-matching/internal/auth"
	"github.com/imadgeboyega/kiekky-matching/internal/common/utils"
)

type Handler struct {
	service Service
	logger  zerolog.Logger
}

func NewHandler(service Service, logger zerolog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// GetRecommendations ranks the stored candidate pool of the authenticated user.
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	opts, err := parseRankQuery(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	recommendations, err := h.service.RecommendForUser(r.Context(), userID, opts)
	if err != nil {
		h.respondWithServiceError(w, r, err, "Failed to get recommendations")
		return
	}

	utils.RespondWithData(w, http.StatusOK, RecommendationsResponse{
		Recommendations: recommendations,
		Count:           len(recommendations),
	})
}

func (h *Handler) GetCompatibility(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	candidateID := mux.Vars(r)["userId"]

	breakdown, err := h.service.GetCompatibility(r.Context(), userID, candidateID)
	if err != nil {
		h.respondWithServiceError(w, r, err, "Failed to calculate compatibility")
		return
	}

	utils.RespondWithData(w, http.StatusOK, CompatibilityResponse{
		UserID:      userID,
		CandidateID: candidateID,
		Percentage:  int(math.Round(breakdown.Score * 100)),
		Breakdown:   *breakdown,
	})
}

// Rank is the stateless form: the caller supplies requester, pool and exclusions.
func (h *Handler) Rank(w http.ResponseWriter, r *http.Request) {
	var dto RankRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := utils.ValidateStruct(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	recommendations, err := h.service.GetRecommendations(
		r.Context(), dto.Requester, dto.Pool, NewExclusionSet(dto.Exclusions...), dto.Options.toRankOptions(),
	)
	if err != nil {
		h.respondWithServiceError(w, r, err, "Failed to rank candidates")
		return
	}

	utils.RespondWithData(w, http.StatusOK, RecommendationsResponse{
		Recommendations: recommendations,
		Count:           len(recommendations),
	})
}

func (h *Handler) respondWithServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrProfileNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "Profile not found")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		utils.RespondWithError(w, http.StatusServiceUnavailable, "Request cancelled")
	default:
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg(fallback)
		utils.RespondWithError(w, http.StatusInternalServerError, fallback)
	}
}

func parseRankQuery(r *http.Request) (RankOptions, error) {
	var opts RankOptions
	query := r.URL.Query()

	if limit := query.Get("limit"); limit != "" {
		l, err := strconv.Atoi(limit)
		if err != nil {
			return opts, errors.New("limit must be an integer")
		}
		opts.Limit = l
	}

	if maxDistance := query.Get("max_distance_km"); maxDistance != "" {
		d, err := strconv.ParseFloat(maxDistance, 64)
		if err != nil || math.IsNaN(d) || math.IsInf(d, 0) {
			return opts, errors.New("max_distance_km must be a number")
		}
		opts.MaxDistanceKm = &d
	}

	return opts, nil
}
