// cmd/api/main.go
// Main entry point for the matching API
// This file bootstraps all components and starts the server

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/imadgeboyega/kiekky-matching/internal/auth"
	"github.com/imadgeboyega/kiekky-matching/internal/common/database"
	"github.com/imadgeboyega/kiekky-matching/internal/common/logging"
	"github.com/imadgeboyega/kiekky-matching/internal/common/utils"
	"github.com/imadgeboyega/kiekky-matching/internal/config"
	"github.com/imadgeboyega/kiekky-matching/internal/dating"
	"github.com/imadgeboyega/kiekky-matching/internal/ratelimit"
)

var startTime = time.Now()

func main() {
	// 1. Load environment variables
	envErr := godotenv.Load()

	// 2. Load and validate configuration
	cfg := config.Load()

	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logger := logging.Component("api")

	if envErr != nil {
		logger.Debug().Err(envErr).Msg("no .env file found, using environment variables")
	}
	if err := cfg.Validate(); err != nil {
		logging.Fatal().Err(err).Msg("configuration validation failed")
	}

	// 3. Connect to PostgreSQL
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := database.NewPostgresDBFromURL(ctx, cfg.DatabaseURL, database.DefaultPoolConfig())
	cancel()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to PostgreSQL")
	}
	defer db.Close()
	logger.Info().Msg("connected to PostgreSQL")

	// 4. Connect to Redis (optional)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisClient, err = database.NewRedisClientFromURL(ctx, cfg.RedisURL, cfg.RateLimitStoreTimeout)
		cancel()
		if err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, rate limiting with the local backend")
			redisClient = nil
		} else {
			defer redisClient.Close()
			logger.Info().Msg("connected to Redis")
		}
	} else {
		logger.Info().Msg("Redis URL not configured, rate limiting with the local backend")
	}

	// 5. Run database migrations
	if err := runMigrations(db, logger); err != nil {
		logging.Fatal().Err(err).Msg("failed to run migrations")
	}

	// 6. Rate governor
	governor, err := newGovernor(cfg, redisClient)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create rate governor")
	}
	defer governor.Close()

	// 7. Matching service
	scoringCfg := dating.DefaultScoringConfig()
	scoringCfg.AgeToleranceYears = cfg.AgeToleranceYears
	scoringCfg.DefaultDistanceCeilingKm = cfg.DefaultDistanceCeilingKm
	scoringCfg.InactivityThreshold = cfg.InactivityThreshold

	scorer, err := dating.NewScorer(scoringCfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create scorer")
	}

	datingLogger := logging.Component("dating")
	datingService := dating.NewService(
		dating.NewPostgresRepository(db),
		scorer,
		dating.ServiceConfig{
			CandidatePoolSize: cfg.CandidatePoolSize,
			DefaultLimit:      cfg.DefaultRecommendationLimit,
		},
		datingLogger,
	)
	datingHandler := dating.NewHandler(datingService, datingLogger)

	// 8. Router
	router := mux.NewRouter()
	router.Use(requestIDMiddleware)
	router.Use(loggingMiddleware(logging.Component("http")))

	router.HandleFunc("/health", healthCheck(db, redisClient, governor)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	authMiddleware := auth.NewMiddleware(cfg.JWTSecret)
	rateLimit := ratelimit.Middleware(governor, requesterKey(authMiddleware), logging.Component("ratelimit"))
	dating.RegisterRoutes(router, datingHandler, rateLimit, authMiddleware.Authenticate)

	// 9. Create and start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("environment", cfg.Environment).
			Str("ratelimit_backend", governor.Backend()).
			Msg("server starting")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited gracefully")
}

func newGovernor(cfg *config.Config, client *redis.Client) (*ratelimit.Governor, error) {
	policy, err := ratelimit.ParseFailurePolicy(cfg.RateLimitFailurePolicy)
	if err != nil {
		return nil, err
	}

	rlCfg := ratelimit.DefaultConfig()
	rlCfg.Limit = cfg.RateLimitRequests
	rlCfg.Window = cfg.RateLimitWindow
	rlCfg.StoreTimeout = cfg.RateLimitStoreTimeout
	rlCfg.FailurePolicy = policy
	rlCfg.ReapInterval = cfg.RateLimitReapInterval

	// A nil *redis.Client must not become a non-nil interface.
	if client == nil {
		return ratelimit.New(rlCfg, nil, logging.Component("ratelimit"))
	}
	return ratelimit.New(rlCfg, client, logging.Component("ratelimit"))
}

// requesterKey counts requests carrying a valid access token by user id and
// everyone else by address. It runs before authentication.
func requesterKey(authMiddleware *auth.Middleware) ratelimit.KeyFunc {
	return func(r *http.Request) string {
		if userID, err := authMiddleware.UserID(r); err == nil {
			return "user:" + userID
		}
		return "ip:" + ratelimit.ClientIP(r)
	}
}

// healthCheck returns server health status
func healthCheck(db *sqlx.DB, redisClient *redis.Client, governor *ratelimit.Governor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := map[string]string{"database": "ok"}

		if err := db.PingContext(ctx); err != nil {
			status = http.StatusServiceUnavailable
			checks["database"] = "unreachable"
		}
		if redisClient != nil {
			checks["redis"] = "ok"
			// Redis is optional; the governor falls back when it is down.
			if err := redisClient.Ping(ctx).Err(); err != nil {
				checks["redis"] = "unreachable"
			}
		}

		healthy := "healthy"
		if status != http.StatusOK {
			healthy = "unhealthy"
		}

		utils.RespondWithJSON(w, status, map[string]interface{}{
			"status":            healthy,
			"timestamp":         time.Now().Format(time.RFC3339),
			"uptime":            time.Since(startTime).String(),
			"checks":            checks,
			"ratelimit_backend": governor.Backend(),
		})
	}
}

// Middleware functions

type requestIDKey struct{}

// requestIDMiddleware propagates X-Request-ID or assigns a new one
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// loggingMiddleware logs all requests
func loggingMiddleware(logger zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status code
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			requestID, _ := r.Context().Value(requestIDKey{}).(string)
			event := logger.Info()
			if wrapped.statusCode >= http.StatusInternalServerError {
				event = logger.Error()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.statusCode).
				Dur("duration", time.Since(start)).
				Str("request_id", requestID).
				Msg("request")
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// runMigrations creates the tables the matching service reads
func runMigrations(db *sqlx.DB, logger zerolog.Logger) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
            id VARCHAR(64) PRIMARY KEY,
            birth_date DATE NOT NULL,
            gender VARCHAR(32) NOT NULL,
            interests TEXT[] NOT NULL DEFAULT '{}',
            latitude DOUBLE PRECISION,
            longitude DOUBLE PRECISION,
            preferred_genders TEXT[] NOT NULL DEFAULT '{}',
            preferred_age_min INTEGER,
            preferred_age_max INTEGER,
            max_distance_km DOUBLE PRECISION,
            smoking VARCHAR(16),
            drinking VARCHAR(16),
            children VARCHAR(16),
            last_active_at TIMESTAMP WITH TIME ZONE,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE TABLE IF NOT EXISTS interactions (
            user_id VARCHAR(64) NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
            target_id VARCHAR(64) NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
            action VARCHAR(16) NOT NULL CHECK (action IN ('like', 'pass', 'match', 'block')),
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            PRIMARY KEY (user_id, target_id)
        )`,

		`CREATE INDEX IF NOT EXISTS idx_profiles_last_active ON profiles(last_active_at DESC NULLS LAST)`,
		`CREATE INDEX IF NOT EXISTS idx_profiles_gender ON profiles(lower(gender))`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_target ON interactions(target_id, action)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			if !strings.Contains(err.Error(), "already exists") {
				return fmt.Errorf("migration %d failed: %w", i+1, err)
			}
			logger.Debug().Int("migration", i+1).Msg("migration skipped (already exists)")
		}
	}

	logger.Info().Int("count", len(migrations)).Msg("database migrations completed")
	return nil
}
