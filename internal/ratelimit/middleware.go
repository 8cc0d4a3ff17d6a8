package ratelimit

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/imadgeboyega/kiekky-matching/internal/common/utils"
)

// KeyFunc picks the identifier a request is counted against.
type KeyFunc func(r *http.Request) string

// ClientIP is the remote host of r without the port.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware rejects requests over the limit with 429 and reports the
// window state in X-RateLimit-* headers. Under FailClosed a failing store
// answers 503.
func Middleware(g *Governor, keyFunc KeyFunc, logger zerolog.Logger) func(http.Handler) http.Handler {
	if keyFunc == nil {
		keyFunc = ClientIP
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision, err := g.CheckAdmission(r.Context(), keyFunc(r))
			if err != nil {
				if errors.Is(err, ErrStoreUnavailable) {
					w.Header().Set("Retry-After", "1")
					utils.RespondWithError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
					return
				}
				logger.Error().Err(err).Str("path", r.URL.Path).Msg("admission check failed")
				utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

			if !decision.Admitted {
				retry := decision.RetryAfter(g.now())
				h.Set("Retry-After", strconv.Itoa(int(retry/time.Second)))
				utils.RespondWithError(w, http.StatusTooManyRequests, "Rate limit exceeded, please try again later")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
