// internal/auth/middleware.go

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/imadgeboyega/kiekky-matching/internal/common/utils"
)

type contextKey string

const userIDKey contextKey = "userID"

var (
	ErrMissingToken     = errors.New("missing or invalid authorization header")
	ErrInvalidTokenType = errors.New("invalid token type")
)

// Middleware verifies access tokens issued by the account service
type Middleware struct {
	secret string
}

// NewMiddleware creates a new auth middleware
func NewMiddleware(secret string) *Middleware {
	return &Middleware{secret: secret}
}

// Authenticate verifies the JWT token and adds the user id to the request context
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := m.UserID(r)
		switch {
		case errors.Is(err, ErrMissingToken):
			utils.RespondWithError(w, http.StatusUnauthorized, "Missing or invalid authorization header")
			return
		case errors.Is(err, ErrInvalidTokenType):
			utils.RespondWithError(w, http.StatusUnauthorized, "Invalid token type")
			return
		case err != nil:
			utils.RespondWithError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

// UserID returns the user id of a valid access token on r
func (m *Middleware) UserID(r *http.Request) (string, error) {
	token := extractToken(r)
	if token == "" {
		return "", ErrMissingToken
	}

	claims, err := utils.ValidateJWT(token, m.secret)
	if err != nil {
		return "", err
	}

	// Refresh tokens are not accepted here
	if claims.Type != "access" {
		return "", ErrInvalidTokenType
	}
	return claims.UserID, nil
}

// extractToken supports the "Bearer <token>" format
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}

	return parts[1]
}

// WithUserID returns a copy of ctx carrying the authenticated user id
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext extracts the authenticated user id from ctx
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}
