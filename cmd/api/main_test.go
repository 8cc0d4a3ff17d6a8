package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/imadgeboyega/kiekky-matching/internal/auth"
	"github.com/imadgeboyega/kiekky-matching/internal/common/utils"
)

func TestRequesterKey(t *testing.T) {
	const secret = "test-secret"

	sign := func(tokenType string) string {
		token, err := utils.GenerateJWT(&utils.JWTClaims{
			UserID: "user-1",
			Type:   tokenType,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}, secret)
		if err != nil {
			t.Fatalf("GenerateJWT: %v", err)
		}
		return token
	}

	keyFunc := requesterKey(auth.NewMiddleware(secret))

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"access token", "Bearer " + sign("access"), "user:user-1"},
		{"refresh token", "Bearer " + sign("refresh"), "ip:192.0.2.1"},
		{"invalid token", "Bearer nope", "ip:192.0.2.1"},
		{"anonymous", "", "ip:192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/dating/recommendations", nil)
			req.RemoteAddr = "192.0.2.1:4321"
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if got := keyFunc(req); got != tt.want {
				t.Errorf("key = %q, want %q", got, tt.want)
			}
		})
	}
}
