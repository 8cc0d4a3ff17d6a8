package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func signedToken(t *testing.T, userID, secret string, expiresIn time.Duration) string {
	t.Helper()
	token, err := GenerateJWT(&JWTClaims{
		UserID: userID,
		Type:   "access",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}, secret)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	return token
}

func TestValidateJWT(t *testing.T) {
	const secret = "test-secret"

	tests := []struct {
		name    string
		token   string
		secret  string
		wantErr bool
	}{
		{"valid", signedToken(t, "user-1", secret, time.Hour), secret, false},
		{"wrong secret", signedToken(t, "user-1", secret, time.Hour), "other", true},
		{"expired", signedToken(t, "user-1", secret, -time.Minute), secret, true},
		{"malformed user id", signedToken(t, "user 1", secret, time.Hour), secret, true},
		{"garbage", "not-a-token", secret, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ValidateJWT(tt.token, tt.secret)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidToken) {
					t.Fatalf("expected ErrInvalidToken, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if claims.UserID != "user-1" || claims.Type != "access" {
				t.Errorf("unexpected claims: %+v", claims)
			}
		})
	}
}

func TestValidateStruct(t *testing.T) {
	type payload struct {
		ID    string  `validate:"required,identifier"`
		Lat   float64 `validate:"latitude"`
		Limit int     `validate:"gte=1,lte=50"`
	}

	if err := ValidateStruct(payload{ID: "abc_1", Lat: 40.7, Limit: 10}); err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}

	err := ValidateStruct(payload{ID: "bad id", Lat: 91, Limit: 0})
	if err == nil {
		t.Fatal("expected validation error")
	}
	want := "ID must be 1-64 letters, digits, '-' or '_', Lat must be a valid latitude, Limit must be at least 1"
	if err.Error() != want {
		t.Errorf("message = %q, want %q", err.Error(), want)
	}
}

func TestNewValidatorRegistersIdentifier(t *testing.T) {
	v := newValidator()
	if err := v.Var("user_42", "identifier"); err != nil {
		t.Errorf("valid identifier rejected: %v", err)
	}
	if err := v.Var("bad id", "identifier"); err == nil {
		t.Error("malformed identifier accepted")
	}
}
