package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/kiekky")

	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.RateLimitRequests != 100 || cfg.RateLimitWindow != time.Minute {
		t.Errorf("rate limit defaults = %d/%v", cfg.RateLimitRequests, cfg.RateLimitWindow)
	}
	if cfg.RateLimitReapInterval != 5*time.Minute {
		t.Errorf("RateLimitReapInterval = %v, want 5m", cfg.RateLimitReapInterval)
	}
	if cfg.RateLimitFailurePolicy != "fallback" {
		t.Errorf("RateLimitFailurePolicy = %q, want fallback", cfg.RateLimitFailurePolicy)
	}
	if cfg.InactivityThreshold != 30*24*time.Hour {
		t.Errorf("InactivityThreshold = %v, want 720h", cfg.InactivityThreshold)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("RATE_LIMIT_REQUESTS", "5")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("AGE_TOLERANCE_YEARS", "7.5")
	t.Setenv("CANDIDATE_POOL_SIZE", "not-a-number")

	cfg := Load()

	if cfg.RateLimitRequests != 5 {
		t.Errorf("RateLimitRequests = %d, want 5", cfg.RateLimitRequests)
	}
	if cfg.RateLimitWindow != 30*time.Second {
		t.Errorf("RateLimitWindow = %v, want 30s", cfg.RateLimitWindow)
	}
	if cfg.AgeToleranceYears != 7.5 {
		t.Errorf("AgeToleranceYears = %v, want 7.5", cfg.AgeToleranceYears)
	}
	if cfg.CandidatePoolSize != 200 {
		t.Errorf("CandidatePoolSize = %d, want fallback 200", cfg.CandidatePoolSize)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		t.Setenv("DATABASE_URL", "postgres://localhost/kiekky")
		return Load()
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing database", func(c *Config) { c.DatabaseURL = "" }},
		{"default secret in production", func(c *Config) { c.Environment = "production" }},
		{"zero rate limit", func(c *Config) { c.RateLimitRequests = 0 }},
		{"zero window", func(c *Config) { c.RateLimitWindow = 0 }},
		{"sub-millisecond window", func(c *Config) { c.RateLimitWindow = 500 * time.Microsecond }},
		{"unknown policy", func(c *Config) { c.RateLimitFailurePolicy = "maybe" }},
		{"limit above 50", func(c *Config) { c.DefaultRecommendationLimit = 51 }},
		{"negative ceiling", func(c *Config) { c.DefaultDistanceCeilingKm = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidate_FailurePolicyIsCaseInsensitive(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/kiekky")

	for _, policy := range []string{"Fallback", " OPEN ", "closed"} {
		t.Setenv("RATE_LIMIT_FAILURE_POLICY", policy)
		cfg := Load()
		if err := cfg.Validate(); err != nil {
			t.Errorf("policy %q: %v", policy, err)
		}
	}
}
