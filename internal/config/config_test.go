package config

import (
	"testing"
	"time"
)

func TestLoadRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_TOKENS", "-3")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	c := LoadRateLimitConfig()
	if c.Capacity != 1 || c.RefillTokens != 1 {
		t.Fatalf("capacity/refill not clamped: %+v", c)
	}
	if c.TTL != 10*time.Second {
		t.Fatalf("TTL = %s, want 10s", c.TTL)
	}
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head ,")
	t.Setenv("CACHE_ENABLED", "off")

	c := LoadCacheConfig()
	if c.Enabled {
		t.Fatal("cache should be disabled")
	}
	if !c.Methods["GET"] || !c.Methods["HEAD"] || len(c.Methods) != 2 {
		t.Fatalf("methods = %v", c.Methods)
	}
	if c.Prefix != "seminars:cache" {
		t.Fatalf("prefix = %q", c.Prefix)
	}
}

func TestEnvHelpersFallBack(t *testing.T) {
	t.Setenv("X_BOOL", "maybe")
	t.Setenv("X_INT", "abc")
	t.Setenv("X_DUR", "soon")
	if !envBool("X_BOOL", true) || envInt("X_INT", 4) != 4 || envDur("X_DUR", time.Minute) != time.Minute {
		t.Fatal("invalid values must fall back to defaults")
	}
}

func TestLoadFeatures(t *testing.T) {
	for k, v := range map[string]string{
		"APP_ENV": "test", "APP_PORT": "8080", "DB_USER": "u", "DB_HOST": "h",
		"DB_PORT": "3306", "DB_NAME": "seminars", "JWT_SECRET": "s",
		"ACCESS_TOKEN_TTL_MIN": "15", "REFRESH_TOKEN_TTL_DAYS": "7", "BCRYPT_COST": "4",
		"FEATURE_REGISTRATION": "false", "FEATURE_PUBLIC_ATTENDEE_NAMES": "1",
	} {
		t.Setenv(k, v)
	}
	c := Load()
	if c.Features.RegistrationEnabled || !c.Features.PublicAttendeeNames {
		t.Fatalf("features = %+v", c.Features)
	}
	if c.AccessTTLMin != 15 || c.Mail.Port != "587" {
		t.Fatalf("config = %+v", c)
	}
}

func TestParseEmails(t *testing.T) {
	m := parseEmails(" Admin@Example.org, ,ops@example.org")
	if !m["admin@example.org"] || !m["ops@example.org"] || len(m) != 2 {
		t.Fatalf("emails = %v", m)
	}
}
