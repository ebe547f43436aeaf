package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONTROL_AUTH_SECRET", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.GRPCAddr != ":9090" {
		t.Fatalf("unexpected addrs: %s %s", cfg.HTTPAddr, cfg.GRPCAddr)
	}
	if cfg.Auth.SessionTTL != time.Hour || cfg.Auth.ResetTTL != 30*time.Minute {
		t.Fatalf("unexpected ttls: %v %v", cfg.Auth.SessionTTL, cfg.Auth.ResetTTL)
	}
	if cfg.Auth.Issuer != "control" {
		t.Fatalf("unexpected issuer: %s", cfg.Auth.Issuer)
	}
	if cfg.MailEnabled() {
		t.Fatal("mail should be disabled without host")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CONTROL_AUTH_SECRET", "test-secret")
	t.Setenv("CONTROL_SESSION_TTL", "15m")
	t.Setenv("CONTROL_SMTP_HOST", "smtp.example.com")
	t.Setenv("CONTROL_CORS_ORIGINS", "https://app.example.com,https://admin.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.SessionTTL != 15*time.Minute {
		t.Fatalf("session ttl: %v", cfg.Auth.SessionTTL)
	}
	if !cfg.MailEnabled() || cfg.Mail.Port != 587 {
		t.Fatalf("mail config: %+v", cfg.Mail)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Fatalf("cors origins: %v", cfg.CORSOrigins)
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("CONTROL_AUTH_SECRET", "")
	if _, err := Load(); err == nil || !strings.HasPrefix(err.Error(), "config:") {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestValidateRejectsZeroRate(t *testing.T) {
	t.Setenv("CONTROL_AUTH_SECRET", "test-secret")
	t.Setenv("CONTROL_RATE_BURST", "0")
	if _, err := Load(); err == nil {
		t.Fatal("expected validation error")
	}
}
