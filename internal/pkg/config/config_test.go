package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoadFrom_Defaults(t *testing.T) {
	l := envconfig.MapLookuper(map[string]string{
		"SUPABASE_URL":      "https://project.supabase.co",
		"SUPABASE_ANON_KEY": "anon",
		"DATABASE_URL":      "postgres://localhost/clubconnect",
	})

	cfg, err := LoadFrom(context.Background(), l)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.Auth.Provider != AuthProviderSupabase || cfg.Profiles.Store != ProfileStorePostgres {
		t.Fatalf("unexpected adapters: %+v %+v", cfg.Auth, cfg.Profiles)
	}
	if cfg.Session.ReconcileTimeout != 10*time.Second {
		t.Fatalf("expected 10s reconcile timeout, got %v", cfg.Session.ReconcileTimeout)
	}
	if cfg.Session.DeviceIdleTTL != 30*time.Minute {
		t.Fatalf("expected 30m idle ttl, got %v", cfg.Session.DeviceIdleTTL)
	}
	if cfg.NeedsMongo() {
		t.Fatal("supabase + postgres should not need mongo")
	}
}

func TestLoadFrom_LocalMongo(t *testing.T) {
	l := envconfig.MapLookuper(map[string]string{
		"AUTH_PROVIDER": "local",
		"JWT_SECRET":    "secret",
		"PROFILE_STORE": "mongo",
		"SESSION_TTL":   "1h",
	})

	cfg, err := LoadFrom(context.Background(), l)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.NeedsMongo() {
		t.Fatal("expected mongo to be required")
	}
	if cfg.Session.TTL != time.Hour {
		t.Fatalf("expected 1h session ttl, got %v", cfg.Session.TTL)
	}
	if cfg.Mongo.Database != "clubconnect" || cfg.Mongo.MaxPoolSize != 50 || cfg.Redis.PoolSize != 10 {
		t.Fatalf("unexpected store defaults: %+v %+v", cfg.Mongo, cfg.Redis)
	}
}

func TestLoadFrom_MissingSettings(t *testing.T) {
	l := envconfig.MapLookuper(map[string]string{
		"AUTH_PROVIDER": "local",
		"PROFILE_STORE": "postgres",
	})

	_, err := LoadFrom(context.Background(), l)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"JWT_SECRET", "DATABASE_URL"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected error to mention %s, got %v", want, err)
		}
	}
}

func TestLoadFrom_UnknownProvider(t *testing.T) {
	l := envconfig.MapLookuper(map[string]string{
		"AUTH_PROVIDER": "okta",
		"PROFILE_STORE": "mongo",
	})

	if _, err := LoadFrom(context.Background(), l); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
