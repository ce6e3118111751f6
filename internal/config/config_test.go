package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("KV_BACKEND", "memory")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Overlay.NotificationTTL != 3*time.Second {
		t.Errorf("NotificationTTL = %v, want 3s", cfg.Overlay.NotificationTTL)
	}
	if cfg.Overlay.SuggestionTTL != 10*time.Second {
		t.Errorf("SuggestionTTL = %v, want 10s", cfg.Overlay.SuggestionTTL)
	}
	if cfg.Overlay.SuggestionLimit != 4 {
		t.Errorf("SuggestionLimit = %d, want 4", cfg.Overlay.SuggestionLimit)
	}
	if cfg.AgentAPIBase != "http://localhost:8000/api/agent" {
		t.Errorf("unexpected AgentAPIBase %q", cfg.AgentAPIBase)
	}
}

func TestLoadTrimsAPIBase(t *testing.T) {
	t.Setenv("KV_BACKEND", "memory")
	t.Setenv("AGENT_API_BASE", "http://agent:9000/api/agent/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.AgentAPIBase != "http://agent:9000/api/agent" {
		t.Errorf("trailing slash not trimmed: %q", cfg.AgentAPIBase)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("KV_BACKEND", "etcd")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestGetEnvDurationFallsBackOnGarbage(t *testing.T) {
	t.Setenv("SUGGESTION_TTL", "soon")

	if got := getEnvDuration("SUGGESTION_TTL", time.Second); got != time.Second {
		t.Errorf("getEnvDuration = %v, want fallback", got)
	}
}
