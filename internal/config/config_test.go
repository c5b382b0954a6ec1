package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("NOTION_API_URL", "https://api.notion.test/v1/")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "legacy-key")
	t.Setenv("NOTION_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %q", cfg.Port)
	}
	if cfg.Notion.APIURL != "https://api.notion.test/v1" {
		t.Errorf("expected trailing slash trimmed, got %q", cfg.Notion.APIURL)
	}
	if cfg.Notion.Version != "2022-06-28" {
		t.Errorf("unexpected notion version %q", cfg.Notion.Version)
	}
	if cfg.Notion.Timeout != 30*time.Second {
		t.Errorf("expected fallback timeout, got %v", cfg.Notion.Timeout)
	}
	if cfg.Gemini.APIKey != "legacy-key" {
		t.Errorf("expected API_KEY fallback, got %q", cfg.Gemini.APIKey)
	}
	if !cfg.AIEnabled() {
		t.Error("expected AI to be enabled when a key is present")
	}
	if cfg.InterviewIdleTimeout != 2*time.Hour {
		t.Errorf("expected default interview idle timeout, got %v", cfg.InterviewIdleTimeout)
	}
}

func TestValidateRejectsEmptyPort(t *testing.T) {
	cfg := &Config{DBPath: "x.db", MaxRequestBodySize: 1}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty port")
	}
}

func TestIsDevelopment(t *testing.T) {
	cases := map[string]bool{
		"":                       true,
		"http://localhost:5173":  true,
		"http://127.0.0.1:3000":  true,
		"https://mockdy.example": false,
	}
	for url, want := range cases {
		cfg := &Config{FrontendURL: url}
		if got := cfg.IsDevelopment(); got != want {
			t.Errorf("IsDevelopment(%q) = %v, want %v", url, got, want)
		}
	}
}

func TestNotionEnabled(t *testing.T) {
	cfg := &Config{Notion: NotionConfig{ClientID: "id", ClientSecret: "secret"}}
	if cfg.NotionEnabled() {
		t.Error("expected Notion disabled without a redirect URI")
	}
	cfg.Notion.RedirectURI = "http://localhost:8080/api/notion-oauth/callback"
	if !cfg.NotionEnabled() {
		t.Error("expected Notion enabled with all credentials")
	}
}
