package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestApplyEnvOverridesDefaults(t *testing.T) {
	t.Setenv("SEARCH_URL", "https://www.immobilienscout24.de/Suche/de/berlin/berlin/wohnung-mieten")
	t.Setenv("CENTER_LAT", "52.5")
	t.Setenv("ALERT_MAX_HOT_RENT", "1100")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("NOTIFY_CONCURRENCY", "not-a-number")

	cfg := Defaults()
	cfg.applyEnv()

	if cfg.CenterLat != 52.5 {
		t.Errorf("CenterLat: got %v, want 52.5", cfg.CenterLat)
	}
	if cfg.AlertMaxHotRent != 1100 {
		t.Errorf("AlertMaxHotRent: got %v, want 1100", cfg.AlertMaxHotRent)
	}
	if cfg.RedisDB != 3 {
		t.Errorf("RedisDB: got %d, want 3", cfg.RedisDB)
	}
	if cfg.NotifyWorkers != 2 {
		t.Errorf("NotifyWorkers: got %d, want default 2 on unparsable value", cfg.NotifyWorkers)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadFileExpandsEnv(t *testing.T) {
	t.Setenv("IMMO_SHEET", "sheet-123")

	dir := t.TempDir()
	path := filepath.Join(dir, "immo.yaml")
	content := "search_url: https://example.test/search\nstore: sheets\nsheet_id: ${IMMO_SHEET}\nsheet_range: ${IMMO_RANGE:-Listado!B2:T}\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := cfg.loadFile(path); err != nil {
		t.Fatalf("loadFile: %v", err)
	}
	if cfg.SheetID != "sheet-123" {
		t.Errorf("SheetID: got %q, want %q", cfg.SheetID, "sheet-123")
	}
	if cfg.SheetRange != "Listado!B2:T" {
		t.Errorf("SheetRange: got %q, want default expansion", cfg.SheetRange)
	}
	if cfg.BaseURL != "https://www.immobilienscout24.de" {
		t.Errorf("BaseURL default lost: %q", cfg.BaseURL)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"ok", func(c *Config) {}, false},
		{"missing search url", func(c *Config) { c.SearchURL = "" }, true},
		{"unknown store", func(c *Config) { c.Store = "excel" }, true},
		{"sheets without id", func(c *Config) { c.Store = "sheets" }, true},
		{"unknown fetcher", func(c *Config) { c.Fetcher = "curl" }, true},
		{"redis", func(c *Config) { c.Store = "redis" }, false},
	}

	for _, tt := range tests {
		cfg := Defaults()
		cfg.SearchURL = "https://example.test/search"
		tt.mutate(cfg)
		err := cfg.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: Validate() = %v; wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestRecipients(t *testing.T) {
	cfg := Defaults()
	cfg.BotChatID = "100"
	if got := cfg.AlertRecipients(); len(got) != 1 || got[0] != "100" {
		t.Errorf("AlertRecipients fallback: got %v, want [100]", got)
	}

	cfg.ChatIDs = "200, 300,,"
	got := cfg.AlertRecipients()
	if len(got) != 2 || got[0] != "200" || got[1] != "300" {
		t.Errorf("AlertRecipients: got %v, want [200 300]", got)
	}
	if s := cfg.SummaryRecipients(); len(s) != 1 || s[0] != "100" {
		t.Errorf("SummaryRecipients: got %v, want [100]", s)
	}
}
