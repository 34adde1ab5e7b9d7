package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("TMDB_API_KEY", "")
	t.Setenv("WATCH_REGION", "")
	t.Setenv("ADMIN_USER_IDS", "")
	t.Setenv("APP_BRAND", "")
	t.Setenv("APP_TAGLINE", "")
	t.Setenv("HTTP_ADDR", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.WatchRegion != "IN" {
		t.Errorf("WatchRegion = %q, want IN", cfg.WatchRegion)
	}
	if cfg.Brand == "" || cfg.Tagline == "" {
		t.Errorf("expected default branding, got brand=%q tagline=%q", cfg.Brand, cfg.Tagline)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if len(cfg.AdminUserIDs) != 0 {
		t.Errorf("expected empty admin list, got %v", cfg.AdminUserIDs)
	}
}

func TestParseAdminIDs(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []int64
		wantErr bool
	}{
		{name: "empty", raw: "", want: nil},
		{name: "commas", raw: "1,2,3", want: []int64{1, 2, 3}},
		{name: "spaces", raw: "10 20", want: []int64{10, 20}},
		{name: "mixed separators", raw: "1, 2,  3", want: []int64{1, 2, 3}},
		{name: "non numeric", raw: "1,abc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, err := parseAdminIDs(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseAdminIDs(%q) error: %v", tt.raw, err)
			}
			if len(ids) != len(tt.want) {
				t.Fatalf("got %d ids, want %d", len(ids), len(tt.want))
			}
			for _, id := range tt.want {
				if _, ok := ids[id]; !ok {
					t.Errorf("missing id %d", id)
				}
			}
		})
	}
}

func TestIsAdmin(t *testing.T) {
	t.Setenv("ADMIN_USER_IDS", "42, 77")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.IsAdmin(42) || !cfg.IsAdmin(77) {
		t.Errorf("expected configured ids to be admins")
	}
	if cfg.IsAdmin(99) {
		t.Errorf("unexpected admin 99")
	}
}

func TestValidateBotReady(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("TMDB_API_KEY", "tmdbkey")
	cfg, _ := Load()
	if err := cfg.ValidateBotReady(); err != nil {
		t.Errorf("expected valid bot config, got %v", err)
	}
	t.Setenv("BOT_TOKEN", "")
	cfg, _ = Load()
	if err := cfg.ValidateBotReady(); err == nil {
		t.Errorf("expected error when BOT_TOKEN missing")
	}
}
