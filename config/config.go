// Package config loads environment variables and provides a typed Config used across the service.
// It applies sensible defaults so the binary can run locally with minimal setup.
// For required credentials (bot token, TMDB key), use ValidateBotReady.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	// Telegram
	BotToken string

	// TMDB
	TMDBAPIKey string

	// Region used for watch-provider lookups (ISO 3166-1 alpha-2).
	WatchRegion string

	// Admins allowed to run /broadcast and /stats.
	AdminUserIDs map[int64]struct{}

	// Branding
	Brand   string
	Tagline string

	// Ops HTTP server
	HTTPAddr string
}

// Load reads environment variables and applies defaults. It doesn't fail if credentials
// are missing; use ValidateBotReady() before starting the long-polling worker.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.BotToken = strings.TrimSpace(os.Getenv("BOT_TOKEN"))
	cfg.TMDBAPIKey = strings.TrimSpace(os.Getenv("TMDB_API_KEY"))

	cfg.WatchRegion = strings.TrimSpace(os.Getenv("WATCH_REGION"))
	if cfg.WatchRegion == "" {
		cfg.WatchRegion = "IN"
	}

	ids, err := parseAdminIDs(os.Getenv("ADMIN_USER_IDS"))
	if err != nil {
		return nil, err
	}
	cfg.AdminUserIDs = ids

	cfg.Brand = os.Getenv("APP_BRAND")
	if cfg.Brand == "" {
		cfg.Brand = "AllMoviesPro"
	}
	cfg.Tagline = os.Getenv("APP_TAGLINE")
	if cfg.Tagline == "" {
		cfg.Tagline = "Powered by Empire Movies"
	}

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	return cfg, nil
}

// parseAdminIDs accepts a comma and/or whitespace separated list of numeric user ids.
// Non-numeric tokens are rejected so a typo doesn't silently shrink the allow-list.
func parseAdminIDs(raw string) (map[int64]struct{}, error) {
	ids := make(map[int64]struct{})
	for _, tok := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' || r == '\n' }) {
		id, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_USER_IDS entry %q: %w", tok, err)
		}
		ids[id] = struct{}{}
	}
	return ids, nil
}

// IsAdmin reports whether the given user id is in the configured allow-list.
func (c *Config) IsAdmin(userID int64) bool {
	_, ok := c.AdminUserIDs[userID]
	return ok
}

// ValidateBotReady checks required fields for running the Telegram worker.
func (c *Config) ValidateBotReady() error {
	if c.BotToken == "" || c.TMDBAPIKey == "" {
		return fmt.Errorf("missing env: require BOT_TOKEN, TMDB_API_KEY")
	}
	return nil
}
