package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"TARGET_PRICE", "CHECK_INTERVAL", "RETRY_BACKOFF", "QUIET_START", "QUIET_END",
		"STORAGE_BACKEND", "SCRAPER_ENGINE", "MAX_PAGES", "TIMEZONE"} {
		t.Setenv(k, "")
	}
	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.TargetPrice.String() != "1400" {
		t.Fatalf("TargetPrice default: %s", c.TargetPrice)
	}
	if c.CheckInterval != 3*time.Hour || c.RetryBackoff != 5*time.Minute {
		t.Fatalf("interval defaults: %v %v", c.CheckInterval, c.RetryBackoff)
	}
	if c.QuietStart != 0 || c.QuietEnd != 8*time.Hour {
		t.Fatalf("quiet window default: %v-%v", c.QuietStart, c.QuietEnd)
	}
	if c.StorageBackend != BackendFile || c.ScraperEngine != EngineHTTP {
		t.Fatalf("backend defaults: %s %s", c.StorageBackend, c.ScraperEngine)
	}
	if c.MaxPages != 50 || c.PageDelay != 1000 || c.SendDelay != 500 {
		t.Fatalf("pacing defaults: %d %d %d", c.MaxPages, c.PageDelay, c.SendDelay)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TARGET_PRICE", "999.99")
	t.Setenv("CHECK_INTERVAL", "1h")
	t.Setenv("RETRY_BACKOFF", "2m")
	t.Setenv("QUIET_START", "22:30")
	t.Setenv("QUIET_END", "06:15")
	t.Setenv("STORAGE_BACKEND", "Postgres")
	t.Setenv("BASE_URL", "https://example.com/")
	t.Setenv("MAX_PAGES", "7")
	t.Setenv("CHECK_ROBOTS_TXT", "true")
	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.BotToken != "123:abc" || c.TargetPrice.String() != "999.99" {
		t.Fatalf("unexpected token/price: %q %s", c.BotToken, c.TargetPrice)
	}
	if c.CheckInterval != time.Hour || c.RetryBackoff != 2*time.Minute {
		t.Fatalf("unexpected intervals")
	}
	if c.QuietStart != 22*time.Hour+30*time.Minute || c.QuietEnd != 6*time.Hour+15*time.Minute {
		t.Fatalf("unexpected quiet window: %v-%v", c.QuietStart, c.QuietEnd)
	}
	if c.StorageBackend != BackendPostgres {
		t.Fatalf("backend should be lower-cased, got %q", c.StorageBackend)
	}
	if c.BaseURL != "https://example.com" {
		t.Fatalf("trailing slash should be trimmed, got %q", c.BaseURL)
	}
	if c.MaxPages != 7 || !c.CheckRobotsTxt {
		t.Fatalf("unexpected scraper overrides")
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"TARGET_PRICE": "cheap",
		"QUIET_START":  "25:00",
		"TIMEZONE":     "Mars/Olympus",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", key, val)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("CHECK_INTERVAL", "10m")
	t.Setenv("RETRY_BACKOFF", "10m")
	t.Setenv("STORAGE_BACKEND", "redis")
	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	err = c.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"TELEGRAM_BOT_TOKEN", "RETRY_BACKOFF", "STORAGE_BACKEND"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q should mention %s", err, want)
		}
	}
}

func TestParseClock(t *testing.T) {
	got, err := ParseClock("08:00:30")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != 8*time.Hour+30*time.Second {
		t.Fatalf("got %v", got)
	}
	if _, err := ParseClock("8am"); err == nil {
		t.Fatalf("expected error")
	}
}
