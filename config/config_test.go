package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Server.Port != "8080" {
		t.Errorf("default port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Matcher.SimilarityThreshold != 0.35 {
		t.Errorf("default similarity threshold = %v, want 0.35", cfg.Matcher.SimilarityThreshold)
	}
	if cfg.Matcher.RequestDelay != 1500*time.Millisecond {
		t.Errorf("default request delay = %v, want 1.5s", cfg.Matcher.RequestDelay)
	}
	if cfg.Scraper.UseBrowser {
		t.Error("browser fetcher enabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MATCHER_SIMILARITY_THRESHOLD", "0.5")
	t.Setenv("SCRAPER_USE_BROWSER", "true")
	t.Setenv("DAILY_PRODUCT_DELAY", "5s")

	cfg := Load()

	if cfg.Server.Port != "9090" {
		t.Errorf("port = %q, want 9090", cfg.Server.Port)
	}
	if cfg.Matcher.SimilarityThreshold != 0.5 {
		t.Errorf("similarity threshold = %v, want 0.5", cfg.Matcher.SimilarityThreshold)
	}
	if !cfg.Scraper.UseBrowser {
		t.Error("browser fetcher not enabled by override")
	}
	if cfg.Matcher.ProductDelay != 5*time.Second {
		t.Errorf("product delay = %v, want 5s", cfg.Matcher.ProductDelay)
	}
}

func TestMalformedValuesKeepDefaults(t *testing.T) {
	t.Setenv("API_RATE_LIMIT", "lots")
	t.Setenv("REDIS_DB", "two")
	t.Setenv("MODEL_TIMEOUT", "soon")

	cfg := Load()

	if cfg.API.RateLimit != 5 {
		t.Errorf("rate limit = %v, want default 5", cfg.API.RateLimit)
	}
	if cfg.Redis.DB != 0 {
		t.Errorf("redis db = %v, want default 0", cfg.Redis.DB)
	}
	if cfg.Model.Timeout != 25*time.Second {
		t.Errorf("model timeout = %v, want default 25s", cfg.Model.Timeout)
	}
}
