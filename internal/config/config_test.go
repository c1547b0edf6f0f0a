package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIBaseURL != DefaultAPIBaseURL {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.Backend != DefaultBackend {
		t.Errorf("Backend = %q", cfg.Backend)
	}
	if cfg.Workers < 1 || cfg.Workers > DefaultMaxWorkers {
		t.Errorf("Workers = %d, want between 1 and %d", cfg.Workers, DefaultMaxWorkers)
	}
	if cfg.HTTPTimeout != 30*time.Second {
		t.Errorf("HTTPTimeout = %v", cfg.HTTPTimeout)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CRAWLER_API_URL", "http://backend.internal:8080")
	t.Setenv("CRAWLER_BACKEND", "chromedp")
	t.Setenv("CRAWLER_WORKERS", "4")
	t.Setenv("CRAWLER_HEADLESS", "false")
	t.Setenv("CRAWLER_PAGE_RATE_RPS", "2.5")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIBaseURL != "http://backend.internal:8080" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.Backend != "chromedp" {
		t.Errorf("Backend = %q", cfg.Backend)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d", cfg.Workers)
	}
	if cfg.Headless {
		t.Error("Headless not overridden")
	}
	if cfg.PageRateRPS != 2.5 {
		t.Errorf("PageRateRPS = %v", cfg.PageRateRPS)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown backend", "CRAWLER_BACKEND", "phantomjs"},
		{"too many workers", "CRAWLER_WORKERS", "64"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(nil); err == nil {
				t.Errorf("Load accepted %s=%s", tt.key, tt.value)
			}
		})
	}
}
