// Package config assembles runtime settings from defaults, an optional
// .env file, environment variables, and CLI flags, in that order of
// precedence (later wins).
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Config holds application configuration values
type Config struct {
	// Logging
	LogLevel string
	JSONLog  bool

	// Catalog backend
	APIBaseURL  string
	Vendor      string
	HTTPTimeout time.Duration

	// Browser
	Backend     string
	SeleniumURL string
	Headless    bool
	ChromePath  string
	Proxy       string
	UserAgent   string

	// Crawl targets
	SiteURL string
	TopURL  string
	Brands  []string

	// Pacing
	Workers         int
	PageRateRPS     float64
	PageRateBurst   int
	InterBrandDelay time.Duration

	// Token persistence
	CredentialsPath string
}

// Load builds a Config by combining defaults, an optional .env file,
// environment variables, and CLI flags. Caller should pass the root
// *cobra.Command so flags can be read.
func Load(cmd *cobra.Command) (*Config, error) {
	// Missing .env is fine; it is a local-dev convenience.
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel:        DefaultLogLevel,
		JSONLog:         DefaultJSONLog,
		APIBaseURL:      DefaultAPIBaseURL,
		Vendor:          DefaultVendor,
		HTTPTimeout:     DefaultHTTPTimeout,
		Backend:         DefaultBackend,
		SeleniumURL:     DefaultSeleniumURL,
		Headless:        DefaultHeadless,
		UserAgent:       DefaultUserAgent,
		SiteURL:         DefaultSiteURL,
		TopURL:          DefaultTopURL,
		Workers:         defaultWorkers(),
		PageRateRPS:     DefaultPageRateRPS,
		PageRateBurst:   DefaultPageRateBurst,
		InterBrandDelay: DefaultInterBrandDelay,
	}

	applyEnv(cfg)

	if cmd != nil {
		applyFlags(cfg, cmd)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func defaultWorkers() int {
	n := runtime.NumCPU()
	if n > DefaultMaxWorkers {
		n = DefaultMaxWorkers
	}
	if n < 1 {
		n = 1
	}
	return n
}

func applyEnv(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString("CRAWLER_API_URL", &cfg.APIBaseURL)
	setString("CRAWLER_VENDOR", &cfg.Vendor)
	setString("CRAWLER_BACKEND", &cfg.Backend)
	setString("CRAWLER_SELENIUM_URL", &cfg.SeleniumURL)
	setString("CRAWLER_CHROME_PATH", &cfg.ChromePath)
	setString("CRAWLER_PROXY", &cfg.Proxy)
	setString("CRAWLER_USER_AGENT", &cfg.UserAgent)
	setString("CRAWLER_SITE_URL", &cfg.SiteURL)
	setString("CRAWLER_TOP_URL", &cfg.TopURL)
	setString("CRAWLER_CREDENTIALS_PATH", &cfg.CredentialsPath)

	if v := os.Getenv("CRAWLER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Workers = n
		}
	}
	if v := os.Getenv("CRAWLER_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Headless = b
		}
	}
	if v := os.Getenv("CRAWLER_PAGE_RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.PageRateRPS = f
		}
	}
}

func applyFlags(cfg *Config, cmd *cobra.Command) {
	// Flags are registered on the root's persistent set; the parsed
	// Flag objects are shared with whichever subcommand ran.
	flags := cmd.PersistentFlags()

	lookupString := func(name string, dst *string) {
		if f := flags.Lookup(name); f != nil && f.Changed {
			*dst = f.Value.String()
		}
	}

	lookupString("api-url", &cfg.APIBaseURL)
	lookupString("vendor", &cfg.Vendor)
	lookupString("backend", &cfg.Backend)
	lookupString("selenium-url", &cfg.SeleniumURL)
	lookupString("chrome-path", &cfg.ChromePath)
	lookupString("proxy", &cfg.Proxy)
	lookupString("user-agent", &cfg.UserAgent)
	lookupString("site-url", &cfg.SiteURL)

	if f := flags.Lookup("workers"); f != nil && f.Changed {
		if n, err := strconv.Atoi(f.Value.String()); err == nil {
			cfg.Workers = n
		}
	}
	if f := flags.Lookup("headless"); f != nil && f.Changed {
		cfg.Headless = f.Value.String() == "true"
	}
	if f := flags.Lookup("timeout"); f != nil && f.Changed {
		if d, err := time.ParseDuration(f.Value.String()); err == nil {
			cfg.HTTPTimeout = d
		}
	}
	if f := flags.Lookup("brands"); f != nil && f.Changed {
		if sv, err := flags.GetStringSlice("brands"); err == nil {
			cfg.Brands = sv
		}
	}
	if f := flags.Lookup("json"); f != nil && f.Value.String() == "true" {
		cfg.JSONLog = true
	}
	if f := flags.Lookup("verbose"); f != nil && f.Value.String() == "true" {
		cfg.LogLevel = "debug"
	}
	if f := flags.Lookup("quiet"); f != nil && f.Value.String() == "true" {
		cfg.LogLevel = "error"
	}
}
