package config

import "fmt"

func validate(c *Config) error {
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be > 0")
	}
	if c.Workers <= 0 || c.Workers > DefaultMaxWorkers {
		return fmt.Errorf("workers must be between 1 and %d", DefaultMaxWorkers)
	}
	if c.Backend != "selenium" && c.Backend != "chromedp" {
		return fmt.Errorf("unknown browser backend %q", c.Backend)
	}
	if c.APIBaseURL == "" {
		return fmt.Errorf("api base url must not be empty")
	}
	if c.SiteURL == "" {
		return fmt.Errorf("site url must not be empty")
	}
	if c.PageRateRPS <= 0 {
		return fmt.Errorf("page rate must be > 0")
	}
	return nil
}
