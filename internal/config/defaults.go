package config

import "time"

// Default constants for application configuration
const (
	DefaultLogLevel        = "info"
	DefaultJSONLog         = false
	DefaultUserAgent       = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	DefaultHTTPTimeout     = 30 * time.Second
	DefaultAPIBaseURL      = "http://localhost:5000"
	DefaultVendor          = "amazon"
	DefaultSiteURL         = "https://www.amazon.com.mx"
	DefaultTopURL          = "https://www.amazon.com.mx/gp/bestsellers/electronics/9687538011"
	DefaultBackend         = "selenium"
	DefaultSeleniumURL     = "http://localhost:4444/wd/hub"
	DefaultHeadless        = true
	DefaultPageRateRPS     = 0.5
	DefaultPageRateBurst   = 1
	DefaultInterBrandDelay = 10 * time.Second
	DefaultMaxWorkers      = 16
)
