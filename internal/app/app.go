// Package app provides the core application initialization and lifecycle management.
package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/celltrack/crawler/internal/browser"
	"github.com/celltrack/crawler/internal/catalog"
	"github.com/celltrack/crawler/internal/config"
	"github.com/celltrack/crawler/internal/ratelimit"
	"github.com/celltrack/crawler/internal/scraper"
	"github.com/celltrack/crawler/internal/tokencache"
)

// Application holds all application dependencies and manages their lifecycle.
//
// It is created once at startup and shared across all CLI commands.
// Use Close() to ensure proper resource cleanup on shutdown.
type Application struct {
	Config      *config.Config
	Logger      *zerolog.Logger
	Catalog     *catalog.Client
	Sessions    *catalog.SessionManager
	Browsers    browser.Factory
	RateLimiter ratelimit.Limiter
	Manager     *scraper.Manager
	Tokens      *tokencache.Store
	HTTPClient  *http.Client
	startTime   time.Time
}

// New creates and initializes a new Application with all dependencies.
//
// It wires the catalog client behind the token-refreshing session
// manager, restores any persisted tokens, builds the browser session
// factory for the configured backend, and assembles the scrape
// coordinator. If any step fails, an error is returned.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logger := newLogger(cfg)

	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	client := catalog.NewClient(cfg.APIBaseURL, cfg.Vendor, httpClient, logger)
	sessions := catalog.NewSessionManager(client, PromptCredentials, logger)

	var tokens *tokencache.Store
	if cfg.CredentialsPath != "" {
		tokens = tokencache.NewFileStore(cfg.CredentialsPath)
	} else {
		tokens = tokencache.NewStore()
	}
	if saved, err := tokens.Load(); err == nil {
		sessions.SetCredentials(saved.Access, saved.Refresh)
		logger.Debug().Msg("restored persisted backend tokens")
	}

	browsers, err := browser.NewFactory(browser.FactoryOptions{
		Backend:    browser.Backend(cfg.Backend),
		HubURL:     cfg.SeleniumURL,
		UserAgent:  cfg.UserAgent,
		Proxies:    splitProxies(cfg.Proxy),
		Headless:   cfg.Headless,
		ChromePath: cfg.ChromePath,
	})
	if err != nil {
		return nil, fmt.Errorf("browser factory: %w", err)
	}

	limiter := ratelimit.NewDomainLimiter(cfg.PageRateRPS, cfg.PageRateBurst)

	manager := scraper.NewManager(scraper.ManagerOptions{
		Sessions:        sessions,
		Browsers:        browsers,
		Limiter:         limiter,
		Logger:          logger,
		SiteURL:         cfg.SiteURL,
		TopURL:          cfg.TopURL,
		Workers:         cfg.Workers,
		InterBrandDelay: cfg.InterBrandDelay,
	})

	logger.Debug().
		Str("backend", cfg.Backend).
		Int("workers", cfg.Workers).
		Msg("application initialized")

	return &Application{
		Config:      cfg,
		Logger:      &logger,
		Catalog:     client,
		Sessions:    sessions,
		Browsers:    browsers,
		RateLimiter: limiter,
		Manager:     manager,
		Tokens:      tokens,
		HTTPClient:  httpClient,
		startTime:   time.Now(),
	}, nil
}

// splitProxies reads a comma-separated proxy list into a slice for the
// rotation pool.
func splitProxies(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level := zerolog.InfoLevel
	switch cfg.LogLevel {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(level)

	var logWriter io.Writer = os.Stderr
	if !cfg.JSONLog {
		logWriter = zerolog.NewConsoleWriter()
	}
	return log.Output(logWriter).With().Timestamp().Logger()
}

// PromptCredentials reads backend credentials interactively, hiding the
// password when stdin is a terminal.
func PromptCredentials(ctx context.Context) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Fprint(os.Stderr, "Email: ")
	email, err := reader.ReadString('\n')
	if err != nil {
		return "", "", fmt.Errorf("read email: %w", err)
	}
	email = strings.TrimSpace(email)

	fmt.Fprint(os.Stderr, "Password: ")
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", "", fmt.Errorf("read password: %w", err)
		}
		return email, string(raw), nil
	}

	password, err := reader.ReadString('\n')
	if err != nil {
		return "", "", fmt.Errorf("read password: %w", err)
	}
	return email, strings.TrimSpace(password), nil
}

// Close gracefully shuts down the application and persists the current
// backend tokens so the next run can skip the login prompt.
//
// Any errors during shutdown are logged but do not prevent other
// shutdown steps.
func (a *Application) Close(ctx context.Context) error {
	a.Logger.Debug().Msg("shutting down")

	if a.Tokens != nil {
		access, refresh := a.Sessions.Credentials()
		if access != "" || refresh != "" {
			err := a.Tokens.Save(tokencache.Tokens{Access: access, Refresh: refresh})
			if err != nil {
				a.Logger.Warn().Err(err).Msg("could not persist backend tokens")
			}
		}
	}

	if a.HTTPClient != nil {
		a.HTTPClient.CloseIdleConnections()
	}

	a.Logger.Debug().Dur("uptime", time.Since(a.startTime)).Msg("shutdown complete")
	return nil
}

// Uptime returns how long the application has been running.
func (a *Application) Uptime() time.Duration {
	return time.Since(a.startTime)
}
