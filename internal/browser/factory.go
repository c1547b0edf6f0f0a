package browser

import (
	"context"
	"fmt"

	"github.com/celltrack/crawler/internal/proxy"
	"github.com/celltrack/crawler/internal/retry"
)

// Backend names a session implementation.
type Backend string

const (
	// BackendSelenium drives browsers on a remote Selenium hub.
	BackendSelenium Backend = "selenium"
	// BackendChromedp launches headless Chrome locally.
	BackendChromedp Backend = "chromedp"
)

// Factory creates sessions for workers. Each call yields a fresh,
// exclusively owned session.
type Factory interface {
	NewSession(ctx context.Context) (Session, error)
}

// FactoryOptions selects and configures the backend.
type FactoryOptions struct {
	Backend    Backend
	HubURL     string
	UserAgent  string
	Proxies    []string
	Headless   bool
	ChromePath string
	Retry      retry.Config
}

type factory struct {
	opts    FactoryOptions
	proxies *proxy.Pool
}

// NewFactory validates the backend choice and returns a session factory.
func NewFactory(opts FactoryOptions) (Factory, error) {
	switch opts.Backend {
	case BackendSelenium:
		if opts.HubURL == "" {
			return nil, fmt.Errorf("browser: selenium backend requires a hub URL")
		}
	case BackendChromedp:
	default:
		return nil, fmt.Errorf("browser: unknown backend %q", opts.Backend)
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.DefaultConfig()
	}
	return &factory{
		opts:    opts,
		proxies: proxy.NewPool(opts.Proxies),
	}, nil
}

// NewSession opens a session, retrying transient hub/launch failures
// with backoff. Each attempt draws the next proxy from the rotation;
// proxies whose sessions fail to open are benched.
func (f *factory) NewSession(ctx context.Context) (Session, error) {
	var sess Session
	err := retry.Do(ctx, f.opts.Retry, func() error {
		egress := f.proxies.Next()

		var err error
		switch f.opts.Backend {
		case BackendSelenium:
			sess, err = NewSelenium(SeleniumOptions{
				HubURL:    f.opts.HubURL,
				UserAgent: f.opts.UserAgent,
				Proxy:     egress,
				Headless:  f.opts.Headless,
			})
		case BackendChromedp:
			sess, err = NewChromedp(ctx, ChromedpOptions{
				Headless:   f.opts.Headless,
				UserAgent:  f.opts.UserAgent,
				Proxy:      egress,
				ChromePath: f.opts.ChromePath,
			})
		}
		if err != nil {
			f.proxies.MarkFailed(egress)
			return err
		}
		f.proxies.MarkHealthy(egress)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}
