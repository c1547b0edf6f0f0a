package scraper

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/celltrack/crawler/internal/browser"
	"github.com/celltrack/crawler/internal/catalog"
	"github.com/celltrack/crawler/internal/models"
	"github.com/celltrack/crawler/internal/ratelimit"
)

// Manager sequences a full run: brand listing, identifier discovery,
// detail extraction, and reconciliation with the catalog backend. It
// owns no browser sessions itself; workers acquire and release their
// own.
type Manager struct {
	sessions *catalog.SessionManager
	browsers browser.Factory
	rules    *Rules
	limiter  ratelimit.Limiter
	logger   zerolog.Logger

	siteURL         string
	topURL          string
	workers         int
	interBrandDelay time.Duration

	// OnBrandStart and OnItem feed CLI progress reporting; both are
	// optional and must be set before Run.
	OnBrandStart func(brand string, items int)
	OnItem       func()
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	Sessions        *catalog.SessionManager
	Browsers        browser.Factory
	Rules           *Rules
	Limiter         ratelimit.Limiter
	Logger          zerolog.Logger
	SiteURL         string
	TopURL          string
	Workers         int
	InterBrandDelay time.Duration
}

// NewManager assembles the coordinator.
func NewManager(opts ManagerOptions) *Manager {
	if opts.Rules == nil {
		opts.Rules = DefaultRules()
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Manager{
		sessions:        opts.Sessions,
		browsers:        opts.Browsers,
		rules:           opts.Rules,
		limiter:         opts.Limiter,
		logger:          opts.Logger.With().Str("component", "manager").Logger(),
		siteURL:         opts.SiteURL,
		topURL:          opts.TopURL,
		workers:         opts.Workers,
		interBrandDelay: opts.InterBrandDelay,
	}
}

// Brands returns the brand list to crawl: the backend's list when it
// has one (minus skip values), the built-in default set otherwise.
func (m *Manager) Brands(ctx context.Context) ([]string, error) {
	brands, err := m.sessions.Brands(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]string, 0, len(brands))
	for _, brand := range brands {
		brand = strings.ToLower(strings.TrimSpace(brand))
		if m.skipBrand(brand) {
			continue
		}
		filtered = append(filtered, brand)
	}
	if len(filtered) == 0 {
		m.logger.Warn().Msg("backend returned no usable brands, using defaults")
		return append([]string(nil), m.rules.KnownBrands...), nil
	}
	return filtered, nil
}

func (m *Manager) skipBrand(brand string) bool {
	for _, skip := range m.rules.BrandSkipValues {
		if brand == skip {
			return true
		}
	}
	return false
}

// Discover partitions brands across the worker pool and merges each
// worker's brand -> identifiers mapping. Identifiers the backend
// already tracks are dropped before the result is returned.
func (m *Manager) Discover(ctx context.Context, brands []string) (models.DiscoverySet, error) {
	known, err := m.sessions.ExistingIdentifiers(ctx)
	if err != nil {
		return nil, err
	}
	knownSet := make(map[string]struct{}, len(known))
	for _, id := range known {
		knownSet[id] = struct{}{}
	}

	agg := NewMapAggregator[[]string]()
	err = RunChunks(ctx, m.logger, brands, m.workers,
		func(ctx context.Context, chunk []string) (map[string][]string, error) {
			sess, err := m.browsers.NewSession(ctx)
			if err != nil {
				return nil, err
			}
			defer sess.Close()
			pipeline := NewDiscoveryPipeline(sess, m.rules, m.limiter, m.siteURL, m.logger)
			return pipeline.Run(ctx, chunk)
		},
		agg.Merge,
	)
	if err != nil {
		return nil, err
	}

	discovered := models.DiscoverySet(agg.Result())
	for brand, ids := range discovered {
		fresh := ids[:0]
		for _, id := range ids {
			if _, ok := knownSet[id]; !ok {
				fresh = append(fresh, id)
			}
		}
		discovered[brand] = fresh
	}

	m.logger.Info().Int("identifiers", discovered.Total()).Msg("discovery complete")
	return discovered, nil
}

// ExtractDetails partitions one brand's identifiers across the worker
// pool and merges the extracted records.
func (m *Manager) ExtractDetails(ctx context.Context, identifiers []string) ([]models.ProductRecord, error) {
	agg := NewListAggregator[models.ProductRecord]()
	err := RunChunks(ctx, m.logger, identifiers, m.workers,
		func(ctx context.Context, chunk []string) ([]models.ProductRecord, error) {
			sess, err := m.browsers.NewSession(ctx)
			if err != nil {
				return nil, err
			}
			defer sess.Close()
			pipeline := NewDetailPipeline(sess, m.rules, m.limiter, m.siteURL, m.logger)
			if m.OnItem != nil {
				pipeline.OnItem(m.OnItem)
			}
			return pipeline.Run(ctx, chunk)
		},
		agg.Merge,
	)
	if err != nil {
		return nil, err
	}
	return agg.Result(), nil
}

// Reconcile synchronizes one brand's record batch with the backend:
// upsert everything, then create exactly the subset the backend did
// not recognize.
func (m *Manager) Reconcile(ctx context.Context, brand string, records []models.ProductRecord) error {
	if len(records) == 0 {
		return nil
	}

	toCreate, err := m.sessions.Upsert(ctx, records)
	if err != nil {
		return err
	}
	if len(toCreate) == 0 {
		m.logger.Info().Str("brand", brand).Int("records", len(records)).Msg("reconciled, nothing to create")
		return nil
	}

	wanted := make(map[string]struct{}, len(toCreate))
	for _, id := range toCreate {
		wanted[id] = struct{}{}
	}
	pending := make([]models.ProductRecord, 0, len(toCreate))
	for _, record := range records {
		if _, ok := wanted[record.Identifier]; ok {
			pending = append(pending, record)
		}
	}

	if err := m.sessions.Create(ctx, pending); err != nil {
		return err
	}
	m.logger.Info().
		Str("brand", brand).
		Int("records", len(records)).
		Int("created", len(pending)).
		Msg("reconciled")
	return nil
}

// Run executes the whole flow. An empty brands slice means crawl
// whatever the backend tracks.
func (m *Manager) Run(ctx context.Context, brands []string) error {
	if len(brands) == 0 {
		var err error
		brands, err = m.Brands(ctx)
		if err != nil {
			return err
		}
	}
	m.logger.Info().Strs("brands", brands).Msg("starting run")

	discovered, err := m.Discover(ctx, brands)
	if err != nil {
		return err
	}

	for brand, identifiers := range discovered {
		if err := ctx.Err(); err != nil {
			return err
		}
		if m.OnBrandStart != nil {
			m.OnBrandStart(brand, len(identifiers))
		}
		if len(identifiers) == 0 {
			continue
		}

		records, err := m.ExtractDetails(ctx, identifiers)
		if err != nil {
			return err
		}
		m.logger.Info().
			Str("brand", brand).
			Int("scraped", len(records)).
			Int("candidates", len(identifiers)).
			Msg("brand extraction complete")

		if err := m.Reconcile(ctx, brand, records); err != nil {
			return err
		}
		pause(ctx, m.interBrandDelay)
	}
	return nil
}

// TopRankings collects the bestseller identifier -> rank map on a
// single dedicated session.
func (m *Manager) TopRankings(ctx context.Context) (map[string]int, error) {
	sess, err := m.browsers.NewSession(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()
	return NewTopPipeline(sess, m.limiter, m.topURL, m.logger).Run(ctx)
}
