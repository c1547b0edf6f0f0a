package scraper

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/celltrack/crawler/internal/browser"
	"github.com/celltrack/crawler/internal/models"
	"github.com/celltrack/crawler/internal/ratelimit"
)

// DiscoveryPipeline walks search results for each brand in its chunk
// and collects candidate identifiers. It only yields identifiers, not
// product detail; the detail pipeline earns the record.
type DiscoveryPipeline struct {
	sess    browser.Session
	rules   *Rules
	limiter ratelimit.Limiter
	siteURL string
	logger  zerolog.Logger
}

// NewDiscoveryPipeline binds a pipeline to an exclusively owned
// session.
func NewDiscoveryPipeline(sess browser.Session, rules *Rules, limiter ratelimit.Limiter, siteURL string, logger zerolog.Logger) *DiscoveryPipeline {
	return &DiscoveryPipeline{
		sess:    sess,
		rules:   rules,
		limiter: limiter,
		siteURL: siteURL,
		logger:  logger.With().Str("pipeline", "discovery").Logger(),
	}
}

// Run discovers identifiers for every brand in the chunk, in order.
// Identifiers per brand are deduplicated (set semantics; the sorted
// order is incidental).
func (p *DiscoveryPipeline) Run(ctx context.Context, brands []string) (models.DiscoverySet, error) {
	found := make(models.DiscoverySet, len(brands))
	for _, brand := range brands {
		if err := ctx.Err(); err != nil {
			return found, err
		}
		ids, err := p.discoverBrand(ctx, brand)
		if err != nil {
			if errors.Is(err, browser.ErrSessionInvalid) || ctx.Err() != nil {
				return found, err
			}
			p.logger.Warn().Err(err).Str("brand", brand).Msg("brand discovery failed, continuing")
			continue
		}
		found[brand] = ids
		pause(ctx, interItemDelay)
	}
	return found, nil
}

// discoverBrand runs search -> brand facet -> department -> per-leaf
// category pagination for one brand.
func (p *DiscoveryPipeline) discoverBrand(ctx context.Context, brand string) ([]string, error) {
	logger := p.logger.With().Str("brand", brand).Logger()

	if err := p.limiter.Wait(ctx, p.siteURL); err != nil {
		return nil, err
	}
	if err := p.sess.Navigate(ctx, p.siteURL); err != nil {
		return nil, err
	}
	p.dismissInterstitials(ctx)

	if err := p.searchBrand(ctx, brand); err != nil {
		return nil, err
	}
	p.filterBrandFacet(ctx, brand)

	// Narrow to the phones department first; the leaf categories only
	// exist inside it.
	p.filterCategory(ctx, p.rules.PhonesDepartment)

	resultsURL, err := p.sess.CurrentURL()
	if err != nil {
		resultsURL = ""
	}

	set := make(map[string]struct{})
	for _, category := range p.rules.AllowedCategories {
		if err := ctx.Err(); err != nil {
			return setToSlice(set), err
		}
		if !p.filterCategory(ctx, category) {
			continue
		}
		if err := p.collectResults(ctx, set); err != nil {
			return setToSlice(set), err
		}
		if resultsURL != "" {
			if err := p.sess.Navigate(ctx, resultsURL); err != nil {
				logger.Debug().Err(err).Msg("could not return to department page")
				break
			}
		}
	}

	ids := setToSlice(set)
	logger.Info().Int("identifiers", len(ids)).Msg("brand discovery complete")
	return ids, nil
}

// dismissInterstitials clears a consent overlay and recovers from an
// auth interstitial by going back to the site root. Best effort.
func (p *DiscoveryPipeline) dismissInterstitials(ctx context.Context) {
	if btn, st := probe(ctx, p.sess, selInterstitialContinue, waitShort); st == probeFound {
		if err := btn.Click(); err != nil {
			p.logger.Debug().Err(err).Msg("continue overlay did not accept the click")
		}
	}
	if _, st := probe(ctx, p.sess, selAuthInterstitial, waitShort); st == probeFound {
		if err := p.sess.Navigate(ctx, p.siteURL); err != nil {
			p.logger.Debug().Err(err).Msg("reload after auth interstitial failed")
		}
	}
}

// searchBrand types the brand into the search box, falling back to the
// reduced navigation-bar box some layouts serve.
func (p *DiscoveryPipeline) searchBrand(ctx context.Context, brand string) error {
	box, st := probe(ctx, p.sess, selSearchBox, waitShort)
	if st != probeFound {
		box, st = probe(ctx, p.sess, selSearchBoxNav, waitShort)
	}
	if st != probeFound {
		return errors.New("scraper: no search box on page")
	}
	return box.SendKeys(brand + "\n")
}

// filterBrandFacet ticks the brand's checkboxes in the refinements
// rail. Multi-word brands need one pass per word; a missing facet rail
// is non-fatal (search results still narrow by query).
func (p *DiscoveryPipeline) filterBrandFacet(ctx context.Context, brand string) {
	words := strings.Fields(strings.ToLower(brand))

	for range words {
		rail, st := probe(ctx, p.sess, selBrandFacets, waitShort)
		if st != probeFound {
			return
		}
		entries, err := rail.FindAll(selFacetItem)
		if err != nil {
			return
		}

		clicked := false
		for i := len(entries) - 1; i >= 0 && !clicked; i-- {
			text, err := entries[i].Text()
			if err != nil {
				continue
			}
			text = strings.ToLower(strings.TrimSpace(text))
			for wi, word := range words {
				if text != word {
					continue
				}
				if checkbox, err := entries[i].Find("i"); err == nil {
					if err := checkbox.Click(); err == nil {
						words = append(words[:wi], words[wi+1:]...)
						clicked = true
						pause(ctx, interStepDelay)
					}
				}
				break
			}
		}
		if !clicked {
			return
		}
	}
}

// filterCategory clicks the named entry in the departments rail.
// Returns whether the category existed and was applied.
func (p *DiscoveryPipeline) filterCategory(ctx context.Context, category string) bool {
	p.dismissInterstitials(ctx)

	rail, st := probe(ctx, p.sess, selDepartments, waitShort)
	if st != probeFound {
		return false
	}
	links, err := rail.FindAll("a")
	if err != nil {
		return false
	}
	for _, link := range links {
		text, err := link.Text()
		if err != nil {
			continue
		}
		if strings.ToLower(strings.TrimSpace(text)) != category {
			continue
		}
		if err := link.Click(); err != nil {
			p.logger.Debug().Err(err).Str("category", category).Msg("category click failed")
			return false
		}
		pause(ctx, interStepDelay)
		return true
	}
	return false
}

// collectResults pages through the current result list, harvesting
// identifiers into set. Color-swatch variants replace their parent
// item. The loop ends on a missing or disabled next-page control.
func (p *DiscoveryPipeline) collectResults(ctx context.Context, set map[string]struct{}) error {
	p.dismissInterstitials(ctx)

	// An explicit empty-results banner means the category holds nothing
	// for this brand.
	if _, st := probe(ctx, p.sess, selEmptyResults, waitShort); st == probeFound {
		return nil
	}
	if _, st := probe(ctx, p.sess, selEmptyResultsAlt, waitShort); st == probeFound {
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		pause(ctx, interPageDelay)

		items, err := p.sess.FindAll(ctx, selResultItem)
		if err != nil {
			if errors.Is(err, browser.ErrSessionInvalid) {
				return err
			}
			items = nil
		}
		for _, item := range items {
			p.harvestItem(item, set)
		}

		next, st := probe(ctx, p.sess, selNextPage, waitShort)
		if st != probeFound {
			return nil
		}
		class, err := next.Attribute("class")
		if err == nil && strings.Contains(class, clsNextPageOff) {
			return nil
		}
		if err := next.Click(); err != nil {
			if errors.Is(err, browser.ErrClickIntercepted) {
				// Something floated over the control; a refresh usually
				// clears it and the loop retries the same page.
				if err := p.sess.Refresh(ctx); err != nil {
					return nil
				}
				continue
			}
			return nil
		}
	}
}

// harvestItem records one result tile: its identifier, or the
// identifiers of its color variants when swatches are present.
// Accessory titles are dropped by keyword.
func (p *DiscoveryPipeline) harvestItem(item browser.Element, set map[string]struct{}) {
	id, err := item.Attribute("data-asin")
	if err != nil || id == "" {
		return
	}

	if title, err := item.Find(selResultTitle); err == nil {
		if text, err := title.Text(); err == nil && p.rules.excluded(strings.ToLower(text)) {
			return
		}
	}

	swatches, err := item.FindAll(selColorSwatch)
	if err == nil && len(swatches) > 0 {
		for _, swatch := range swatches {
			link, err := swatch.Find("div")
			if err != nil {
				continue
			}
			swatchURL, err := link.Attribute("data-csa-c-swatch-url")
			if err != nil {
				continue
			}
			if swatchID := identifierFromPath(swatchURL); swatchID != "" {
				set[swatchID] = struct{}{}
			}
		}
		return
	}

	set[id] = struct{}{}
}

// identifierFromPath pulls the identifier segment out of a swatch URL
// of the form /<brand>/dp/<id>/ref=...
func identifierFromPath(path string) string {
	parts := strings.Split(path, "/")
	if len(parts) < 4 {
		return ""
	}
	return parts[3]
}

func setToSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
