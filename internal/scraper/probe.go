package scraper

import (
	"context"
	"errors"
	"time"

	"github.com/celltrack/crawler/internal/browser"
)

// probeStatus is the tagged outcome of looking for one element. Stage
// sequencing dispatches on these instead of nesting error handling.
type probeStatus int

const (
	probeFound probeStatus = iota
	probeAbsent
	probeTimeout
	probeFailed
)

// transient reports whether the element simply was not there (absent
// or wait expired), which non-fatal stages treat identically.
func (s probeStatus) transient() bool {
	return s == probeAbsent || s == probeTimeout
}

// probe waits up to timeout for a selector and classifies the result.
func probe(ctx context.Context, sess browser.Session, selector string, timeout time.Duration) (browser.Element, probeStatus) {
	el, err := sess.Find(ctx, selector, timeout)
	switch {
	case err == nil:
		return el, probeFound
	case errors.Is(err, browser.ErrTimeout):
		return nil, probeTimeout
	case errors.Is(err, browser.ErrNotFound):
		return nil, probeAbsent
	default:
		return nil, probeFailed
	}
}

// pause sleeps for d unless the context ends first. Deliberate
// inter-step delays keep the crawl under the site's rate-limit radar.
func pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

// Site selectors, grouped by pipeline stage. These are configuration
// for one storefront layout, not part of any contract; they break when
// the site changes and the stage policies absorb that.
const (
	selInterstitialContinue = ".a-button-text"
	selAuthInterstitial     = ".auth-workflow"

	selBreadcrumbs    = "#wayfinding-breadcrumbs_feature_div"
	selTitle          = "#productTitle"
	selGalleryPrimary = ".regularAltImageViewLayout"
	selGalleryAlt     = "#altImages"
	selPriceContainer = "#corePriceDisplay_desktop_feature_div"
	selPriceWhole     = ".a-price-whole"
	selPriceFraction  = ".a-price-fraction"
	selSavingsBadge   = ".savingsPercentage"
	selBasisPrice     = ".basisPrice"
	selTwister        = "#twister-plus-inline-twister"
	selSwatchLabel    = ".swatch-title-text-container"
	selOverview       = "#productOverview_feature_div"
	selDetailSections = "#productDetails_db_sections"
	selDescription    = "#productDescription"

	selSearchBox       = "#twotabsearchtextbox"
	selSearchBoxNav    = "#nav-bb-search"
	selBrandFacets     = "#brandsRefinements"
	selFacetItem       = ".a-list-item"
	selDepartments     = "#departments"
	selResultItem      = ".s-asin"
	selResultTitle     = "h2"
	selColorSwatch     = ".s-color-swatch-pad"
	selNextPage        = ".s-pagination-next"
	clsNextPageOff     = "s-pagination-disabled"
	selEmptyResults    = "#search .s-no-outline h3 span"
	selEmptyResultsAlt = ".s-no-results"

	selTopGridItem  = "#gridItemRoot"
	selTopRankBadge = ".zg-bdg-text"
	selTopNextPage  = ".a-last"
	clsTopNextOff   = "a-disabled"
	selThrottle     = "pre"
)

// Wait windows per probe class.
const (
	waitShort       = 2 * time.Second
	waitBreadcrumbs = 8 * time.Second
	waitLong        = 10 * time.Second
)

// Pacing delays between driver interactions. Variables so tests can
// shrink them; production code never writes these.
var (
	interStepDelay = 2 * time.Second
	postClickDelay = 4 * time.Second
	scrollSettle   = 2 * time.Second
	interPageDelay = 4 * time.Second
	interItemDelay = 2 * time.Second
)
