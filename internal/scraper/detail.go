package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/celltrack/crawler/internal/browser"
	"github.com/celltrack/crawler/internal/models"
	"github.com/celltrack/crawler/internal/parser"
	"github.com/celltrack/crawler/internal/ratelimit"
)

// stageOutcome is a stage's verdict on the item being extracted.
type stageOutcome int

const (
	// stageNext advances to the next stage, with or without data.
	stageNext stageOutcome = iota
	// stageAbort drops the item; no record is emitted.
	stageAbort
)

// DetailPipeline drives one browser session through the full
// extraction sequence for each identifier in its chunk. It is owned by
// exactly one worker and holds no state between items.
type DetailPipeline struct {
	sess    browser.Session
	rules   *Rules
	limiter ratelimit.Limiter
	siteURL string
	logger  zerolog.Logger

	// onItem, when set, is called once per processed identifier
	// (emitted or aborted) for progress reporting.
	onItem func()
}

// NewDetailPipeline binds a pipeline to an exclusively owned session.
func NewDetailPipeline(sess browser.Session, rules *Rules, limiter ratelimit.Limiter, siteURL string, logger zerolog.Logger) *DetailPipeline {
	return &DetailPipeline{
		sess:    sess,
		rules:   rules,
		limiter: limiter,
		siteURL: siteURL,
		logger:  logger.With().Str("pipeline", "detail").Logger(),
	}
}

// OnItem registers a per-item progress callback.
func (p *DetailPipeline) OnItem(fn func()) { p.onItem = fn }

// Run extracts a record for every identifier in the chunk, in order.
// Items the pipeline aborts are simply absent from the result.
func (p *DetailPipeline) Run(ctx context.Context, identifiers []string) ([]models.ProductRecord, error) {
	records := make([]models.ProductRecord, 0, len(identifiers))
	for _, id := range identifiers {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		record, ok, err := p.extract(ctx, id)
		if p.onItem != nil {
			p.onItem()
		}
		if err != nil {
			return records, err
		}
		if ok {
			records = append(records, record)
		}
		pause(ctx, interItemDelay)
	}
	return records, nil
}

// stage is one row of the extraction state table.
type stage struct {
	name string
	run  func(ctx context.Context, rec *models.ProductRecord) stageOutcome
}

// extract runs the stage table for a single identifier. A stageAbort
// from any stage discards the partial record; otherwise the record is
// committed as-is, with whatever the non-fatal stages managed to fill.
func (p *DetailPipeline) extract(ctx context.Context, id string) (models.ProductRecord, bool, error) {
	url := fmt.Sprintf("%s/dp/%s", p.siteURL, id)
	record := models.ProductRecord{
		Identifier: id,
		URL:        url,
		Images:     []models.Image{},
	}
	logger := p.logger.With().Str("asin", id).Logger()

	if err := p.limiter.Wait(ctx, url); err != nil {
		return record, false, err
	}
	if err := p.sess.Navigate(ctx, url); err != nil {
		if errors.Is(err, browser.ErrSessionInvalid) || errors.Is(err, context.Canceled) {
			return record, false, err
		}
		logger.Warn().Err(err).Msg("navigation failed, skipping item")
		return record, false, nil
	}

	stages := []stage{
		{"interstitial_check", p.stageInterstitials},
		{"category_gate", p.stageCategoryGate},
		{"title", p.stageTitle},
		{"images", p.stageImages},
		{"price", p.stagePrice},
		{"discount", p.stageDiscount},
		{"variants", p.stageVariants},
		{"attributes", p.stageAttributes},
		{"ranking", p.stageRanking},
		{"description", p.stageDescription},
	}

	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			return record, false, err
		}
		if st.run(ctx, &record) == stageAbort {
			logger.Debug().Str("stage", st.name).Msg("item aborted")
			return record, false, nil
		}
	}

	logger.Debug().Float64("price", record.Price).Str("brand", record.Brand).Msg("record committed")
	return record, true, nil
}

// stageInterstitials dismisses a consent/continue overlay if one is
// up, and reloads the product page once when the site bounced us to an
// auth interstitial. Never fatal: no overlay is the common case.
func (p *DetailPipeline) stageInterstitials(ctx context.Context, rec *models.ProductRecord) stageOutcome {
	if btn, st := probe(ctx, p.sess, selInterstitialContinue, waitShort); st == probeFound {
		pause(ctx, interStepDelay)
		if err := btn.Click(); err != nil {
			p.logger.Debug().Err(err).Msg("continue overlay did not accept the click")
		}
		pause(ctx, postClickDelay)
	}

	if _, st := probe(ctx, p.sess, selAuthInterstitial, waitShort); st == probeFound {
		if err := p.sess.Navigate(ctx, rec.URL); err != nil {
			p.logger.Debug().Err(err).Msg("reload after auth interstitial failed")
		}
		pause(ctx, postClickDelay)
	}
	return stageNext
}

// stageCategoryGate aborts items whose breadcrumb names a category
// outside the allow-list. A missing breadcrumb is ambiguous and lets
// the item through; the later stages still have to earn the commit.
func (p *DetailPipeline) stageCategoryGate(ctx context.Context, _ *models.ProductRecord) stageOutcome {
	crumbs, st := probe(ctx, p.sess, selBreadcrumbs, waitBreadcrumbs)
	if st.transient() {
		return stageNext
	}
	if st == probeFailed {
		return stageNext
	}
	text, err := crumbs.Text()
	if err != nil {
		return stageNext
	}
	text = strings.ToLower(text)
	for _, category := range p.rules.AllowedCategories {
		if strings.Contains(text, category) {
			return stageNext
		}
	}
	return stageAbort
}

// stageTitle reads the canonical title. No title means the page never
// rendered a product; the item is aborted.
func (p *DetailPipeline) stageTitle(ctx context.Context, rec *models.ProductRecord) stageOutcome {
	el, st := probe(ctx, p.sess, selTitle, waitShort)
	if st != probeFound {
		return stageAbort
	}
	title, err := el.Text()
	if err != nil || strings.TrimSpace(title) == "" {
		return stageAbort
	}
	rec.Title = strings.TrimSpace(title)
	return stageNext
}

// stageImages collects gallery URLs, preferring the regular layout and
// falling back to the alternate container. Placeholder and decorative
// entries are filtered by filename pattern and every URL is rewritten
// to the configured resolution. No gallery at all is non-fatal.
func (p *DetailPipeline) stageImages(ctx context.Context, rec *models.ProductRecord) stageOutcome {
	container, st := probe(ctx, p.sess, selGalleryPrimary, waitShort)
	if st != probeFound {
		container, st = probe(ctx, p.sess, selGalleryAlt, waitShort)
	}
	if st != probeFound {
		return stageNext
	}

	imgs, err := container.FindAll("img")
	if err != nil {
		return stageNext
	}
	for _, img := range imgs {
		src, err := img.Attribute("src")
		if err != nil || src == "" {
			continue
		}
		if p.placeholderImage(src) {
			continue
		}
		rec.Images = append(rec.Images, models.Image{
			URL: parser.NormalizeImageURL(src, p.rules.ImageResolution),
		})
	}
	return stageNext
}

func (p *DetailPipeline) placeholderImage(src string) bool {
	for _, pattern := range p.rules.PlaceholderImagePatterns {
		if strings.Contains(src, pattern) {
			return true
		}
	}
	return false
}

// stagePrice combines the whole and fractional price parts. An absent
// price block leaves the price at 0; a price below the catalog floor
// aborts the item.
func (p *DetailPipeline) stagePrice(ctx context.Context, rec *models.ProductRecord) stageOutcome {
	container, st := probe(ctx, p.sess, selPriceContainer, waitShort)
	if st != probeFound {
		return stageNext
	}
	whole, err := container.Find(selPriceWhole)
	if err != nil {
		return stageNext
	}
	fraction, err := container.Find(selPriceFraction)
	if err != nil {
		return stageNext
	}
	wholeText, err1 := whole.Text()
	fractionText, err2 := fraction.Text()
	if err1 != nil || err2 != nil {
		return stageNext
	}
	price, err := parser.CombinePrice(wholeText, fractionText)
	if err != nil {
		return stageNext
	}
	if price < p.rules.MinimumPrice {
		return stageAbort
	}
	rec.Price = price
	return stageNext
}

// stageDiscount reads the percent-off badge and the struck-through
// list price when shown. Both are optional.
func (p *DetailPipeline) stageDiscount(ctx context.Context, rec *models.ProductRecord) stageOutcome {
	if badge, st := probe(ctx, p.sess, selSavingsBadge, waitShort); st == probeFound {
		if text, err := badge.Text(); err == nil && text != "" {
			if pct, err := parser.ParseSavingPercentage(text); err == nil {
				rec.SavingPercentage = pct
			}
		}
	}

	if container, st := probe(ctx, p.sess, selPriceContainer, waitShort); st == probeFound {
		if basis, err := container.Find(selBasisPrice); err == nil {
			if text, err := basis.Text(); err == nil {
				if price, err := parser.ParseListPrice(text); err == nil {
					rec.BasisPrice = price
				}
			}
		}
	}
	return stageNext
}

// stageVariants walks the variant selector widget. Each axis group
// carries its name in a JSON-ish button-group attribute; each non-self
// option contributes its identifier plus a display value: the image
// alt for color axes, the swatch label otherwise.
func (p *DetailPipeline) stageVariants(ctx context.Context, rec *models.ProductRecord) stageOutcome {
	widget, st := probe(ctx, p.sess, selTwister, waitShort)
	if st != probeFound {
		return stageNext
	}

	groups, err := widget.FindAll("ul")
	if err != nil {
		return stageNext
	}
	for _, group := range groups {
		attr, err := group.Attribute("data-a-button-group")
		if err != nil {
			continue
		}
		axis := axisName(attr)
		if axis == "" {
			continue
		}

		options, err := group.FindAll("li")
		if err != nil {
			continue
		}
		for _, option := range options {
			optionID, err := option.Attribute("data-asin")
			if err != nil || optionID == "" || optionID == rec.Identifier {
				continue
			}

			var value string
			if axis == "color_name" {
				if img, err := option.Find("img"); err == nil {
					value, _ = img.Attribute("alt")
				}
			} else {
				if label, err := option.Find(selSwatchLabel); err == nil {
					value, _ = label.Text()
				}
			}
			rec.Variants = append(rec.Variants, models.Variant{
				Axis:       axis,
				Identifier: optionID,
				Value:      strings.ToLower(strings.TrimSpace(value)),
			})
		}
	}
	return stageNext
}

// axisName pulls the group name out of a data-a-button-group value
// like {"name":"color_name"}: the second-to-last quoted token.
func axisName(attr string) string {
	parts := strings.Split(attr, `"`)
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-2]
}

// stageAttributes maps the overview feature table into the record and
// resolves the brand. A table brand outside the known set aborts; with
// no table (or no brand row) the brand is inferred from the title, and
// an unresolvable brand aborts the item.
func (p *DetailPipeline) stageAttributes(ctx context.Context, rec *models.ProductRecord) stageOutcome {
	title := strings.ToLower(rec.Title)

	container, st := probe(ctx, p.sess, selOverview, waitShort)
	if st == probeFound {
		// Expandable tables hide half the rows behind a toggle.
		if expander, err := container.Find("a"); err == nil {
			if err := expander.Click(); err != nil {
				p.logger.Debug().Err(err).Msg("overview expander click failed")
			}
		}

		html, err := container.HTML()
		if err == nil {
			features, err := parser.ParseFeatureTable(html)
			if err == nil {
				for key, field := range p.rules.FeatureKeys {
					value, ok := features[key]
					if !ok {
						continue
					}
					switch field {
					case "brand":
						if !p.rules.knownBrand(value) {
							return stageAbort
						}
						rec.Brand = strings.Fields(value)[0]
					case "model":
						rec.Model = value
					case "color":
						rec.Color = value
					}
				}
			}
		}
	}

	if rec.Brand == "" {
		rec.Brand = p.rules.brandFromTitle(title)
	}
	if rec.Brand == "" {
		return stageAbort
	}
	return stageNext
}

// stageRanking reads the bestseller rank for the configured
// sub-category and the customer-rating summary from the details
// table. Optional.
func (p *DetailPipeline) stageRanking(ctx context.Context, rec *models.ProductRecord) stageOutcome {
	container, st := probe(ctx, p.sess, selDetailSections, waitShort)
	if st != probeFound {
		return stageNext
	}
	html, err := container.HTML()
	if err != nil {
		return stageNext
	}
	sections, err := parser.ParseDetailSections(html, p.rules.RankLabel, p.rules.RankSubCategory, p.rules.RatingLabel)
	if err != nil {
		return stageNext
	}
	rec.Ranking = sections.Ranking
	rec.CustomerRating = sections.CustomerRating
	return stageNext
}

// stageDescription captures the product description as markdown.
// Optional.
func (p *DetailPipeline) stageDescription(ctx context.Context, rec *models.ProductRecord) stageOutcome {
	container, st := probe(ctx, p.sess, selDescription, waitShort)
	if st != probeFound {
		return stageNext
	}
	html, err := container.HTML()
	if err != nil {
		return stageNext
	}
	if markdown, err := parser.DescriptionMarkdown(html); err == nil {
		rec.Description = markdown
	}
	return stageNext
}
