package scraper

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/celltrack/crawler/internal/browser"
	"github.com/celltrack/crawler/internal/parser"
	"github.com/celltrack/crawler/internal/ratelimit"
)

// TopPipeline walks the bestseller grid and maps identifiers to their
// rank. The grid lazy-loads on scroll, so each page is scrolled to the
// bottom until its height stops growing before harvesting.
type TopPipeline struct {
	sess    browser.Session
	limiter ratelimit.Limiter
	topURL  string
	logger  zerolog.Logger
}

// NewTopPipeline binds a pipeline to an exclusively owned session.
func NewTopPipeline(sess browser.Session, limiter ratelimit.Limiter, topURL string, logger zerolog.Logger) *TopPipeline {
	return &TopPipeline{
		sess:    sess,
		limiter: limiter,
		topURL:  topURL,
		logger:  logger.With().Str("pipeline", "top").Logger(),
	}
}

// Run collects the identifier -> rank mapping. A throttle page (the
// site serves a bare <pre> body when it rate-limits) yields an empty
// map, not an error.
func (p *TopPipeline) Run(ctx context.Context) (map[string]int, error) {
	if err := p.limiter.Wait(ctx, p.topURL); err != nil {
		return nil, err
	}
	if err := p.sess.Navigate(ctx, p.topURL); err != nil {
		return nil, err
	}

	if btn, st := probe(ctx, p.sess, selInterstitialContinue, waitShort); st == probeFound {
		if err := btn.Click(); err != nil {
			p.logger.Debug().Err(err).Msg("continue overlay did not accept the click")
		}
	}

	if _, st := probe(ctx, p.sess, selThrottle, waitLong); st == probeFound {
		p.logger.Warn().Msg("bestseller page throttled, returning empty ranking")
		return map[string]int{}, nil
	}

	rankings := make(map[string]int)
	for {
		if err := ctx.Err(); err != nil {
			return rankings, err
		}
		if err := p.scrollToBottom(ctx); err != nil {
			return rankings, err
		}

		if _, st := probe(ctx, p.sess, selTopGridItem, waitLong); st != probeFound {
			return rankings, nil
		}
		items, err := p.sess.FindAll(ctx, selTopGridItem)
		if err != nil {
			return rankings, nil
		}
		for _, item := range items {
			p.harvestRank(item, rankings)
		}

		next, st := probe(ctx, p.sess, selTopNextPage, waitShort)
		if st != probeFound {
			return rankings, nil
		}
		class, err := next.Attribute("class")
		if err == nil && strings.Contains(class, clsTopNextOff) {
			return rankings, nil
		}
		if err := next.Click(); err != nil {
			return rankings, nil
		}
	}
}

// scrollToBottom drives the lazy loader until the document height
// stabilizes.
func (p *TopPipeline) scrollToBottom(ctx context.Context) error {
	height, err := p.pageHeight(ctx)
	if err != nil {
		return nil
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		script := "window.scrollTo(0, document.body.scrollHeight);"
		if _, err := p.sess.ExecuteScript(ctx, script); err != nil {
			return nil
		}
		pause(ctx, scrollSettle)

		newHeight, err := p.pageHeight(ctx)
		if err != nil || newHeight == height {
			return nil
		}
		height = newHeight
	}
}

func (p *TopPipeline) pageHeight(ctx context.Context) (int64, error) {
	v, err := p.sess.ExecuteScript(ctx, "return document.body.scrollHeight")
	if err != nil {
		return 0, err
	}
	switch h := v.(type) {
	case int64:
		return h, nil
	case float64:
		return int64(h), nil
	default:
		return 0, nil
	}
}

// harvestRank reads one grid tile: the rank badge and the identifier
// carried on the second span's inner div.
func (p *TopPipeline) harvestRank(item browser.Element, rankings map[string]int) {
	badge, err := item.Find(selTopRankBadge)
	if err != nil {
		return
	}
	text, err := badge.Text()
	if err != nil {
		return
	}
	rank, err := parser.ParseRankBadge(text)
	if err != nil {
		return
	}

	spans, err := item.FindAll("span")
	if err != nil || len(spans) < 2 {
		return
	}
	holder, err := spans[1].Find("div")
	if err != nil {
		return
	}
	id, err := holder.Attribute("id")
	if err != nil || id == "" {
		return
	}
	rankings[id] = rank
}
