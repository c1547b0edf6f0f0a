package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"

	"github.com/celltrack/crawler/internal/browser"
)

// fakeSession serves fixture pages to the pipelines. Selectors run
// against parsed HTML; page scripts run in a goja VM that exposes a
// minimal document/window surface, mirroring how the real drivers
// evaluate scripts as a function body.
type fakeSession struct {
	pages   map[string]string
	current string
	doc     *goquery.Document

	// onClick decides what clicking an element does (usually loading
	// another fixture). Nil means clicks are accepted and ignored.
	onClick func(s *fakeSession, el *fakeElement) error
	// onKeys handles typing into an element.
	onKeys func(s *fakeSession, el *fakeElement, keys string) error

	// heights are successive scrollHeight readings for lazy-load pages.
	heights     []int64
	heightIndex int

	navigations []string
	closed      bool
}

func newFakeSession(pages map[string]string) *fakeSession {
	return &fakeSession{pages: pages}
}

func (s *fakeSession) load(url string) error {
	html, ok := s.pages[url]
	if !ok {
		return fmt.Errorf("fake session: no fixture for %s", url)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return err
	}
	s.current = url
	s.doc = doc
	return nil
}

func (s *fakeSession) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.navigations = append(s.navigations, url)
	return s.load(url)
}

func (s *fakeSession) Refresh(ctx context.Context) error {
	return s.load(s.current)
}

func (s *fakeSession) CurrentURL() (string, error) {
	return s.current, nil
}

func (s *fakeSession) Find(ctx context.Context, selector string, timeout time.Duration) (browser.Element, error) {
	if s.doc == nil {
		return nil, browser.ErrNotFound
	}
	sel := s.doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", browser.ErrNotFound, selector)
	}
	return &fakeElement{s: s, sel: sel}, nil
}

func (s *fakeSession) FindAll(ctx context.Context, selector string) ([]browser.Element, error) {
	if s.doc == nil {
		return nil, nil
	}
	var out []browser.Element
	s.doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		out = append(out, &fakeElement{s: s, sel: sel})
	})
	return out, nil
}

func (s *fakeSession) ExecuteScript(ctx context.Context, script string) (any, error) {
	vm := goja.New()

	height := int64(0)
	if len(s.heights) > 0 {
		i := s.heightIndex
		if i >= len(s.heights) {
			i = len(s.heights) - 1
		}
		height = s.heights[i]
	}
	if err := vm.Set("document", map[string]any{
		"body": map[string]any{"scrollHeight": height},
	}); err != nil {
		return nil, err
	}
	if err := vm.Set("window", map[string]any{
		"scrollTo": func(x, y int64) { s.heightIndex++ },
	}); err != nil {
		return nil, err
	}

	// The drivers evaluate scripts as a function body, so bare return
	// statements are legal.
	v, err := vm.RunString("(function(){" + script + "})()")
	if err != nil {
		return nil, err
	}
	return v.Export(), nil
}

func (s *fakeSession) Close() { s.closed = true }

// fakeElement wraps one goquery selection on the current fake page.
type fakeElement struct {
	s   *fakeSession
	sel *goquery.Selection
}

func (e *fakeElement) Text() (string, error) {
	return e.sel.Text(), nil
}

func (e *fakeElement) Attribute(name string) (string, error) {
	val, _ := e.sel.Attr(name)
	return val, nil
}

func (e *fakeElement) Click() error {
	if e.s.onClick != nil {
		return e.s.onClick(e.s, e)
	}
	return nil
}

func (e *fakeElement) SendKeys(keys string) error {
	if e.s.onKeys != nil {
		return e.s.onKeys(e.s, e, keys)
	}
	return nil
}

func (e *fakeElement) Find(selector string) (browser.Element, error) {
	sel := e.sel.Find(selector).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", browser.ErrNotFound, selector)
	}
	return &fakeElement{s: e.s, sel: sel}, nil
}

func (e *fakeElement) FindAll(selector string) ([]browser.Element, error) {
	var out []browser.Element
	e.sel.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		out = append(out, &fakeElement{s: e.s, sel: sel})
	})
	return out, nil
}

func (e *fakeElement) HTML() (string, error) {
	return goquery.OuterHtml(e.sel)
}
