package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

// chromedpSession drives a locally launched headless Chrome. It exists
// for development runs where no Selenium hub is available; the
// pipelines cannot tell the two backends apart.
type chromedpSession struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	closed      bool
}

// ChromedpOptions configures a local Chrome session.
type ChromedpOptions struct {
	Headless  bool
	UserAgent string
	Proxy     string
	// ChromePath overrides binary discovery when set.
	ChromePath string
}

// opTimeout bounds individual DOM operations that have no explicit
// wait window of their own.
const opTimeout = 10 * time.Second

// NewChromedp launches a dedicated Chrome process for one session.
func NewChromedp(ctx context.Context, opts ChromedpOptions) (Session, error) {
	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("incognito", true),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
		chromedp.Flag("log-level", "3"),
		chromedp.WindowSize(1920, 1080),
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.Proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.Proxy))
	}
	path := opts.ChromePath
	if path == "" {
		path = FindChrome()
	}
	if path != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(path))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx)

	// Force the browser to actually start so a broken Chrome install
	// fails here instead of on the first navigation.
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("chromedp: start browser: %w", err)
	}

	return &chromedpSession{
		ctx:         browserCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
	}, nil
}

func (s *chromedpSession) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tctx, tcancel := context.WithTimeout(s.ctx, timeout)
	defer tcancel()
	return classifyChromedp(chromedp.Run(tctx, actions...))
}

func (s *chromedpSession) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, 30*time.Second, chromedp.Navigate(url))
}

func (s *chromedpSession) Refresh(ctx context.Context) error {
	return s.run(ctx, 30*time.Second, chromedp.Reload())
}

func (s *chromedpSession) CurrentURL() (string, error) {
	var url string
	err := s.run(context.Background(), opTimeout, chromedp.Location(&url))
	return url, err
}

func (s *chromedpSession) Find(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	if err := s.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		if errors.Is(err, ErrTimeout) {
			return nil, fmt.Errorf("find %q: %w", selector, ErrTimeout)
		}
		return nil, err
	}

	var nodes []*cdp.Node
	err := s.run(ctx, opTimeout, chromedp.Nodes(selector, &nodes, chromedp.ByQuery))
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("find %q: %w", selector, ErrNotFound)
	}
	return &chromedpElement{sess: s, node: nodes[0]}, nil
}

func (s *chromedpSession) FindAll(ctx context.Context, selector string) ([]Element, error) {
	var nodes []*cdp.Node
	err := s.run(ctx, opTimeout, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
	if err != nil {
		return nil, err
	}
	out := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &chromedpElement{sess: s, node: n})
	}
	return out, nil
}

func (s *chromedpSession) ExecuteScript(ctx context.Context, script string) (any, error) {
	// res is an interface, so a return-less body (undefined) comes back
	// as nil instead of ErrJSUndefined.
	var res any
	err := s.run(ctx, opTimeout, chromedp.Evaluate(wrapScript(script), &res))
	if err != nil {
		return nil, err
	}
	return res, nil
}

// wrapScript turns a WebDriver-style script body (statements, bare
// return) into an expression. Runtime.evaluate gets the string as-is,
// where a top-level return is a syntax error; Selenium wraps the body
// itself, so callers write function bodies for both backends.
func wrapScript(script string) string {
	return "(function(){" + script + "})()"
}

// Close tears down the browser context and the Chrome process. Safe to
// call more than once and after the browser has already died.
func (s *chromedpSession) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
	s.allocCancel()
}

type chromedpElement struct {
	sess *chromedpSession
	node *cdp.Node
}

func (e *chromedpElement) ids() []cdp.NodeID {
	return []cdp.NodeID{e.node.NodeID}
}

func (e *chromedpElement) Text() (string, error) {
	var text string
	err := e.sess.run(context.Background(), opTimeout,
		chromedp.Text(e.ids(), &text, chromedp.ByNodeID))
	return text, err
}

func (e *chromedpElement) Attribute(name string) (string, error) {
	var value string
	var ok bool
	err := e.sess.run(context.Background(), opTimeout,
		chromedp.AttributeValue(e.ids(), name, &value, &ok, chromedp.ByNodeID))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return value, nil
}

func (e *chromedpElement) Click() error {
	return e.sess.run(context.Background(), opTimeout,
		chromedp.Click(e.ids(), chromedp.ByNodeID))
}

func (e *chromedpElement) SendKeys(keys string) error {
	return e.sess.run(context.Background(), opTimeout,
		chromedp.SendKeys(e.ids(), keys, chromedp.ByNodeID))
}

func (e *chromedpElement) Find(selector string) (Element, error) {
	els, err := e.FindAll(selector)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("find %q: %w", selector, ErrNotFound)
	}
	return els[0], nil
}

func (e *chromedpElement) FindAll(selector string) ([]Element, error) {
	var nodes []*cdp.Node
	err := e.sess.run(context.Background(), opTimeout,
		chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.FromNode(e.node), chromedp.AtLeast(0)))
	if err != nil {
		return nil, err
	}
	out := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &chromedpElement{sess: e.sess, node: n})
	}
	return out, nil
}

func (e *chromedpElement) HTML() (string, error) {
	var html string
	err := e.sess.run(context.Background(), opTimeout,
		chromedp.OuterHTML(e.ids(), &html, chromedp.ByNodeID))
	return html, err
}

func classifyChromedp(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %s", ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %s", ErrSessionInvalid, err)
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "could not find node"), strings.Contains(msg, "no nodes"):
		return fmt.Errorf("%w: %s", ErrNotFound, err)
	case strings.Contains(msg, "node not visible"), strings.Contains(msg, "not clickable"):
		return fmt.Errorf("%w: %s", ErrClickIntercepted, err)
	case strings.Contains(msg, "target closed"), strings.Contains(msg, "connection closed"):
		return fmt.Errorf("%w: %s", ErrSessionInvalid, err)
	}
	log.Debug().Err(err).Msg("unclassified chromedp error")
	return err
}
