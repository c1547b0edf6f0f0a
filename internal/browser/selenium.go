package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
)

// seleniumSession drives a browser on a remote Selenium hub, the same
// setup the retail site is scraped through in production.
type seleniumSession struct {
	wd     selenium.WebDriver
	closed bool
}

// SeleniumOptions configures a remote WebDriver session.
type SeleniumOptions struct {
	// HubURL is the remote hub endpoint, e.g. http://localhost:4444/wd/hub.
	HubURL string
	// UserAgent overrides the browser user agent when non-empty.
	UserAgent string
	// Proxy is an optional HTTP/SOCKS5 proxy URL.
	Proxy string
	// Headless runs Chrome without a display.
	Headless bool
}

// NewSelenium opens a fresh incognito Chrome session on the remote hub.
func NewSelenium(opts SeleniumOptions) (Session, error) {
	caps := selenium.Capabilities{"browserName": "chrome"}

	args := []string{
		"--incognito",
		"--disable-notifications",
		"--disable-extensions",
		"--start-fullscreen",
	}
	if opts.Headless {
		args = append(args, "--headless=new")
	}
	if opts.UserAgent != "" {
		args = append(args, fmt.Sprintf("--user-agent=%s", opts.UserAgent))
	}
	if opts.Proxy != "" {
		args = append(args, fmt.Sprintf("--proxy-server=%s", opts.Proxy))
	}

	caps.AddChrome(chrome.Capabilities{
		Args: args,
		Prefs: map[string]interface{}{
			// Images are fetched lazily by URL later; skip rendering them.
			"profile.managed_default_content_settings.images": 2,
		},
		ExcludeSwitches: []string{"enable-automation"},
	})

	wd, err := selenium.NewRemote(caps, opts.HubURL)
	if err != nil {
		return nil, fmt.Errorf("selenium: connect to hub %s: %w", opts.HubURL, err)
	}

	if err := wd.DeleteAllCookies(); err != nil {
		log.Debug().Err(err).Msg("could not clear cookies on new session")
	}

	return &seleniumSession{wd: wd}, nil
}

func (s *seleniumSession) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.wd.Get(url); err != nil {
		return classifySelenium(err)
	}
	return nil
}

func (s *seleniumSession) Refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.wd.Refresh(); err != nil {
		return classifySelenium(err)
	}
	return nil
}

func (s *seleniumSession) CurrentURL() (string, error) {
	url, err := s.wd.CurrentURL()
	if err != nil {
		return "", classifySelenium(err)
	}
	return url, nil
}

func (s *seleniumSession) Find(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	err := s.wd.WaitWithTimeout(func(wd selenium.WebDriver) (bool, error) {
		el, err := wd.FindElement(selenium.ByCSSSelector, selector)
		if err != nil {
			return false, nil
		}
		shown, err := el.IsDisplayed()
		if err != nil {
			return false, nil
		}
		return shown, nil
	}, timeout)
	if err != nil {
		if strings.Contains(err.Error(), "timeout") {
			return nil, fmt.Errorf("find %q: %w", selector, ErrTimeout)
		}
		return nil, classifySelenium(err)
	}

	el, err := s.wd.FindElement(selenium.ByCSSSelector, selector)
	if err != nil {
		return nil, classifySelenium(err)
	}
	return &seleniumElement{el: el}, nil
}

func (s *seleniumSession) FindAll(ctx context.Context, selector string) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	els, err := s.wd.FindElements(selenium.ByCSSSelector, selector)
	if err != nil {
		return nil, classifySelenium(err)
	}
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, &seleniumElement{el: el})
	}
	return out, nil
}

func (s *seleniumSession) ExecuteScript(ctx context.Context, script string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, err := s.wd.ExecuteScript(script, nil)
	if err != nil {
		return nil, classifySelenium(err)
	}
	return v, nil
}

// Close quits the remote session. A session the hub already reclaimed
// is logged and swallowed; callers must be able to close blindly.
func (s *seleniumSession) Close() {
	if s.closed {
		return
	}
	s.closed = true
	if err := s.wd.Quit(); err != nil {
		log.Debug().Err(err).Msg("selenium session already gone at close")
	}
}

type seleniumElement struct {
	el selenium.WebElement
}

func (e *seleniumElement) Text() (string, error) {
	t, err := e.el.Text()
	if err != nil {
		return "", classifySelenium(err)
	}
	return t, nil
}

func (e *seleniumElement) Attribute(name string) (string, error) {
	v, err := e.el.GetAttribute(name)
	if err != nil {
		// W3C drivers report absent attributes as an error; treat as empty.
		if strings.Contains(err.Error(), "nil return value") {
			return "", nil
		}
		return "", classifySelenium(err)
	}
	return v, nil
}

func (e *seleniumElement) Click() error {
	if err := e.el.Click(); err != nil {
		return classifySelenium(err)
	}
	return nil
}

func (e *seleniumElement) SendKeys(keys string) error {
	if err := e.el.SendKeys(keys); err != nil {
		return classifySelenium(err)
	}
	return nil
}

func (e *seleniumElement) Find(selector string) (Element, error) {
	el, err := e.el.FindElement(selenium.ByCSSSelector, selector)
	if err != nil {
		return nil, classifySelenium(err)
	}
	return &seleniumElement{el: el}, nil
}

func (e *seleniumElement) FindAll(selector string) ([]Element, error) {
	els, err := e.el.FindElements(selenium.ByCSSSelector, selector)
	if err != nil {
		return nil, classifySelenium(err)
	}
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, &seleniumElement{el: el})
	}
	return out, nil
}

func (e *seleniumElement) HTML() (string, error) {
	h, err := e.el.GetAttribute("outerHTML")
	if err != nil {
		return "", classifySelenium(err)
	}
	return h, nil
}

// classifySelenium maps WebDriver protocol errors onto the session
// error taxonomy so the pipelines can dispatch on errors.Is.
func classifySelenium(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no such element"):
		return fmt.Errorf("%w: %s", ErrNotFound, err)
	case strings.Contains(msg, "invalid session id"), strings.Contains(msg, "session not found"):
		return fmt.Errorf("%w: %s", ErrSessionInvalid, err)
	case strings.Contains(msg, "click intercepted"):
		return fmt.Errorf("%w: %s", ErrClickIntercepted, err)
	case strings.Contains(msg, "timeout"):
		return fmt.Errorf("%w: %s", ErrTimeout, err)
	}
	return err
}
