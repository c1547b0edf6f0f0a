// Package browser defines the remote browser session capability the
// extraction pipelines are written against, and its Selenium and
// chromedp implementations. Pipelines never talk to a driver directly;
// they consume this interface so failures stay classifiable and tests
// can substitute a scripted session.
package browser

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for the failure modes the pipelines care about.
// Everything a backend returns is wrapped so errors.Is works against
// these regardless of driver.
var (
	// ErrNotFound means the selector matched nothing.
	ErrNotFound = errors.New("browser: element not found")
	// ErrTimeout means the element did not appear within the wait window.
	ErrTimeout = errors.New("browser: wait timed out")
	// ErrClickIntercepted means another element swallowed the click.
	ErrClickIntercepted = errors.New("browser: click intercepted")
	// ErrSessionInvalid means the underlying driver session has died.
	ErrSessionInvalid = errors.New("browser: session invalid")
)

// Element is a handle to a located page element. Handles are only
// valid while the page they were found on is still loaded.
type Element interface {
	// Text returns the rendered text content of the element.
	Text() (string, error)
	// Attribute returns the value of the named attribute, or "" if the
	// attribute is absent.
	Attribute(name string) (string, error)
	// Click clicks the element.
	Click() error
	// SendKeys types into the element (inputs only).
	SendKeys(keys string) error
	// Find locates a descendant by CSS selector without waiting.
	Find(selector string) (Element, error)
	// FindAll locates all matching descendants by CSS selector.
	FindAll(selector string) ([]Element, error)
	// HTML returns the element's outer HTML.
	HTML() (string, error)
}

// Session is one exclusive browser session. A session is owned by a
// single worker for the lifetime of its chunk and is never shared
// across goroutines.
type Session interface {
	// Navigate loads the given URL.
	Navigate(ctx context.Context, url string) error
	// Refresh reloads the current page.
	Refresh(ctx context.Context) error
	// CurrentURL returns the URL of the loaded page.
	CurrentURL() (string, error)
	// Find waits up to timeout for the first element matching the CSS
	// selector. Returns ErrTimeout (wrapped) if it never appears.
	Find(ctx context.Context, selector string, timeout time.Duration) (Element, error)
	// FindAll returns all elements currently matching the CSS selector
	// without waiting. An empty slice is not an error.
	FindAll(ctx context.Context, selector string) ([]Element, error)
	// ExecuteScript runs JavaScript in the page and returns its value.
	// The script is a function body: use a return statement to produce
	// a value, per WebDriver execute-script semantics.
	ExecuteScript(ctx context.Context, script string) (any, error)
	// Close releases the session. Close is idempotent and tolerates the
	// session already being invalid; it never fails the caller.
	Close()
}

// IsTransient reports whether err is a page-level condition (element
// absent or wait expired) rather than a broken session.
func IsTransient(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrTimeout)
}
