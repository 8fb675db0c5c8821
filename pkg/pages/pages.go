// Package pages implements page objects for the dashboard screens. each object
// wraps a live playwright page and exposes semantic actions; every action that
// depends on asynchronous rendering is guarded by a bounded readiness wait and
// fails with a TimeoutError on expiry instead of returning stale state.
package pages

import (
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Params holds what a page object needs: the live page handle plus the
// configured base URL and timeout tiers. page objects keep no other state.
type Params struct {
	Page     playwright.Page
	BaseURL  string
	Timeout  time.Duration // bound for element readiness waits
	PageLoad time.Duration // bound for navigation waits
	Poll     time.Duration // predicate polling interval, defaults to 100ms
}

// TimeoutError reports that an expected UI state never appeared within the
// configured bound.
type TimeoutError struct {
	What    string        // selector or predicate description
	Timeout time.Duration // the bound that expired
	URL     string        // page URL at the moment of failure
	Err     error         // underlying automation error, may be nil for predicates
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for %s (page %s)", e.Timeout, e.What, e.URL)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// isTimeout classifies playwright wait failures by message; the library reports
// expired waits as "Timeout <n>ms exceeded".
func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Timeout") && strings.Contains(msg, "exceeded")
}

// base carries the shared navigation and wait helpers for all page objects.
type base struct {
	page     playwright.Page
	baseURL  string
	timeout  time.Duration
	pageLoad time.Duration
	poll     time.Duration
}

func newBase(p Params) base {
	poll := p.Poll
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	return base{
		page:     p.Page,
		baseURL:  strings.TrimRight(p.BaseURL, "/"),
		timeout:  p.Timeout,
		pageLoad: p.PageLoad,
		poll:     poll,
	}
}

// url builds an absolute URL from a path on the configured base.
func (b base) url(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return b.baseURL + path
}

// open navigates to a path and waits for DOMContentLoaded within the page-load bound.
func (b base) open(path string) error {
	_, err := b.page.Goto(b.url(path), playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(b.pageLoad.Milliseconds())),
	})
	if err != nil {
		if isTimeout(err) {
			return &TimeoutError{What: "page load of " + path, Timeout: b.pageLoad, URL: b.page.URL(), Err: err}
		}
		return fmt.Errorf("navigate to %s: %w", path, err)
	}
	return nil
}

// waitVisible waits for the first match of selector to become visible and
// returns its locator.
func (b base) waitVisible(selector string) (playwright.Locator, error) {
	locator := b.page.Locator(selector).First()
	err := locator.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(b.timeout.Milliseconds())),
	})
	if err != nil {
		if isTimeout(err) {
			return nil, &TimeoutError{What: selector, Timeout: b.timeout, URL: b.page.URL(), Err: err}
		}
		return nil, fmt.Errorf("wait for %s: %w", selector, err)
	}
	return locator, nil
}

// waitHidden waits for selector to disappear or become hidden.
func (b base) waitHidden(selector string) error {
	err := b.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateHidden,
		Timeout: playwright.Float(float64(b.timeout.Milliseconds())),
	})
	if err != nil {
		if isTimeout(err) {
			return &TimeoutError{What: selector + " to hide", Timeout: b.timeout, URL: b.page.URL(), Err: err}
		}
		return fmt.Errorf("wait for %s to hide: %w", selector, err)
	}
	return nil
}

// waitURL waits for the page URL to match the glob pattern (relative to base).
func (b base) waitURL(pattern string) error {
	err := b.page.WaitForURL(b.url(pattern), playwright.PageWaitForURLOptions{
		Timeout: playwright.Float(float64(b.pageLoad.Milliseconds())),
	})
	if err != nil {
		if isTimeout(err) {
			return &TimeoutError{What: "url " + pattern, Timeout: b.pageLoad, URL: b.page.URL(), Err: err}
		}
		return fmt.Errorf("wait for url %s: %w", pattern, err)
	}
	return nil
}

// waitFor polls a readiness predicate up to the explicit-wait bound. this is
// the generic wait primitive every interaction with an externally rendered
// surface goes through: poll, never probe once and return stale state.
func (b base) waitFor(what string, pred func() (bool, error)) error {
	deadline := time.Now().Add(b.timeout)
	for {
		ok, err := pred()
		if err == nil && ok {
			return nil
		}
		if time.Now().After(deadline) {
			return &TimeoutError{What: what, Timeout: b.timeout, URL: b.page.URL(), Err: err}
		}
		time.Sleep(b.poll)
	}
}

// hasClass checks if classAttr contains the exact CSS class token. exact token
// matching avoids false positives such as "livestream" matching "live".
func hasClass(classAttr, class string) bool {
	for _, c := range strings.Fields(classAttr) {
		if c == class {
			return true
		}
	}
	return false
}

// visible reports whether the first match of selector is currently visible.
func (b base) visible(selector string) (bool, error) {
	v, err := b.page.Locator(selector).First().IsVisible()
	if err != nil {
		return false, fmt.Errorf("check visibility of %s: %w", selector, err)
	}
	return v, nil
}
