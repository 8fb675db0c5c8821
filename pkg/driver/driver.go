// Package driver provisions browser automation sessions from suite configuration.
// a Session owns the playwright runtime and the launched browser; it is released
// exactly once regardless of how many times Close is called.
package driver

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/probelab/dashtest/pkg/config"
)

// Session is a live handle to a running browser instance.
type Session struct {
	cfg     *config.Config
	pw      *playwright.Playwright
	browser playwright.Browser

	closeOnce sync.Once
	closeErr  error
}

// Install downloads the playwright driver and browser binaries if missing.
// safe to call on every run; a no-op when everything is already present.
func Install() error {
	if err := playwright.Install(); err != nil {
		return &ProvisioningError{Stage: "install", Err: err}
	}
	return nil
}

// Provision launches a browser according to the configuration and returns a
// ready Session. the caller must release it via Close on all exit paths.
func Provision(cfg *config.Config) (*Session, error) {
	spec, err := launchSpec(cfg)
	if err != nil {
		return nil, err
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, &ProvisioningError{Browser: cfg.Browser, Stage: "runtime", Err: err}
	}

	var bt playwright.BrowserType
	switch spec.engine {
	case engineChromium:
		bt = pw.Chromium
	case engineFirefox:
		bt = pw.Firefox
	case engineWebKit:
		bt = pw.WebKit
	}

	browser, err := bt.Launch(spec.options)
	if err != nil {
		_ = pw.Stop()
		return nil, &ProvisioningError{Browser: cfg.Browser, Stage: "launch", Err: err}
	}

	return &Session{cfg: cfg, pw: pw, browser: browser}, nil
}

// engine identifies the playwright browser engine backing a configured kind.
type engine string

const (
	engineChromium engine = "chromium"
	engineFirefox  engine = "firefox"
	engineWebKit   engine = "webkit"
)

// spec pairs an engine with its launch options.
type spec struct {
	engine  engine
	options playwright.BrowserTypeLaunchOptions
}

// launchSpec maps the configured browser kind onto an engine and launch options.
// chrome and edge run on the chromium engine via branded channels.
func launchSpec(cfg *config.Config) (spec, error) {
	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
	}

	switch cfg.Browser {
	case config.BrowserChromium:
		return spec{engine: engineChromium, options: opts}, nil
	case config.BrowserChrome:
		opts.Channel = playwright.String("chrome")
		return spec{engine: engineChromium, options: opts}, nil
	case config.BrowserEdge:
		opts.Channel = playwright.String("msedge")
		return spec{engine: engineChromium, options: opts}, nil
	case config.BrowserFirefox:
		return spec{engine: engineFirefox, options: opts}, nil
	case config.BrowserWebKit:
		return spec{engine: engineWebKit, options: opts}, nil
	default:
		return spec{}, &ProvisioningError{
			Browser: cfg.Browser,
			Stage:   "config",
			Err:     fmt.Errorf("unsupported browser kind %q", cfg.Browser),
		}
	}
}

// NewContext creates an isolated browser context with the configured viewport
// and timeout tiers applied. each test owns its own context, so cookies and
// storage never leak across tests.
func (s *Session) NewContext() (playwright.BrowserContext, error) {
	ctx, err := s.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  s.cfg.WindowWidth,
			Height: s.cfg.WindowHeight,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create browser context: %w", err)
	}
	ctx.SetDefaultTimeout(float64(s.cfg.TimeoutExplicitMs))
	ctx.SetDefaultNavigationTimeout(float64(s.cfg.TimeoutPageLoadMs))
	return ctx, nil
}

// NewPage creates an isolated context and a page in it. the returned cleanup
// closes both and is safe to call after a failed test.
func (s *Session) NewPage() (playwright.Page, func(), error) {
	ctx, err := s.NewContext()
	if err != nil {
		return nil, nil, err
	}
	page, err := ctx.NewPage()
	if err != nil {
		_ = ctx.Close()
		return nil, nil, fmt.Errorf("create page: %w", err)
	}
	cleanup := func() {
		_ = page.Close()
		_ = ctx.Close()
	}
	return page, cleanup, nil
}

// Config returns the configuration the session was provisioned with.
func (s *Session) Config() *config.Config {
	return s.cfg
}

// Close releases the browser and the playwright runtime. idempotent.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.browser != nil {
			if err := s.browser.Close(); err != nil {
				s.closeErr = fmt.Errorf("close browser: %w", err)
			}
		}
		if s.pw != nil {
			if err := s.pw.Stop(); err != nil && s.closeErr == nil {
				s.closeErr = fmt.Errorf("stop playwright: %w", err)
			}
		}
	})
	return s.closeErr
}

// Screenshot captures a full-page screenshot into path, creating parent
// directories as needed.
func Screenshot(page playwright.Page, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create screenshot dir: %w", err)
	}
	_, err := page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("capture screenshot: %w", err)
	}
	return nil
}
