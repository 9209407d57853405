package browser

import (
	"fmt"
	"sync"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/jobreach/jobreach/internal/config"
)

// Desktop user agents rotated across browser contexts. Some boards serve a
// degraded or blocked page to headless defaults.
var userAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
}

// Session owns a running Playwright instance and a launched browser.
// Pages are created in isolated contexts so adapters cannot leak state
// into each other.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	config  config.BrowserConfig
	logger  *zap.Logger

	mu     sync.Mutex
	nextUA int
}

// NewSession starts Playwright and launches a Chromium browser
func NewSession(cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("starting playwright: %w", err)
	}

	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
	}
	if cfg.SlowMo > 0 {
		opts.SlowMo = playwright.Float(float64(cfg.SlowMo.Milliseconds()))
	}

	browser, err := pw.Chromium.Launch(opts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	logger.Info("browser session started",
		zap.Bool("headless", cfg.Headless),
	)

	return &Session{
		pw:      pw,
		browser: browser,
		config:  cfg,
		logger:  logger,
	}, nil
}

// NewPage opens a page in a fresh browser context, injecting any saved
// cookies for session reuse
func (s *Session) NewPage(cookies []Cookie) (Page, error) {
	ua := s.nextUserAgent()

	browserCtx, err := s.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  s.config.ViewportWidth,
			Height: s.config.ViewportHeight,
		},
		UserAgent: playwright.String(ua),
	})
	if err != nil {
		return nil, fmt.Errorf("creating browser context: %w", err)
	}

	if len(cookies) > 0 {
		var optional []playwright.OptionalCookie
		for _, c := range cookies {
			optional = append(optional, playwright.OptionalCookie{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   playwright.String(c.Domain),
				Path:     playwright.String(c.Path),
				Secure:   playwright.Bool(c.Secure),
				HttpOnly: playwright.Bool(c.HttpOnly),
			})
		}
		if err := browserCtx.AddCookies(optional); err != nil {
			s.logger.Warn("injecting cookies failed", zap.Error(err))
		}
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		browserCtx.Close()
		return nil, fmt.Errorf("creating page: %w", err)
	}

	return &pwPage{
		page:   page,
		ctx:    browserCtx,
		config: s.config,
	}, nil
}

// nextUserAgent rotates through the pool. NewPage is called from one
// goroutine per adapter, so the counter needs the lock.
func (s *Session) nextUserAgent() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ua := userAgents[s.nextUA%len(userAgents)]
	s.nextUA++
	return ua
}

// Cookies exports the cookies of a page's browser context
func (s *Session) Cookies(p Page) ([]Cookie, error) {
	pp, ok := p.(*pwPage)
	if !ok {
		return nil, nil
	}

	raw, err := pp.ctx.Cookies()
	if err != nil {
		return nil, fmt.Errorf("reading cookies: %w", err)
	}

	out := make([]Cookie, 0, len(raw))
	for _, c := range raw {
		out = append(out, Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		})
	}
	return out, nil
}

// Close shuts down the browser and stops Playwright
func (s *Session) Close() error {
	if s.browser != nil {
		s.browser.Close()
	}
	if s.pw != nil {
		return s.pw.Stop()
	}
	return nil
}
