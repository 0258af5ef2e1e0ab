package parser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/domguard/internal/store"
)

// RodConfig configures RodParser.
type RodConfig struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty launches a local headless Chrome via launcher.
	RemoteURL string
	// RecycleInterval is the maximum lifetime of the Chrome process before
	// it is killed and relaunched. Default: 4h.
	RecycleInterval time.Duration
	// FetchTimeout bounds a single ParsePage call. Default: 30s.
	FetchTimeout time.Duration

	Logger *slog.Logger
}

func (c *RodConfig) defaults() {
	if c.RecycleInterval <= 0 {
		c.RecycleInterval = 4 * time.Hour
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// RodParser fetches a page's fully-rendered DOM through a stealth-patched
// headless Chrome, recycling the browser process on a fixed interval so a
// long-lived daemon doesn't accumulate per-tab leaks across thousands of
// fetches.
type RodParser struct {
	cfg RodConfig

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	startAt time.Time
}

// NewRodParser constructs a RodParser. The browser is launched lazily on
// the first ParsePage call.
func NewRodParser(cfg RodConfig) *RodParser {
	cfg.defaults()
	return &RodParser{cfg: cfg}
}

// ParsePage implements Parser.
func (p *RodParser) ParsePage(ctx context.Context, page *store.TrackedPage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.FetchTimeout)
	defer cancel()

	b, err := p.browserFor(ctx)
	if err != nil {
		return "", fmt.Errorf("parser: browser: %w", err)
	}

	pg, err := stealth.Page(b)
	if err != nil {
		return "", fmt.Errorf("parser: new page: %w", err)
	}
	defer pg.Close()

	pg = pg.Context(ctx)
	if err := pg.Navigate(page.PageURL); err != nil {
		return "", fmt.Errorf("parser: navigate: %w", err)
	}
	if err := pg.WaitLoad(); err != nil {
		return "", fmt.Errorf("parser: wait load: %w", err)
	}

	html, err := pg.HTML()
	if err != nil {
		return "", fmt.Errorf("parser: dump dom: %w", err)
	}
	return html, nil
}

// Close shuts down the underlying browser process, if any.
func (p *RodParser) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cleanupLocked()
}

func (p *RodParser) browserFor(ctx context.Context) (*rod.Browser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.browser != nil && time.Since(p.startAt) < p.cfg.RecycleInterval {
		return p.browser, nil
	}
	if p.browser != nil {
		p.cfg.Logger.Info("parser: recycling browser", "uptime", time.Since(p.startAt))
		p.cleanupLocked()
	}

	b, err := p.launch()
	if err != nil {
		return nil, err
	}
	p.browser = b
	p.startAt = time.Now()
	return b, nil
}

func (p *RodParser) launch() (*rod.Browser, error) {
	var wsURL string
	if p.cfg.RemoteURL != "" {
		wsURL = p.cfg.RemoteURL
	} else {
		l := launcher.New().Headless(true).Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch: %w", err)
		}
		p.lnch = l
		wsURL = u
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return b, nil
}

func (p *RodParser) cleanupLocked() error {
	if p.browser != nil {
		p.browser.Close()
		p.browser = nil
	}
	if p.lnch != nil {
		p.lnch.Cleanup()
		p.lnch = nil
	}
	return nil
}
