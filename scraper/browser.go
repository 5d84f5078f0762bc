package scraper

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// BrowserFetcher renders pages in a headless browser before returning their
// HTML. Used for vendors whose product data only appears after client-side
// JavaScript runs; enabled via SCRAPER_USE_BROWSER.
type BrowserFetcher struct {
	browser  *rod.Browser
	detector *BlockDetector
}

// NewBrowserFetcher launches a headless browser. When bin is empty the
// launcher auto-detects a local Chromium.
func NewBrowserFetcher(bin string) (*BrowserFetcher, error) {
	l := launcher.New().
		Headless(true).
		NoSandbox(true).
		Leakless(false)

	if bin != "" {
		l = l.Bin(bin)
		log.Printf("Using browser binary at %s", bin)
	}

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %v", err)
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %v", err)
	}

	return &BrowserFetcher{
		browser:  browser,
		detector: NewBlockDetector(),
	}, nil
}

// Fetch loads the page, waits for it to stabilize and returns the rendered HTML.
func (f *BrowserFetcher) Fetch(ctx context.Context, url string) (string, error) {
	page, err := f.browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return "", fmt.Errorf("failed to open page: %v", err)
	}
	defer page.Close()

	page = page.Context(ctx)

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width: 1920, Height: 1080, DeviceScaleFactor: 1.0,
	}); err != nil {
		return "", err
	}
	if err := page.WaitLoad(); err != nil {
		return "", err
	}
	if err := page.WaitStable(2 * time.Second); err != nil {
		log.Printf("Page never stabilized for %s, extracting anyway", url)
	}

	content, err := page.HTML()
	if err != nil {
		return "", err
	}

	if blocked, reason := f.detector.Detect(content); blocked {
		return "", fmt.Errorf("%w: %s", ErrBlocked, reason)
	}

	return content, nil
}

// Close shuts the browser down.
func (f *BrowserFetcher) Close() {
	if f.browser != nil {
		_ = f.browser.Close()
	}
}
