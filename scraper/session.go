package scraper

import (
	"context"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"

	"flight-scraper/config"
)

// userAgents holds real browser strings rotated per session. Both booking sites
// fingerprint the User-Agent, so each scrape should look like a different
// real browser.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
}

// RandomUserAgent picks one of the rotation strings.
func RandomUserAgent() string {
	return userAgents[rand.Intn(len(userAgents))]
}

// StealthOpts returns browser launch options that suppress the usual
// automation tells: the AutomationControlled blink feature, the automation
// extension, a headless-default window size.
func StealthOpts(cfg *config.Config) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("excludeSwitches", "enable-automation"),
		chromedp.Flag("useAutomationExtension", false),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(RandomUserAgent()),
	)

	if cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}

	if bin := FindChromeBinary(cfg.ChromeBin); bin != "" {
		opts = append(opts, chromedp.ExecPath(bin))
	}

	return opts
}

// HideWebdriver patches the JS properties the sites' own scripts probe for,
// beyond what the launch flags cover.
func HideWebdriver() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		return chromedp.Evaluate(`
			Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
			Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
			Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
		`, nil).Do(ctx)
	})
}

// Session owns one isolated browser context for the lifetime of a single
// scrape. The two source adapters never share a session, so one source's
// anti-bot state cannot bleed into the other. Close must run on every exit
// path.
type Session struct {
	ctx     context.Context
	cancels []context.CancelFunc
}

// NewSession launches a browser context under parent with stealth options.
func NewSession(parent context.Context, cfg *config.Config) *Session {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, StealthOpts(cfg)...)

	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}))

	return &Session{
		ctx:     browserCtx,
		cancels: []context.CancelFunc{cancelBrowser, cancelAlloc},
	}
}

// Context returns the chromedp context to run actions against.
func (s *Session) Context() context.Context { return s.ctx }

// Close tears the browser session down.
func (s *Session) Close() {
	for _, cancel := range s.cancels {
		cancel()
	}
}

// SaveScreenshot captures a full-page snapshot into dir for debugging a
// failed scrape. Strictly best-effort: it returns the written path or ""
// and never an error, so it cannot mask the failure that triggered it.
func (s *Session) SaveScreenshot(dir, name string) string {
	shotCtx, cancel := context.WithTimeout(s.ctx, 15*time.Second)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(shotCtx, chromedp.FullScreenshot(&buf, 80)); err != nil {
		return ""
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return ""
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return ""
	}
	return path
}

// FindChromeBinary locates the Chrome/Chromium binary, preferring an
// explicitly configured path.
func FindChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
