package dnsshop

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chromedp/chromedp"
	"golang.org/x/net/html/charset"

	"dns-price-bot/config"
	"dns-price-bot/utils"
)

// Renderer returns the HTML of a page.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
	Close()
}

// NewRenderer picks the engine named by cfg.ScraperEngine.
func NewRenderer(cfg *config.Config, logger *utils.Logger) (Renderer, error) {
	switch cfg.ScraperEngine {
	case config.EngineHTTP, "":
		return newHTTPRenderer(cfg), nil
	case config.EngineChrome:
		return newChromeRenderer(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown scraper engine %q", cfg.ScraperEngine)
	}
}

// StatusError is returned for a non-200 response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error %d", e.Code)
}

type httpRenderer struct {
	client    *http.Client
	userAgent string
}

func newHTTPRenderer(cfg *config.Config) *httpRenderer {
	return &httpRenderer{
		client:    &http.Client{Timeout: cfg.RequestTimeout},
		userAgent: cfg.UserAgent,
	}
}

func (r *httpRenderer) Render(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &StatusError{Code: resp.StatusCode}
	}

	// decode with the encoding announced by the server
	reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("failed to create reader with correct encoding: %w", err)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	return string(body), nil
}

func (r *httpRenderer) Close() {
	r.client.CloseIdleConnections()
}

// chromeRenderer keeps one headless browser and opens a tab per page.
type chromeRenderer struct {
	browserCtx context.Context
	cancel     context.CancelFunc
	wait       time.Duration
	timeout    time.Duration
	logger     *utils.Logger
}

func newChromeRenderer(cfg *config.Config, logger *utils.Logger) *chromeRenderer {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("log-level", "3"), // suppress Chrome logs
		chromedp.UserAgent(cfg.UserAgent),
		chromedp.WindowSize(1280, 900),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	logger.Info("Using headless Chrome renderer")
	return &chromeRenderer{
		browserCtx: browserCtx,
		cancel: func() {
			cancelBrowser()
			cancelAlloc()
		},
		wait:    cfg.RenderWait,
		timeout: cfg.RequestTimeout + cfg.RenderWait,
		logger:  logger,
	}
}

func (r *chromeRenderer) Render(ctx context.Context, url string) (string, error) {
	tabCtx, cancelTab := chromedp.NewContext(r.browserCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, r.timeout)
	defer cancelTimeout()

	// the tab hangs off the browser context, so follow the caller's cancellation by hand
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(r.wait), // give JS time to render
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", url, err)
	}
	r.logger.Debug("Rendered %s (%d bytes)", url, len(html))
	return html, nil
}

func (r *chromeRenderer) Close() {
	r.cancel()
}
