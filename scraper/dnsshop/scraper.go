package dnsshop

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/temoto/robotstxt"

	"dns-price-bot/config"
	"dns-price-bot/models"
	"dns-price-bot/services"
	"dns-price-bot/utils"
)

var (
	errTooManyPages = errors.New("pagination did not end within the page limit")
	errDisallowed   = errors.New("disallowed by robots.txt")
)

// Scraper walks the paginated category listing of the shop
type Scraper struct {
	cfg         *config.Config
	renderer    Renderer
	cleaner     *services.DataCleaner
	logger      *utils.Logger
	rateLimiter *utils.RateLimiter
	retryBase   time.Duration

	robotsOnce sync.Once
	robots     *robotstxt.RobotsData
}

// NewScraper creates a Scraper. The cleaner filters each page before the termination check.
func NewScraper(cfg *config.Config, renderer Renderer, cleaner *services.DataCleaner, logger *utils.Logger) *Scraper {
	return &Scraper{
		cfg:         cfg,
		renderer:    renderer,
		cleaner:     cleaner,
		logger:      logger,
		rateLimiter: utils.NewRateLimiter(cfg.PageDelay),
		retryBase:   2 * time.Second,
	}
}

// FetchListing returns the complete snapshot of qualifying items, or a *models.FetchError
// when pagination could not be completed.
func (s *Scraper) FetchListing(ctx context.Context) ([]*models.ListingItem, error) {
	if err := s.checkRobots(ctx); err != nil {
		return nil, err
	}

	s.rateLimiter.Reset()
	seen := utils.NewKeyTracker()
	var (
		all     []*models.ListingItem
		prevSig string
	)

	for page := 1; page <= s.cfg.MaxPages; page++ {
		pageURL := s.pageURL(page)
		if err := s.rateLimiter.Wait(ctx); err != nil {
			return nil, &models.FetchError{URL: pageURL, Page: page, Err: err}
		}
		s.logger.Info("Parsing page %d: %s", page, pageURL)

		var html string
		err := utils.RetryWithBackoff(ctx, s.cfg.MaxRetries, s.retryBase, func() error {
			var err error
			html, err = s.renderer.Render(ctx, pageURL)
			return err
		}, s.logger)
		if err != nil {
			return nil, &models.FetchError{URL: pageURL, Page: page, Err: err}
		}

		raw, err := ParseListing(html, s.cfg.Selectors, page, time.Now())
		if err != nil {
			return nil, &models.FetchError{URL: pageURL, Page: page, Err: err}
		}
		// the shop serves the last page again for out-of-range page numbers
		sig := pageSignature(raw)
		if page > 1 && sig == prevSig {
			s.logger.Info("Page %d repeats page %d, stopping", page, page-1)
			s.logger.Info("Found %d products below %s BYN", len(all), s.cfg.TargetPrice)
			return all, nil
		}
		prevSig = sig

		items := s.cleaner.Clean(raw)
		if len(items) == 0 {
			s.logger.Info("No more products found on page %d", page)
			s.logger.Info("Found %d products below %s BYN", len(all), s.cfg.TargetPrice)
			return all, nil
		}

		fresh := 0
		for _, it := range items {
			if seen.Add(it.Identity()) {
				all = append(all, it)
				fresh++
			}
		}
		s.logger.Debug("Page %d: %d raw, %d qualifying, %d new", page, len(raw), len(items), fresh)
	}

	next := s.cfg.MaxPages + 1
	return nil, &models.FetchError{URL: s.pageURL(next), Page: next, Err: errTooManyPages}
}

// pageSignature identifies the full record set of a page, before any price filtering.
func pageSignature(raw []*models.RawListing) string {
	var b strings.Builder
	for _, r := range raw {
		b.WriteString(r.Title)
		b.WriteByte(0)
		b.WriteString(r.RawPrice)
		b.WriteByte(0)
		b.WriteString(r.ImageURL)
		b.WriteByte('\n')
	}
	return b.String()
}

// Close releases the renderer
func (s *Scraper) Close() {
	s.renderer.Close()
}

func (s *Scraper) pageURL(page int) string {
	sep := "?"
	if strings.Contains(s.cfg.SearchURL, "?") {
		sep = "&"
	}
	if s.cfg.SearchQuery == "" {
		return fmt.Sprintf("%s%spage=%d", s.cfg.SearchURL, sep, page)
	}
	return fmt.Sprintf("%s%s%s&page=%d", s.cfg.SearchURL, sep, s.cfg.SearchQuery, page)
}

// checkRobots loads robots.txt once. An unreachable or unparsable file allows crawling.
func (s *Scraper) checkRobots(ctx context.Context) error {
	if !s.cfg.CheckRobotsTxt {
		return nil
	}
	s.robotsOnce.Do(func() {
		s.robots = s.fetchRobots(ctx)
	})
	if s.robots == nil {
		return nil
	}

	u, err := url.Parse(s.cfg.SearchURL)
	if err != nil {
		return &models.FetchError{URL: s.cfg.SearchURL, Err: err}
	}
	if !s.robots.FindGroup(s.cfg.UserAgent).Test(u.Path) {
		return &models.FetchError{URL: s.cfg.SearchURL, Err: errDisallowed}
	}
	return nil
}

func (s *Scraper) fetchRobots(ctx context.Context) *robotstxt.RobotsData {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	client := &http.Client{Timeout: s.cfg.RequestTimeout}
	resp, err := client.Do(req)
	if err != nil {
		s.logger.Warn("Could not fetch robots.txt: %v", err)
		return nil
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		s.logger.Warn("Error parsing robots.txt: %v", err)
		return nil
	}
	return data
}

// ParseListing extracts raw product records from one category page.
// Products missing a title, price or image element are skipped.
func ParseListing(html string, sel config.Selectors, page int, scrapedAt time.Time) ([]*models.RawListing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var out []*models.RawListing
	doc.Find(sel.Product).Each(func(_ int, product *goquery.Selection) {
		title := product.Find(sel.Title).First()
		price := product.Find(sel.Price).First()
		image := product.Find(sel.Image).First()
		if title.Length() == 0 || price.Length() == 0 || image.Length() == 0 {
			return
		}

		src := strings.TrimSpace(image.AttrOr("src", ""))
		if src == "" {
			src = strings.TrimSpace(image.AttrOr("data-src", ""))
		}
		out = append(out, &models.RawListing{
			Title:     strings.TrimSpace(title.Text()),
			RawPrice:  strings.TrimSpace(price.Text()),
			ImageURL:  src,
			Page:      page,
			ScrapedAt: scrapedAt,
		})
	})
	return out, nil
}
