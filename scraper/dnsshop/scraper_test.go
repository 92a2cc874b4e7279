package dnsshop

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"dns-price-bot/config"
	"dns-price-bot/models"
	"dns-price-bot/services"
	"dns-price-bot/utils"
)

var testSelectors = config.Selectors{
	Product: "li.catalog-category-products__product",
	Title:   "a.catalog-category-product__title",
	Price:   "div.catalog-product-purchase__current-price",
	Image:   "div.catalog-category-product__image img",
}

type product struct {
	title, price, img string
}

func renderPage(products []product) string {
	var b strings.Builder
	b.WriteString(`<html><body><ul class="catalog-category-products">`)
	for _, p := range products {
		fmt.Fprintf(&b, `<li class="catalog-category-products__product">
			<div class="catalog-category-product__image"><img %s></div>
			<a class="catalog-category-product__title" href="/p/1">%s</a>
			<div class="catalog-product-purchase__current-price">%s</div>
		</li>`, p.img, p.title, p.price)
	}
	b.WriteString(`</ul></body></html>`)
	return b.String()
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		TargetPrice:    decimal.NewFromInt(1400),
		BaseURL:        baseURL,
		SearchURL:      baseURL + "/ru/category/videokarty/",
		SearchQuery:    "sqctg=rtx+5060",
		Selectors:      testSelectors,
		UserAgent:      "test-agent",
		ScraperEngine:  config.EngineHTTP,
		RequestTimeout: 5 * time.Second,
		MaxRetries:     2,
		MaxPages:       10,
	}
}

func newTestScraper(cfg *config.Config) *Scraper {
	logger := utils.NewNopLogger()
	r, _ := NewRenderer(cfg, logger)
	s := NewScraper(cfg, r, services.NewDataCleaner(cfg.TargetPrice, cfg.BaseURL, logger), logger)
	s.retryBase = time.Millisecond
	return s
}

func TestParseListing(t *testing.T) {
	html := renderPage([]product{
		{"RTX 5060 A", "1 234,50 р.", `src="/img/a.jpg"`},
		{"RTX 5060 B", "999 р.", `data-src="/img/b.jpg"`},
	}) + `<li class="catalog-category-products__product"><a class="catalog-category-product__title">no price</a></li>`

	got, err := ParseListing(html, testSelectors, 3, time.Unix(0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 products, got %d", len(got))
	}
	if got[0].Title != "RTX 5060 A" || got[0].RawPrice != "1 234,50 р." || got[0].ImageURL != "/img/a.jpg" || got[0].Page != 3 {
		t.Fatalf("unexpected first record: %+v", got[0])
	}
	if got[1].ImageURL != "/img/b.jpg" {
		t.Fatalf("data-src fallback not used: %+v", got[1])
	}
}

func TestFetchListingPaginatesUntilEmptyPage(t *testing.T) {
	pages := map[string][]product{
		"1": {{"A", "1 000 р.", `src="/a.jpg"`}, {"Expensive", "2 000 р.", `src="/x.jpg"`}},
		"2": {{"B", "1 100,50 р.", `src="/b.jpg"`}},
		"3": {{"Only expensive", "5 000 р.", `src="/y.jpg"`}},
	}
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		if r.URL.Query().Get("sqctg") != "rtx 5060" {
			t.Errorf("query not forwarded: %s", r.URL.RawQuery)
		}
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("user agent not set")
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, renderPage(pages[r.URL.Query().Get("page")]))
	}))
	defer srv.Close()

	s := newTestScraper(testConfig(srv.URL))
	items, err := s.FetchListing(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 2 || items[0].Title != "A" || items[1].Title != "B" {
		t.Fatalf("unexpected items: %+v", items)
	}
	if items[1].ImageRef != srv.URL+"/b.jpg" {
		t.Fatalf("image not resolved: %s", items[1].ImageRef)
	}
	if requests != 3 {
		t.Fatalf("expected 3 page requests, got %d", requests)
	}
}

func TestFetchListingStopsOnRepeatedPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// every page number returns the same content
		fmt.Fprint(w, renderPage([]product{{"A", "1 000 р.", `src="/a.jpg"`}}))
	}))
	defer srv.Close()

	items, err := newTestScraper(testConfig(srv.URL)).FetchListing(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
}

func TestFetchListingContinuesWhenCheapItemsRepeat(t *testing.T) {
	pages := map[string][]product{
		"1": {{"A", "1 000 р.", `src="/a.jpg"`}, {"X", "2 000 р.", `src="/x.jpg"`}},
		"2": {{"A", "1 000 р.", `src="/a.jpg"`}, {"Y", "2 500 р.", `src="/y.jpg"`}},
		"3": {{"B", "900 р.", `src="/b.jpg"`}},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, renderPage(pages[r.URL.Query().Get("page")]))
	}))
	defer srv.Close()

	items, err := newTestScraper(testConfig(srv.URL)).FetchListing(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	var titles []string
	for _, it := range items {
		titles = append(titles, it.Title)
	}
	if strings.Join(titles, ",") != "A,B" {
		t.Fatalf("snapshot truncated: got %v, want [A B]", titles)
	}
}

func TestFetchListingTransportErrorIsFetchError(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		if r.URL.Query().Get("page") == "2" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, renderPage([]product{{"A", "1 000 р.", `src="/a.jpg"`}}))
	}))
	defer srv.Close()

	items, err := newTestScraper(testConfig(srv.URL)).FetchListing(context.Background())
	var ferr *models.FetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if ferr.Page != 2 || items != nil {
		t.Fatalf("partial snapshot must not be returned: page=%d items=%v", ferr.Page, items)
	}
	var serr *StatusError
	if !errors.As(err, &serr) || serr.Code != http.StatusBadGateway {
		t.Fatalf("status not preserved: %v", err)
	}
	// one request for page 1, MaxRetries for page 2
	if requests != 3 {
		t.Fatalf("expected 3 requests, got %d", requests)
	}
}

func TestFetchListingPageLimit(t *testing.T) {
	var n int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		i := atomic.AddInt32(&n, 1)
		fmt.Fprint(w, renderPage([]product{{fmt.Sprintf("Card %d", i), "1 000 р.", `src="/a.jpg"`}}))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.MaxPages = 3
	_, err := newTestScraper(cfg).FetchListing(context.Background())
	var ferr *models.FetchError
	if !errors.As(err, &ferr) || !errors.Is(err, errTooManyPages) {
		t.Fatalf("expected page limit FetchError, got %v", err)
	}
}

func TestFetchListingRespectsRobots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			fmt.Fprint(w, "User-agent: *\nDisallow: /ru/category/\n")
			return
		}
		t.Errorf("listing must not be requested, got %s", r.URL)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.CheckRobotsTxt = true
	_, err := newTestScraper(cfg).FetchListing(context.Background())
	if !errors.Is(err, errDisallowed) {
		t.Fatalf("expected robots rejection, got %v", err)
	}
}

func TestPageURL(t *testing.T) {
	s := &Scraper{cfg: &config.Config{SearchURL: "https://x/cat/", SearchQuery: "a=1"}}
	if got := s.pageURL(2); got != "https://x/cat/?a=1&page=2" {
		t.Fatalf("got %s", got)
	}
	s.cfg.SearchQuery = ""
	if got := s.pageURL(1); got != "https://x/cat/?page=1" {
		t.Fatalf("got %s", got)
	}
}
