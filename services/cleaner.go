package services

import (
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"dns-price-bot/models"
	"dns-price-bot/utils"
)

// DataCleaner normalizes raw scraped records into listing items below the target price
type DataCleaner struct {
	threshold decimal.Decimal
	base      *url.URL
	logger    *utils.Logger
}

// NewDataCleaner creates a new DataCleaner. baseURL resolves relative image references.
func NewDataCleaner(threshold decimal.Decimal, baseURL string, logger *utils.Logger) *DataCleaner {
	base, err := url.Parse(baseURL)
	if err != nil {
		logger.Warn("Invalid base URL %q, image references stay relative: %v", baseURL, err)
		base = nil
	}
	return &DataCleaner{threshold: threshold, base: base, logger: logger}
}

// Clean converts raw records to listing items. Unparseable prices are skipped with a warning,
// items at or above the threshold are dropped.
func (c *DataCleaner) Clean(raw []*models.RawListing) []*models.ListingItem {
	var cleaned []*models.ListingItem

	for _, r := range raw {
		title := strings.TrimSpace(r.Title)
		if title == "" {
			c.logger.Debug("Skipping listing with empty title")
			continue
		}

		display := strings.TrimSpace(r.RawPrice)
		price, err := ParsePrice(display)
		if err != nil {
			c.logger.Warn("Skipping '%s': %v", title, err)
			continue
		}
		if !price.LessThan(c.threshold) {
			c.logger.Debug("Skipping '%s': %s is not below %s", title, price, c.threshold)
			continue
		}

		item := &models.ListingItem{
			Title:        title,
			Price:        price,
			PriceDisplay: display,
			ImageRef:     c.resolve(strings.TrimSpace(r.ImageURL)),
			ObservedAt:   r.ScrapedAt,
		}
		if item.ObservedAt.IsZero() {
			item.ObservedAt = time.Now()
		}

		cleaned = append(cleaned, item)
	}

	c.logger.Debug("Cleaned %d listings from %d raw records", len(cleaned), len(raw))
	return cleaned
}

func (c *DataCleaner) resolve(ref string) string {
	if ref == "" || c.base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return c.base.ResolveReference(u).String()
}
