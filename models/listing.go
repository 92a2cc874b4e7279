package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawListing represents unprocessed data scraped directly from a category page
type RawListing struct {
	Title     string
	RawPrice  string // e.g. "1 234,50 р."
	ImageURL  string // as found in the page, may be relative
	Page      int
	ScrapedAt time.Time
}

// ListingItem is a cleaned observation of one product below the target price.
type ListingItem struct {
	Title        string          `json:"title"`
	Price        decimal.Decimal `json:"price"`
	PriceDisplay string          `json:"price_display"`
	ImageRef     string          `json:"image_ref"`
	ObservedAt   time.Time       `json:"observed_at"`
}

// Identity returns the key the item is tracked under.
func (l *ListingItem) Identity() string {
	return Identity(l.Title, l.Price)
}

// TrackedItem is the durable record of a known identity.
type TrackedItem struct {
	Identity     string          `json:"identity"`
	Title        string          `json:"title"`
	Price        decimal.Decimal `json:"price"`
	PriceDisplay string          `json:"price_display"`
	ImageRef     string          `json:"image_ref"`
	FirstSeen    time.Time       `json:"first_seen"`
	LastUpdated  time.Time       `json:"last_updated"`
}

// Identity derives the tracking key from title and price. The price uses its canonical
// decimal form, so 1200 and 1200.00 collapse while a price change makes a new identity.
func Identity(title string, price decimal.Decimal) string {
	return title + "_" + price.String()
}

// NewTrackedItem creates the record for a first observation.
func NewTrackedItem(item *ListingItem, now time.Time) *TrackedItem {
	return &TrackedItem{
		Identity:     item.Identity(),
		Title:        item.Title,
		Price:        item.Price,
		PriceDisplay: item.PriceDisplay,
		ImageRef:     item.ImageRef,
		FirstSeen:    now,
		LastUpdated:  now,
	}
}

// StatsReport summarises the current known set
type StatsReport struct {
	TrackedCount  int
	MinPrice      decimal.Decimal
	MaxPrice      decimal.Decimal
	AveragePrice  decimal.Decimal
	Cheapest      *TrackedItem
	LastUpdated   time.Time
	TargetPrice   decimal.Decimal
	CheckInterval time.Duration
	QuietEnabled  bool
	QuietNow      bool
}
