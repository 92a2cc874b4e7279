package storage

import (
	"context"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"dns-price-bot/models"
	"dns-price-bot/utils"
)

func TestSchemaKeepsFullPricePrecision(t *testing.T) {
	col := regexp.MustCompile(`(?m)^\s*price\s+(\S+)\s`).FindStringSubmatch(schema)
	if col == nil || col[1] != "NUMERIC" {
		t.Fatalf("price column must be unscaled NUMERIC, got %v", col)
	}
}

// Runs against a live server when TEST_DATABASE_URL is set.
func TestPostgresItemsRoundTrip(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := NewPostgresStore(ctx, dsn, utils.NewNopLogger())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Close()
	defer func() { _ = s.SaveItems(ctx, map[string]*models.TrackedItem{}) }()

	price := decimal.RequireFromString("1.234567")
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	item := models.NewTrackedItem(&models.ListingItem{Title: "RTX 5060", Price: price, PriceDisplay: "1.234.567"}, now)
	if err := s.SaveItems(ctx, map[string]*models.TrackedItem{item.Identity: item}); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.LoadItems(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	loaded, ok := got[item.Identity]
	if !ok || len(got) != 1 {
		t.Fatalf("unexpected items: %v", got)
	}
	if !loaded.Price.Equal(price) || models.Identity(loaded.Title, loaded.Price) != item.Identity {
		t.Fatalf("price lost precision: %s (identity %s)", loaded.Price, item.Identity)
	}
}
