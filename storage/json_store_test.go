package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"dns-price-bot/models"
	"dns-price-bot/utils"
)

func newTestStore(t *testing.T) (*JSONStore, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "data")
	s, err := NewJSONStore(dir, utils.NewNopLogger())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s, dir
}

func TestJSONStoreMissingFilesLoadDefaults(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	items, err := s.LoadItems(ctx)
	if err != nil || len(items) != 0 {
		t.Fatalf("items: %v %v", items, err)
	}
	q, err := s.LoadQuietHours(ctx)
	if err != nil || q.Enabled {
		t.Fatalf("quiet hours: %+v %v", q, err)
	}
	subs, err := s.LoadSubscribers(ctx)
	if err != nil || len(subs.Users) != 0 {
		t.Fatalf("subscribers: %+v %v", subs, err)
	}
}

func TestJSONStoreRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	item := &models.ListingItem{
		Title:        "RTX 5060 Gaming",
		Price:        decimal.RequireFromString("1234.50"),
		PriceDisplay: "1 234,50 р.",
		ImageRef:     "https://dns-shop.by/img/1.jpg",
	}
	tracked := models.NewTrackedItem(item, now)
	if err := s.SaveItems(ctx, map[string]*models.TrackedItem{tracked.Identity: tracked}); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.LoadItems(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	rec, ok := got["RTX 5060 Gaming_1234.5"]
	if !ok {
		t.Fatalf("identity missing, got %v", got)
	}
	if !rec.Price.Equal(item.Price) || rec.PriceDisplay != item.PriceDisplay || !rec.FirstSeen.Equal(now) {
		t.Fatalf("record mismatch: %+v", rec)
	}

	at := now.Add(time.Hour)
	if err := s.SaveQuietHours(ctx, &models.QuietHoursState{Enabled: true, LastToggledBy: 42, LastToggledAt: &at}); err != nil {
		t.Fatalf("save quiet: %v", err)
	}
	q, err := s.LoadQuietHours(ctx)
	if err != nil || !q.Enabled || q.LastToggledBy != 42 || q.LastToggledAt == nil || !q.LastToggledAt.Equal(at) {
		t.Fatalf("quiet hours: %+v %v", q, err)
	}

	if err := s.SaveSubscribers(ctx, &models.SubscriberSet{Users: []int64{7, 9}}); err != nil {
		t.Fatalf("save subs: %v", err)
	}
	subs, err := s.LoadSubscribers(ctx)
	if err != nil || len(subs.Users) != 2 || !subs.Contains(9) {
		t.Fatalf("subscribers: %+v %v", subs, err)
	}
}

func TestJSONStoreCorruptFile(t *testing.T) {
	s, dir := newTestStore(t)
	if err := os.WriteFile(filepath.Join(dir, itemsFile), []byte(`{"items": {`), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := s.LoadItems(context.Background())
	var perr *models.PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
}

func TestJSONStoreKeepsOldDocumentFormat(t *testing.T) {
	s, dir := newTestStore(t)
	doc := `{"items": {"GPU_999": {"title": "GPU", "price": "999", "price_display": "999 р."}}}`
	if err := os.WriteFile(filepath.Join(dir, itemsFile), []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	items, err := s.LoadItems(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if items["GPU_999"].Identity != "GPU_999" {
		t.Fatalf("identity should default to key, got %+v", items["GPU_999"])
	}
}

func TestCSVWriterSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "snapshot.csv")
	w := NewCSVWriter(path, utils.NewNopLogger())
	items := []*models.ListingItem{
		{Title: "A", Price: decimal.RequireFromString("1200"), PriceDisplay: "1 200 р."},
		{Title: "B", Price: decimal.RequireFromString("999.9"), PriceDisplay: "999,90 р."},
	}
	if err := w.WriteSnapshot(items); err != nil {
		t.Fatalf("write: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[1][0] != "A_1200" || rows[2][2] != "999.90" {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open(context.Background(), Options{Backend: "redis"}, utils.NewNopLogger()); err == nil {
		t.Fatal("expected error")
	}
}
