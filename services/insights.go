package services

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"dns-price-bot/models"
	"dns-price-bot/storage"
	"dns-price-bot/utils"
)

// InsightService computes read-only statistics of the current known set
type InsightService struct {
	items    storage.ItemStore
	quiet    *QuietHours
	target   decimal.Decimal
	interval time.Duration
	logger   *utils.Logger
}

// NewInsightService creates a new InsightService
func NewInsightService(items storage.ItemStore, quiet *QuietHours, target decimal.Decimal, interval time.Duration, logger *utils.Logger) *InsightService {
	return &InsightService{items: items, quiet: quiet, target: target, interval: interval, logger: logger}
}

// Items returns the tracked items, cheapest first
func (s *InsightService) Items(ctx context.Context) ([]*models.TrackedItem, error) {
	known, err := s.items.LoadItems(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*models.TrackedItem, 0, len(known))
	for _, it := range known {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Price.Equal(out[j].Price) {
			return out[i].Title < out[j].Title
		}
		return out[i].Price.LessThan(out[j].Price)
	})
	return out, nil
}

// Generate computes the stats report. A quiet-hours read failure is logged and reported as disabled.
func (s *InsightService) Generate(ctx context.Context) (*models.StatsReport, error) {
	items, err := s.Items(ctx)
	if err != nil {
		return nil, err
	}

	report := &models.StatsReport{
		TrackedCount:  len(items),
		TargetPrice:   s.target,
		CheckInterval: s.interval,
	}
	if s.quiet != nil {
		enabled, err := s.quiet.Enabled(ctx)
		if err != nil {
			s.logger.Warn("Failed to read quiet hours state: %v", err)
		}
		report.QuietEnabled = enabled
		report.QuietNow = s.quiet.InWindow()
	}

	if len(items) == 0 {
		return report, nil
	}

	total := decimal.Zero
	report.Cheapest = items[0]
	report.MinPrice = items[0].Price
	report.MaxPrice = items[len(items)-1].Price
	for _, it := range items {
		total = total.Add(it.Price)
		if it.LastUpdated.After(report.LastUpdated) {
			report.LastUpdated = it.LastUpdated
		}
	}
	report.AveragePrice = total.Div(decimal.NewFromInt(int64(len(items)))).Round(2)

	return report, nil
}
