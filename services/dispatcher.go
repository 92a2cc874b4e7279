package services

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"dns-price-bot/models"
	"dns-price-bot/utils"
)

// Notifier delivers messages to one subscriber over the messaging channel
type Notifier interface {
	NotifyItem(ctx context.Context, subscriberID int64, n models.Notification) error
	NotifySummary(ctx context.Context, subscriberID int64, s models.Summary) error
}

// DispatchOptions tunes a single dispatch.
type DispatchOptions struct {
	// Summary sends each subscriber who received at least one item a closing count message.
	Summary bool
	// At stamps every notification. Zero means time.Now().
	At time.Time
}

// Dispatcher fans a change-set out to subscribers. Every send is best effort.
type Dispatcher struct {
	notifier       Notifier
	sendDelayMs    int
	maxConcurrency int
	logger         *utils.Logger
}

func NewDispatcher(notifier Notifier, sendDelayMs, maxConcurrency int, logger *utils.Logger) *Dispatcher {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &Dispatcher{
		notifier:       notifier,
		sendDelayMs:    sendDelayMs,
		maxConcurrency: maxConcurrency,
		logger:         logger,
	}
}

// Dispatch sends one message per added and removed item to every subscriber.
// A failed send is recorded in the report and never stops the others.
func (d *Dispatcher) Dispatch(ctx context.Context, changes *models.ChangeSet, subscribers []int64, opts DispatchOptions) *models.DeliveryReport {
	report := &models.DeliveryReport{}
	at := opts.At
	if at.IsZero() {
		at = time.Now()
	}
	notes := changes.Notifications(at)
	if len(notes) == 0 {
		return report
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(d.maxConcurrency)

	for _, id := range subscribers {
		id := id
		g.Go(func() error {
			results := d.deliver(ctx, id, notes, opts.Summary)
			mu.Lock()
			report.Results = append(report.Results, results...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	d.logger.Info("Delivered %d messages to %d subscribers, %d failed",
		report.Sent(), len(subscribers), len(report.Failed()))
	return report
}

func (d *Dispatcher) deliver(ctx context.Context, id int64, notes []models.Notification, summary bool) []models.DeliveryResult {
	limiter := utils.NewRateLimiter(d.sendDelayMs)
	results := make([]models.DeliveryResult, 0, len(notes))
	var sent models.Summary

	for _, n := range notes {
		res := models.DeliveryResult{SubscriberID: id, Kind: n.Kind, Title: n.Title}
		if err := limiter.Wait(ctx); err != nil {
			res.Err = &models.DeliveryError{SubscriberID: id, Title: n.Title, Err: err}
			results = append(results, res)
			continue
		}
		if err := d.notifier.NotifyItem(ctx, id, n); err != nil {
			d.logger.Error("Error sending %s item '%s' to %d: %v", n.Kind, n.Title, id, err)
			res.Err = &models.DeliveryError{SubscriberID: id, Title: n.Title, Err: err}
		} else if n.Kind == models.KindAdded {
			sent.Added++
		} else {
			sent.Removed++
		}
		results = append(results, res)
	}

	if summary && (sent.Added > 0 || sent.Removed > 0) {
		if err := limiter.Wait(ctx); err == nil {
			if err := d.notifier.NotifySummary(ctx, id, sent); err != nil {
				d.logger.Error("Error sending summary to %d: %v", id, err)
			}
		}
	}
	return results
}
