package storage

import (
	"context"

	"dns-price-bot/models"
)

// ItemStore persists the known-items document. Load and save are whole-document operations.
type ItemStore interface {
	LoadItems(ctx context.Context) (map[string]*models.TrackedItem, error)
	SaveItems(ctx context.Context, items map[string]*models.TrackedItem) error
}

// QuietHoursStore persists the quiet-hours singleton.
type QuietHoursStore interface {
	LoadQuietHours(ctx context.Context) (*models.QuietHoursState, error)
	SaveQuietHours(ctx context.Context, state *models.QuietHoursState) error
}

// SubscriberStore persists the subscriber set.
type SubscriberStore interface {
	LoadSubscribers(ctx context.Context) (*models.SubscriberSet, error)
	SaveSubscribers(ctx context.Context, set *models.SubscriberSet) error
}

// Store is a backend holding all durable state
type Store interface {
	ItemStore
	QuietHoursStore
	SubscriberStore
	Close() error
}

// SnapshotWriter exports the raw listing of one cycle
type SnapshotWriter interface {
	WriteSnapshot(items []*models.ListingItem) error
}
