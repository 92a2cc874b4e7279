package services

import (
	"context"
	"sync"

	"dns-price-bot/storage"
	"dns-price-bot/utils"
)

// SubscriberRegistry is the durable set of users receiving notifications
type SubscriberRegistry struct {
	store  storage.SubscriberStore
	logger *utils.Logger
	mu     sync.Mutex
}

func NewSubscriberRegistry(store storage.SubscriberStore, logger *utils.Logger) *SubscriberRegistry {
	return &SubscriberRegistry{store: store, logger: logger}
}

// Add subscribes id. It returns false when id was already subscribed.
func (r *SubscriberRegistry) Add(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, err := r.store.LoadSubscribers(ctx)
	if err != nil {
		return false, err
	}
	if !set.Add(id) {
		return false, nil
	}
	if err := r.store.SaveSubscribers(ctx, set); err != nil {
		return false, err
	}
	r.logger.Info("User %d subscribed", id)
	return true, nil
}

func (r *SubscriberRegistry) IsSubscribed(ctx context.Context, id int64) (bool, error) {
	set, err := r.store.LoadSubscribers(ctx)
	if err != nil {
		return false, err
	}
	return set.Contains(id), nil
}

func (r *SubscriberRegistry) All(ctx context.Context) ([]int64, error) {
	set, err := r.store.LoadSubscribers(ctx)
	if err != nil {
		return nil, err
	}
	return set.Users, nil
}
