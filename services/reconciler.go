package services

import (
	"context"
	"errors"
	"sort"

	"github.com/jonboulle/clockwork"

	"dns-price-bot/models"
	"dns-price-bot/storage"
	"dns-price-bot/utils"
)

// Reconciler is the only mutator of the known-items store. It diffs a complete snapshot
// against the store and persists the result as one document.
type Reconciler struct {
	store  storage.ItemStore
	clock  clockwork.Clock
	logger *utils.Logger
}

func NewReconciler(store storage.ItemStore, clock clockwork.Clock, logger *utils.Logger) *Reconciler {
	return &Reconciler{store: store, clock: clock, logger: logger}
}

// Reconcile must only receive a snapshot that completed pagination; a truncated one would
// remove items that are still listed.
func (r *Reconciler) Reconcile(ctx context.Context, snapshot []*models.ListingItem) (*models.ChangeSet, error) {
	known, err := r.store.LoadItems(ctx)
	if err != nil {
		return nil, asPersistenceError("load items", err)
	}

	now := r.clock.Now()
	changes := &models.ChangeSet{}
	current := make(map[string]bool, len(snapshot))

	for _, item := range snapshot {
		id := item.Identity()
		if current[id] {
			continue
		}
		current[id] = true

		if rec, ok := known[id]; ok {
			rec.LastUpdated = now
			changes.Updated = append(changes.Updated, item)
			continue
		}
		known[id] = models.NewTrackedItem(item, now)
		changes.Added = append(changes.Added, item)
	}

	for id, rec := range known {
		if !current[id] {
			changes.Removed = append(changes.Removed, rec)
			delete(known, id)
		}
	}
	sort.Slice(changes.Removed, func(i, j int) bool {
		return changes.Removed[i].Identity < changes.Removed[j].Identity
	})

	if err := r.store.SaveItems(ctx, known); err != nil {
		return nil, asPersistenceError("save items", err)
	}

	r.logger.Info("Reconciled %d items: %d added, %d refreshed, %d removed, %d tracked",
		len(snapshot), len(changes.Added), len(changes.Updated), len(changes.Removed), len(known))
	return changes, nil
}

func asPersistenceError(op string, err error) error {
	var perr *models.PersistenceError
	if errors.As(err, &perr) {
		return err
	}
	return &models.PersistenceError{Op: op, Err: err}
}
