package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"

	"dns-price-bot/models"
	"dns-price-bot/utils"
)

const (
	itemsFile       = "items.json"
	quietHoursFile  = "quiet_hours.json"
	subscribersFile = "subscribers.json"
)

type itemsDocument struct {
	Items map[string]*models.TrackedItem `json:"items"`
}

// JSONStore keeps every document as a JSON file in one directory.
// Files are replaced atomically, so a reader never sees a half-written document.
type JSONStore struct {
	dir    string
	mu     sync.RWMutex
	logger *utils.Logger
}

// NewJSONStore creates the data directory if needed.
func NewJSONStore(dir string, logger *utils.Logger) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	logger.Info("Using JSON file storage in %s", dir)
	return &JSONStore{dir: dir, logger: logger}, nil
}

// read decodes name into v. A missing file leaves v untouched and reports false.
func (s *JSONStore) read(name string, v interface{}) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, &models.PersistenceError{Op: "read " + name, Err: err}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, &models.PersistenceError{Op: "decode " + name, Err: err}
	}
	return true, nil
}

func (s *JSONStore) write(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &models.PersistenceError{Op: "encode " + name, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := renameio.WriteFile(filepath.Join(s.dir, name), data, 0644); err != nil {
		return &models.PersistenceError{Op: "write " + name, Err: err}
	}
	s.logger.Debug("Saved %s (%d bytes)", name, len(data))
	return nil
}

func (s *JSONStore) LoadItems(ctx context.Context) (map[string]*models.TrackedItem, error) {
	var doc itemsDocument
	if _, err := s.read(itemsFile, &doc); err != nil {
		return nil, err
	}
	if doc.Items == nil {
		doc.Items = make(map[string]*models.TrackedItem)
	}
	// older files may lack the embedded identity
	for id, item := range doc.Items {
		if item.Identity == "" {
			item.Identity = id
		}
	}
	return doc.Items, nil
}

func (s *JSONStore) SaveItems(ctx context.Context, items map[string]*models.TrackedItem) error {
	if items == nil {
		items = make(map[string]*models.TrackedItem)
	}
	return s.write(itemsFile, itemsDocument{Items: items})
}

func (s *JSONStore) LoadQuietHours(ctx context.Context) (*models.QuietHoursState, error) {
	state := &models.QuietHoursState{}
	if _, err := s.read(quietHoursFile, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (s *JSONStore) SaveQuietHours(ctx context.Context, state *models.QuietHoursState) error {
	return s.write(quietHoursFile, state)
}

func (s *JSONStore) LoadSubscribers(ctx context.Context) (*models.SubscriberSet, error) {
	set := &models.SubscriberSet{}
	if _, err := s.read(subscribersFile, set); err != nil {
		return nil, err
	}
	if set.Users == nil {
		set.Users = []int64{}
	}
	return set, nil
}

func (s *JSONStore) SaveSubscribers(ctx context.Context, set *models.SubscriberSet) error {
	return s.write(subscribersFile, set)
}

func (s *JSONStore) Close() error { return nil }
