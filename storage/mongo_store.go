package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"dns-price-bot/models"
	"dns-price-bot/utils"
)

const (
	stateCollection = "state"

	docItems       = "items"
	docQuietHours  = "quiet_hours"
	docSubscribers = "subscribers"
)

// Identities contain dots, so items are kept as an array rather than a map keyed by identity.
type mongoItem struct {
	Identity     string    `bson:"identity"`
	Title        string    `bson:"title"`
	Price        string    `bson:"price"`
	PriceDisplay string    `bson:"price_display"`
	ImageRef     string    `bson:"image_ref"`
	FirstSeen    time.Time `bson:"first_seen"`
	LastUpdated  time.Time `bson:"last_updated"`
}

type mongoItemsDoc struct {
	ID    string      `bson:"_id"`
	Items []mongoItem `bson:"items"`
}

type mongoQuietDoc struct {
	ID            string     `bson:"_id"`
	Enabled       bool       `bson:"enabled"`
	LastToggledBy int64      `bson:"last_toggled_by,omitempty"`
	LastToggledAt *time.Time `bson:"last_toggled_at,omitempty"`
}

type mongoSubscribersDoc struct {
	ID    string  `bson:"_id"`
	Users []int64 `bson:"users"`
}

// MongoStore keeps one document per logical store in a single collection.
// ReplaceOne swaps a whole document, matching the load-all/save-all contract.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	logger *utils.Logger
}

func NewMongoStore(ctx context.Context, uri, database string, logger *utils.Logger) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	logger.Info("Connected to MongoDB database %s", database)
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(stateCollection),
		logger: logger,
	}, nil
}

// findDoc reports false when the document does not exist yet.
func (s *MongoStore) findDoc(ctx context.Context, id string, v interface{}) (bool, error) {
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, &models.PersistenceError{Op: "load " + id, Err: err}
	}
	return true, nil
}

func (s *MongoStore) replaceDoc(ctx context.Context, id string, doc interface{}) error {
	_, err := s.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: id}}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return &models.PersistenceError{Op: "save " + id, Err: err}
	}
	return nil
}

func (s *MongoStore) LoadItems(ctx context.Context) (map[string]*models.TrackedItem, error) {
	var doc mongoItemsDoc
	if _, err := s.findDoc(ctx, docItems, &doc); err != nil {
		return nil, err
	}
	items := make(map[string]*models.TrackedItem, len(doc.Items))
	for _, mi := range doc.Items {
		price, err := decimal.NewFromString(mi.Price)
		if err != nil {
			return nil, &models.PersistenceError{Op: "decode price of " + mi.Identity, Err: err}
		}
		items[mi.Identity] = &models.TrackedItem{
			Identity:     mi.Identity,
			Title:        mi.Title,
			Price:        price,
			PriceDisplay: mi.PriceDisplay,
			ImageRef:     mi.ImageRef,
			FirstSeen:    mi.FirstSeen,
			LastUpdated:  mi.LastUpdated,
		}
	}
	return items, nil
}

func (s *MongoStore) SaveItems(ctx context.Context, items map[string]*models.TrackedItem) error {
	doc := mongoItemsDoc{ID: docItems, Items: make([]mongoItem, 0, len(items))}
	for id, it := range items {
		doc.Items = append(doc.Items, mongoItem{
			Identity:     id,
			Title:        it.Title,
			Price:        it.Price.String(),
			PriceDisplay: it.PriceDisplay,
			ImageRef:     it.ImageRef,
			FirstSeen:    it.FirstSeen,
			LastUpdated:  it.LastUpdated,
		})
	}
	return s.replaceDoc(ctx, docItems, doc)
}

func (s *MongoStore) LoadQuietHours(ctx context.Context) (*models.QuietHoursState, error) {
	var doc mongoQuietDoc
	if _, err := s.findDoc(ctx, docQuietHours, &doc); err != nil {
		return nil, err
	}
	return &models.QuietHoursState{
		Enabled:       doc.Enabled,
		LastToggledBy: doc.LastToggledBy,
		LastToggledAt: doc.LastToggledAt,
	}, nil
}

func (s *MongoStore) SaveQuietHours(ctx context.Context, state *models.QuietHoursState) error {
	return s.replaceDoc(ctx, docQuietHours, mongoQuietDoc{
		ID:            docQuietHours,
		Enabled:       state.Enabled,
		LastToggledBy: state.LastToggledBy,
		LastToggledAt: state.LastToggledAt,
	})
}

func (s *MongoStore) LoadSubscribers(ctx context.Context) (*models.SubscriberSet, error) {
	var doc mongoSubscribersDoc
	if _, err := s.findDoc(ctx, docSubscribers, &doc); err != nil {
		return nil, err
	}
	if doc.Users == nil {
		doc.Users = []int64{}
	}
	return &models.SubscriberSet{Users: doc.Users}, nil
}

func (s *MongoStore) SaveSubscribers(ctx context.Context, set *models.SubscriberSet) error {
	return s.replaceDoc(ctx, docSubscribers, mongoSubscribersDoc{ID: docSubscribers, Users: set.Users})
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
