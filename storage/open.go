package storage

import (
	"context"
	"fmt"

	"dns-price-bot/utils"
)

// Options selects and configures a backend.
type Options struct {
	Backend       string // "file", "postgres" or "mongo"
	DataDir       string
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string
}

// Open returns the backend named by opts.Backend.
func Open(ctx context.Context, opts Options, logger *utils.Logger) (Store, error) {
	switch opts.Backend {
	case "", "file":
		return NewJSONStore(opts.DataDir, logger)
	case "postgres":
		return NewPostgresStore(ctx, opts.DatabaseURL, logger)
	case "mongo":
		return NewMongoStore(ctx, opts.MongoURI, opts.MongoDatabase, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
