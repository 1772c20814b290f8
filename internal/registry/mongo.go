package registry

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"dualbase/internal/config"
)

// MongoHandle wraps the document-store client.
type MongoHandle struct {
	client   *mongo.Client
	database string
}

func openMongo(ctx context.Context, cfg config.MongoConfig) (Handle, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("open mongo: %w", err)
	}
	return &MongoHandle{client: client, database: cfg.Database}, nil
}

// Client exposes the raw client, needed for transactions.
func (h *MongoHandle) Client() *mongo.Client { return h.client }

// Database returns the configured application database.
func (h *MongoHandle) Database() *mongo.Database {
	return h.client.Database(h.database)
}

func (h *MongoHandle) Ping(ctx context.Context) error {
	return h.client.Ping(ctx, readpref.Primary())
}

func (h *MongoHandle) Close(ctx context.Context) error {
	return h.client.Disconnect(ctx)
}
