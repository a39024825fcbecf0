package persistence

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/khoahotran/devconnect/internal/config"
	"github.com/khoahotran/devconnect/pkg/logger"
)

const profilesCollection = "profiles"

func NewMongoClient(ctx context.Context, cfg config.Config, log logger.Logger) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Mongo.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.Mongo.URI).
		SetTimeout(cfg.Mongo.Timeout))
	if err != nil {
		return nil, fmt.Errorf("can not connect MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping MongoDB failed: %w", err)
	}

	log.Info("Connect MongoDB successfully.")
	return client, nil
}

// EnsureProfileIndexes creates the indexes that enforce one profile per
// owner and one profile per handle. Documents without a handle are not
// indexed on it, so any number of them may coexist.
func EnsureProfileIndexes(ctx context.Context, db *mongo.Database) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner", Value: 1}},
			Options: options.Index().SetName(ownerIndexName).SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "handle", Value: 1}},
			Options: options.Index().
				SetName(handleIndexName).
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "handle", Value: bson.D{{Key: "$type", Value: "string"}}}}),
		},
	}
	if _, err := db.Collection(profilesCollection).Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("create profile indexes: %w", err)
	}
	return nil
}
