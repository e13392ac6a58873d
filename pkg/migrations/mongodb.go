package migrations

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"entityquery/internal/attributes"
)

func attributeIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "entity_type", Value: 1},
				{Key: "entity_id", Value: 1},
				{Key: "key", Value: 1},
			},
			Options: options.Index().SetName("uq_attributes_owner_key").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "last_update_ts", Value: -1}},
			Options: options.Index().SetName("idx_attributes_last_update_ts"),
		},
	}
}

// EnsureMongoIndexes creates the attribute collection indexes. Creating an
// index that already exists with the same spec is a no-op in MongoDB.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	collection := db.Collection(attributes.AttributesCollection)
	if _, err := collection.Indexes().CreateMany(ctx, attributeIndexes()); err != nil {
		return fmt.Errorf("failed to create indexes on %s: %w", attributes.AttributesCollection, err)
	}
	return nil
}
