package attributes

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"entityquery/internal/constants"
	"entityquery/pkg/metrics"
	"entityquery/pkg/query"
)

// AttributesCollection holds one document per owner attribute.
const AttributesCollection = "attributes"

type attributeDocument struct {
	EntityType   string `bson:"entity_type"`
	EntityID     string `bson:"entity_id"`
	Key          string `bson:"key"`
	Value        any    `bson:"value"`
	LastUpdateTs int64  `bson:"last_update_ts"`
}

type MongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{collection: db.Collection(AttributesCollection)}
}

func (s *MongoStore) GetAttributes(ctx context.Context, owner query.EntityID, keys []string) (map[string]any, error) {
	start := time.Now()
	result, err := s.getAttributes(ctx, owner, keys)

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.IncDatabaseQuery(constants.ServiceName, "mongodb", "get_attributes", status)
	metrics.ObserveDatabaseQueryDuration(constants.ServiceName, "mongodb", "get_attributes", time.Since(start))
	return result, err
}

func (s *MongoStore) getAttributes(ctx context.Context, owner query.EntityID, keys []string) (map[string]any, error) {
	filter := bson.M{
		"entity_type": owner.EntityType,
		"entity_id":   owner.ID,
		"key":         bson.M{"$in": keys},
	}
	projection := options.Find().SetProjection(bson.M{"key": 1, "value": 1})

	cursor, err := s.collection.Find(ctx, filter, projection)
	if err != nil {
		return nil, fmt.Errorf("find attributes of %s: %w", owner, err)
	}
	defer cursor.Close(ctx)

	result := make(map[string]any, len(keys))
	for cursor.Next(ctx) {
		var doc attributeDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode attribute of %s: %w", owner, err)
		}
		result[doc.Key] = doc.Value
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate attributes of %s: %w", owner, err)
	}
	return result, nil
}

func (s *MongoStore) PutAttribute(ctx context.Context, owner query.EntityID, key string, value any) error {
	filter := bson.M{"entity_type": owner.EntityType, "entity_id": owner.ID, "key": key}
	update := bson.M{"$set": attributeDocument{
		EntityType:   owner.EntityType,
		EntityID:     owner.ID,
		Key:          key,
		Value:        value,
		LastUpdateTs: time.Now().UnixMilli(),
	}}

	if _, err := s.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("upsert attribute %s of %s: %w", key, owner, err)
	}
	return nil
}
