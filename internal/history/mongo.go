package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoStore keeps history in a MongoDB collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

var _ Store = (*MongoStore)(nil)

// NewMongoStore connects to uri and ensures the executed_at index exists.
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	if uri == "" {
		return nil, fmt.Errorf("history.uri is required for the mongodb backend")
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging MongoDB: %w", err)
	}

	coll := client.Database(database).Collection(collection)
	model := mongo.IndexModel{
		Keys:    bson.D{{Key: "connection_id", Value: 1}, {Key: "executed_at", Value: -1}},
		Options: options.Index().SetName("connection_executed_at"),
	}
	if _, err := coll.Indexes().CreateOne(ctx, model); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("creating history index: %w", err)
	}

	return &MongoStore{client: client, collection: coll}, nil
}

func (s *MongoStore) Record(ctx context.Context, e Entry) error {
	e = prepare(e)
	doc := bson.D{
		{Key: "_id", Value: e.ID.String()},
		{Key: "connection_id", Value: e.ConnectionID},
		{Key: "schema", Value: e.Schema},
		{Key: "sql", Value: e.SQL},
		{Key: "status", Value: e.Status},
		{Key: "confirmed", Value: e.Confirmed},
		{Key: "dangerous_type", Value: e.DangerousType},
		{Key: "error", Value: e.Error},
		{Key: "executed_at", Value: e.ExecutedAt},
		{Key: "duration_ms", Value: e.DurationMs},
	}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("recording history entry: %w", err)
	}
	return nil
}

func (s *MongoStore) List(ctx context.Context, connectionID string, limit int) ([]Entry, error) {
	filter := bson.D{}
	if connectionID != "" {
		filter = bson.D{{Key: "connection_id", Value: connectionID}}
	}
	opts := options.Find().SetSort(bson.D{{Key: "executed_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []Entry
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding history entry: %w", err)
		}
		entries = append(entries, entryFromDoc(doc))
	}
	return entries, cursor.Err()
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// entryFromDoc converts a stored document back into an Entry. Unknown or
// mistyped fields are left at their zero value.
func entryFromDoc(doc bson.M) Entry {
	var e Entry
	if id, ok := doc["_id"].(string); ok {
		if parsed, err := uuid.Parse(id); err == nil {
			e.ID = parsed
		}
	}
	e.ConnectionID, _ = doc["connection_id"].(string)
	e.Schema, _ = doc["schema"].(string)
	e.SQL, _ = doc["sql"].(string)
	e.Status, _ = doc["status"].(string)
	e.Confirmed, _ = doc["confirmed"].(bool)
	e.DangerousType, _ = doc["dangerous_type"].(string)
	e.Error, _ = doc["error"].(string)

	switch v := doc["executed_at"].(type) {
	case bson.DateTime:
		e.ExecutedAt = v.Time().UTC()
	case time.Time:
		e.ExecutedAt = v.UTC()
	}
	switch v := doc["duration_ms"].(type) {
	case int64:
		e.DurationMs = v
	case int32:
		e.DurationMs = int64(v)
	}
	return e
}
