package store

import (
	"context"
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps each collection snapshot as a single document in a
// "snapshots" collection, replaced wholesale on every save. The snapshot is
// stored as an opaque JSON payload so collections whose top-level value is a
// bare array fit the document model unchanged.
type MongoStore struct {
	col *mongo.Collection
}

type snapshotDoc struct {
	ID      string `bson:"_id"`
	Payload []byte `bson:"payload"`
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection("snapshots")}
}

func (s *MongoStore) Load(ctx context.Context, collection string, out interface{}) error {
	var doc snapshotDoc
	err := s.col.FindOne(ctx, bson.M{"_id": collection}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil
	}
	if err != nil {
		return fmt.Errorf("mongo find %s: %w", collection, err)
	}
	if len(doc.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(doc.Payload, out); err != nil {
		return fmt.Errorf("decode %s: %w", collection, err)
	}
	return nil
}

func (s *MongoStore) Save(ctx context.Context, collection string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", collection, err)
	}

	doc := snapshotDoc{ID: collection, Payload: payload}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.col.ReplaceOne(ctx, bson.M{"_id": collection}, doc, opts); err != nil {
		return fmt.Errorf("mongo replace %s: %w", collection, err)
	}
	return nil
}
