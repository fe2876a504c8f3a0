package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mmerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/outline"
)

// MongoCollection is the subset of *mongo.Collection the store uses.
type MongoCollection interface {
	ReplaceOne(ctx context.Context, filter, replacement any, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
	FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) *mongo.SingleResult
	Find(ctx context.Context, filter any, opts ...*options.FindOptions) (*mongo.Cursor, error)
	DeleteOne(ctx context.Context, filter any, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
}

// MongoConfig configures [NewMongoStore].
type MongoConfig struct {
	// URI is the connection string. Empty means mongodb://localhost:27017.
	URI string
	// Database defaults to "mindmap".
	Database string
	// Collection defaults to "diagrams".
	Collection string
}

// MongoStore keeps one document per diagram, keyed by ID.
type MongoStore struct {
	client *mongo.Client
	coll   MongoCollection
}

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.URI == "" {
		cfg.URI = "mongodb://localhost:27017"
	}
	if cfg.Database == "" {
		cfg.Database = "mindmap"
	}
	if cfg.Collection == "" {
		cfg.Collection = "diagrams"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, mmerrors.Wrap(mmerrors.ErrCodeNetwork, err, "connect to mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, mmerrors.Wrap(mmerrors.ErrCodeNetwork, err, "ping mongo")
	}
	s := NewMongoStoreWithCollection(client.Database(cfg.Database).Collection(cfg.Collection))
	s.client = client
	return s, nil
}

// NewMongoStoreWithCollection wraps an existing collection. Close does not
// disconnect its client.
func NewMongoStoreWithCollection(coll MongoCollection) *MongoStore {
	return &MongoStore{coll: coll}
}

func (s *MongoStore) Save(ctx context.Context, id string, doc outline.Document) error {
	if err := mmerrors.ValidateID(id); err != nil {
		return err
	}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": id}, newRecord(id, doc), options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo replace: %w", err)
	}
	return nil
}

func (s *MongoStore) Load(ctx context.Context, id string) (outline.Document, error) {
	if err := mmerrors.ValidateID(id); err != nil {
		return outline.Document{}, err
	}
	var rec record
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return outline.Document{}, notFound(id)
	}
	if err != nil {
		return outline.Document{}, fmt.Errorf("mongo find: %w", err)
	}
	return rec.Document, nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("mongo delete: %w", err)
	}
	return nil
}

func (s *MongoStore) List(ctx context.Context) ([]Entry, error) {
	opts := options.Find().
		SetProjection(bson.M{"document": 0}).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find: %w", err)
	}
	var recs []record
	if err := cur.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("mongo decode: %w", err)
	}
	out := make([]Entry, len(recs))
	for i, r := range recs {
		out[i] = r.entry()
	}
	return out, nil
}

func (s *MongoStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(context.Background())
}

var _ Store = (*MongoStore)(nil)
