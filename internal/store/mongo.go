package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"panelbot/internal/config"
	"panelbot/internal/domain"
)

// aggregateID is the _id of the single document holding every collection.
const aggregateID = "aggregate"

// mongoClient captures the subset of mongo.Client behavior we rely on to allow
// lightweight stubbing in tests without a live Mongo deployment.
type mongoClient interface {
	Ping(context.Context, *readpref.ReadPref) error
	Database(string, ...*options.DatabaseOptions) *mongo.Database
	Disconnect(context.Context) error
}

type aggregateCollection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
}

// connectMongo is overridable for tests.
var connectMongo = func(ctx context.Context, opts *options.ClientOptions) (mongoClient, error) {
	return mongo.Connect(ctx, opts)
}

type mongoAggregate struct {
	ID              string `bson:"_id"`
	domain.Document `bson:",inline"`
}

// MongoBackend keeps the aggregate document as a single MongoDB document.
type MongoBackend struct {
	client     mongoClient
	collection aggregateCollection
}

// NewMongoBackend connects to MongoDB using the supplied configuration and
// verifies connectivity with a ping.
func NewMongoBackend(ctx context.Context, cfg config.Config) (*MongoBackend, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	client, err := connectMongo(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &MongoBackend{
		client:     client,
		collection: client.Database(cfg.MongoDB).Collection(cfg.MongoCollection),
	}, nil
}

// Read fetches the aggregate document. A missing document reports found=false.
func (b *MongoBackend) Read(ctx context.Context) (domain.Document, bool, error) {
	if ctx == nil {
		return domain.Document{}, false, errors.New("context is required")
	}
	if b == nil || b.collection == nil {
		return domain.Document{}, false, errors.New("mongo backend is not initialized")
	}

	result := b.collection.FindOne(ctx, bson.M{"_id": aggregateID})
	if result == nil {
		return domain.Document{}, false, errors.New("find document returned no result")
	}
	if err := result.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Document{}, false, nil
		}
		return domain.Document{}, false, fmt.Errorf("find document: %w", err)
	}

	var agg mongoAggregate
	if err := result.Decode(&agg); err != nil {
		return domain.Document{}, false, fmt.Errorf("decode document: %w", err)
	}

	return agg.Document, true, nil
}

// Write replaces the aggregate document, inserting it when absent.
func (b *MongoBackend) Write(ctx context.Context, doc domain.Document) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if b == nil || b.collection == nil {
		return errors.New("mongo backend is not initialized")
	}

	_, err := b.collection.ReplaceOne(ctx,
		bson.M{"_id": aggregateID},
		mongoAggregate{ID: aggregateID, Document: doc},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("replace document: %w", err)
	}

	return nil
}

// Ping checks connectivity with the primary.
func (b *MongoBackend) Ping(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if b == nil || b.client == nil {
		return errors.New("mongo backend is not initialized")
	}

	if err := b.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}

	return nil
}

// Close disconnects the Mongo client.
func (b *MongoBackend) Close(ctx context.Context) error {
	if b == nil || b.client == nil {
		return nil
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	return b.client.Disconnect(ctx)
}
