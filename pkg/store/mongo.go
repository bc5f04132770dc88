package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/memlens/memlens/pkg/graph"
	"github.com/memlens/memlens/pkg/observability"
)

// Default Mongo collection layout.
const (
	DefaultDatabase   = "memlens"
	DefaultCollection = "snapshots"
)

// MongoConfig configures the Mongo-backed snapshot store.
type MongoConfig struct {
	URI        string // e.g. "mongodb://localhost:27017"
	Database   string // defaults to DefaultDatabase
	Collection string // defaults to DefaultCollection
}

// MongoStore persists snapshots in a Mongo collection, one document per
// snapshot keyed by the snapshot ID.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to Mongo and verifies the connection with a ping.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo %s: %w", cfg.URI, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo %s: %w", cfg.URI, err)
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// Get returns the snapshot with the given ID, or ErrNotFound.
func (s *MongoStore) Get(ctx context.Context, id string) (*graph.Snapshot, error) {
	start := time.Now()
	var snap graph.Snapshot
	err := s.coll.FindOne(ctx, bson.M{"id": id}).Decode(&snap)
	if errors.Is(err, mongo.ErrNoDocuments) {
		observability.Store().OnGet(ctx, id, false, time.Since(start))
		return nil, ErrNotFound
	}
	if err != nil {
		observability.Store().OnError(ctx, "get", id, err)
		return nil, fmt.Errorf("find snapshot %s: %w", id, err)
	}
	observability.Store().OnGet(ctx, id, true, time.Since(start))
	return &snap, nil
}

// Put stores a snapshot, assigning a UUID when it has no ID.
func (s *MongoStore) Put(ctx context.Context, snap *graph.Snapshot) (string, error) {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	start := time.Now()
	_, err := s.coll.ReplaceOne(ctx,
		bson.M{"id": snap.ID},
		snap,
		options.Replace().SetUpsert(true))
	if err != nil {
		observability.Store().OnError(ctx, "put", snap.ID, err)
		return "", fmt.Errorf("store snapshot %s: %w", snap.ID, err)
	}
	observability.Store().OnPut(ctx, snap.ID, len(snap.Nodes), time.Since(start))
	return snap.ID, nil
}

// List returns all stored snapshot IDs.
func (s *MongoStore) List(ctx context.Context) ([]string, error) {
	cursor, err := s.coll.Find(ctx, bson.M{},
		options.Find().SetProjection(bson.M{"id": 1}))
	if err != nil {
		observability.Store().OnError(ctx, "list", "", err)
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer cursor.Close(ctx)

	var ids []string
	for cursor.Next(ctx) {
		var doc struct {
			ID string `bson:"id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode snapshot id: %w", err)
		}
		ids = append(ids, doc.ID)
	}
	return ids, cursor.Err()
}

// Delete removes a snapshot. Deleting a missing ID is not an error.
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"id": id}); err != nil {
		observability.Store().OnError(ctx, "delete", id, err)
		return fmt.Errorf("delete snapshot %s: %w", id, err)
	}
	return nil
}

// Close disconnects from Mongo.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ensure MongoStore implements Store.
var _ Store = (*MongoStore)(nil)
