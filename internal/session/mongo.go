package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoOptions are the connection parameters for the mongo backend.
type MongoOptions struct {
	URL        string
	Collection string
}

// mongoDocument is the stored shape: the session's JSON wire encoding plus
// the mirrored last-activity clock for server-side inspection.
type mongoDocument struct {
	ID           string `bson:"id"`
	Payload      string `bson:"payload"`
	LastActivity int64  `bson:"lastActivity"`
}

// MongoBackend persists sessions in a MongoDB collection, one document per
// session key.
type MongoBackend struct {
	opts       MongoOptions
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoBackend creates a mongo-backed session backend.
func NewMongoBackend(opts MongoOptions) *MongoBackend {
	if opts.URL == "" {
		opts.URL = "mongodb://localhost:27017"
	}
	if opts.Collection == "" {
		opts.Collection = "sessions"
	}
	return &MongoBackend{opts: opts}
}

// Init connects and pings the deployment.
func (b *MongoBackend) Init(ctx context.Context) error {
	if b.client != nil {
		return nil
	}
	client, err := mongo.Connect(options.Client().ApplyURI(b.opts.URL))
	if err != nil {
		return fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return fmt.Errorf("ping mongodb: %w", err)
	}
	b.client = client
	b.collection = client.Database("courier").Collection(b.opts.Collection)
	return nil
}

// Get returns the decoded document for key, or (nil, nil) when absent.
func (b *MongoBackend) Get(ctx context.Context, key string) (*Session, error) {
	var doc mongoDocument
	err := b.collection.FindOne(ctx, bson.M{"id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal([]byte(doc.Payload), &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

// Set upserts the full document.
func (b *MongoBackend) Set(ctx context.Context, key string, sess *Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	doc := mongoDocument{ID: key, Payload: string(raw), LastActivity: sess.LastActivity}
	_, err = b.collection.UpdateOne(ctx,
		bson.M{"id": key},
		bson.M{"$set": doc},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Delete removes the document; absent keys are fine.
func (b *MongoBackend) Delete(ctx context.Context, key string) error {
	if _, err := b.collection.DeleteOne(ctx, bson.M{"id": key}); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// List decodes every stored document.
func (b *MongoBackend) List(ctx context.Context) (map[string]*Session, error) {
	cursor, err := b.collection.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("find sessions: %w", err)
	}
	var docs []mongoDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}
	out := make(map[string]*Session, len(docs))
	for _, doc := range docs {
		var sess Session
		if err := json.Unmarshal([]byte(doc.Payload), &sess); err != nil {
			return nil, fmt.Errorf("decode session %s: %w", doc.ID, err)
		}
		out[doc.ID] = &sess
	}
	return out, nil
}

// Close disconnects from the deployment.
func (b *MongoBackend) Close() error {
	if b.client != nil {
		return b.client.Disconnect(context.Background())
	}
	return nil
}
