package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/db"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

var _ storage.Backend = (*Backend)(nil)

// Backend keeps each collection as one document in the kv collection. Updates
// run in a multi-document transaction, so the deployment must be a replica set.
type Backend struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type kvDoc struct {
	Key       string    `bson:"_id"`
	Doc       []byte    `bson:"doc"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func NewBackend(m *db.Mongo) *Backend {
	return &Backend{client: m.Client, coll: m.Collection("kv")}
}

func (b *Backend) Load(ctx context.Context, key string) ([]byte, error) {
	return b.load(ctx, key)
}

func (b *Backend) load(ctx context.Context, key string) ([]byte, error) {
	var doc kvDoc
	err := b.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.Doc, nil
}

func (b *Backend) Update(ctx context.Context, keys []string, fn storage.MutateFunc) error {
	sess, err := b.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	txOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	// WithTransaction retries the callback on transient write conflicts.
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		docs := make(map[string][]byte, len(keys))
		for _, key := range keys {
			raw, err := b.load(sc, key)
			if err != nil {
				return nil, err
			}
			docs[key] = raw
		}

		changed, err := fn(docs)
		if err != nil {
			return nil, err
		}

		now := time.Now().UTC()
		for key, raw := range changed {
			_, err := b.coll.UpdateOne(sc,
				bson.M{"_id": key},
				bson.M{"$set": bson.M{"doc": raw, "updatedAt": now}},
				options.Update().SetUpsert(true),
			)
			if err != nil {
				return nil, err
			}
		}
		return nil, nil
	}, txOpts)
	return err
}
