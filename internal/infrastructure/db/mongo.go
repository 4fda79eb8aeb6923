package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
	"go.uber.org/zap"
)

const mongoDialTimeout = 10 * time.Second

// ErrNoTransactions means the server is a standalone mongod.
var ErrNoTransactions = errors.New("mongodb deployment does not support transactions (replica set required)")

type Mongo struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// ConnectMongo dials uri with command tracing enabled and waits for the
// primary to answer before returning.
func ConnectMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	dialCtx, cancel := context.WithTimeout(ctx, mongoDialTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(uri).
		SetAppName(applicationName).
		SetRetryWrites(true).
		SetServerSelectionTimeout(mongoDialTimeout).
		SetMonitor(otelmongo.NewMonitor())

	client, err := mongo.Connect(dialCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	m := &Mongo{Client: client, Database: client.Database(database)}
	if err := m.Ping(dialCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logger.Info("MongoDB connected", zap.String("database", database))
	return m, nil
}

// Ping asks the primary for a round trip.
func (m *Mongo) Ping(ctx context.Context) error {
	if err := m.Client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongo ping: %w", err)
	}
	return nil
}

// RequireTransactions fails unless the server is a replica set member or a
// mongos router.
func (m *Mongo) RequireTransactions(ctx context.Context) error {
	var hello struct {
		SetName string `bson:"setName"`
		Msg     string `bson:"msg"`
	}
	cmd := bson.D{{Key: "hello", Value: 1}}
	if err := m.Client.Database("admin").RunCommand(ctx, cmd).Decode(&hello); err != nil {
		return fmt.Errorf("mongo hello: %w", err)
	}
	if hello.SetName == "" && hello.Msg != "isdbgrid" {
		return ErrNoTransactions
	}
	return nil
}

func (m *Mongo) Disconnect() error {
	if m == nil || m.Client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), mongoDialTimeout)
	defer cancel()
	return m.Client.Disconnect(ctx)
}

func (m *Mongo) Collection(name string) *mongo.Collection {
	return m.Database.Collection(name)
}
