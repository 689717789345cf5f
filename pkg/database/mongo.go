package database

import (
	"context"
	"fmt"
	"time"

	"chat_platform/pkg/logger"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// NewMongoDB create a new MongoDB connection
func NewMongoDB(ctx context.Context, c Connection, dbName string) (*MongoDB, error) {
	clientOpts := options.Client().ApplyURI(c.ConnectStr)

	var client *mongo.Client
	var err error

	for i := 0; i <= c.RetryCount; i++ {
		client, err = mongo.Connect(ctx, clientOpts)
		if err == nil {
			if err = client.Ping(ctx, readpref.Primary()); err == nil {
				return &MongoDB{
					Client:   client,
					Database: client.Database(dbName),
				}, nil
			}
			_ = client.Disconnect(ctx)
		}

		logger.Log.Warn("Failed to connect to mongoDB, retrying...", zap.Int("attempt", i+1), zap.Error(err))
		if i < c.RetryCount {
			time.Sleep(c.RetryInterval * time.Second)
		}
	}

	return nil, fmt.Errorf("failed to connect to MongoDB after retries: %w", err)
}

// MongoURI build the connection string, credentials are omitted when user is empty
func MongoURI(host string, port int, user, password string) string {
	if user == "" {
		return fmt.Sprintf("mongodb://%s:%d", host, port)
	}
	return fmt.Sprintf("mongodb://%s:%s@%s:%d", user, password, host, port)
}

// EnsureIndexes create indexes on coll, existing identical indexes are a no-op
func EnsureIndexes(ctx context.Context, coll *mongo.Collection, models ...mongo.IndexModel) error {
	if len(models) == 0 {
		return nil
	}
	if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("create indexes on %s: %w", coll.Name(), err)
	}
	return nil
}

// Close disenable mongoDB connection
func (m *MongoDB) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
