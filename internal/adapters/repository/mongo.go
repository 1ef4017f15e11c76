package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const defaultMongoTimeout = 10 * time.Second

// MongoDB owns one client and the database the stores live in. It is
// constructed explicitly and handed to each store.
type MongoDB struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration
}

// NewMongoDB connects to uri and pings the primary. timeout bounds the
// connect and, later, every store operation; zero means ten seconds.
func NewMongoDB(ctx context.Context, uri, dbName string, timeout time.Duration) (*MongoDB, error) {
	if timeout <= 0 {
		timeout = defaultMongoTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)
	client, err := mongo.Connect(cctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(cctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &MongoDB{
		client:  client,
		db:      client.Database(dbName),
		timeout: timeout,
	}, nil
}

// Collection returns a handle on the named collection.
func (m *MongoDB) Collection(name string) *mongo.Collection {
	return m.db.Collection(name)
}

// Client returns the underlying client.
func (m *MongoDB) Client() *mongo.Client {
	return m.client
}

// Ping checks the primary is reachable.
func (m *MongoDB) Ping(ctx context.Context) error {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	return m.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (m *MongoDB) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *MongoDB) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.timeout)
}
