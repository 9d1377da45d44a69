// Package mongodb connects to MongoDB with the official driver and exposes
// the connection as a storage.Client and as a service.Database.
package mongodb

import (
	"context"
	"sync"
	"time"

	"github.com/kart-io/logger"
	"go.mongodb.org/mongo-driver/mongo"
	mongoopts "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kart-io/mongokit/pkg/component/storage"
	"github.com/kart-io/mongokit/pkg/service"
)

const closeTimeout = 10 * time.Second

// Client wraps mongo.Client and its default database.
type Client struct {
	client    *mongo.Client
	database  *mongo.Database
	opts      *Options
	closeOnce sync.Once
	closeErr  error
}

var _ storage.Client = (*Client)(nil)

// New connects with a background context.
func New(opts *Options) (*Client, error) {
	return NewWithContext(context.Background(), opts)
}

// NewWithContext validates opts, connects and pings the server. ctx bounds
// the connect and the initial ping.
func NewWithContext(ctx context.Context, opts *Options) (*Client, error) {
	if opts == nil {
		return nil, storage.ErrInvalidConfig.WithMessage("mongodb options cannot be nil")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	client, err := mongo.Connect(ctx, clientOptions(opts))
	if err != nil {
		return nil, storage.ErrConnectionFailed.WithCause(err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, storage.ErrConnectionFailed.WithMessage("failed to ping mongodb").WithCause(err)
	}

	logger.Infow("mongodb connected", "uri", RedactURI(BuildURI(opts)), "database", opts.Database)

	return &Client{
		client:   client,
		database: client.Database(opts.Database),
		opts:     opts,
	}, nil
}

func clientOptions(opts *Options) *mongoopts.ClientOptions {
	co := mongoopts.Client().ApplyURI(BuildURI(opts))
	if opts.MaxPoolSize > 0 {
		co.SetMaxPoolSize(opts.MaxPoolSize)
	}
	if opts.MinPoolSize > 0 {
		co.SetMinPoolSize(opts.MinPoolSize)
	}
	if opts.MaxConnIdleTime > 0 {
		co.SetMaxConnIdleTime(opts.MaxConnIdleTime)
	}
	if opts.ConnectTimeout > 0 {
		co.SetConnectTimeout(opts.ConnectTimeout)
	}
	if opts.SocketTimeout > 0 {
		co.SetSocketTimeout(opts.SocketTimeout)
	}
	if opts.ServerSelectionTimeout > 0 {
		co.SetServerSelectionTimeout(opts.ServerSelectionTimeout)
	}
	if opts.Direct {
		co.SetDirect(true)
	}
	return co
}

// Name implements storage.Client.
func (c *Client) Name() string {
	return "mongodb"
}

// Ping implements storage.Client.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return storage.ErrNotConnected
	}
	return c.client.Ping(ctx, nil)
}

// Close disconnects. Later calls return the first result.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		c.closeErr = c.client.Disconnect(ctx)
	})
	return c.closeErr
}

// Health implements storage.Client.
func (c *Client) Health() storage.HealthChecker {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return c.Ping(ctx)
	}
}

// Database returns the configured database.
func (c *Client) Database() *mongo.Database {
	return c.database
}

// ServiceDatabase returns the configured database as seen by service.Service.
func (c *Client) ServiceDatabase() service.Database {
	return service.NewMongoDatabase(c.database)
}

// Raw returns the driver client.
func (c *Client) Raw() *mongo.Client {
	return c.client
}

// Factory creates clients from Options.
type Factory struct {
	opts *Options
}

var _ storage.Factory = (*Factory)(nil)

// NewFactory returns a factory for opts.
func NewFactory(opts *Options) *Factory {
	return &Factory{opts: opts}
}

// Create implements storage.Factory.
func (f *Factory) Create(ctx context.Context) (storage.Client, error) {
	c, err := NewWithContext(ctx, f.opts)
	if err != nil {
		return nil, err
	}
	return c, nil
}
