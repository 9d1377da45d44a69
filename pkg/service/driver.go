package service

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the part of *mongo.Collection a Service uses.
//
// Results are the driver's own types so that real and in-memory backends
// decode the same way.
type Collection interface {
	Name() string
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	UpdateMany(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (*mongo.Cursor, error)
	Indexes() IndexView
}

// IndexView is the part of mongo.IndexView a Service uses.
type IndexView interface {
	CreateOne(ctx context.Context, model mongo.IndexModel, opts ...*options.CreateIndexesOptions) (string, error)
	DropOne(ctx context.Context, name string, opts ...*options.DropIndexesOptions) (bson.Raw, error)
	DropAll(ctx context.Context, opts ...*options.DropIndexesOptions) (bson.Raw, error)
	List(ctx context.Context, opts ...*options.ListIndexesOptions) (*mongo.Cursor, error)
}

// Database hands out collections and sessions.
type Database interface {
	Collection(name string, opts ...*options.CollectionOptions) Collection
	// StartSession starts a session the caller owns and must end.
	StartSession(ctx context.Context) (Session, error)
	// SessionFromContext returns the session bound to ctx, or nil.
	SessionFromContext(ctx context.Context) Session
	// SupportsTransactions probes the deployment, transactions need a
	// replica set.
	SupportsTransactions(ctx context.Context) (bool, error)
}

// Session is a logical session that may run one transaction at a time.
type Session interface {
	InTransaction() bool
	StartTransaction() error
	CommitTransaction(ctx context.Context) error
	AbortTransaction(ctx context.Context) error
	EndSession(ctx context.Context)
	// Context binds the session to ctx. Operations issued with the returned
	// context run inside the session.
	Context(ctx context.Context) context.Context
}
