package service

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// replSetCollection exists in the local database of replica set members only.
const replSetCollection = "system.replset"

type mongoDatabase struct {
	db *mongo.Database
}

// NewMongoDatabase adapts a driver database.
func NewMongoDatabase(db *mongo.Database) Database {
	return &mongoDatabase{db: db}
}

func (d *mongoDatabase) Collection(name string, opts ...*options.CollectionOptions) Collection {
	return &mongoCollection{Collection: d.db.Collection(name, opts...)}
}

func (d *mongoDatabase) StartSession(_ context.Context) (Session, error) {
	sess, err := d.db.Client().StartSession()
	if err != nil {
		return nil, err
	}
	return &mongoSession{sess: sess}, nil
}

func (d *mongoDatabase) SessionFromContext(ctx context.Context) Session {
	if sess := mongo.SessionFromContext(ctx); sess != nil {
		return &mongoSession{sess: sess}
	}
	return nil
}

func (d *mongoDatabase) SupportsTransactions(ctx context.Context) (bool, error) {
	names, err := d.db.Client().Database("local").ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return false, err
	}
	for _, name := range names {
		if name == replSetCollection {
			return true, nil
		}
	}
	return false, nil
}

// mongoCollection only narrows Indexes to the IndexView interface.
type mongoCollection struct {
	*mongo.Collection
}

func (c *mongoCollection) Indexes() IndexView {
	return c.Collection.Indexes()
}

type mongoSession struct {
	sess mongo.Session
}

func (s *mongoSession) InTransaction() bool {
	if xs, ok := s.sess.(mongo.XSession); ok {
		return xs.ClientSession().TransactionRunning()
	}
	return false
}

func (s *mongoSession) StartTransaction() error {
	return s.sess.StartTransaction()
}

func (s *mongoSession) CommitTransaction(ctx context.Context) error {
	return s.sess.CommitTransaction(ctx)
}

func (s *mongoSession) AbortTransaction(ctx context.Context) error {
	return s.sess.AbortTransaction(ctx)
}

func (s *mongoSession) EndSession(ctx context.Context) {
	s.sess.EndSession(ctx)
}

func (s *mongoSession) Context(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, s.sess)
}
