package service

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// IndexOptions describes how an index is built.
type IndexOptions struct {
	Name       string
	Unique     bool
	Background bool
	Sparse     bool
	Collation  *options.Collation
	// Extra adjusts the driver options after the fields above are applied.
	Extra func(o *options.IndexOptions)
}

// IndexData is an index declared in Config.Indexes.
type IndexData struct {
	// Keys is a field name or an ordered key document such as
	// bson.D{{Key: "name", Value: 1}}.
	Keys interface{}
	IndexOptions
}

func indexKeys(keys interface{}) interface{} {
	if field, ok := keys.(string); ok {
		return bson.D{{Key: field, Value: 1}}
	}
	return keys
}

// CreateIndex creates one index and returns its name.
func (s *BaseService[TInsert, TUpdate, TKey]) CreateIndex(ctx context.Context, keys interface{}, o IndexOptions) (string, error) {
	opts := options.Index().SetUnique(o.Unique).SetSparse(o.Sparse)
	if o.Name != "" {
		opts.SetName(o.Name)
	}
	if o.Background {
		opts.SetBackground(true)
	}
	if o.Collation != nil {
		opts.SetCollation(o.Collation)
	}
	if o.Extra != nil {
		o.Extra(opts)
	}

	return s.Collection().Indexes().CreateOne(ctx, mongo.IndexModel{Keys: indexKeys(keys), Options: opts})
}

// CreateIndexes creates every index of Config.Indexes, in order.
func (s *BaseService[TInsert, TUpdate, TKey]) CreateIndexes(ctx context.Context) error {
	for _, idx := range s.cfg.Indexes {
		if _, err := s.CreateIndex(ctx, idx.Keys, idx.IndexOptions); err != nil {
			return err
		}
	}
	return nil
}

// DropIndex drops the named index.
func (s *BaseService[TInsert, TUpdate, TKey]) DropIndex(ctx context.Context, name string) error {
	_, err := s.Collection().Indexes().DropOne(ctx, name)
	return err
}

// DropIndexes drops every index except _id.
func (s *BaseService[TInsert, TUpdate, TKey]) DropIndexes(ctx context.Context) error {
	_, err := s.Collection().Indexes().DropAll(ctx)
	return err
}

// ListIndexes returns a cursor over the collection's index specifications.
func (s *BaseService[TInsert, TUpdate, TKey]) ListIndexes(ctx context.Context) (*mongo.Cursor, error) {
	return s.Collection().Indexes().List(ctx)
}
