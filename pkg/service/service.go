package service

import (
	"context"
	stderrors "errors"
	"reflect"
	"sync"

	"github.com/kart-io/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/trace"

	"github.com/kart-io/mongokit/pkg/infra/tracing"
	"github.com/kart-io/mongokit/pkg/query"
	"github.com/kart-io/mongokit/pkg/validator"
)

const tracerName = "github.com/kart-io/mongokit/pkg/service"

// Config configures a BaseService.
type Config[TInsert any, TUpdate any, TKey comparable] struct {
	// ExcludeUnsetOnInsert drops nil fields from inserted documents.
	// Updates always drop them.
	ExcludeUnsetOnInsert bool

	// CollectionOptions are used when the collection handle is created.
	CollectionOptions []*options.CollectionOptions

	// Indexes are created, in order, by CreateIndexes.
	Indexes []IndexData

	// Validators and DeleteRules run in slice order.
	Validators  []Validator[*BaseService[TInsert, TUpdate, TKey]]
	DeleteRules []DeleteRule[*BaseService[TInsert, TUpdate, TKey], TKey]

	// ConvertForInsert replaces the inserted document. doc is the default
	// dump of data.
	ConvertForInsert func(ctx context.Context, data TInsert, doc bson.M) (interface{}, error)

	// ConvertForUpdate replaces the update object. doc is the dump of the
	// supplied fields, the default update is {"$set": doc}.
	ConvertForUpdate func(ctx context.Context, data TUpdate, doc bson.M) (interface{}, error)

	// StructValidator checks validate tags of struct payloads before the
	// registered validators run. Defaults to validator.Global().
	StructValidator *validator.Validator

	// DisableStructValidation skips the validate tag check.
	DisableStructValidation bool
}

// BaseService runs CRUD operations against one collection, enforcing
// validators on writes and delete rules around deletes.
//
// Rules receive the *BaseService as owner. Register rules before the
// service is used concurrently.
type BaseService[TInsert any, TUpdate any, TKey comparable] struct {
	db   Database
	name string
	cfg  Config[TInsert, TUpdate, TKey]

	validators  []Validator[*BaseService[TInsert, TUpdate, TKey]]
	deleteRules []DeleteRule[*BaseService[TInsert, TUpdate, TKey], TKey]

	collOnce sync.Once
	coll     Collection

	txMu    sync.Mutex
	txKnown bool
	txOK    bool
}

// Service is a BaseService keyed by ObjectID.
type Service[TInsert any, TUpdate any] = BaseService[TInsert, TUpdate, primitive.ObjectID]

// NewBase creates a service bound to the named collection of db.
func NewBase[TInsert any, TUpdate any, TKey comparable](
	db Database,
	collection string,
	cfg Config[TInsert, TUpdate, TKey],
) (*BaseService[TInsert, TUpdate, TKey], error) {
	if db == nil {
		return nil, ErrInvalidService.WithMessage("Service database is nil")
	}
	if collection == "" {
		return nil, ErrInvalidService.WithMessage("Service collection name is not initialized")
	}

	return &BaseService[TInsert, TUpdate, TKey]{
		db:          db,
		name:        collection,
		cfg:         cfg,
		validators:  append([]Validator[*BaseService[TInsert, TUpdate, TKey]](nil), cfg.Validators...),
		deleteRules: append([]DeleteRule[*BaseService[TInsert, TUpdate, TKey], TKey](nil), cfg.DeleteRules...),
	}, nil
}

// New creates an ObjectID keyed service.
func New[TInsert any, TUpdate any](
	db Database,
	collection string,
	cfg Config[TInsert, TUpdate, primitive.ObjectID],
) (*Service[TInsert, TUpdate], error) {
	return NewBase(db, collection, cfg)
}

// RegisterValidator appends validators after the configured ones.
func (s *BaseService[TInsert, TUpdate, TKey]) RegisterValidator(v ...Validator[*BaseService[TInsert, TUpdate, TKey]]) {
	s.validators = append(s.validators, v...)
}

// RegisterDeleteRule appends delete rules after the configured ones.
func (s *BaseService[TInsert, TUpdate, TKey]) RegisterDeleteRule(r ...DeleteRule[*BaseService[TInsert, TUpdate, TKey], TKey]) {
	s.deleteRules = append(s.deleteRules, r...)
}

// HasDeleteRules reports whether any delete rule is registered.
func (s *BaseService[TInsert, TUpdate, TKey]) HasDeleteRules() bool {
	return len(s.deleteRules) > 0
}

// CollectionName returns the bound collection name.
func (s *BaseService[TInsert, TUpdate, TKey]) CollectionName() string { return s.name }

// Database returns the database the service was created with.
func (s *BaseService[TInsert, TUpdate, TKey]) Database() Database { return s.db }

// Collection returns the collection handle, creating it on first use.
func (s *BaseService[TInsert, TUpdate, TKey]) Collection() Collection {
	s.collOnce.Do(func() {
		s.coll = s.db.Collection(s.name, s.cfg.CollectionOptions...)
	})
	return s.coll
}

// SupportsTransactions reports whether the deployment supports
// transactions. A successful probe is cached, failures are retried on the
// next call.
func (s *BaseService[TInsert, TUpdate, TKey]) SupportsTransactions(ctx context.Context) (bool, error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if s.txKnown {
		return s.txOK, nil
	}
	ok, err := s.db.SupportsTransactions(ctx)
	if err != nil {
		return false, err
	}
	s.txKnown, s.txOK = true, ok
	return ok, nil
}

func (s *BaseService[TInsert, TUpdate, TKey]) startSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	return tracing.StartSpan(ctx, tracerName, "mongokit."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			tracing.String("db.system", "mongodb"),
			tracing.String("db.collection.name", s.name),
			tracing.String("db.operation.name", op),
		),
	)
}

func endSpan(ctx context.Context, span trace.Span, err error) {
	tracing.RecordError(ctx, err)
	span.End()
}

// -- Read operations

// Aggregate runs pipeline. Values with a Pipeline method, such as
// *aggregation.Aggregation, are expanded.
func (s *BaseService[TInsert, TUpdate, TKey]) Aggregate(
	ctx context.Context,
	pipeline interface{},
	opts ...*options.AggregateOptions,
) (*mongo.Cursor, error) {
	if p, ok := pipeline.(interface{ Pipeline() []bson.M }); ok {
		pipeline = p.Pipeline()
	}
	return s.Collection().Aggregate(ctx, pipeline, opts...)
}

// CountDocuments counts the documents matching q.
func (s *BaseService[TInsert, TUpdate, TKey]) CountDocuments(
	ctx context.Context,
	q query.Filter,
	opts ...*options.CountOptions,
) (n int64, err error) {
	ctx, span := s.startSpan(ctx, "count")
	defer func() { endSpan(ctx, span, err) }()

	return s.Collection().CountDocuments(ctx, query.Compile(q), opts...)
}

// Find returns a cursor over the documents matching q.
func (s *BaseService[TInsert, TUpdate, TKey]) Find(
	ctx context.Context,
	q query.Filter,
	opts ...*options.FindOptions,
) (cur *mongo.Cursor, err error) {
	ctx, span := s.startSpan(ctx, "find")
	defer func() { endSpan(ctx, span, err) }()

	return s.Collection().Find(ctx, query.Compile(q), opts...)
}

// FindAll reads every document matching q.
func (s *BaseService[TInsert, TUpdate, TKey]) FindAll(
	ctx context.Context,
	q query.Filter,
	opts ...*options.FindOptions,
) ([]bson.M, error) {
	cur, err := s.Find(ctx, q, opts...)
	if err != nil {
		return nil, err
	}

	docs := []bson.M{}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// FindOne returns the first document matching q, or nil when there is none.
func (s *BaseService[TInsert, TUpdate, TKey]) FindOne(
	ctx context.Context,
	q query.Filter,
	opts ...*options.FindOneOptions,
) (doc bson.M, err error) {
	ctx, span := s.startSpan(ctx, "find_one")
	defer func() { endSpan(ctx, span, err) }()

	err = s.Collection().FindOne(ctx, query.Compile(q), opts...).Decode(&doc)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// FindIDs returns the _id of every document matching q.
func (s *BaseService[TInsert, TUpdate, TKey]) FindIDs(
	ctx context.Context,
	q query.Filter,
	opts ...*options.FindOptions,
) (ids []TKey, err error) {
	ctx, span := s.startSpan(ctx, "find_ids")
	defer func() { endSpan(ctx, span, err) }()

	opts = append(opts[:len(opts):len(opts)], options.Find().SetProjection(bson.M{"_id": 1}))
	cur, err := s.Collection().Find(ctx, query.Compile(q), opts...)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		ID TKey `bson:"_id"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}

	ids = make([]TKey, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids, nil
}

// GetByID returns the document with the given id, or nil when absent.
func (s *BaseService[TInsert, TUpdate, TKey]) GetByID(
	ctx context.Context,
	id TKey,
	opts ...*options.FindOneOptions,
) (bson.M, error) {
	return s.FindOne(ctx, bson.M{"_id": id}, opts...)
}

// Exists reports whether a document with the given id exists.
func (s *BaseService[TInsert, TUpdate, TKey]) Exists(ctx context.Context, id TKey, opts ...*options.CountOptions) (bool, error) {
	n, err := s.CountDocuments(ctx, bson.M{"_id": id}, opts...)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// -- Write operations

// InsertOne validates, converts and inserts data.
func (s *BaseService[TInsert, TUpdate, TKey]) InsertOne(
	ctx context.Context,
	data TInsert,
	opts ...*options.InsertOneOptions,
) (res *mongo.InsertOneResult, err error) {
	ctx, span := s.startSpan(ctx, "insert_one")
	defer func() { endSpan(ctx, span, err) }()

	doc, err := s.prepareInsert(ctx, data)
	if err != nil {
		return nil, err
	}
	return s.Collection().InsertOne(ctx, doc, opts...)
}

// InsertMany validates and converts every item before a single insert.
// Nothing is inserted when any item fails.
func (s *BaseService[TInsert, TUpdate, TKey]) InsertMany(
	ctx context.Context,
	data []TInsert,
	opts ...*options.InsertManyOptions,
) (res *mongo.InsertManyResult, err error) {
	ctx, span := s.startSpan(ctx, "insert_many")
	defer func() { endSpan(ctx, span, err) }()

	docs := make([]interface{}, 0, len(data))
	for _, item := range data {
		doc, err := s.prepareInsert(ctx, item)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	logger.Debugw("Inserting documents", "collection", s.name, "count", len(docs))
	return s.Collection().InsertMany(ctx, docs, opts...)
}

// Create inserts data and returns the stored document.
func (s *BaseService[TInsert, TUpdate, TKey]) Create(
	ctx context.Context,
	data TInsert,
	opts ...*options.InsertOneOptions,
) (bson.M, error) {
	res, err := s.InsertOne(ctx, data, opts...)
	if err != nil {
		return nil, err
	}

	id, ok := res.InsertedID.(TKey)
	if !ok {
		return nil, ErrService.WithMessagef("Unexpected inserted ID type %T", res.InsertedID)
	}
	doc, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrService.WithMessage("Failed to query the inserted document by its ID")
	}
	return doc, nil
}

// UpdateOne validates changes against q and updates the first match.
func (s *BaseService[TInsert, TUpdate, TKey]) UpdateOne(
	ctx context.Context,
	q query.Filter,
	changes TUpdate,
	opts ...*options.UpdateOptions,
) (res *mongo.UpdateResult, err error) {
	ctx, span := s.startSpan(ctx, "update_one")
	defer func() { endSpan(ctx, span, err) }()

	update, err := s.prepareUpdate(ctx, changes, q)
	if err != nil {
		return nil, err
	}
	if update == nil {
		return s.countMatched(ctx, q, true)
	}
	return s.Collection().UpdateOne(ctx, query.Compile(q), update, opts...)
}

// UpdateMany validates changes against q and updates every match.
func (s *BaseService[TInsert, TUpdate, TKey]) UpdateMany(
	ctx context.Context,
	q query.Filter,
	changes TUpdate,
	opts ...*options.UpdateOptions,
) (res *mongo.UpdateResult, err error) {
	ctx, span := s.startSpan(ctx, "update_many")
	defer func() { endSpan(ctx, span, err) }()

	update, err := s.prepareUpdate(ctx, changes, q)
	if err != nil {
		return nil, err
	}
	if update == nil {
		return s.countMatched(ctx, q, false)
	}
	return s.Collection().UpdateMany(ctx, query.Compile(q), update, opts...)
}

// UpdateByID updates the document with the given id.
func (s *BaseService[TInsert, TUpdate, TKey]) UpdateByID(
	ctx context.Context,
	id TKey,
	changes TUpdate,
	opts ...*options.UpdateOptions,
) (*mongo.UpdateResult, error) {
	return s.UpdateOne(ctx, bson.M{"_id": id}, changes, opts...)
}

// Update updates the document with the given id and returns it.
func (s *BaseService[TInsert, TUpdate, TKey]) Update(
	ctx context.Context,
	id TKey,
	changes TUpdate,
	opts ...*options.UpdateOptions,
) (bson.M, error) {
	if _, err := s.UpdateByID(ctx, id, changes, opts...); err != nil {
		return nil, err
	}

	doc, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrService.WithMessage("Failed to query the updated document by its ID")
	}
	return doc, nil
}

func (s *BaseService[TInsert, TUpdate, TKey]) prepareInsert(ctx context.Context, data TInsert) (interface{}, error) {
	if err := s.validate(ctx, ValidateInsert, data, nil); err != nil {
		return nil, err
	}

	doc, err := Dump(data, s.cfg.ExcludeUnsetOnInsert)
	if err != nil {
		return nil, err
	}
	if s.cfg.ConvertForInsert != nil {
		return s.cfg.ConvertForInsert(ctx, data, doc)
	}
	return doc, nil
}

func (s *BaseService[TInsert, TUpdate, TKey]) prepareUpdate(ctx context.Context, data TUpdate, q query.Filter) (interface{}, error) {
	if err := s.validate(ctx, ValidateUpdate, data, q); err != nil {
		return nil, err
	}

	doc, err := Dump(data, true)
	if err != nil {
		return nil, err
	}
	if s.cfg.ConvertForUpdate != nil {
		return s.cfg.ConvertForUpdate(ctx, data, doc)
	}
	if len(doc) == 0 {
		return nil, nil
	}
	return bson.M{"$set": doc}, nil
}

// countMatched stands in for an update without changes, which servers
// before 5.0 reject as an empty $set.
func (s *BaseService[TInsert, TUpdate, TKey]) countMatched(ctx context.Context, q query.Filter, one bool) (*mongo.UpdateResult, error) {
	opts := options.Count()
	if one {
		opts.SetLimit(1)
	}
	n, err := s.Collection().CountDocuments(ctx, query.Compile(q), opts)
	if err != nil {
		return nil, err
	}
	logger.Debugw("Skipping update without changes", "collection", s.name, "matched", n)
	return &mongo.UpdateResult{MatchedCount: n}, nil
}

// validate runs the struct check and then every validator including op.
func (s *BaseService[TInsert, TUpdate, TKey]) validate(ctx context.Context, op ValidatorConfig, data interface{}, q query.Filter) error {
	if err := s.validateStruct(op, data); err != nil {
		return err
	}

	args := ValidateArgs{Data: data, Query: q}
	for _, v := range s.validators {
		if !v.Config().Includes(op) {
			continue
		}
		if err := v.Invoke(ctx, s, args); err != nil {
			logger.Warnw("Validator failed",
				"collection", s.name,
				"validator", v.Name(),
				"operation", string(op),
				"error", err,
			)
			return err
		}
	}
	return nil
}

func (s *BaseService[TInsert, TUpdate, TKey]) validateStruct(op ValidatorConfig, data interface{}) error {
	if s.cfg.DisableStructValidation || !isStruct(data) {
		return nil
	}

	v := s.cfg.StructValidator
	if v == nil {
		v = validator.Global()
	}
	if err := v.Validate(data); err != nil {
		return &RuleError{Kind: KindValidation, Rule: "struct", Config: string(op), cause: err}
	}
	return nil
}

func isStruct(data interface{}) bool {
	t := reflect.TypeOf(data)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t != nil && t.Kind() == reflect.Struct
}
