package memdb

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kart-io/mongokit/pkg/cache"
	"github.com/kart-io/mongokit/pkg/service"
)

// Collection level operation names, used by Calls and FailNext.
const (
	OpCount      = "count"
	OpFind       = "find"
	OpFindOne    = "find_one"
	OpInsertOne  = "insert_one"
	OpInsertMany = "insert_many"
	OpUpdateOne  = "update_one"
	OpUpdateMany = "update_many"
	OpDeleteOne  = "delete_one"
	OpDeleteMany = "delete_many"
	OpAggregate  = "aggregate"
)

const (
	codeDuplicateKey   = 11000
	codeImmutableField = 66
)

// Collection is an in-memory collection. Documents are kept in the shape
// the driver decodes into bson.M and returned in insertion order unless a
// sort is given.
type Collection struct {
	db   *DB
	name string

	docs    *cache.MemoryCache[string, bson.M]
	indexes []*indexSpec

	calls    map[string]int
	failures map[string]error
}

var _ service.Collection = (*Collection)(nil)

func newCollection(db *DB, name string) *Collection {
	c := &Collection{
		db:       db,
		name:     name,
		docs:     cache.NewMemoryCache[string, bson.M](),
		calls:    make(map[string]int),
		failures: make(map[string]error),
	}
	c.addIndex(&indexSpec{name: idIndexName, keys: bson.D{{Key: "_id", Value: int32(1)}}, unique: true})
	return c
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// Calls returns how many times op was called.
func (c *Collection) Calls(op string) int {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	return c.calls[op]
}

// ResetCalls clears the call counters.
func (c *Collection) ResetCalls() {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	c.calls = make(map[string]int)
}

// FailNext makes the next call of op fail with err.
func (c *Collection) FailNext(op string, err error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	c.failures[op] = err
}

// Len returns the number of stored documents.
func (c *Collection) Len() int { return c.docs.Len() }

// Docs returns copies of the stored documents in insertion order.
func (c *Collection) Docs() []bson.M {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	docs := c.docs.Values()
	out := make([]bson.M, 0, len(docs))
	for _, doc := range docs {
		out = append(out, copyDoc(doc))
	}
	return out
}

// begin counts op and returns an injected failure. Callers hold db.mu.
func (c *Collection) begin(op string) error {
	c.calls[op]++
	err, ok := c.failures[op]
	if ok {
		delete(c.failures, op)
	}
	return err
}

// CountDocuments counts the documents matching filter.
func (c *Collection) CountDocuments(_ context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	if err := c.begin(OpCount); err != nil {
		return 0, err
	}
	docs, err := c.filter(filter)
	if err != nil {
		return 0, err
	}

	var skip, limit *int64
	for _, o := range opts {
		if o == nil {
			continue
		}
		if o.Skip != nil {
			skip = o.Skip
		}
		if o.Limit != nil {
			limit = o.Limit
		}
	}
	docs = window(docs, skip, limit)
	return int64(len(docs)), nil
}

// Find returns a cursor over the matching documents.
func (c *Collection) Find(_ context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	if err := c.begin(OpFind); err != nil {
		return nil, err
	}

	var (
		projection, sortSpec interface{}
		skip, limit          *int64
	)
	for _, o := range opts {
		if o == nil {
			continue
		}
		if o.Projection != nil {
			projection = o.Projection
		}
		if o.Sort != nil {
			sortSpec = o.Sort
		}
		if o.Skip != nil {
			skip = o.Skip
		}
		if o.Limit != nil {
			limit = o.Limit
		}
	}
	if limit != nil && *limit < 0 {
		l := -*limit
		limit = &l
	}

	docs, err := c.query(filter, sortSpec, skip, limit, projection)
	if err != nil {
		return nil, err
	}
	return mongo.NewCursorFromDocuments(toInterfaces(docs), nil, nil)
}

// FindOne returns the first matching document.
func (c *Collection) FindOne(_ context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	if err := c.begin(OpFindOne); err != nil {
		return mongo.NewSingleResultFromDocument(bson.D{}, err, nil)
	}

	var (
		projection, sortSpec interface{}
		skip                 *int64
	)
	for _, o := range opts {
		if o == nil {
			continue
		}
		if o.Projection != nil {
			projection = o.Projection
		}
		if o.Sort != nil {
			sortSpec = o.Sort
		}
		if o.Skip != nil {
			skip = o.Skip
		}
	}

	one := int64(1)
	docs, err := c.query(filter, sortSpec, skip, &one, projection)
	if err != nil {
		return mongo.NewSingleResultFromDocument(bson.D{}, err, nil)
	}
	if len(docs) == 0 {
		return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)
	}
	return mongo.NewSingleResultFromDocument(docs[0], nil, nil)
}

// InsertOne stores document, generating an ObjectID _id when missing.
func (c *Collection) InsertOne(_ context.Context, document interface{}, _ ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	if err := c.begin(OpInsertOne); err != nil {
		return nil, err
	}
	id, err := c.insert(document)
	if err != nil {
		if we, ok := err.(mongo.WriteError); ok {
			return nil, mongo.WriteException{WriteErrors: mongo.WriteErrors{we}}
		}
		return nil, err
	}
	return &mongo.InsertOneResult{InsertedID: id}, nil
}

// InsertMany stores documents in order and stops at the first failure.
func (c *Collection) InsertMany(_ context.Context, documents []interface{}, _ ...*options.InsertManyOptions) (*mongo.InsertManyResult, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	if err := c.begin(OpInsertMany); err != nil {
		return nil, err
	}
	if len(documents) == 0 {
		return nil, mongo.ErrEmptySlice
	}

	res := &mongo.InsertManyResult{}
	for i, doc := range documents {
		id, err := c.insert(doc)
		if err != nil {
			if we, ok := err.(mongo.WriteError); ok {
				we.Index = i
				return res, mongo.BulkWriteException{WriteErrors: []mongo.BulkWriteError{{WriteError: we}}}
			}
			return res, err
		}
		res.InsertedIDs = append(res.InsertedIDs, id)
	}
	return res, nil
}

// UpdateOne updates the first matching document.
func (c *Collection) UpdateOne(_ context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	if err := c.begin(OpUpdateOne); err != nil {
		return nil, err
	}
	return c.update(filter, update, true, opts)
}

// UpdateMany updates every matching document.
func (c *Collection) UpdateMany(_ context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	if err := c.begin(OpUpdateMany); err != nil {
		return nil, err
	}
	return c.update(filter, update, false, opts)
}

// DeleteOne deletes the first matching document.
func (c *Collection) DeleteOne(_ context.Context, filter interface{}, _ ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	if err := c.begin(OpDeleteOne); err != nil {
		return nil, err
	}
	return c.delete(filter, true)
}

// DeleteMany deletes every matching document.
func (c *Collection) DeleteMany(_ context.Context, filter interface{}, _ ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	if err := c.begin(OpDeleteMany); err != nil {
		return nil, err
	}
	return c.delete(filter, false)
}

// Aggregate runs a pipeline made of $match, $sort, $skip, $limit, $project
// and $count stages.
func (c *Collection) Aggregate(_ context.Context, pipeline interface{}, _ ...*options.AggregateOptions) (*mongo.Cursor, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	if err := c.begin(OpAggregate); err != nil {
		return nil, err
	}
	stages, err := pipelineStages(pipeline)
	if err != nil {
		return nil, err
	}

	docs := c.all()
	for _, st := range stages {
		if docs, err = runStage(docs, st); err != nil {
			return nil, err
		}
	}
	return mongo.NewCursorFromDocuments(toInterfaces(docs), nil, nil)
}

// Indexes returns the index view of the collection.
func (c *Collection) Indexes() service.IndexView {
	return &indexView{c: c}
}

// -- helpers, callers hold db.mu

func (c *Collection) all() []bson.M {
	docs := c.docs.Values()
	out := make([]bson.M, len(docs))
	for i, doc := range docs {
		out[i] = copyDoc(doc)
	}
	return out
}

func (c *Collection) filter(filter interface{}) ([]bson.M, error) {
	f, err := compileFilter(filter)
	if err != nil {
		return nil, err
	}
	var out []bson.M
	for _, doc := range c.docs.Values() {
		ok, err := match(doc, f)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (c *Collection) query(filter, sortSpec interface{}, skip, limit *int64, projection interface{}) ([]bson.M, error) {
	docs, err := c.filter(filter)
	if err != nil {
		return nil, err
	}
	if sortSpec != nil {
		keys, err := sortKeys(sortSpec)
		if err != nil {
			return nil, err
		}
		sortDocs(docs, keys)
	}
	docs = window(docs, skip, limit)

	out := make([]bson.M, 0, len(docs))
	for _, doc := range docs {
		p, err := project(doc, projection)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (c *Collection) insert(document interface{}) (interface{}, error) {
	if document == nil {
		return nil, mongo.ErrNilDocument
	}
	doc, err := normalize(document)
	if err != nil {
		return nil, err
	}
	id, ok := doc["_id"]
	if !ok {
		id = primitive.NewObjectID()
		doc["_id"] = id
	}
	if err := c.checkUnique(doc, ""); err != nil {
		return nil, err
	}
	c.docs.Set(idKey(id), doc)
	return id, nil
}

func (c *Collection) update(filter, update interface{}, one bool, opts []*options.UpdateOptions) (*mongo.UpdateResult, error) {
	ops, err := compileUpdate(update)
	if err != nil {
		return nil, err
	}
	upsert := false
	for _, o := range opts {
		if o != nil && o.Upsert != nil {
			upsert = *o.Upsert
		}
	}

	docs, err := c.filter(filter)
	if err != nil {
		return nil, err
	}
	if one && len(docs) > 1 {
		docs = docs[:1]
	}

	res := &mongo.UpdateResult{}
	if len(docs) == 0 {
		if !upsert {
			return res, nil
		}
		f, err := compileFilter(filter)
		if err != nil {
			return nil, err
		}
		doc, err := applyUpdate(seedFromFilter(f), ops, true)
		if err != nil {
			return nil, err
		}
		id, err := c.insert(doc)
		if err != nil {
			return nil, writeException(err)
		}
		res.UpsertedCount, res.UpsertedID = 1, id
		return res, nil
	}

	for _, doc := range docs {
		updated, err := applyUpdate(copyDoc(doc), ops, false)
		if err != nil {
			return nil, err
		}
		if !equal(updated["_id"], doc["_id"]) {
			return nil, mongo.WriteException{WriteErrors: mongo.WriteErrors{{
				Code:    codeImmutableField,
				Message: "Performing an update on the path '_id' would modify the immutable field '_id'",
			}}}
		}
		key := idKey(doc["_id"])
		if err := c.checkUnique(updated, key); err != nil {
			return nil, writeException(err)
		}
		res.MatchedCount++
		if !equal(updated, doc) {
			c.docs.Set(key, updated)
			res.ModifiedCount++
		}
	}
	return res, nil
}

func (c *Collection) delete(filter interface{}, one bool) (*mongo.DeleteResult, error) {
	docs, err := c.filter(filter)
	if err != nil {
		return nil, err
	}
	if one && len(docs) > 1 {
		docs = docs[:1]
	}
	for _, doc := range docs {
		c.docs.Del(idKey(doc["_id"]))
	}
	return &mongo.DeleteResult{DeletedCount: int64(len(docs))}, nil
}

func writeException(err error) error {
	if we, ok := err.(mongo.WriteError); ok {
		return mongo.WriteException{WriteErrors: mongo.WriteErrors{we}}
	}
	return err
}

func compileFilter(filter interface{}) (bson.M, error) {
	if filter == nil {
		return bson.M{}, nil
	}
	f, err := normalize(filter)
	if err != nil {
		return nil, fmt.Errorf("memdb: invalid filter: %w", err)
	}
	return f, nil
}

// seedFromFilter returns the equality fields of an upsert filter.
func seedFromFilter(f bson.M) bson.M {
	doc := bson.M{}
	for k, v := range f {
		if strings.HasPrefix(k, "$") {
			continue
		}
		if d, ok := asDoc(v); ok && isOperatorDoc(d) {
			if eq, ok := d["$eq"]; ok {
				doc[k] = eq
			}
			continue
		}
		doc[k] = v
	}
	return doc
}

func window(docs []bson.M, skip, limit *int64) []bson.M {
	if skip != nil && *skip > 0 {
		if int(*skip) >= len(docs) {
			return nil
		}
		docs = docs[*skip:]
	}
	if limit != nil && *limit > 0 && int(*limit) < len(docs) {
		docs = docs[:*limit]
	}
	return docs
}

type sortKey struct {
	path string
	desc bool
}

func sortKeys(spec interface{}) ([]sortKey, error) {
	var keys []sortKey
	add := func(k string, v interface{}) error {
		n, ok := toFloat(v)
		if !ok {
			return fmt.Errorf("memdb: invalid sort direction for %s", k)
		}
		keys = append(keys, sortKey{path: k, desc: n < 0})
		return nil
	}

	switch s := spec.(type) {
	case bson.D:
		for _, e := range s {
			if err := add(e.Key, e.Value); err != nil {
				return nil, err
			}
		}
	case bson.M, map[string]interface{}:
		m, _ := asDoc(s)
		names := make([]string, 0, len(m))
		for k := range m {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			if err := add(k, m[k]); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("memdb: unsupported sort type %T", spec)
	}
	return keys, nil
}

func sortDocs(docs []bson.M, keys []sortKey) {
	sort.SliceStable(docs, func(i, j int) bool {
		for _, k := range keys {
			a, _ := lookup(docs[i], k.path)
			b, _ := lookup(docs[j], k.path)
			cmp := compareForSort(a, b)
			if cmp == 0 {
				continue
			}
			if k.desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

// compareForSort orders missing and null values first, then comparable
// values, then anything else by type name.
func compareForSort(a, b interface{}) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if c, ok := compare(a, b); ok {
		return c
	}
	return strings.Compare(typeAlias(a), typeAlias(b))
}

// project applies an inclusion or exclusion projection.
func project(doc bson.M, projection interface{}) (bson.M, error) {
	if projection == nil {
		return copyDoc(doc), nil
	}
	spec, err := normalize(projection)
	if err != nil {
		return nil, fmt.Errorf("memdb: invalid projection: %w", err)
	}
	if len(spec) == 0 {
		return copyDoc(doc), nil
	}

	inclusion := false
	for _, v := range spec {
		if truthy(v) {
			inclusion = true
		}
	}

	src := copyDoc(doc)
	if !inclusion {
		for k, v := range spec {
			if !truthy(v) {
				unsetPath(src, k)
			}
		}
		return src, nil
	}

	out := bson.M{}
	if v, ok := spec["_id"]; !ok || truthy(v) {
		if id, ok := src["_id"]; ok {
			out["_id"] = id
		}
	}
	for k, v := range spec {
		if k == "_id" || !truthy(v) {
			continue
		}
		if val, ok := lookup(src, k); ok {
			setPath(out, k, val)
		}
	}
	return out, nil
}

func truthy(v interface{}) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	n, ok := toFloat(v)
	return ok && n != 0
}

func copyDoc(doc bson.M) bson.M {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	if d, ok := asDoc(v); ok {
		return copyDoc(d)
	}
	if a, ok := asArray(v); ok {
		out := make(bson.A, len(a))
		for i, e := range a {
			out[i] = copyValue(e)
		}
		return out
	}
	return v
}

func toInterfaces(docs []bson.M) []interface{} {
	out := make([]interface{}, len(docs))
	for i, d := range docs {
		out[i] = d
	}
	return out
}

// idKey is the storage key for an _id value.
func idKey(id interface{}) string {
	if oid, ok := id.(primitive.ObjectID); ok {
		return "oid:" + oid.Hex()
	}
	return fmt.Sprintf("%T:%v", id, id)
}
