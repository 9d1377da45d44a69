package memdb

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const idIndexName = "_id_"

type indexSpec struct {
	name   string
	keys   bson.D
	unique bool
	sparse bool
	// foldCase is set by a collation of strength 1 or 2.
	foldCase  bool
	collation *options.Collation
}

// key returns the index entry of doc. ok is false for a sparse index when
// doc has none of the indexed fields.
func (s *indexSpec) key(doc bson.M) (string, bool) {
	parts := make([]string, 0, len(s.keys))
	present := false
	for _, k := range s.keys {
		v, exists := lookup(doc, k.Key)
		present = present || exists
		if str, isStr := v.(string); isStr && s.foldCase {
			v = strings.ToLower(str)
		}
		parts = append(parts, idKey(v))
	}
	if s.sparse && !present {
		return "", false
	}
	return strings.Join(parts, "\x00"), true
}

func (s *indexSpec) document() bson.M {
	keys := bson.D{}
	keys = append(keys, s.keys...)
	doc := bson.M{"v": int32(2), "key": keys, "name": s.name}
	if s.unique && s.name != idIndexName {
		doc["unique"] = true
	}
	if s.sparse {
		doc["sparse"] = true
	}
	if s.collation != nil {
		doc["collation"] = bson.M{"locale": s.collation.Locale, "strength": int32(s.collation.Strength)}
	}
	return doc
}

func (s *indexSpec) sameAs(o *indexSpec) bool {
	if len(s.keys) != len(o.keys) || s.unique != o.unique || s.sparse != o.sparse || s.foldCase != o.foldCase {
		return false
	}
	for i := range s.keys {
		if s.keys[i].Key != o.keys[i].Key || !equal(s.keys[i].Value, o.keys[i].Value) {
			return false
		}
	}
	return true
}

func (c *Collection) addIndex(spec *indexSpec) {
	c.indexes = append(c.indexes, spec)
	c.docs.AddIndex(spec.name, func(doc bson.M) any {
		key, ok := spec.key(doc)
		if !ok {
			return nil
		}
		return key
	})
}

func (c *Collection) findIndex(name string) int {
	for i, spec := range c.indexes {
		if spec.name == name {
			return i
		}
	}
	return -1
}

// checkUnique returns a duplicate key WriteError when doc collides with a
// stored document other than the one stored under self.
func (c *Collection) checkUnique(doc bson.M, self string) error {
	for _, spec := range c.indexes {
		if !spec.unique {
			continue
		}
		key, ok := spec.key(doc)
		if !ok {
			continue
		}
		hits, err := c.docs.Find(spec.name, key)
		if err != nil {
			return err
		}
		for _, hit := range hits {
			if idKey(hit["_id"]) != self {
				return duplicateKeyError(c.name, spec, doc)
			}
		}
	}
	return nil
}

func duplicateKeyError(coll string, spec *indexSpec, doc bson.M) mongo.WriteError {
	dup := make([]string, 0, len(spec.keys))
	for _, k := range spec.keys {
		v, _ := lookup(doc, k.Key)
		dup = append(dup, fmt.Sprintf("%s: %v", k.Key, v))
	}
	return mongo.WriteError{
		Code: codeDuplicateKey,
		Message: fmt.Sprintf("E11000 duplicate key error collection: %s index: %s dup key: { %s }",
			coll, spec.name, strings.Join(dup, ", ")),
	}
}

type indexView struct {
	c *Collection
}

func indexKeys(keys interface{}) (bson.D, error) {
	switch k := keys.(type) {
	case bson.D:
		return k, nil
	case string:
		return bson.D{{Key: k, Value: int32(1)}}, nil
	}
	m, ok := asDoc(keys)
	if !ok || len(m) != 1 {
		return nil, fmt.Errorf("memdb: index keys must be a bson.D or a single field document, got %T", keys)
	}
	for k, v := range m {
		return bson.D{{Key: k, Value: v}}, nil
	}
	return nil, nil
}

func defaultIndexName(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s_%v", k.Key, k.Value))
	}
	return strings.Join(parts, "_")
}

// CreateOne registers an index. Creating a unique index fails when stored
// documents already collide.
func (v *indexView) CreateOne(_ context.Context, model mongo.IndexModel, _ ...*options.CreateIndexesOptions) (string, error) {
	keys, err := indexKeys(model.Keys)
	if err != nil {
		return "", err
	}
	spec := &indexSpec{keys: keys, name: defaultIndexName(keys)}
	if o := model.Options; o != nil {
		if o.Name != nil && *o.Name != "" {
			spec.name = *o.Name
		}
		spec.unique = o.Unique != nil && *o.Unique
		spec.sparse = o.Sparse != nil && *o.Sparse
		if o.Collation != nil {
			spec.collation = o.Collation
			spec.foldCase = o.Collation.Strength == 1 || o.Collation.Strength == 2
		}
	}

	c := v.c
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	if i := c.findIndex(spec.name); i >= 0 {
		if c.indexes[i].sameAs(spec) {
			return spec.name, nil
		}
		return "", mongo.CommandError{
			Code:    86,
			Name:    "IndexKeySpecsConflict",
			Message: fmt.Sprintf("An existing index has the same name as the requested index: %s", spec.name),
		}
	}

	if spec.unique {
		seen := make(map[string]bool)
		for _, doc := range c.docs.Values() {
			key, ok := spec.key(doc)
			if !ok {
				continue
			}
			if seen[key] {
				return "", mongo.CommandError{Code: codeDuplicateKey, Name: "DuplicateKey", Message: duplicateKeyError(c.name, spec, doc).Message}
			}
			seen[key] = true
		}
	}
	c.addIndex(spec)
	return spec.name, nil
}

// DropOne drops an index by name. The _id index cannot be dropped.
func (v *indexView) DropOne(_ context.Context, name string, _ ...*options.DropIndexesOptions) (bson.Raw, error) {
	c := v.c
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	if name == idIndexName {
		return nil, mongo.CommandError{Code: 72, Name: "InvalidOptions", Message: "cannot drop _id index"}
	}
	i := c.findIndex(name)
	if i < 0 {
		return nil, mongo.CommandError{Code: 27, Name: "IndexNotFound", Message: fmt.Sprintf("index not found with name [%s]", name)}
	}
	c.indexes = append(c.indexes[:i], c.indexes[i+1:]...)
	c.docs.RemoveIndex(name)
	return nil, nil
}

// DropAll drops every index except _id.
func (v *indexView) DropAll(_ context.Context, _ ...*options.DropIndexesOptions) (bson.Raw, error) {
	c := v.c
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	kept := c.indexes[:0]
	for _, spec := range c.indexes {
		if spec.name == idIndexName {
			kept = append(kept, spec)
			continue
		}
		c.docs.RemoveIndex(spec.name)
	}
	c.indexes = kept
	return nil, nil
}

// List returns one document per index, _id first.
func (v *indexView) List(_ context.Context, _ ...*options.ListIndexesOptions) (*mongo.Cursor, error) {
	c := v.c
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	docs := make([]interface{}, 0, len(c.indexes))
	for _, spec := range c.indexes {
		docs = append(docs, spec.document())
	}
	return mongo.NewCursorFromDocuments(docs, nil, nil)
}
