package memdb

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// compileUpdate normalizes an update document. Only operator updates are
// accepted, replacement documents and pipelines are rejected.
func compileUpdate(update interface{}) (bson.M, error) {
	if update == nil {
		return nil, fmt.Errorf("memdb: update document is nil")
	}
	if _, ok := asArray(update); ok {
		return nil, fmt.Errorf("memdb: pipeline updates are not supported")
	}
	ops, err := normalize(update)
	if err != nil {
		return nil, fmt.Errorf("memdb: invalid update: %w", err)
	}
	if len(ops) == 0 {
		return nil, fmt.Errorf("memdb: update document must not be empty")
	}
	for op, arg := range ops {
		if !strings.HasPrefix(op, "$") {
			return nil, fmt.Errorf("memdb: update document must contain only atomic operators, got %q", op)
		}
		if _, ok := asDoc(arg); !ok {
			return nil, fmt.Errorf("memdb: %s needs a document", op)
		}
	}
	return ops, nil
}

// applyUpdate applies ops to doc in place and returns it.
func applyUpdate(doc bson.M, ops bson.M, inserting bool) (bson.M, error) {
	for op, arg := range ops {
		fields, _ := asDoc(arg)
		for path, v := range fields {
			switch op {
			case "$set":
				setPath(doc, path, v)
			case "$setOnInsert":
				if inserting {
					setPath(doc, path, v)
				}
			case "$unset":
				unsetPath(doc, path)
			case "$inc":
				if err := incPath(doc, path, v); err != nil {
					return nil, err
				}
			case "$push":
				cur, exists := lookup(doc, path)
				arr, ok := asArray(cur)
				if exists && !ok {
					return nil, fmt.Errorf("memdb: $push on non-array field %s", path)
				}
				setPath(doc, path, append(append(bson.A{}, arr...), v))
			case "$pull":
				cur, _ := lookup(doc, path)
				arr, ok := asArray(cur)
				if !ok {
					continue
				}
				kept := bson.A{}
				for _, el := range arr {
					if !equal(el, v) {
						kept = append(kept, el)
					}
				}
				setPath(doc, path, kept)
			default:
				return nil, fmt.Errorf("memdb: unsupported update operator %s", op)
			}
		}
	}
	return doc, nil
}

func incPath(doc bson.M, path string, by interface{}) error {
	delta, ok := toFloat(by)
	if !ok {
		return fmt.Errorf("memdb: $inc needs a number for %s", path)
	}
	cur, exists := lookup(doc, path)
	if !exists {
		setPath(doc, path, by)
		return nil
	}
	switch n := cur.(type) {
	case int32:
		if d, ok := by.(int32); ok {
			setPath(doc, path, n+d)
			return nil
		}
		setPath(doc, path, float64(n)+delta)
	case int64:
		switch d := by.(type) {
		case int32:
			setPath(doc, path, n+int64(d))
		case int64:
			setPath(doc, path, n+d)
		default:
			setPath(doc, path, float64(n)+delta)
		}
	case float64:
		setPath(doc, path, n+delta)
	default:
		return fmt.Errorf("memdb: cannot apply $inc to non-numeric field %s", path)
	}
	return nil
}

func setPath(doc bson.M, path string, v interface{}) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := asDoc(cur[part])
		if !ok {
			next = bson.M{}
		}
		cur[part] = next
		cur = next
	}
	cur[parts[len(parts)-1]] = v
}

func unsetPath(doc bson.M, path string) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := asDoc(cur[part])
		if !ok {
			return
		}
		cur = next
	}
	delete(cur, parts[len(parts)-1])
}
