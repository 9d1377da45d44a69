package service

import (
	"fmt"
	"reflect"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kart-io/mongokit/pkg/model"
	"github.com/kart-io/mongokit/pkg/query"
)

// Dumper is implemented by payloads that build their own document.
type Dumper interface {
	MongoDump(excludeUnset bool) (bson.M, error)
}

var (
	objectIDType    = reflect.TypeOf(primitive.ObjectID{})
	objectIDPtrType = reflect.TypeOf((*primitive.ObjectID)(nil))
)

// Dump converts a payload into a document.
//
// Struct fields are stored under their bson tag name, or the lowercased Go
// name. ObjectID fields, and string fields tagged mongo:"objectid", are
// converted to ObjectIDs with nil kept as nil. With excludeUnset, nil
// pointers, maps, slices and interfaces are left out so that partial
// updates only touch supplied fields. model.Optional fields are left out
// while unset and written as null when explicitly set to null.
func Dump(data interface{}, excludeUnset bool) (bson.M, error) {
	switch v := data.(type) {
	case nil:
		return nil, fmt.Errorf("service: cannot dump a nil payload")
	case Dumper:
		return v.MongoDump(excludeUnset)
	case bson.M:
		return copyMap(v), nil
	case map[string]interface{}:
		return copyMap(v), nil
	}

	rv := reflect.ValueOf(data)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, fmt.Errorf("service: cannot dump a nil %T", data)
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("service: cannot dump %T, want a struct", data)
	}

	values, ids := bson.M{}, bson.M{}
	if err := dumpStruct(rv, excludeUnset, values, ids); err != nil {
		return nil, err
	}
	for k, v := range ids {
		values[k] = v
	}
	return values, nil
}

func copyMap(m map[string]interface{}) bson.M {
	out := make(bson.M, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func dumpStruct(rv reflect.Value, excludeUnset bool, values, ids bson.M) error {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		name, inline, skip := query.StoredName(sf)
		if skip {
			continue
		}

		fv := rv.Field(i)
		if sf.Anonymous || inline {
			inner := fv
			if inner.Kind() == reflect.Ptr {
				if inner.IsNil() {
					continue
				}
				inner = inner.Elem()
			}
			if inner.Kind() == reflect.Struct && inner.Type() != objectIDType {
				if err := dumpStruct(inner, excludeUnset, values, ids); err != nil {
					return err
				}
				continue
			}
		}

		omitEmpty := strings.Contains(sf.Tag.Get("bson"), ",omitempty")
		if opt, ok := fv.Interface().(model.OptionalValue); ok {
			if !opt.IsSet() && (excludeUnset || omitEmpty) {
				continue
			}
			values[name] = opt.AnyValue()
			continue
		}

		if excludeUnset && isUnset(fv) {
			continue
		}
		if omitEmpty && fv.IsZero() {
			continue
		}

		if isIDField(sf) {
			id, err := dumpID(fv)
			if err != nil {
				return fmt.Errorf("field %s: %w", sf.Name, err)
			}
			ids[name] = id
			continue
		}
		values[name] = fv.Interface()
	}
	return nil
}

func isUnset(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}

func isIDField(sf reflect.StructField) bool {
	switch sf.Type {
	case objectIDType, objectIDPtrType:
		return true
	}
	if sf.Tag.Get("mongo") != "objectid" {
		return false
	}
	t := sf.Type
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Kind() == reflect.String
}

// dumpID returns nil, an ObjectID, or an error for malformed hex strings.
func dumpID(v reflect.Value) (interface{}, error) {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}
	if v.Type() == objectIDType {
		return v.Interface(), nil
	}

	s := v.String()
	if s == "" {
		return nil, nil
	}
	return model.ParseObjectID(s)
}
