package model

import (
	"bytes"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"

	"github.com/kart-io/mongokit/pkg/utils/json"
)

// OptionalValue is implemented by Optional. Payload dumping uses it to tell
// an omitted field from an explicit null.
type OptionalValue interface {
	// IsSet reports whether a value, null included, was supplied.
	IsSet() bool
	// AnyValue returns the supplied value, or nil for null and unset.
	AnyValue() interface{}
}

// Optional is a payload field with three states: unset, null and a value.
//
// Unset fields are left out of partial updates, null fields are written as
// null. The zero Optional is unset.
type Optional[T any] struct {
	value *T
	set   bool
}

var _ OptionalValue = Optional[int]{}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: &v, set: true}
}

// Null returns an Optional that was explicitly set to null.
func Null[T any]() Optional[T] {
	return Optional[T]{set: true}
}

// OptionalFromPtr returns Null for a nil p and Some(*p) otherwise.
func OptionalFromPtr[T any](p *T) Optional[T] {
	if p == nil {
		return Null[T]()
	}
	return Some(*p)
}

// IsSet reports whether the field was supplied.
func (o Optional[T]) IsSet() bool { return o.set }

// IsNull reports whether the field was supplied as null.
func (o Optional[T]) IsNull() bool { return o.set && o.value == nil }

// IsZero reports whether the field is unset, so omitempty drops it.
func (o Optional[T]) IsZero() bool { return !o.set }

// Get returns the value and whether there is one.
func (o Optional[T]) Get() (T, bool) {
	if o.value == nil {
		var zero T
		return zero, false
	}
	return *o.value, true
}

// Ptr returns the value, nil for null and unset.
func (o Optional[T]) Ptr() *T {
	return o.value
}

// AnyValue returns the value, nil for null and unset.
func (o Optional[T]) AnyValue() interface{} {
	if o.value == nil {
		return nil
	}
	return *o.value
}

// MarshalJSON writes null for null and unset fields.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if o.value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.value)
}

// UnmarshalJSON is only called for keys present in the input, which marks
// the field as set.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = Null[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// MarshalBSONValue writes BSON null for null and unset fields.
func (o Optional[T]) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if o.value == nil {
		return bson.TypeNull, nil, nil
	}
	return bson.MarshalValue(*o.value)
}

// UnmarshalBSONValue sets the field, to null for BSON null.
func (o *Optional[T]) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	if t == bson.TypeNull || t == bson.TypeUndefined {
		*o = Null[T]()
		return nil
	}
	var v T
	if err := (bson.RawValue{Type: t, Value: data}).Unmarshal(&v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}
