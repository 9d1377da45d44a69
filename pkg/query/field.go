package query

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// Field is a queryable document attribute.
type Field struct {
	name string
}

// F returns the field stored under name.
func F(name string) Field { return Field{name: name} }

// Name returns the stored attribute name.
func (f Field) Name() string { return f.name }

// Eq matches documents where the field equals value. Slices, arrays and
// maps use $eq so that they are not interpreted as embedded documents or
// implicit array matches; everything else uses {name: value}.
func (f Field) Eq(value interface{}) Query {
	if isContainer(value) {
		return New(Eq(f.name, value))
	}
	return New(DirectEq(f.name, value))
}

func (f Field) Ne(value interface{}) Query  { return New(Ne(f.name, value)) }
func (f Field) Gt(value interface{}) Query  { return New(Gt(f.name, value)) }
func (f Field) Gte(value interface{}) Query { return New(Gte(f.name, value)) }
func (f Field) Lt(value interface{}) Query  { return New(Lt(f.name, value)) }
func (f Field) Lte(value interface{}) Query { return New(Lte(f.name, value)) }

func (f Field) In(value interface{}) Query    { return New(In(f.name, value)) }
func (f Field) NotIn(value interface{}) Query { return New(NotIn(f.name, value)) }

func (f Field) Exists(value bool) Query        { return New(Exists(f.name, value)) }
func (f Field) Type(alias string) Query        { return New(Type(f.name, alias)) }
func (f Field) All(values []interface{}) Query { return New(All(f.name, values)) }
func (f Field) ElemMatch(cond bson.M) Query    { return New(ElemMatch(f.name, cond)) }
func (f Field) Size(n int) Query               { return New(Size(f.name, n)) }
func (f Field) Regex(pattern string) Query     { return New(Regex(f.name, pattern)) }

func isContainer(v interface{}) bool {
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		// []byte is a scalar binary value.
		_, isBytes := v.([]byte)
		return !isBytes
	}
	return false
}

// Queryable exposes one Field per attribute of a document struct.
type Queryable struct {
	fields map[string]Field
}

// Q builds the Queryable of struct type T. Attributes are keyed by Go field
// name and named like they are stored: the bson tag name when present, the
// lowercased Go name otherwise. Embedded structs contribute their fields, so
// a model embedding model.Document exposes ID as "_id".
func Q[T any]() Queryable {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("query: Q requires a struct type, got %s", t))
	}

	q := Queryable{fields: make(map[string]Field)}
	collectFields(t, q.fields)
	return q
}

func collectFields(t reflect.Type, into map[string]Field) {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}

		name, inline, skip := StoredName(sf)
		if skip {
			continue
		}

		ft := sf.Type
		if ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		if (sf.Anonymous || inline) && ft.Kind() == reflect.Struct {
			collectFields(ft, into)
			continue
		}

		into[sf.Name] = F(name)
	}
}

// StoredName returns the attribute name a struct field is stored under.
// inline reports a ",inline" tag, skip a "-" tag.
func StoredName(sf reflect.StructField) (name string, inline, skip bool) {
	tag := sf.Tag.Get("bson")
	if tag == "-" {
		return "", false, true
	}

	parts := strings.Split(tag, ",")
	for _, opt := range parts[1:] {
		if opt == "inline" {
			inline = true
		}
	}

	name = parts[0]
	if name == "" {
		name = strings.ToLower(sf.Name)
	}
	return name, inline, false
}

// Lookup returns the field for a Go field name.
func (q Queryable) Lookup(goName string) (Field, bool) {
	f, ok := q.fields[goName]
	return f, ok
}

// F returns the field for a Go field name and panics when it does not exist.
func (q Queryable) F(goName string) Field {
	f, ok := q.fields[goName]
	if !ok {
		panic(fmt.Sprintf("query: unknown field %q", goName))
	}
	return f
}

// Names returns the Go field names in sorted order.
func (q Queryable) Names() []string {
	names := make([]string, 0, len(q.fields))
	for name := range q.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
