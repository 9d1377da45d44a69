// Package query builds MongoDB filter documents from typed expressions.
//
// Every expression is a Clause and compiles to a bson.M with ToMongo:
//
//	q := query.F("name").Eq("root").And(query.F("parent").Exists(false))
//	filter := q.ToMongo() // {"$and": [{"name": "root"}, {"parent": {"$exists": false}}]}
//
// Clauses are immutable. Query.And and Query.Or return new queries.
package query

import (
	"go.mongodb.org/mongo-driver/bson"
)

// Clause is anything that compiles to a MongoDB filter document.
type Clause interface {
	ToMongo() bson.M
}

// Key-value operators.
const (
	OpEq        = "$eq"
	OpNe        = "$ne"
	OpGt        = "$gt"
	OpGte       = "$gte"
	OpLt        = "$lt"
	OpLte       = "$lte"
	OpIn        = "$in"
	OpNotIn     = "$nin"
	OpExists    = "$exists"
	OpType      = "$type"
	OpAll       = "$all"
	OpElemMatch = "$elemMatch"
	OpSize      = "$size"
	OpRegex     = "$regex"
)

// Logical operators.
const (
	OpAnd = "$and"
	OpOr  = "$or"
	OpNot = "$not"
	OpNor = "$nor"
)

// KeyValue is a single-field condition such as {key: {$gt: value}}.
// An empty operator compiles to plain equality {key: value}.
type KeyValue struct {
	key   string
	op    string
	value interface{}
}

// Key returns the document attribute the condition applies to.
func (kv KeyValue) Key() string { return kv.key }

// Operator returns the operator, empty for direct equality.
func (kv KeyValue) Operator() string { return kv.op }

// Value returns the operand.
func (kv KeyValue) Value() interface{} { return kv.value }

// ToMongo implements Clause.
func (kv KeyValue) ToMongo() bson.M {
	if kv.op == "" {
		return bson.M{kv.key: kv.value}
	}
	return bson.M{kv.key: bson.M{kv.op: kv.value}}
}

func keyValue(key, op string, value interface{}) KeyValue {
	return KeyValue{key: key, op: op, value: value}
}

// Eq builds {key: {$eq: value}}.
func Eq(key string, value interface{}) KeyValue { return keyValue(key, OpEq, value) }

// DirectEq builds {key: value}.
func DirectEq(key string, value interface{}) KeyValue { return keyValue(key, "", value) }

// Ne builds {key: {$ne: value}}.
func Ne(key string, value interface{}) KeyValue { return keyValue(key, OpNe, value) }

// Gt builds {key: {$gt: value}}.
func Gt(key string, value interface{}) KeyValue { return keyValue(key, OpGt, value) }

// Gte builds {key: {$gte: value}}.
func Gte(key string, value interface{}) KeyValue { return keyValue(key, OpGte, value) }

// Lt builds {key: {$lt: value}}.
func Lt(key string, value interface{}) KeyValue { return keyValue(key, OpLt, value) }

// Lte builds {key: {$lte: value}}.
func Lte(key string, value interface{}) KeyValue { return keyValue(key, OpLte, value) }

// In builds {key: {$in: value}}.
func In(key string, value interface{}) KeyValue { return keyValue(key, OpIn, value) }

// NotIn builds {key: {$nin: value}}.
func NotIn(key string, value interface{}) KeyValue { return keyValue(key, OpNotIn, value) }

// Exists builds {key: {$exists: value}}.
func Exists(key string, value bool) KeyValue { return keyValue(key, OpExists, value) }

// Type builds {key: {$type: alias}}.
func Type(key string, alias string) KeyValue { return keyValue(key, OpType, alias) }

// All builds {key: {$all: values}}.
func All(key string, values []interface{}) KeyValue { return keyValue(key, OpAll, values) }

// ElemMatch builds {key: {$elemMatch: cond}}.
func ElemMatch(key string, cond bson.M) KeyValue { return keyValue(key, OpElemMatch, cond) }

// Size builds {key: {$size: n}}.
func Size(key string, n int) KeyValue { return keyValue(key, OpSize, n) }

// Regex builds {key: {$regex: pattern}}.
func Regex(key string, pattern string) KeyValue { return keyValue(key, OpRegex, pattern) }

// Logical combines clauses under $and, $or, $not or $nor.
type Logical struct {
	op      string
	clauses []Clause
}

func logical(op string, clauses []Clause) Logical {
	return Logical{op: op, clauses: append([]Clause(nil), clauses...)}
}

// And builds {$and: [...]}.
func And(clauses ...Clause) Logical { return logical(OpAnd, clauses) }

// Or builds {$or: [...]}.
func Or(clauses ...Clause) Logical { return logical(OpOr, clauses) }

// Not builds {$not: [...]}.
func Not(clauses ...Clause) Logical { return logical(OpNot, clauses) }

// Nor builds {$nor: [...]}.
func Nor(clauses ...Clause) Logical { return logical(OpNor, clauses) }

// Operator returns the logical operator.
func (l Logical) Operator() string { return l.op }

// Clauses returns a copy of the operand clauses.
func (l Logical) Clauses() []Clause {
	return append([]Clause(nil), l.clauses...)
}

// ToMongo implements Clause.
func (l Logical) ToMongo() bson.M {
	items := make(bson.A, 0, len(l.clauses))
	for _, c := range l.clauses {
		items = append(items, c.ToMongo())
	}
	return bson.M{l.op: items}
}

// Raw wraps a hand written filter document.
type Raw bson.M

// ToMongo returns a shallow copy of the wrapped document.
func (r Raw) ToMongo() bson.M {
	out := make(bson.M, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
