package query

import "go.mongodb.org/mongo-driver/bson"

// Query is an immutable holder of an optional root clause.
// The zero value matches every document.
type Query struct {
	clause Clause
}

// New returns a query rooted at clause. A nil clause gives an empty query.
func New(clause Clause) Query {
	return Query{clause: unwrap(clause)}
}

// Clause returns the root clause, nil for an empty query.
func (q Query) Clause() Clause { return q.clause }

// IsEmpty reports whether the query has no clause.
func (q Query) IsEmpty() bool { return q.clause == nil }

// Clone returns a copy of q sharing the same root clause.
func (q Query) Clone() Query { return Query{clause: q.clause} }

// And combines q with c. An existing $and root is extended rather than nested.
func (q Query) And(c Clause) Query {
	return q.combine(OpAnd, c)
}

// Or combines q with c. An existing $or root is extended rather than nested.
func (q Query) Or(c Clause) Query {
	return q.combine(OpOr, c)
}

func (q Query) combine(op string, c Clause) Query {
	c = unwrap(c)
	switch {
	case c == nil:
		return q.Clone()
	case q.clause == nil:
		return Query{clause: c}
	}

	if root, ok := q.clause.(Logical); ok && root.op == op {
		return Query{clause: logical(op, append(root.Clauses(), c))}
	}
	return Query{clause: logical(op, []Clause{q.clause, c})}
}

// ToMongo implements Clause. An empty query compiles to {}.
func (q Query) ToMongo() bson.M {
	if q.clause == nil {
		return bson.M{}
	}
	return q.clause.ToMongo()
}

// unwrap replaces a Query operand by its root clause.
func unwrap(c Clause) Clause {
	switch v := c.(type) {
	case Query:
		return v.clause
	case *Query:
		if v == nil {
			return nil
		}
		return v.clause
	}
	return c
}
